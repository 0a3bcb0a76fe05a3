package testutil

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/taxiledger/internal/client/repositories"
)

// NewTestRepositories opens a migrated in-memory SQLite store that is
// closed when the test completes.
func NewTestRepositories(t *testing.T) *repositories.Repositories {
	t.Helper()

	repos, err := repositories.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("failed to open local store: %v", err)
	}
	t.Cleanup(func() { _ = repos.Close() })
	return repos
}
