package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/taxiledger/internal/client/models"
	"github.com/dmitrijs2005/taxiledger/internal/client/remote"
	"github.com/dmitrijs2005/taxiledger/internal/client/repositories"
	"github.com/dmitrijs2005/taxiledger/internal/client/settings"
	"github.com/dmitrijs2005/taxiledger/internal/client/store"
	"github.com/dmitrijs2005/taxiledger/internal/events"
	"github.com/dmitrijs2005/taxiledger/internal/testutil"
)

type testEnv struct {
	repos    *repositories.Repositories
	bus      *events.Bus
	store    *store.Store
	settings *settings.Store
	remote   *remote.MemoryStore
	clock    *testutil.StubClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repos := testutil.NewTestRepositories(t)
	bus := events.NewBus(nil)
	clock := testutil.FixedClock()
	return &testEnv{
		repos:    repos,
		bus:      bus,
		store:    store.New(repos.Records, bus, store.WithClock(clock), store.WithIDGenerator(testutil.NewStubIDGenerator())),
		settings: settings.NewStore(repos.Metadata, bus),
		remote:   remote.NewMemoryStore(),
		clock:    clock,
	}
}

func (e *testEnv) create(t *testing.T, c models.Collection, v models.Values, owner string) *models.Record {
	t.Helper()
	rec, err := e.store.Create(context.Background(), c, v, owner)
	require.NoError(t, err)
	return rec
}

func (e *testEnv) get(t *testing.T, c models.Collection, id string) *models.Record {
	t.Helper()
	rec, err := e.store.Get(context.Background(), c, id)
	require.NoError(t, err)
	return rec
}

func (e *testEnv) save(t *testing.T, p settings.Patch) {
	t.Helper()
	_, err := e.settings.Save(context.Background(), p)
	require.NoError(t, err)
}

func ptr[T any](v T) *T { return &v }
