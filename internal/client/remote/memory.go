package remote

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/dmitrijs2005/taxiledger/internal/client/models"
)

// MemoryStore is an in-process Store. It backs tests and the CLI's
// offline demo mode. Fail* fields inject errors.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[models.Collection]map[string]Row

	FailUpsert map[models.Collection]error
	FailSelect map[models.Collection]error
	FailPing   error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows:       make(map[models.Collection]map[string]Row),
		FailUpsert: make(map[models.Collection]error),
		FailSelect: make(map[models.Collection]error),
	}
}

func (m *MemoryStore) Upsert(_ context.Context, c models.Collection, rows []Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.FailUpsert[c]; err != nil {
		return err
	}
	if m.rows[c] == nil {
		m.rows[c] = make(map[string]Row)
	}
	for _, r := range rows {
		m.rows[c][r.ID] = copyRow(r)
	}
	return nil
}

func (m *MemoryStore) Select(_ context.Context, c models.Collection, userID string, since *time.Time) ([]Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.FailSelect[c]; err != nil {
		return nil, err
	}
	var out []Row
	for _, r := range m.rows[c] {
		if r.UserID != userID {
			continue
		}
		if since != nil && r.UpdatedAt.Before(*since) {
			continue
		}
		out = append(out, copyRow(r))
	}
	return out, nil
}

func (m *MemoryStore) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.FailPing
}

// Put seeds a row as if another device had pushed it.
func (m *MemoryStore) Put(c models.Collection, r Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rows[c] == nil {
		m.rows[c] = make(map[string]Row)
	}
	m.rows[c][r.ID] = copyRow(r)
}

// Row returns the stored row with id, if any.
func (m *MemoryStore) Row(c models.Collection, id string) (Row, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[c][id]
	return copyRow(r), ok
}

// Len counts the rows of c.
func (m *MemoryStore) Len(c models.Collection) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows[c])
}

// SetPingError switches the simulated reachability.
func (m *MemoryStore) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FailPing = err
}

func copyRow(r Row) Row {
	r.Data = maps.Clone(r.Data)
	if r.DeletedAt != nil {
		d := *r.DeletedAt
		r.DeletedAt = &d
	}
	return r
}
