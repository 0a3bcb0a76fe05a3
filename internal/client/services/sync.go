package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/taxiledger/internal/client/models"
	"github.com/dmitrijs2005/taxiledger/internal/client/remote"
	"github.com/dmitrijs2005/taxiledger/internal/client/repositories/records"
	"github.com/dmitrijs2005/taxiledger/internal/logging"
	"github.com/dmitrijs2005/taxiledger/internal/timex"
)

// RecordStore is the part of the local store the sync engine uses.
type RecordStore interface {
	Query(ctx context.Context, c models.Collection, f records.Filter) ([]models.Record, error)
	UpsertRaw(ctx context.Context, c models.Collection, rec models.Record) (*models.Record, error)
}

// Watermark persists the time of the last successful sync.
type Watermark interface {
	LastSyncAt(ctx context.Context) (*time.Time, error)
	SetLastSyncAt(ctx context.Context, at time.Time) error
}

// SyncResult counts what one cycle moved.
type SyncResult struct {
	Pushed int
	Pulled int
	At     time.Time
}

// SyncEngine runs push-then-pull cycles between the local store and a
// remote store. It does no scheduling and no locking; see SyncScheduler.
type SyncEngine struct {
	local  RecordStore
	remote remote.Store
	marks  Watermark
	wire   remote.WireMapper
	clock  timex.Clock
	log    logging.Logger
}

func NewSyncEngine(local RecordStore, rs remote.Store, marks Watermark, clock timex.Clock, log logging.Logger) *SyncEngine {
	if clock == nil {
		clock = timex.RealClock{}
	}
	if log == nil {
		log = logging.Nop()
	}
	return &SyncEngine{
		local:  local,
		remote: rs,
		marks:  marks,
		clock:  clock,
		log:    log.With("component", "sync"),
	}
}

// RunOnce pushes the pending records of userID and pulls everything the
// remote changed since the last watermark, collection by collection. The
// first failure aborts the cycle and leaves the watermark where it was.
func (e *SyncEngine) RunOnce(ctx context.Context, userID string) (SyncResult, error) {
	ctx = logging.ContextWith(ctx, "user", userID)
	since, err := e.marks.LastSyncAt(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("read watermark: %w", err)
	}

	var res SyncResult
	for _, c := range models.SyncCollections {
		pushed, err := e.push(ctx, c, userID)
		if err != nil {
			return SyncResult{}, fmt.Errorf("push %s: %w", c, err)
		}
		pulled, err := e.pull(ctx, c, userID, since, pushed)
		if err != nil {
			return SyncResult{}, fmt.Errorf("pull %s: %w", c, err)
		}
		res.Pushed += len(pushed)
		res.Pulled += pulled
	}

	res.At = e.clock.Now().UTC()
	if err := e.marks.SetLastSyncAt(ctx, res.At); err != nil {
		return SyncResult{}, fmt.Errorf("save watermark: %w", err)
	}

	e.log.Info(ctx, "sync finished", "pushed", res.Pushed, "pulled", res.Pulled)
	return res, nil
}

// pushedSet maps the id of every record acknowledged by the remote in this
// cycle to the updated_at it was pushed with.
type pushedSet map[string]time.Time

// echo reports whether row is the unchanged copy of a record just pushed.
func (p pushedSet) echo(row remote.Row) bool {
	at, ok := p[row.ID]
	return ok && at.Truncate(time.Microsecond).Equal(row.UpdatedAt.Truncate(time.Microsecond))
}

func (e *SyncEngine) push(ctx context.Context, c models.Collection, userID string) (pushedSet, error) {
	pending, err := e.local.Query(ctx, c, records.Filter{
		IncludeDeleted: true,
		UserID:         userID,
		Status:         models.StatusPending,
	})
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return nil, nil
	}

	rows := make([]remote.Row, 0, len(pending))
	for _, r := range pending {
		rows = append(rows, e.wire.ToRemote(r))
	}
	if err := e.remote.Upsert(ctx, c, rows); err != nil {
		return nil, err
	}

	pushed := make(pushedSet, len(pending))
	for _, r := range pending {
		r.SyncStatus = models.StatusSynced
		if _, err := e.local.UpsertRaw(ctx, c, r); err != nil {
			return nil, err
		}
		pushed[r.ID] = r.UpdatedAt
	}
	e.log.Debug(ctx, "pushed records", "collection", c, "count", len(pending))
	return pushed, nil
}

// pull installs remote changes since the watermark. Rows that merely echo a
// record pushed earlier in the same cycle are neither reinstalled nor counted.
func (e *SyncEngine) pull(ctx context.Context, c models.Collection, userID string, since *time.Time, pushed pushedSet) (int, error) {
	rows, err := e.remote.Select(ctx, c, userID, since)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, row := range rows {
		if pushed.echo(row) {
			continue
		}
		if _, err := e.local.UpsertRaw(ctx, c, e.wire.FromRemote(row)); err != nil {
			return 0, err
		}
		n++
	}
	if n > 0 {
		e.log.Debug(ctx, "pulled records", "collection", c, "count", n)
	}
	return n, nil
}
