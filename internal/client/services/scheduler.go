package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/taxiledger/internal/common"
	"github.com/dmitrijs2005/taxiledger/internal/logging"
	"github.com/dmitrijs2005/taxiledger/internal/timex"
)

// Syncer runs one sync cycle.
type Syncer interface {
	RunOnce(ctx context.Context, userID string) (SyncResult, error)
}

// Pinger reports whether the remote store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// UserSource resolves the signed-in user. It returns
// common.ErrUnauthorized when nobody is signed in.
type UserSource interface {
	UserID(ctx context.Context) (string, error)
}

// State is what the scheduler is doing.
type State string

const (
	StateIdle    State = "idle"
	StateSyncing State = "syncing"
	StateError   State = "error"
)

const (
	DefaultSyncInterval        = 5 * time.Minute
	DefaultOnlineCheckInterval = 10 * time.Second
	DefaultPingTimeout         = 3 * time.Second
)

type SchedulerConfig struct {
	SyncInterval        time.Duration
	OnlineCheckInterval time.Duration
	PingTimeout         time.Duration
}

// SchedulerStatus is a snapshot for display.
type SchedulerStatus struct {
	State      State
	Online     bool
	LastResult SyncResult
	LastError  string
	LastRunAt  time.Time
}

// SyncScheduler decides when the sync engine runs: once at start, when
// the remote becomes reachable again and on a fixed interval. At most
// one cycle runs at a time.
type SyncScheduler struct {
	engine Syncer
	pinger Pinger
	users  UserSource
	cfg    SchedulerConfig
	clock  timex.Clock
	log    logging.Logger

	mu      sync.Mutex
	running bool
	status  SchedulerStatus
}

func NewSyncScheduler(engine Syncer, pinger Pinger, users UserSource, cfg SchedulerConfig, clock timex.Clock, log logging.Logger) *SyncScheduler {
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = DefaultSyncInterval
	}
	if cfg.OnlineCheckInterval <= 0 {
		cfg.OnlineCheckInterval = DefaultOnlineCheckInterval
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = DefaultPingTimeout
	}
	if clock == nil {
		clock = timex.RealClock{}
	}
	if log == nil {
		log = logging.Nop()
	}
	return &SyncScheduler{
		engine: engine,
		pinger: pinger,
		users:  users,
		cfg:    cfg,
		clock:  clock,
		log:    log.With("component", "scheduler"),
		status: SchedulerStatus{State: StateIdle},
	}
}

// Status returns the current snapshot.
func (s *SyncScheduler) Status() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// CheckOnline pings the remote and records the outcome. It reports
// whether the remote just came back.
func (s *SyncScheduler) CheckOnline(ctx context.Context) (online, cameBack bool) {
	pctx, cancel := context.WithTimeout(ctx, s.cfg.PingTimeout)
	err := s.pinger.Ping(pctx)
	cancel()
	online = err == nil

	s.mu.Lock()
	was := s.status.Online
	s.status.Online = online
	s.mu.Unlock()

	if was != online {
		if online {
			s.log.Info(ctx, "remote store reachable")
		} else {
			s.log.Warn(ctx, "remote store unreachable", "error", err)
		}
	}
	return online, online && !was
}

// Trigger runs one cycle now. It fails with common.ErrOffline when the
// remote cannot be reached, common.ErrUnauthorized when nobody is signed
// in and common.ErrSyncInProgress when a cycle is already running.
func (s *SyncScheduler) Trigger(ctx context.Context) (SyncResult, error) {
	userID, err := s.users.UserID(ctx)
	if err != nil {
		return SyncResult{}, err
	}
	if online, _ := s.CheckOnline(ctx); !online {
		return SyncResult{}, common.ErrOffline
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return SyncResult{}, common.ErrSyncInProgress
	}
	s.running = true
	s.status.State = StateSyncing
	s.status.LastError = ""
	s.mu.Unlock()

	res, err := s.engine.RunOnce(ctx, userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.status.LastRunAt = s.clock.Now()
	if err != nil {
		s.status.State = StateError
		s.status.LastError = err.Error()
		return SyncResult{}, err
	}
	s.status.State = StateIdle
	s.status.LastResult = res
	return res, nil
}

// Run drives the schedule until ctx is done.
func (s *SyncScheduler) Run(ctx context.Context) {
	s.runScheduled(ctx, "start")

	syncTicker := time.NewTicker(s.cfg.SyncInterval)
	defer syncTicker.Stop()
	onlineTicker := time.NewTicker(s.cfg.OnlineCheckInterval)
	defer onlineTicker.Stop()

	for {
		select {
		case <-onlineTicker.C:
			if _, cameBack := s.CheckOnline(ctx); cameBack {
				s.runScheduled(ctx, "online")
			}
		case <-syncTicker.C:
			s.runScheduled(ctx, "interval")
		case <-ctx.Done():
			return
		}
	}
}

func (s *SyncScheduler) runScheduled(ctx context.Context, reason string) {
	_, err := s.Trigger(ctx)
	switch {
	case err == nil:
	case errors.Is(err, common.ErrUnauthorized),
		errors.Is(err, common.ErrOffline),
		errors.Is(err, common.ErrSyncInProgress):
		s.log.Debug(ctx, "scheduled sync skipped", "reason", reason, "error", err)
	default:
		s.log.Error(ctx, "scheduled sync failed", "reason", reason, "error", err)
	}
}
