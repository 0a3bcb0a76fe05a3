package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/taxiledger/internal/client/auth"
	"github.com/dmitrijs2005/taxiledger/internal/client/config"
	"github.com/dmitrijs2005/taxiledger/internal/client/importer"
	"github.com/dmitrijs2005/taxiledger/internal/client/remote"
	"github.com/dmitrijs2005/taxiledger/internal/client/repositories"
	"github.com/dmitrijs2005/taxiledger/internal/client/services"
	"github.com/dmitrijs2005/taxiledger/internal/client/settings"
	"github.com/dmitrijs2005/taxiledger/internal/client/signals"
	"github.com/dmitrijs2005/taxiledger/internal/client/store"
	"github.com/dmitrijs2005/taxiledger/internal/common"
	"github.com/dmitrijs2005/taxiledger/internal/events"
	"github.com/dmitrijs2005/taxiledger/internal/filex"
	"github.com/dmitrijs2005/taxiledger/internal/logging"
	"github.com/dmitrijs2005/taxiledger/internal/timex"
)

var errNotLoggedIn = fmt.Errorf("%w: please login first", common.ErrUnauthorized)

type App struct {
	config *config.Config
	log    logging.Logger
	loc    *time.Location
	clock  timex.Clock

	closers []func() error

	auth      *services.AuthService
	entries   *services.EntryService
	trips     *services.TripService
	summary   *services.SummaryService
	hotspots  *services.HotspotService
	scheduler *services.SyncScheduler
	settings  *settings.Store
	importer  *importer.Importer
	s3        importer.S3Config

	claims *auth.Claims
	reader *bufio.Reader
	out    io.Writer
}

// NewApp opens the local store and the remote named by c and wires the
// services on top. Without a remote DSN the app runs against an
// in-memory remote, so sync works but nothing leaves the process.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}

	if err := filex.EnsureParentDir(c.DBPath); err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}
	repos, err := repositories.Open(ctx, c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	var rs remote.Store
	closers := []func() error{repos.Close}
	if c.RemoteDSN != "" {
		pg, err := remote.OpenPostgres(c.RemoteDSN)
		if err != nil {
			_ = repos.Close()
			return nil, err
		}
		if err := pg.RunMigrations(ctx); err != nil {
			log.Warn(ctx, "remote migrations not applied", "error", err)
		}
		rs = pg
		closers = append(closers, pg.Close)
	} else {
		log.Warn(ctx, "no remote configured, syncing to memory")
		rs = remote.NewMemoryStore()
	}

	a := newApp(c, repos, rs, loc, timex.RealClock{}, log)
	a.closers = closers
	return a, nil
}

func newApp(c *config.Config, repos *repositories.Repositories, rs remote.Store, loc *time.Location, clock timex.Clock, log logging.Logger) *App {
	bus := events.NewBus(log)
	bus.Subscribe(func(ev events.Event) {
		if ev.Record != nil {
			log.Debug(context.Background(), "record changed", "collection", ev.Collection, "id", ev.Record.ID)
		}
	})

	cfgStore := settings.NewStore(repos.Metadata, bus)
	st := store.New(repos.Records, bus, store.WithClock(clock), store.WithPointPrecision(cfgStore))

	var fix *services.Fix
	if c.Lat != nil && c.Lng != nil {
		fix = &services.Fix{Lat: *c.Lat, Lng: *c.Lng}
	}
	loader := signals.NewLoader(
		signals.NewOpenMeteo(c.WeatherURL, c.Timezone, nil),
		signals.NewNagerDate(c.HolidayURL, nil),
		repos.Metadata,
		c.HolidayCountry,
		clock,
		log,
	)

	authSvc := services.NewAuthService(repos.Metadata, []byte(c.TokenSecret), clock, log)
	engine := services.NewSyncEngine(st, rs, cfgStore, clock, log)
	sched := services.NewSyncScheduler(engine, rs, authSvc, services.SchedulerConfig{
		SyncInterval:        c.SyncInterval,
		OnlineCheckInterval: c.OnlineCheckInterval,
	}, clock, log)
	location := services.StaticLocation{Fix: fix}

	return &App{
		config:    c,
		log:       log,
		loc:       loc,
		clock:     clock,
		auth:      authSvc,
		entries:   services.NewEntryService(st),
		trips:     services.NewTripService(st, cfgStore),
		summary:   services.NewSummaryService(st, loc, clock),
		hotspots:  services.NewHotspotService(st, cfgStore, location, loader, loc, clock, log),
		scheduler: sched,
		settings:  cfgStore,
		importer:  importer.New(st, cfgStore, nil, log),
		s3: importer.S3Config{
			Region:       c.S3Region,
			Endpoint:     c.S3Endpoint,
			AccessKey:    c.S3AccessKey,
			SecretKey:    c.S3SecretKey,
			UsePathStyle: c.S3PathStyle,
		},
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}
}

// Close releases the local and remote stores.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// Run restores the stored session, starts the sync scheduler and blocks
// in the REPL until the user exits or ctx is done.
func (a *App) Run(ctx context.Context) {
	defer func() {
		if err := a.Close(); err != nil {
			a.log.Error(ctx, "close", "error", err)
		}
	}()

	a.restoreSession(ctx)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.scheduler.Run(ctx)

	printlnFn("Welcome to taxiledger (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) restoreSession(ctx context.Context) {
	claims, err := a.auth.Current(ctx)
	switch {
	case err == nil:
		a.claims = claims
	case errors.Is(err, common.ErrUnauthorized):
	default:
		a.log.Warn(ctx, "stored session not usable", "error", err)
	}
}

func (a *App) isLoggedIn() bool {
	return a.claims != nil
}

// userID resolves the session for a command. A session that lapsed
// since login is dropped.
func (a *App) userID(ctx context.Context) (string, error) {
	id, err := a.auth.UserID(ctx)
	if err != nil {
		a.claims = nil
		if errors.Is(err, common.ErrUnauthorized) {
			return "", errNotLoggedIn
		}
		return "", err
	}
	return id, nil
}

func (a *App) getStatus() string {
	s := ""
	if a.claims != nil {
		s = a.claimsLabel() + " "
	}
	st := a.scheduler.Status()
	s += onlineLabel(st.Online)
	if st.State == services.StateSyncing {
		s += ", syncing"
	}
	return fmt.Sprintf("(%s)", s)
}
