package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/taxiledger/internal/client/models"
	"github.com/dmitrijs2005/taxiledger/internal/client/repositories/records"
	"github.com/dmitrijs2005/taxiledger/internal/client/settings"
	"github.com/dmitrijs2005/taxiledger/internal/client/signals"
	"github.com/dmitrijs2005/taxiledger/internal/common"
	"github.com/dmitrijs2005/taxiledger/internal/hotspot"
	"github.com/dmitrijs2005/taxiledger/internal/logging"
	"github.com/dmitrijs2005/taxiledger/internal/timex"
)

// Fix is a one-shot position reading.
type Fix struct {
	Lat       float64
	Lng       float64
	AccuracyM float64
}

// LocationProvider reads the device position once. Failures are
// common.ErrLocationPermissionDenied, common.ErrLocationUnavailable or
// common.ErrLocationTimeout.
type LocationProvider interface {
	Current(ctx context.Context) (Fix, error)
}

// StaticLocation is a LocationProvider with a configured position.
type StaticLocation struct {
	Fix *Fix
}

func (s StaticLocation) Current(ctx context.Context) (Fix, error) {
	if err := ctx.Err(); err != nil {
		return Fix{}, common.ErrLocationTimeout
	}
	if s.Fix == nil {
		return Fix{}, common.ErrLocationUnavailable
	}
	return *s.Fix, nil
}

// SignalLoader fetches weather and holiday context.
type SignalLoader interface {
	Load(ctx context.Context, req signals.Request) signals.Signals
}

const DefaultLookbackDays = 7

// HotspotRequest holds the per-view options of the map.
type HotspotRequest struct {
	// LookbackDays defaults to DefaultLookbackDays.
	LookbackDays int
	TopN         int
}

// HotspotView is a computed map with the context it was computed in.
type HotspotView struct {
	hotspot.Result
	Goal    hotspot.Goal
	Bucket  hotspot.Bucket
	Center  hotspot.LatLng
	Live    *hotspot.LatLng
	Signals signals.Signals
	Points  int
}

// HotspotService gathers records, settings and context signals and runs
// the scoring engine over them.
type HotspotService struct {
	store    RecordQuerier
	settings SettingsReader
	location LocationProvider
	signals  SignalLoader
	loc      *time.Location
	clock    timex.Clock
	log      logging.Logger
}

// NewHotspotService wires the service. location and sig may be nil, in
// which case the live position and the context signals stay unknown.
func NewHotspotService(s RecordQuerier, st SettingsReader, location LocationProvider, sig SignalLoader, loc *time.Location, clock timex.Clock, log logging.Logger) *HotspotService {
	if loc == nil {
		loc = time.UTC
	}
	if clock == nil {
		clock = timex.RealClock{}
	}
	if log == nil {
		log = logging.Nop()
	}
	return &HotspotService{
		store:    s,
		settings: st,
		location: location,
		signals:  sig,
		loc:      loc,
		clock:    clock,
		log:      log.With("component", "hotspot"),
	}
}

func (h *HotspotService) Compute(ctx context.Context, userID string, req HotspotRequest) (HotspotView, error) {
	cfg, err := h.settings.Get(ctx)
	if err != nil {
		return HotspotView{}, fmt.Errorf("read settings: %w", err)
	}
	if req.LookbackDays <= 0 {
		req.LookbackDays = DefaultLookbackDays
	}

	points, err := h.points(ctx, userID)
	if err != nil {
		return HotspotView{}, err
	}

	now := h.clock.Now()
	hctx := hotspot.Context{
		Now:               now,
		Location:          h.loc,
		LookbackDays:      req.LookbackDays,
		UseCurrentHour:    cfg.UseCurrentHour,
		Precision:         cfg.MapPrecision,
		Goal:              hotspot.Goal(cfg.HeatmapGoal),
		HeatmapIntensity:  cfg.HeatmapIntensity,
		DeadheadCostPerKm: cfg.DeadheadCostPerKm,
		DeadheadRadiusKm:  cfg.DeadheadRadiusKm,
		DistancePenaltyKm: cfg.DistancePenaltyKm,
		UseWeather:        cfg.UseWeather,
		UseHoliday:        cfg.UseHoliday,
		ConfidenceTarget:  hotspot.ConfidenceTarget,
		TopN:              req.TopN,
	}
	hctx.Live = h.live(ctx, cfg)

	view := HotspotView{
		Goal:   hctx.Goal,
		Bucket: hotspot.BucketFor(now, h.loc),
		Center: hotspot.Center(hotspot.Filter(points, hotspot.Context{Now: now, Location: h.loc, LookbackDays: req.LookbackDays})),
		Live:   hctx.Live,
		Points: len(points),
	}

	if cfg.HeatmapGoal == settings.GoalEconomy {
		if hctx.Income, err = h.income(ctx, userID); err != nil {
			return HotspotView{}, err
		}
		if h.signals != nil && (cfg.UseWeather || cfg.UseHoliday) {
			view.Signals = h.signals.Load(ctx, signals.Request{
				Center:   view.Center,
				Now:      now,
				Location: h.loc,
				Weather:  cfg.UseWeather,
				Holiday:  cfg.UseHoliday,
			})
			hctx.Weather = view.Signals.Weather
			hctx.IsHoliday = view.Signals.IsHoliday
		}
	}

	view.Result = hotspot.Compute(points, hctx)
	return view, nil
}

func (h *HotspotService) points(ctx context.Context, userID string) ([]hotspot.Point, error) {
	rs, err := h.store.Query(ctx, models.HeatmapPoints, records.Filter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("read heatmap points: %w", err)
	}
	out := make([]hotspot.Point, 0, len(rs))
	for _, r := range rs {
		p := models.HeatmapPointFromValues(r.Data)
		if !p.Valid {
			continue
		}
		out = append(out, hotspot.Point{Lat: p.Lat, Lng: p.Lng, Intensity: p.Intensity, At: r.Timestamp()})
	}
	return out, nil
}

func (h *HotspotService) income(ctx context.Context, userID string) (hotspot.IncomeTable, error) {
	entries := func(c models.Collection) ([]hotspot.Entry, error) {
		rs, err := h.store.Query(ctx, c, records.Filter{UserID: userID})
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", c, err)
		}
		out := make([]hotspot.Entry, 0, len(rs))
		for _, r := range rs {
			amount, ok := r.Data.Decimal("amount")
			if !ok {
				continue
			}
			out = append(out, hotspot.Entry{Amount: amount.InexactFloat64(), At: models.EntryTime(r, h.loc)})
		}
		return out, nil
	}

	earnings, err := entries(models.Earnings)
	if err != nil {
		return hotspot.IncomeTable{}, err
	}
	expenses, err := entries(models.Expenses)
	if err != nil {
		return hotspot.IncomeTable{}, err
	}
	return hotspot.BuildIncomeTable(earnings, expenses, h.loc), nil
}

// live returns the driver position when live location is on and the
// provider answers. A failed reading scores as if the position were unknown.
func (h *HotspotService) live(ctx context.Context, cfg settings.Settings) *hotspot.LatLng {
	if !cfg.LiveLocationEnabled || h.location == nil {
		return nil
	}
	fix, err := h.location.Current(ctx)
	if err != nil {
		h.log.Warn(ctx, "live location unavailable", "error", err)
		return nil
	}
	p := hotspot.LatLng{Lat: fix.Lat, Lng: fix.Lng}
	if !p.Valid() {
		h.log.Warn(ctx, "live location out of range", "lat", fix.Lat, "lng", fix.Lng)
		return nil
	}
	return &p
}
