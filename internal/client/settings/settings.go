// Package settings is the single-record configuration shared by the sync
// engine (watermark) and the hotspot scoring (coefficients).
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/taxiledger/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/taxiledger/internal/common"
	"github.com/dmitrijs2005/taxiledger/internal/events"
	"github.com/dmitrijs2005/taxiledger/internal/hotspot"
)

// Goal selects the scoring mode.
type Goal string

const (
	GoalOrder   Goal = "order"
	GoalEconomy Goal = "economy"
)

// RecordID is the fixed id of the settings record.
const RecordID = "app"

type Settings struct {
	ID                  string     `json:"id"`
	MapPrecision        int        `json:"mapPrecision"`
	DeadheadCostPerKm   float64    `json:"deadheadCostPerKm"`
	DeadheadRadiusKm    float64    `json:"deadheadRadiusKm"`
	HeatmapGoal         Goal       `json:"heatmapGoal"`
	UseCurrentHour      bool       `json:"useCurrentHour"`
	HighContrastHeatmap bool       `json:"highContrastHeatmap"`
	HeatmapIntensity    float64    `json:"heatmapIntensity"`
	DistancePenaltyKm   float64    `json:"distancePenaltyKm"`
	LiveLocationEnabled bool       `json:"liveLocationEnabled"`
	FollowMe            bool       `json:"followMe"`
	UseWeather          bool       `json:"useWeather"`
	UseHoliday          bool       `json:"useHoliday"`
	LastSyncAt          *time.Time `json:"lastSyncAt"`
}

// Defaults returns the settings used when nothing is stored.
func Defaults() Settings {
	return Settings{
		ID:                RecordID,
		MapPrecision:      4,
		DeadheadCostPerKm: 2000,
		DeadheadRadiusKm:  3,
		HeatmapGoal:       GoalOrder,
		UseCurrentHour:    true,
		HeatmapIntensity:  1,
		DistancePenaltyKm: 3,
		UseWeather:        true,
		UseHoliday:        true,
	}
}

// Patch is a partial update; nil fields keep their current value.
type Patch struct {
	MapPrecision        *int
	DeadheadCostPerKm   *float64
	DeadheadRadiusKm    *float64
	HeatmapGoal         *Goal
	UseCurrentHour      *bool
	HighContrastHeatmap *bool
	HeatmapIntensity    *float64
	DistancePenaltyKm   *float64
	LiveLocationEnabled *bool
	FollowMe            *bool
	UseWeather          *bool
	UseHoliday          *bool
	LastSyncAt          *time.Time
}

func (p Patch) apply(s Settings) Settings {
	set(&s.MapPrecision, p.MapPrecision)
	set(&s.DeadheadCostPerKm, p.DeadheadCostPerKm)
	set(&s.DeadheadRadiusKm, p.DeadheadRadiusKm)
	set(&s.HeatmapGoal, p.HeatmapGoal)
	set(&s.UseCurrentHour, p.UseCurrentHour)
	set(&s.HighContrastHeatmap, p.HighContrastHeatmap)
	set(&s.HeatmapIntensity, p.HeatmapIntensity)
	set(&s.DistancePenaltyKm, p.DistancePenaltyKm)
	set(&s.UseWeather, p.UseWeather)
	set(&s.UseHoliday, p.UseHoliday)
	if p.LastSyncAt != nil {
		t := p.LastSyncAt.UTC()
		s.LastSyncAt = &t
	}

	// followMe needs a live location; turning the location off stops following.
	if p.FollowMe != nil {
		s.FollowMe = *p.FollowMe
		if s.FollowMe {
			s.LiveLocationEnabled = true
		}
	}
	if p.LiveLocationEnabled != nil {
		s.LiveLocationEnabled = *p.LiveLocationEnabled
		if !s.LiveLocationEnabled {
			s.FollowMe = false
		}
	}
	return normalize(s)
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func normalize(s Settings) Settings {
	s.ID = RecordID
	if s.HeatmapGoal != GoalEconomy {
		s.HeatmapGoal = GoalOrder
	}
	if s.MapPrecision < 1 || s.MapPrecision > hotspot.MaxPrecision {
		s.MapPrecision = hotspot.DefaultPrecision
	}
	if s.DistancePenaltyKm <= 0 {
		s.DistancePenaltyKm = 3
	}
	if s.DeadheadRadiusKm <= 0 {
		s.DeadheadRadiusKm = 3
	}
	if s.DeadheadCostPerKm < 0 {
		s.DeadheadCostPerKm = 2000
	}
	if s.HeatmapIntensity < 0 {
		s.HeatmapIntensity = 1
	}
	return s
}

// Publisher is the part of the change bus Store needs.
type Publisher interface {
	Publish(events.Event)
}

// Store reads and writes the settings record.
type Store struct {
	mu   sync.Mutex
	repo metadata.Repository
	bus  Publisher
}

func NewStore(repo metadata.Repository, bus Publisher) *Store {
	return &Store{repo: repo, bus: bus}
}

// Get returns the stored settings, or Defaults when none were saved.
func (s *Store) Get(ctx context.Context) (Settings, error) {
	raw, err := s.repo.Get(ctx, common.SettingsKey)
	if err != nil {
		return Settings{}, err
	}
	if raw == nil {
		return Defaults(), nil
	}

	// Unmarshal over the defaults so fields added later get their default.
	cur := Defaults()
	if err := json.Unmarshal(raw, &cur); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	return normalize(cur), nil
}

// Save merges p over the current settings, persists and publishes the
// result.
func (s *Store) Save(ctx context.Context, p Patch) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.Get(ctx)
	if err != nil {
		return Settings{}, err
	}
	next := p.apply(cur)

	raw, err := json.Marshal(next)
	if err != nil {
		return Settings{}, fmt.Errorf("encode settings: %w", err)
	}
	if err := s.repo.Set(ctx, common.SettingsKey, raw); err != nil {
		return Settings{}, err
	}

	if s.bus != nil {
		s.bus.Publish(events.Event{Type: events.TypeUpsert, Collection: events.SettingsCollection})
	}
	return next, nil
}

// SetLastSyncAt persists the sync watermark.
func (s *Store) SetLastSyncAt(ctx context.Context, at time.Time) error {
	_, err := s.Save(ctx, Patch{LastSyncAt: &at})
	return err
}

// LastSyncAt returns the watermark, nil before the first successful sync.
func (s *Store) LastSyncAt(ctx context.Context) (*time.Time, error) {
	cur, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return cur.LastSyncAt, nil
}

// MapPrecision returns the grid heatmap coordinates are rounded to.
func (s *Store) MapPrecision(ctx context.Context) (int, error) {
	cur, err := s.Get(ctx)
	if err != nil {
		return 0, err
	}
	return cur.MapPrecision, nil
}
