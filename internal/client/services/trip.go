package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/taxiledger/internal/client/models"
	"github.com/dmitrijs2005/taxiledger/internal/client/settings"
	"github.com/dmitrijs2005/taxiledger/internal/common"
	"github.com/dmitrijs2005/taxiledger/internal/hotspot"
)

// SettingsReader returns the current settings.
type SettingsReader interface {
	Get(ctx context.Context) (settings.Settings, error)
}

// RecordCreator creates records in the local store.
type RecordCreator interface {
	Create(ctx context.Context, c models.Collection, values models.Values, ownerID string) (*models.Record, error)
}

// RecordedTrip is what TripService.Record stored. Point is nil when the
// trip had no coordinates.
type RecordedTrip struct {
	Trip  *models.Record
	Point *models.Record
}

// TripService records trips and feeds their pickup positions into the
// heatmap.
type TripService struct {
	store    RecordCreator
	settings SettingsReader
}

func NewTripService(s RecordCreator, st SettingsReader) *TripService {
	return &TripService{store: s, settings: st}
}

// Record stores trip for userID. When both coordinates are present it
// also stores a heatmap point linked to the trip, rounded to the map
// precision.
func (s *TripService) Record(ctx context.Context, userID string, trip models.Trip) (RecordedTrip, error) {
	hasPos := trip.LocationLat != nil && trip.LocationLng != nil
	if hasPos && !(hotspot.LatLng{Lat: *trip.LocationLat, Lng: *trip.LocationLng}).Valid() {
		return RecordedTrip{}, fmt.Errorf("%w: trip coordinates out of range", common.ErrValidation)
	}

	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return RecordedTrip{}, fmt.Errorf("read settings: %w", err)
	}

	tr, err := s.store.Create(ctx, models.Trips, trip.Values(), userID)
	if err != nil {
		return RecordedTrip{}, fmt.Errorf("saving trip: %w", err)
	}
	out := RecordedTrip{Trip: tr}
	if !hasPos {
		return out, nil
	}

	point := models.HeatmapPoint{
		Lat:       hotspot.Round(*trip.LocationLat, cfg.MapPrecision),
		Lng:       hotspot.Round(*trip.LocationLng, cfg.MapPrecision),
		Intensity: models.DefaultIntensity,
		TripID:    tr.ID,
	}
	out.Point, err = s.store.Create(ctx, models.HeatmapPoints, point.Values(), userID)
	if err != nil {
		return out, fmt.Errorf("saving heatmap point for trip %s: %w", tr.ID, err)
	}
	return out, nil
}
