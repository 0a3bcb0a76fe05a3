package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/taxiledger/internal/client/models"
	"github.com/dmitrijs2005/taxiledger/internal/client/repositories/records"
	"github.com/dmitrijs2005/taxiledger/internal/client/store"
	"github.com/dmitrijs2005/taxiledger/internal/common"
	"github.com/dmitrijs2005/taxiledger/internal/hotspot"
)

// EntryStore is the part of the local store entry management needs.
type EntryStore interface {
	Query(ctx context.Context, c models.Collection, f records.Filter) ([]models.Record, error)
	Get(ctx context.Context, c models.Collection, id string) (*models.Record, error)
	Create(ctx context.Context, c models.Collection, values models.Values, ownerID string) (*models.Record, error)
	SoftDelete(ctx context.Context, c models.Collection, id string) (*models.Record, error)
}

// EntryService adds, lists and deletes the records of one driver.
type EntryService struct {
	store EntryStore
}

func NewEntryService(s EntryStore) *EntryService {
	return &EntryService{store: s}
}

// Add validates values for c and creates a pending record.
func (s *EntryService) Add(ctx context.Context, c models.Collection, values models.Values, userID string) (*models.Record, error) {
	if err := validateEntry(c, values); err != nil {
		return nil, err
	}
	rec, err := s.store.Create(ctx, c, values, userID)
	if err != nil {
		return nil, fmt.Errorf("saving %s entry: %w", c, err)
	}
	return rec, nil
}

// List returns the live records of userID, newest first.
func (s *EntryService) List(ctx context.Context, c models.Collection, userID string) ([]models.Record, error) {
	rs, err := s.store.Query(ctx, c, records.Filter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", c, err)
	}
	store.SortByUpdatedDesc(rs)
	return rs, nil
}

// Delete tombstones a record of userID. Records of other users and
// records already deleted read as common.ErrNotFound.
func (s *EntryService) Delete(ctx context.Context, c models.Collection, id, userID string) error {
	rec, err := s.store.Get(ctx, c, id)
	if err != nil {
		return err
	}
	if rec.UserID != userID || rec.Deleted() {
		return common.ErrNotFound
	}
	if _, err := s.store.SoftDelete(ctx, c, id); err != nil {
		return fmt.Errorf("deleting %s/%s: %w", c, id, err)
	}
	return nil
}

func validateEntry(c models.Collection, v models.Values) error {
	invalid := func(msg string) error {
		return fmt.Errorf("%w: %s %s", common.ErrValidation, c, msg)
	}

	switch c {
	case models.Trips:
		if _, ok := v.Decimal("fare"); !ok {
			return invalid("fare is required")
		}
	case models.Earnings, models.Expenses:
		amount, ok := v.Decimal("amount")
		if !ok {
			return invalid("amount is required")
		}
		if amount.IsNegative() {
			return invalid("amount must not be negative")
		}
	case models.Schedule:
		if v.String("title") == "" {
			return invalid("title is required")
		}
	case models.Notes:
		if v.String("title") == "" && v.String("note") == "" {
			return invalid("title or note is required")
		}
	case models.HeatmapPoints:
		p := models.HeatmapPointFromValues(v)
		if !p.Valid || !(hotspot.LatLng{Lat: p.Lat, Lng: p.Lng}).Valid() {
			return invalid("lat and lng are required")
		}
	default:
		return fmt.Errorf("%w: %s", common.ErrUnknownCollection, c)
	}
	return nil
}
