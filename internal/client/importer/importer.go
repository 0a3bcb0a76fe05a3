// Package importer loads ride-history exports into the heatmap. An export
// is a JSON array of orders, each carrying order_timestamp and
// locations.pickup.{lat,lng}.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dmitrijs2005/taxiledger/internal/client/models"
	"github.com/dmitrijs2005/taxiledger/internal/client/repositories/records"
	"github.com/dmitrijs2005/taxiledger/internal/client/settings"
	"github.com/dmitrijs2005/taxiledger/internal/common"
	"github.com/dmitrijs2005/taxiledger/internal/hotspot"
	"github.com/dmitrijs2005/taxiledger/internal/logging"
	"github.com/dmitrijs2005/taxiledger/internal/timex"
)

// Report counts the outcome of one import.
type Report struct {
	Total   int
	Valid   int
	Skipped int
}

type RecordStore interface {
	Query(ctx context.Context, c models.Collection, f records.Filter) ([]models.Record, error)
	UpsertRaw(ctx context.Context, c models.Collection, rec models.Record) (*models.Record, error)
}

type SettingsReader interface {
	Get(ctx context.Context) (settings.Settings, error)
}

type Importer struct {
	store    RecordStore
	settings SettingsReader
	ids      timex.IDGenerator
	log      logging.Logger
}

func New(s RecordStore, st SettingsReader, ids timex.IDGenerator, log logging.Logger) *Importer {
	if ids == nil {
		ids = timex.UUIDGenerator{}
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Importer{store: s, settings: st, ids: ids, log: log.With("component", "importer")}
}

type order struct {
	OrderTimestamp any `json:"order_timestamp"`
	Locations      *struct {
		Pickup models.Values `json:"pickup"`
	} `json:"locations"`
}

// isoMillis matches the precision order timestamps are compared at.
const isoMillis = "2006-01-02T15:04:05.000Z"

// ImportFrom opens src and imports it.
func (im *Importer) ImportFrom(ctx context.Context, userID string, src Source) (Report, error) {
	ctx = logging.ContextWith(ctx, "source", src.String())
	rc, err := src.Open(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("open %s: %w", src, err)
	}
	defer rc.Close()
	return im.Import(ctx, userID, rc)
}

// Import reads an export from r and stores one pending heatmap point per
// new, valid order. Orders that are malformed, or whose rounded pickup
// and time match a stored point or an earlier order of the same file,
// are skipped. A payload that is not a JSON array fails as a whole.
func (im *Importer) Import(ctx context.Context, userID string, r io.Reader) (Report, error) {
	if userID == "" {
		return Report{}, common.ErrUnauthorized
	}

	var items []json.RawMessage
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return Report{}, fmt.Errorf("%w: export must be a JSON array: %v", common.ErrValidation, err)
	}

	cfg, err := im.settings.Get(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("read settings: %w", err)
	}
	seen, err := im.existingKeys(ctx, userID, cfg.MapPrecision)
	if err != nil {
		return Report{}, err
	}

	rep := Report{Total: len(items)}
	for i, raw := range items {
		at, pos, ok := parseOrder(raw)
		if !ok {
			rep.Skipped++
			im.log.Debug(ctx, "skipping malformed order", "index", i)
			continue
		}
		pos.Lat = hotspot.Round(pos.Lat, cfg.MapPrecision)
		pos.Lng = hotspot.Round(pos.Lng, cfg.MapPrecision)

		key := dedupKey(userID, pos, at)
		if _, dup := seen[key]; dup {
			rep.Skipped++
			continue
		}
		seen[key] = struct{}{}

		point := models.HeatmapPoint{Lat: pos.Lat, Lng: pos.Lng, Intensity: models.DefaultIntensity}
		rec := models.Record{
			ID:         im.ids.New(),
			UserID:     userID,
			CreatedAt:  at,
			UpdatedAt:  at,
			SyncStatus: models.StatusPending,
			Data:       point.Values(),
		}
		if _, err := im.store.UpsertRaw(ctx, models.HeatmapPoints, rec); err != nil {
			return rep, fmt.Errorf("store imported point: %w", err)
		}
		rep.Valid++
	}

	im.log.Info(ctx, "import finished", "total", rep.Total, "valid", rep.Valid, "skipped", rep.Skipped)
	return rep, nil
}

func (im *Importer) existingKeys(ctx context.Context, userID string, precision int) (map[string]struct{}, error) {
	rs, err := im.store.Query(ctx, models.HeatmapPoints, records.Filter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("read heatmap points: %w", err)
	}
	keys := make(map[string]struct{}, len(rs))
	for _, r := range rs {
		p := models.HeatmapPointFromValues(r.Data)
		at := r.Timestamp()
		if !p.Valid || at.IsZero() {
			continue
		}
		pos := hotspot.LatLng{Lat: hotspot.Round(p.Lat, precision), Lng: hotspot.Round(p.Lng, precision)}
		keys[dedupKey(userID, pos, at)] = struct{}{}
	}
	return keys, nil
}

func dedupKey(userID string, pos hotspot.LatLng, at time.Time) string {
	return userID + "-" +
		strconv.FormatFloat(pos.Lat, 'f', -1, 64) + "-" +
		strconv.FormatFloat(pos.Lng, 'f', -1, 64) + "-" +
		at.UTC().Format(isoMillis)
}

// parseOrder extracts the order time and pickup position. Zero
// coordinates count as missing.
func parseOrder(raw json.RawMessage) (time.Time, hotspot.LatLng, bool) {
	var o order
	if err := json.Unmarshal(raw, &o); err != nil || o.Locations == nil || o.Locations.Pickup == nil {
		return time.Time{}, hotspot.LatLng{}, false
	}
	at, ok := parseTimestamp(o.OrderTimestamp)
	if !ok {
		return time.Time{}, hotspot.LatLng{}, false
	}
	lat, okLat := o.Locations.Pickup.Float("lat")
	lng, okLng := o.Locations.Pickup.Float("lng")
	pos := hotspot.LatLng{Lat: lat, Lng: lng}
	if !okLat || !okLng || lat == 0 || lng == 0 || !pos.Valid() {
		return time.Time{}, hotspot.LatLng{}, false
	}
	return at, pos, true
}

// parseTimestamp accepts an ISO-8601 string or epoch milliseconds and
// truncates to milliseconds.
func parseTimestamp(v any) (time.Time, bool) {
	var t time.Time
	switch x := v.(type) {
	case string:
		parsed, ok := models.ParseDate(x, time.UTC)
		if !ok {
			return time.Time{}, false
		}
		t = parsed
	case float64:
		if x <= 0 {
			return time.Time{}, false
		}
		t = time.UnixMilli(int64(x))
	default:
		return time.Time{}, false
	}
	return t.UTC().Truncate(time.Millisecond), true
}
