package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/taxiledger/internal/client/importer"
	"github.com/dmitrijs2005/taxiledger/internal/client/services"
	"github.com/dmitrijs2005/taxiledger/internal/client/settings"
	"github.com/dmitrijs2005/taxiledger/internal/common"
	"github.com/dmitrijs2005/taxiledger/internal/hotspot"
)

// Hotspots prints the recommended pickup cells for the current hour.
// days overrides the lookback window.
func (a *App) Hotspots(ctx context.Context, days string) error {
	var req services.HotspotRequest
	if days != "" {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return fmt.Errorf("%w: days must be a positive number, got %q", common.ErrValidation, days)
		}
		req.LookbackDays = n
	}
	uid, err := a.userID(ctx)
	if err != nil {
		return err
	}

	view, err := a.hotspots.Compute(ctx, uid, req)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Goal: %s, hours %s, %d points, center %.4f,%.4f\n",
		view.Goal, view.Bucket.Label, view.Points, view.Center.Lat, view.Center.Lng)
	if view.Goal == hotspot.GoalEconomy {
		if w := view.Signals.Weather; w != nil {
			fmt.Fprintf(a.out, "Weather: %.1f mm, %.0f C\n", w.PrecipitationMM, w.TemperatureC)
		}
		if view.Signals.IsHoliday {
			fmt.Fprintln(a.out, "Public holiday")
		}
	}

	if len(view.Ranked) == 0 {
		fmt.Fprintln(a.out, "No hotspots yet. Add trips with a pickup location or import ride history.")
		return nil
	}
	for i, c := range view.Ranked {
		line := fmt.Sprintf("%d. %.5f,%.5f  score %.2f  %d trips", i+1, c.Lat, c.Lng, c.Score, c.Count)
		if c.DistanceKm != nil {
			line += fmt.Sprintf("  %.1f km away", *c.DistanceKm)
		}
		fmt.Fprintln(a.out, line)

		factors := make([]string, 0, len(c.Factors))
		for _, f := range c.Factors {
			factors = append(factors, fmt.Sprintf("%s=%.2f", f.Name, f.Value))
		}
		fmt.Fprintln(a.out, "   "+strings.Join(factors, " "))
	}
	return nil
}

// Summary prints income, expense and net for today and the last 7 days.
func (a *App) Summary(ctx context.Context) error {
	uid, err := a.userID(ctx)
	if err != nil {
		return err
	}
	s, err := a.summary.Summary(ctx, uid)
	if err != nil {
		return err
	}
	for _, row := range []struct {
		label string
		t     services.Totals
	}{
		{"Today", s.Today},
		{"Last 7 days", s.Week},
	} {
		fmt.Fprintf(a.out, "%-12s income %s  expense %s  net %s\n", row.label, row.t.Income, row.t.Expense, row.t.Net)
	}
	return nil
}

// Settings prints every settable key with its current value.
func (a *App) Settings(ctx context.Context) error {
	cur, err := a.settings.Get(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(cur)
	if err != nil {
		return err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return err
	}
	for _, k := range settings.Keys() {
		fmt.Fprintf(a.out, "%s = %v\n", k, fields[k])
	}
	return nil
}

// Set changes one setting.
func (a *App) Set(ctx context.Context, key, value string) error {
	p, err := settings.ParsePatch(key, value)
	if err != nil {
		return err
	}
	if _, err := a.settings.Save(ctx, p); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s updated\n", key)
	return nil
}

// Import loads ride history from a local file or an s3:// object.
func (a *App) Import(ctx context.Context, ref string) error {
	uid, err := a.userID(ctx)
	if err != nil {
		return err
	}
	src, err := importer.OpenSource(ctx, ref, a.s3)
	if err != nil {
		return err
	}
	rep, err := a.importer.ImportFrom(ctx, uid, src)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Imported %d of %d orders, %d skipped\n", rep.Valid, rep.Total, rep.Skipped)
	return nil
}
