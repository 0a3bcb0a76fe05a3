package settings

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/taxiledger/internal/common"
	"github.com/dmitrijs2005/taxiledger/internal/hotspot"
)

type fieldParser func(value string, p *Patch) error

var fields = map[string]fieldParser{
	"mapPrecision": func(v string, p *Patch) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		if n < 1 || n > hotspot.MaxPrecision {
			return fmt.Errorf("want 1..%d, got %d", hotspot.MaxPrecision, n)
		}
		p.MapPrecision = &n
		return nil
	},
	"deadheadCostPerKm":   floatField(func(p *Patch, f *float64) { p.DeadheadCostPerKm = f }),
	"deadheadRadiusKm":    floatField(func(p *Patch, f *float64) { p.DeadheadRadiusKm = f }),
	"heatmapIntensity":    floatField(func(p *Patch, f *float64) { p.HeatmapIntensity = f }),
	"distancePenaltyKm":   floatField(func(p *Patch, f *float64) { p.DistancePenaltyKm = f }),
	"useCurrentHour":      boolField(func(p *Patch, b *bool) { p.UseCurrentHour = b }),
	"highContrastHeatmap": boolField(func(p *Patch, b *bool) { p.HighContrastHeatmap = b }),
	"liveLocationEnabled": boolField(func(p *Patch, b *bool) { p.LiveLocationEnabled = b }),
	"followMe":            boolField(func(p *Patch, b *bool) { p.FollowMe = b }),
	"useWeather":          boolField(func(p *Patch, b *bool) { p.UseWeather = b }),
	"useHoliday":          boolField(func(p *Patch, b *bool) { p.UseHoliday = b }),
	"heatmapGoal": func(v string, p *Patch) error {
		g := Goal(strings.ToLower(v))
		p.HeatmapGoal = &g
		return nil
	},
}

func floatField(assign func(*Patch, *float64)) fieldParser {
	return func(v string, p *Patch) error {
		f, err := strconv.ParseFloat(v, 64)
		assign(p, &f)
		return err
	}
}

func boolField(assign func(*Patch, *bool)) fieldParser {
	return func(v string, p *Patch) error {
		b, err := strconv.ParseBool(v)
		assign(p, &b)
		return err
	}
}

// ParsePatch builds a single-field patch from a textual key and value,
// as typed on the command line. The watermark cannot be set this way.
func ParsePatch(key, value string) (Patch, error) {
	parse, ok := fields[key]
	if !ok {
		return Patch{}, fmt.Errorf("%w: unknown setting %q", common.ErrValidation, key)
	}
	var p Patch
	if err := parse(strings.TrimSpace(value), &p); err != nil {
		return Patch{}, fmt.Errorf("%w: %s: %v", common.ErrValidation, key, err)
	}
	return p, nil
}

// Keys lists the settable keys in alphabetical order.
func Keys() []string {
	out := make([]string, 0, len(fields))
	for k := range fields {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
