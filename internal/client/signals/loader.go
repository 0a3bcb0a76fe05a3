package signals

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/taxiledger/internal/cache"
	"github.com/dmitrijs2005/taxiledger/internal/hotspot"
	"github.com/dmitrijs2005/taxiledger/internal/logging"
	"github.com/dmitrijs2005/taxiledger/internal/timex"
)

const (
	WeatherTTL = 20 * time.Minute
	HolidayTTL = 7 * 24 * time.Hour

	DefaultCountry = "ID"
)

// Request says which signals to load and where.
type Request struct {
	Center   hotspot.LatLng
	Now      time.Time
	Location *time.Location
	Weather  bool
	Holiday  bool
}

// Signals is what Load managed to fetch. A nil Weather or a false
// IsHoliday is what scoring treats as neutral.
type Signals struct {
	Weather   *hotspot.Weather
	IsHoliday bool
}

// Loader fetches weather and holidays concurrently through TTL caches.
type Loader struct {
	weather  WeatherProvider
	holidays HolidayProvider
	country  string
	wcache   *cache.TTL[hotspot.Weather]
	hcache   *cache.TTL[[]string]
	log      logging.Logger
}

func NewLoader(w WeatherProvider, h HolidayProvider, backend cache.Backend, country string, clock timex.Clock, log logging.Logger) *Loader {
	if country == "" {
		country = DefaultCountry
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Loader{
		weather:  w,
		holidays: h,
		country:  country,
		wcache:   cache.New[hotspot.Weather](backend, "cache:", WeatherTTL, clock),
		hcache:   cache.New[[]string](backend, "cache:", HolidayTTL, clock),
		log:      log.With("component", "signals"),
	}
}

// Load never fails: a signal that cannot be fetched is logged and left
// neutral.
func (l *Loader) Load(ctx context.Context, req Request) Signals {
	var (
		out Signals
		g   errgroup.Group
	)

	if req.Weather && l.weather != nil {
		g.Go(func() error {
			key := fmt.Sprintf("weather-%.2f-%.2f", req.Center.Lat, req.Center.Lng)
			w, err := l.wcache.GetOrLoad(ctx, key, func(ctx context.Context) (hotspot.Weather, error) {
				return l.weather.Current(ctx, req.Center)
			})
			if err != nil {
				l.log.Warn(ctx, "weather unavailable, using neutral modifier", "error", err)
				return nil
			}
			out.Weather = &w
			return nil
		})
	}

	if req.Holiday && l.holidays != nil {
		g.Go(func() error {
			loc := req.Location
			if loc == nil {
				loc = time.UTC
			}
			today := req.Now.In(loc)
			key := fmt.Sprintf("holidays-%s-%d", strings.ToLower(l.country), today.Year())
			dates, err := l.hcache.GetOrLoad(ctx, key, func(ctx context.Context) ([]string, error) {
				return l.holidays.Holidays(ctx, today.Year(), l.country)
			})
			if err != nil {
				l.log.Warn(ctx, "holiday calendar unavailable, using neutral modifier", "error", err)
				return nil
			}
			out.IsHoliday = slices.Contains(dates, today.Format(time.DateOnly))
			return nil
		})
	}

	_ = g.Wait()
	return out
}

