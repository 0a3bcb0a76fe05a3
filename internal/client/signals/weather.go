// Package signals fetches the side-loaded context hotspot scoring uses:
// current weather at the map center and the public-holiday calendar.
package signals

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dmitrijs2005/taxiledger/internal/hotspot"
	"github.com/dmitrijs2005/taxiledger/internal/netx"
)

// WeatherProvider reports current conditions at a position.
type WeatherProvider interface {
	Current(ctx context.Context, at hotspot.LatLng) (hotspot.Weather, error)
}

// HolidayProvider lists public-holiday dates (YYYY-MM-DD) of a year.
type HolidayProvider interface {
	Holidays(ctx context.Context, year int, country string) ([]string, error)
}

const DefaultOpenMeteoURL = "https://api.open-meteo.com"

// OpenMeteo implements WeatherProvider over the Open-Meteo forecast API.
type OpenMeteo struct {
	BaseURL  string
	Timezone string
	Client   *http.Client
}

func NewOpenMeteo(baseURL, timezone string, client *http.Client) *OpenMeteo {
	if baseURL == "" {
		baseURL = DefaultOpenMeteoURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &OpenMeteo{BaseURL: baseURL, Timezone: timezone, Client: client}
}

type openMeteoResponse struct {
	Current *struct {
		Precipitation float64 `json:"precipitation"`
		WeatherCode   int     `json:"weather_code"`
		Temperature   float64 `json:"temperature_2m"`
	} `json:"current"`
}

func (o *OpenMeteo) Current(ctx context.Context, at hotspot.LatLng) (hotspot.Weather, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(at.Lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(at.Lng, 'f', -1, 64))
	q.Set("current", "precipitation,weather_code,temperature_2m")
	if o.Timezone != "" {
		q.Set("timezone", o.Timezone)
	}

	var body openMeteoResponse
	if err := netx.GetJSON(ctx, o.Client, o.BaseURL+"/v1/forecast?"+q.Encode(), &body); err != nil {
		return hotspot.Weather{}, fmt.Errorf("weather: %w", err)
	}
	if body.Current == nil {
		return hotspot.Weather{}, fmt.Errorf("weather: response has no current block")
	}
	return hotspot.Weather{
		PrecipitationMM: body.Current.Precipitation,
		WeatherCode:     body.Current.WeatherCode,
		TemperatureC:    body.Current.Temperature,
	}, nil
}

const DefaultNagerDateURL = "https://date.nager.at"

// NagerDate implements HolidayProvider over the Nager.Date public API.
type NagerDate struct {
	BaseURL string
	Client  *http.Client
}

func NewNagerDate(baseURL string, client *http.Client) *NagerDate {
	if baseURL == "" {
		baseURL = DefaultNagerDateURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &NagerDate{BaseURL: baseURL, Client: client}
}

func (n *NagerDate) Holidays(ctx context.Context, year int, country string) ([]string, error) {
	var items []struct {
		Date string `json:"date"`
	}
	u := fmt.Sprintf("%s/api/v3/PublicHolidays/%d/%s", n.BaseURL, year, url.PathEscape(country))
	if err := netx.GetJSON(ctx, n.Client, u, &items); err != nil {
		return nil, fmt.Errorf("holidays: %w", err)
	}

	dates := make([]string, 0, len(items))
	for _, it := range items {
		if it.Date != "" {
			dates = append(dates, it.Date)
		}
	}
	return dates, nil
}
