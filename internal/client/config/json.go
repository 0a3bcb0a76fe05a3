package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/taxiledger/internal/flagx"
	"github.com/dmitrijs2005/taxiledger/internal/timex"
)

// JsonConfig is the file shape. Intervals use timex.Duration, so both
// "10s" and integer nanoseconds work. Absent fields keep earlier values.
type JsonConfig struct {
	DBPath              *string         `json:"db_path"`
	RemoteDSN           *string         `json:"remote_dsn"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval"`
	SyncInterval        *timex.Duration `json:"sync_interval"`
	Timezone            *string         `json:"timezone"`
	LogFormat           *string         `json:"log_format"`
	Debug               *bool           `json:"debug"`
	TokenSecret         *string         `json:"token_secret"`
	Lat                 *float64        `json:"lat"`
	Lng                 *float64        `json:"lng"`
	WeatherURL          *string         `json:"weather_url"`
	HolidayURL          *string         `json:"holiday_url"`
	HolidayCountry      *string         `json:"holiday_country"`
	S3Region            *string         `json:"s3_region"`
	S3Endpoint          *string         `json:"s3_endpoint"`
	S3AccessKey         *string         `json:"s3_access_key"`
	S3SecretKey         *string         `json:"s3_secret_key"`
	S3PathStyle         *bool           `json:"s3_path_style"`
}

func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	set(&cfg.DBPath, jc.DBPath)
	set(&cfg.RemoteDSN, jc.RemoteDSN)
	if jc.OnlineCheckInterval != nil {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.SyncInterval != nil {
		cfg.SyncInterval = jc.SyncInterval.Duration
	}
	set(&cfg.Timezone, jc.Timezone)
	set(&cfg.LogFormat, jc.LogFormat)
	set(&cfg.Debug, jc.Debug)
	set(&cfg.TokenSecret, jc.TokenSecret)
	if jc.Lat != nil {
		cfg.Lat = jc.Lat
	}
	if jc.Lng != nil {
		cfg.Lng = jc.Lng
	}
	set(&cfg.WeatherURL, jc.WeatherURL)
	set(&cfg.HolidayURL, jc.HolidayURL)
	set(&cfg.HolidayCountry, jc.HolidayCountry)
	set(&cfg.S3Region, jc.S3Region)
	set(&cfg.S3Endpoint, jc.S3Endpoint)
	set(&cfg.S3AccessKey, jc.S3AccessKey)
	set(&cfg.S3SecretKey, jc.S3SecretKey)
	set(&cfg.S3PathStyle, jc.S3PathStyle)
	return nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
