package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix namespaces the environment variables the CLI reads.
const EnvPrefix = "TAXILEDGER_"

// Env looks up a variable by its full name.
type Env func(key string) (string, bool)

// ProcessEnv returns the process environment layered over the variables
// of dotenvFile. A missing file is not an error.
func ProcessEnv(dotenvFile string) (Env, error) {
	file, err := godotenv.Read(dotenvFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", dotenvFile, err)
	}
	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := file[key]
		return v, ok
	}, nil
}

// MapEnv serves variables from m.
func MapEnv(m map[string]string) Env {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func parseEnv(cfg *Config, env Env) error {
	if env == nil {
		return nil
	}
	var errs []error
	lookup := func(name string) (string, bool) {
		v, ok := env(EnvPrefix + name)
		return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
	}
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok {
			*dst = v
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := lookup(name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}
	duration := func(name string, dst *time.Duration) {
		if v, ok := lookup(name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = d
		}
	}
	float := func(name string, dst **float64) {
		if v, ok := lookup(name); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = &f
		}
	}

	str("DB_PATH", &cfg.DBPath)
	str("REMOTE_DSN", &cfg.RemoteDSN)
	duration("ONLINE_CHECK_INTERVAL", &cfg.OnlineCheckInterval)
	duration("SYNC_INTERVAL", &cfg.SyncInterval)
	str("TIMEZONE", &cfg.Timezone)
	str("LOG_FORMAT", &cfg.LogFormat)
	boolean("DEBUG", &cfg.Debug)
	str("TOKEN_SECRET", &cfg.TokenSecret)
	float("LAT", &cfg.Lat)
	float("LNG", &cfg.Lng)
	str("WEATHER_URL", &cfg.WeatherURL)
	str("HOLIDAY_URL", &cfg.HolidayURL)
	str("HOLIDAY_COUNTRY", &cfg.HolidayCountry)
	str("S3_REGION", &cfg.S3Region)
	str("S3_ENDPOINT", &cfg.S3Endpoint)
	str("S3_ACCESS_KEY", &cfg.S3AccessKey)
	str("S3_SECRET_KEY", &cfg.S3SecretKey)
	boolean("S3_PATH_STYLE", &cfg.S3PathStyle)

	return errors.Join(errs...)
}
