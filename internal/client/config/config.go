package config

import (
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/dmitrijs2005/taxiledger/internal/common"
	"github.com/dmitrijs2005/taxiledger/internal/logging"
)

// Config holds runtime settings for the taxiledger CLI.
type Config struct {
	DBPath    string
	RemoteDSN string

	OnlineCheckInterval time.Duration
	SyncInterval        time.Duration

	Timezone  string
	LogFormat string
	Debug     bool

	// TokenSecret verifies access token signatures. Empty accepts tokens
	// issued by the remote without checking them.
	TokenSecret string

	// Lat and Lng feed the static location provider when both are set.
	Lat *float64
	Lng *float64

	WeatherURL     string
	HolidayURL     string
	HolidayCountry string

	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3PathStyle bool
}

// LoadDefaults populates c with defaults.
func (c *Config) LoadDefaults() {
	c.DBPath = "taxiledger.db"
	c.OnlineCheckInterval = 10 * time.Second
	c.SyncInterval = 5 * time.Minute
	c.Timezone = common.DefaultTimezone
	c.LogFormat = logging.FormatText
	c.HolidayCountry = "ID"
	c.S3Region = "us-east-1"
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Load builds a Config from defaults, then the JSON file named by -c,
// then the environment (with .env), then flags. Later sources win.
func Load(args []string, env Env) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, env); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig is Load over the process arguments and environment.
func LoadConfig() (*Config, error) {
	env, err := ProcessEnv(".env")
	if err != nil {
		return nil, err
	}
	return Load(os.Args[1:], env)
}
