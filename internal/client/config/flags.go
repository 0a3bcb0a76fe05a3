package config

import (
	"flag"
	"io"
	"math"
	"time"

	"github.com/dmitrijs2005/taxiledger/internal/flagx"
)

var knownFlags = []string{"-d", "-r", "-i", "-s", "-tz", "-log", "-debug", "-lat", "-lng"}

// parseFlags overlays the flags of args:
//
//	-d string    local database path
//	-r string    remote Postgres DSN
//	-i int       online check interval (seconds)
//	-s int       sync interval (seconds)
//	-tz string   reference timezone
//	-log string  log format: text, json or zap
//	-debug       debug logging
//	-lat, -lng   static position for the live location; negative values
//	             need the -lat=-6.91 form
//
// Other flags are filtered out with flagx.FilterArgs.
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("taxiledger", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.DBPath, "d", cfg.DBPath, "local database path")
	fs.StringVar(&cfg.RemoteDSN, "r", cfg.RemoteDSN, "remote Postgres DSN")
	onlineCheck := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	syncEvery := fs.Int("s", int(cfg.SyncInterval.Seconds()), "sync interval (in seconds)")
	fs.StringVar(&cfg.Timezone, "tz", cfg.Timezone, "reference timezone")
	fs.StringVar(&cfg.LogFormat, "log", cfg.LogFormat, "log format: text, json or zap")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "debug logging")
	lat := fs.Float64("lat", math.NaN(), "static latitude")
	lng := fs.Float64("lng", math.NaN(), "static longitude")

	if err := fs.Parse(flagx.FilterArgs(args, knownFlags)); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "i":
			cfg.OnlineCheckInterval = time.Duration(*onlineCheck) * time.Second
		case "s":
			cfg.SyncInterval = time.Duration(*syncEvery) * time.Second
		}
	})
	if !math.IsNaN(*lat) {
		cfg.Lat = lat
	}
	if !math.IsNaN(*lng) {
		cfg.Lng = lng
	}
	return nil
}
