package config

import (
	"flag"
	"io"

	"github.com/kimhsiao/fixdesk/backend/internal/logging"
)

// applyFlags overlays cfg with command-line flags.
//
// Supported flags:
//
//	-data string        data directory (database, images, backups)
//	-config-dir string  directory holding the secure vault
//	-listen string      desktop bridge listen address
//	-log-level string   debug, info, warn or error
//	-region string      default phone number region (ISO 3166 alpha-2)
func applyFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("fixdesk", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.DataDir, "data", cfg.DataDir, "data directory")
	fs.StringVar(&cfg.ConfigDir, "config-dir", cfg.ConfigDir, "secure vault directory")
	fs.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "desktop bridge listen address")
	fs.StringVar(&cfg.DefaultRegion, "region", cfg.DefaultRegion, "default phone number region")
	level := fs.String("log-level", string(cfg.LogLevel), "log level")

	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg.LogLevel = logging.ParseLevel(*level)
	return nil
}
