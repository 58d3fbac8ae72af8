// Package config loads runtime settings for the FixDesk core.
//
// Sources are applied in order, later ones taking precedence:
// defaults, a dotenv file, FIXDESK_* environment variables, then
// command-line flags.
package config

import (
	"path/filepath"

	"github.com/kimhsiao/fixdesk/backend/internal/logging"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "FIXDESK_"

// Shop describes the business printed on invoices and SMS templates.
type Shop struct {
	Name    string
	Phone   string
	Address string
}

// SMSGateway configures the HTTP SMS gateway used on desktop.
// An empty URL leaves SMS sending unconfigured.
type SMSGateway struct {
	URL    string
	Token  string
	Sender string
}

// Backup configures backup archives, the scheduler and the optional S3
// upload. An empty Bucket disables uploading.
type Backup struct {
	Dir             string
	Interval        string
	Retention       int
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// Config holds runtime settings.
type Config struct {
	DataDir       string
	ConfigDir     string
	EnvFile       string
	LogLevel      logging.LogLevel
	ListenAddr    string
	DefaultRegion string
	ImageMaxWidth int
	Shop          Shop
	SMSGateway    SMSGateway
	Backup        Backup
}

// LoadDefaults populates c with defaults.
func (c *Config) LoadDefaults() {
	c.DataDir = "data"
	c.EnvFile = ".env"
	c.LogLevel = logging.LevelInfo
	c.ListenAddr = "127.0.0.1:8090"
	c.DefaultRegion = "MM"
	c.ImageMaxWidth = 1600
	c.Shop.Name = "FixDesk"
	c.Backup.Interval = "manual"
	c.Backup.Retention = 7
	c.Backup.Region = "us-east-1"
}

// Load builds a Config from defaults, the dotenv file, the environment and
// args (typically os.Args[1:]).
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := applyFlags(cfg, args); err != nil {
		return nil, err
	}
	cfg.finish()
	return cfg, nil
}

// finish fills settings derived from others.
func (c *Config) finish() {
	if c.ConfigDir == "" {
		c.ConfigDir = c.DataDir
	}
	if c.Backup.Dir == "" {
		c.Backup.Dir = filepath.Join(c.DataDir, "backups")
	}
}
