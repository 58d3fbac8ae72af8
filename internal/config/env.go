package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/kimhsiao/fixdesk/backend/internal/logging"
)

// applyEnv overlays cfg with the dotenv file and FIXDESK_* variables.
// Process environment wins over the file. A missing file is not an error.
func applyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv(EnvPrefix + "ENV_FILE"); ok {
		cfg.EnvFile = v
	}

	fileVars := map[string]string{}
	if cfg.EnvFile != "" {
		vars, err := godotenv.Read(cfg.EnvFile)
		switch {
		case err == nil:
			fileVars = vars
		case errors.Is(err, fs.ErrNotExist):
		default:
			return fmt.Errorf("failed to read %s: %w", cfg.EnvFile, err)
		}
	}

	lookup := func(name string) (string, bool) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			return v, true
		}
		v, ok := fileVars[EnvPrefix+name]
		return v, ok
	}

	strs := map[string]*string{
		"DATA_DIR":             &cfg.DataDir,
		"CONFIG_DIR":           &cfg.ConfigDir,
		"LISTEN_ADDR":          &cfg.ListenAddr,
		"DEFAULT_REGION":       &cfg.DefaultRegion,
		"SHOP_NAME":            &cfg.Shop.Name,
		"SHOP_PHONE":           &cfg.Shop.Phone,
		"SHOP_ADDRESS":         &cfg.Shop.Address,
		"SMS_GATEWAY_URL":      &cfg.SMSGateway.URL,
		"SMS_GATEWAY_TOKEN":    &cfg.SMSGateway.Token,
		"SMS_GATEWAY_SENDER":   &cfg.SMSGateway.Sender,
		"BACKUP_DIR":           &cfg.Backup.Dir,
		"BACKUP_INTERVAL":      &cfg.Backup.Interval,
		"BACKUP_S3_BUCKET":     &cfg.Backup.Bucket,
		"BACKUP_S3_PREFIX":     &cfg.Backup.Prefix,
		"BACKUP_S3_REGION":     &cfg.Backup.Region,
		"BACKUP_S3_ENDPOINT":   &cfg.Backup.Endpoint,
		"BACKUP_S3_ACCESS_KEY": &cfg.Backup.AccessKeyID,
		"BACKUP_S3_SECRET_KEY": &cfg.Backup.SecretAccessKey,
	}
	for name, dst := range strs {
		if v, ok := lookup(name); ok {
			*dst = v
		}
	}

	if v, ok := lookup("LOG_LEVEL"); ok {
		cfg.LogLevel = logging.ParseLevel(v)
	}
	ints := map[string]*int{
		"IMAGE_MAX_WIDTH":  &cfg.ImageMaxWidth,
		"BACKUP_RETENTION": &cfg.Backup.Retention,
	}
	for name, dst := range ints {
		v, ok := lookup(name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s %q: %w", EnvPrefix, name, v, err)
		}
		*dst = n
	}
	return nil
}
