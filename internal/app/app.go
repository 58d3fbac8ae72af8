// Package app is the composition root of the FixDesk core. It wires the
// store, the application state and the platform capabilities together and
// exposes the user-facing use cases.
package app

import (
	"context"
	"os"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kimhsiao/fixdesk/backend/internal/backup"
	"github.com/kimhsiao/fixdesk/backend/internal/config"
	"github.com/kimhsiao/fixdesk/backend/internal/crypto"
	"github.com/kimhsiao/fixdesk/backend/internal/db"
	"github.com/kimhsiao/fixdesk/backend/internal/invoice"
	"github.com/kimhsiao/fixdesk/backend/internal/logging"
	"github.com/kimhsiao/fixdesk/backend/internal/media"
	"github.com/kimhsiao/fixdesk/backend/internal/sms"
	"github.com/kimhsiao/fixdesk/backend/internal/state"
	"github.com/kimhsiao/fixdesk/backend/internal/vault"
)

// Dialer opens the platform phone dialer for an RFC 3966 tel: URI.
type Dialer interface {
	Dial(ctx context.Context, uri string) error
}

// Options carries the platform capabilities. Nil fields fall back to
// defaults built from Config where one exists; otherwise the matching use
// case reports the capability as unavailable.
type Options struct {
	Config      *config.Config
	Logger      *logging.Logger
	Transport   sms.Transport
	SecureStore vault.SecureStore
	Renderer    invoice.Renderer
	Camera      media.Camera
	Printer     invoice.Printer
	Dialer      Dialer
	Uploader    backup.Uploader
	Now         func() time.Time
}

// App holds every component of a running core.
type App struct {
	State    *state.State
	Vault    *vault.Vault
	SMS      *sms.Service
	Photos   *media.Library
	Invoices *invoice.Generator
	Backup   *backup.Service

	cfg       *config.Config
	log       *logging.Logger
	db        *db.DB
	repo      *db.Repository
	scheduler *backup.Scheduler
	camera    media.Camera
	printer   invoice.Printer
	dialer    Dialer
	validate  *validator.Validate
	now       func() time.Time
}

// New opens the database, applies migrations, loads the state and wires
// the remaining components.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = &config.Config{}
		cfg.LoadDefaults()
	}
	log := opts.Logger
	if log == nil {
		log = logging.New(os.Stderr, cfg.LogLevel)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	database, err := db.OpenAndMigrate(ctx, cfg.DataDir)
	if err != nil {
		return nil, err
	}
	repo := db.NewRepository(database.DB)

	st := state.New(repo, log)
	if err := st.Load(ctx); err != nil {
		repo.Close()
		database.Close()
		return nil, err
	}

	secure := opts.SecureStore
	if secure == nil {
		configDir := cfg.ConfigDir
		if configDir == "" {
			configDir = cfg.DataDir
		}
		secure = crypto.NewSecureStorage(configDir)
	}

	transport := opts.Transport
	if transport == nil {
		if cfg.SMSGateway.URL != "" {
			transport = sms.NewGatewayTransport(sms.GatewayConfig{
				Endpoint: cfg.SMSGateway.URL,
				Token:    cfg.SMSGateway.Token,
				Sender:   cfg.SMSGateway.Sender,
			}, nil)
		} else {
			transport = sms.Unavailable{}
		}
	}

	uploader := opts.Uploader
	if uploader == nil && cfg.Backup.Bucket != "" {
		s3, err := backup.NewS3Uploader(ctx, backup.S3Config{
			Bucket:          cfg.Backup.Bucket,
			Prefix:          cfg.Backup.Prefix,
			Region:          cfg.Backup.Region,
			Endpoint:        cfg.Backup.Endpoint,
			AccessKeyID:     cfg.Backup.AccessKeyID,
			SecretAccessKey: cfg.Backup.SecretAccessKey,
		})
		if err != nil {
			log.Warn("backup upload disabled", map[string]interface{}{"error": err.Error()})
		} else {
			uploader = s3
		}
	}

	photos := media.NewLibrary(cfg.DataDir, cfg.ImageMaxWidth)
	shop := invoice.Shop{Name: cfg.Shop.Name, Phone: cfg.Shop.Phone, Address: cfg.Shop.Address}
	backups := backup.NewService(database.DB, repo, photos.Dir(), cfg.Backup.Dir, uploader, log)

	a := &App{
		State:    st,
		Vault:    vault.New(secure),
		SMS:      sms.NewService(transport, st, cfg.DefaultRegion, log),
		Photos:   photos,
		Invoices: invoice.NewGenerator(shop, opts.Renderer),
		Backup:   backups,

		cfg:      cfg,
		log:      log.With(map[string]interface{}{"component": "app"}),
		db:       database,
		repo:     repo,
		camera:   opts.Camera,
		printer:  opts.Printer,
		dialer:   opts.Dialer,
		validate: validator.New(),
		now:      now,
	}

	a.scheduler = backup.NewScheduler(backups, backup.SchedulerConfig{
		Interval:       backup.Interval(cfg.Backup.Interval),
		RetentionCount: cfg.Backup.Retention,
		IncludeImages:  true,
		Upload:         uploader != nil,
	}, log)
	if err := a.scheduler.Start(context.WithoutCancel(ctx)); err != nil {
		a.log.Warn("backup scheduler not started", map[string]interface{}{"error": err.Error()})
	}

	a.log.Info("core started", map[string]interface{}{
		"data_dir": cfg.DataDir,
		"repairs":  len(st.Repairs()),
	})
	return a, nil
}

// Config returns the configuration the App was built with.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Logger returns the application logger.
func (a *App) Logger() *logging.Logger {
	return a.log
}

// Close stops background work and closes the database.
func (a *App) Close() error {
	a.scheduler.Stop()
	if err := a.repo.Close(); err != nil {
		a.log.Warn("failed to close statements", map[string]interface{}{"error": err.Error()})
	}
	return a.db.Close()
}
