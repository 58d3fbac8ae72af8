// Package main provides the FFI bridge for mobile platforms.
// Build as shared library: libfixdesk.so (Android) / fixdesk.framework (iOS)
//
// Every call takes a method name and a JSON payload and returns a JSON
// envelope. The platform shell owns the camera, the native SMS API, the
// dialer and printing; it reports their outcomes back through the bridge.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kimhsiao/fixdesk/backend/internal/app"
	"github.com/kimhsiao/fixdesk/backend/internal/backup"
	"github.com/kimhsiao/fixdesk/backend/internal/config"
	"github.com/kimhsiao/fixdesk/backend/internal/errors"
	"github.com/kimhsiao/fixdesk/backend/internal/logging"
	"github.com/kimhsiao/fixdesk/backend/internal/models"
)

// callTimeout bounds a single bridge call.
const callTimeout = 2 * time.Minute

// InitOptions is the payload of Init.
type InitOptions struct {
	DataDir   string `json:"data_dir"`
	ConfigDir string `json:"config_dir"`
	Region    string `json:"region"`
	ShopName  string `json:"shop_name"`
	ShopPhone string `json:"shop_phone"`
	LogLevel  string `json:"log_level"`
}

// Response is the envelope returned by every bridge call.
type Response struct {
	OK    bool           `json:"ok"`
	Data  interface{}    `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse carries the error code the UI branches on.
type ErrorResponse struct {
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

type handler func(ctx context.Context, a *app.App, payload []byte) (interface{}, error)

// Bridge owns the App for the lifetime of the shared library.
type Bridge struct {
	mu  sync.RWMutex
	app *app.App
}

// Init opens the core. Calling it again while open is a no-op.
func (b *Bridge) Init(payload []byte) Response {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.app != nil {
		return Response{OK: true}
	}

	var opts InitOptions
	if len(bytes.TrimSpace(payload)) > 0 {
		if err := json.Unmarshal(payload, &opts); err != nil {
			return fail(errors.Wrap(errors.ErrValidation, "invalid init options", err))
		}
	}

	cfg, err := config.Load(nil)
	if err != nil {
		return fail(errors.Wrap(errors.ErrValidation, "invalid configuration", err))
	}
	if opts.DataDir != "" {
		cfg.DataDir = opts.DataDir
		cfg.Backup.Dir = ""
	}
	if opts.ConfigDir != "" {
		cfg.ConfigDir = opts.ConfigDir
	} else if opts.DataDir != "" {
		cfg.ConfigDir = opts.DataDir
	}
	if cfg.Backup.Dir == "" {
		cfg.Backup.Dir = filepath.Join(cfg.DataDir, "backups")
	}
	if opts.Region != "" {
		cfg.DefaultRegion = opts.Region
	}
	if opts.ShopName != "" {
		cfg.Shop.Name = opts.ShopName
	}
	if opts.ShopPhone != "" {
		cfg.Shop.Phone = opts.ShopPhone
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = logging.ParseLevel(opts.LogLevel)
	}
	logging.Init(os.Stderr, cfg.LogLevel)

	a, err := app.New(context.Background(), app.Options{Config: cfg, Logger: logging.Get()})
	if err != nil {
		return fail(err)
	}
	b.app = a
	return Response{OK: true}
}

// Close releases the core.
func (b *Bridge) Close() Response {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.app == nil {
		return Response{OK: true}
	}
	err := b.app.Close()
	b.app = nil
	if err != nil {
		return fail(errors.Wrap(errors.ErrDatabase, "failed to close", err))
	}
	return Response{OK: true}
}

// Call dispatches method with its JSON payload.
func (b *Bridge) Call(method string, payload []byte) Response {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.app == nil {
		return fail(errors.New(errors.ErrInternal, "core not initialized"))
	}
	h, ok := methods[method]
	if !ok {
		return fail(errors.Newf(errors.ErrValidation, "unknown method %q", method))
	}

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	data, err := h(ctx, b.app, payload)
	if err != nil {
		resp := fail(err)
		// Send attempts and uploads still return their partial result.
		resp.Data = partial(data)
		return resp
	}
	return Response{OK: true, Data: data}
}

// Encode marshals r. It never fails for the types the bridge returns.
func (r Response) Encode() []byte {
	data, err := json.Marshal(r)
	if err != nil {
		data, _ = json.Marshal(fail(errors.Wrap(errors.ErrInternal, "failed to encode response", err)))
	}
	return data
}

func fail(err error) Response {
	return Response{Error: &ErrorResponse{Code: errors.CodeOf(err), Message: err.Error()}}
}

func partial(v interface{}) interface{} {
	switch d := v.(type) {
	case *models.SmsLog:
		if d != nil {
			return d
		}
	case *backup.Result:
		if d != nil {
			return d
		}
	case string:
		if d != "" {
			return d
		}
	}
	return nil
}

func decode(payload []byte, v interface{}) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return errors.Wrap(errors.ErrValidation, "invalid payload", err)
	}
	return nil
}

type idRequest struct {
	ID int64 `json:"id"`
}

type updateRequest struct {
	ID int64 `json:"id"`
	app.RepairInput
}

type photoRequest struct {
	ID   int64  `json:"id"`
	Path string `json:"path"`
}

type recordRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

type credentialRequest struct {
	Label  string `json:"label"`
	Secret string `json:"secret"`
}

type backupRequest struct {
	Password      string `json:"password,omitempty"`
	IncludeImages bool   `json:"include_images"`
	Upload        bool   `json:"upload"`
}

type verifyRequest struct {
	Path     string `json:"path"`
	Password string `json:"password,omitempty"`
}

func withID(fn func(ctx context.Context, a *app.App, id int64) (interface{}, error)) handler {
	return func(ctx context.Context, a *app.App, payload []byte) (interface{}, error) {
		var req idRequest
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		return fn(ctx, a, req.ID)
	}
}

var methods = map[string]handler{
	"repairs.list": func(_ context.Context, a *app.App, _ []byte) (interface{}, error) {
		return a.Repairs(), nil
	},
	"repairs.get": withID(func(_ context.Context, a *app.App, id int64) (interface{}, error) {
		return a.Repair(id)
	}),
	"repairs.create": func(ctx context.Context, a *app.App, payload []byte) (interface{}, error) {
		var in app.RepairInput
		if err := decode(payload, &in); err != nil {
			return nil, err
		}
		return a.CreateRepair(ctx, in)
	},
	"repairs.update": func(ctx context.Context, a *app.App, payload []byte) (interface{}, error) {
		var req updateRequest
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		return a.EditRepair(ctx, req.ID, req.RepairInput)
	},
	"repairs.delete": withID(func(ctx context.Context, a *app.App, id int64) (interface{}, error) {
		return nil, a.DeleteRepair(ctx, id)
	}),
	"repairs.complete": withID(func(ctx context.Context, a *app.App, id int64) (interface{}, error) {
		return a.CompleteRepair(ctx, id)
	}),
	"repairs.reopen": withID(func(ctx context.Context, a *app.App, id int64) (interface{}, error) {
		return a.ReopenRepair(ctx, id)
	}),
	"repairs.attachPhoto": func(ctx context.Context, a *app.App, payload []byte) (interface{}, error) {
		var req photoRequest
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		job, err := a.Repair(req.ID)
		if err != nil {
			return nil, err
		}
		// An empty path means the picker was dismissed.
		if req.Path == "" {
			return job, nil
		}
		f, err := os.Open(req.Path)
		if err != nil {
			return nil, errors.Wrap(errors.ErrValidation, "failed to open image", err)
		}
		defer f.Close()
		return a.AttachPhotoFrom(ctx, req.ID, f)
	},
	"repairs.callUri": withID(func(ctx context.Context, a *app.App, id int64) (interface{}, error) {
		return a.CallCustomer(ctx, id)
	}),
	"repairs.readyMessage": withID(func(_ context.Context, a *app.App, id int64) (interface{}, error) {
		return a.ReadyMessage(id)
	}),
	"repairs.invoice": withID(func(_ context.Context, a *app.App, id int64) (interface{}, error) {
		return a.RenderInvoice(id)
	}),
	"dashboard": func(_ context.Context, a *app.App, _ []byte) (interface{}, error) {
		return a.Dashboard(time.Time{}), nil
	},
	"sms.list": func(_ context.Context, a *app.App, _ []byte) (interface{}, error) {
		return a.SmsLogs(), nil
	},
	"sms.record": func(ctx context.Context, a *app.App, payload []byte) (interface{}, error) {
		var req recordRequest
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		var sendErr error
		if req.Error != "" {
			sendErr = stderrors.New(req.Error)
		}
		return a.RecordSms(ctx, req.To, req.Message, sendErr)
	},
	"vault.list": func(ctx context.Context, a *app.App, _ []byte) (interface{}, error) {
		return a.Credentials(ctx)
	},
	"vault.write": func(ctx context.Context, a *app.App, payload []byte) (interface{}, error) {
		var req credentialRequest
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		return nil, a.SaveCredential(ctx, models.CredentialEntry{Label: req.Label, Secret: req.Secret})
	},
	"vault.delete": func(ctx context.Context, a *app.App, payload []byte) (interface{}, error) {
		var req credentialRequest
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		return nil, a.DeleteCredential(ctx, req.Label)
	},
	"backup.export": func(ctx context.Context, a *app.App, payload []byte) (interface{}, error) {
		var req backupRequest
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		return a.ExportBackup(ctx, backup.Config{
			Password:      req.Password,
			IncludeImages: req.IncludeImages,
			Upload:        req.Upload,
		})
	},
	"backup.list": func(_ context.Context, a *app.App, _ []byte) (interface{}, error) {
		return a.Backups()
	},
	"backup.verify": func(_ context.Context, _ *app.App, payload []byte) (interface{}, error) {
		var req verifyRequest
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		return backup.Verify(req.Path, req.Password)
	},
}

var bridge Bridge

func main() {
	// Required for c-shared build mode; not run when loaded as a library.
}
