package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/kimhsiao/fixdesk/backend/internal/app"
	"github.com/kimhsiao/fixdesk/backend/internal/backup"
	"github.com/kimhsiao/fixdesk/backend/internal/errors"
	"github.com/kimhsiao/fixdesk/backend/internal/models"
)

// SystemHandler serves the dashboard, the vault, backups and health.
type SystemHandler struct {
	app     *app.App
	version string
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(a *app.App, version string) *SystemHandler {
	return &SystemHandler{app: a, version: version}
}

// Dashboard handles GET /api/dashboard
func (h *SystemHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.app.Dashboard(time.Time{}))
}

// Credentials handles GET /api/vault
func (h *SystemHandler) Credentials(w http.ResponseWriter, r *http.Request) {
	entries, err := h.app.Credentials(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []models.CredentialEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": entries})
}

// SaveCredential handles PUT /api/vault/{label}
func (h *SystemHandler) SaveCredential(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Secret string `json:"secret"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}
	entry := models.CredentialEntry{Label: mux.Vars(r)["label"], Secret: body.Secret}
	if err := h.app.SaveCredential(r.Context(), entry); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteCredential handles DELETE /api/vault/{label}
func (h *SystemHandler) DeleteCredential(w http.ResponseWriter, r *http.Request) {
	if err := h.app.DeleteCredential(r.Context(), mux.Vars(r)["label"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BackupRequest is the body of POST /api/backup.
type BackupRequest struct {
	Password      string `json:"password,omitempty"`
	IncludeImages bool   `json:"include_images"`
	Upload        bool   `json:"upload"`
}

// Backup handles POST /api/backup
func (h *SystemHandler) Backup(w http.ResponseWriter, r *http.Request) {
	var req BackupRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.app.ExportBackup(r.Context(), backup.Config{
		Password:      req.Password,
		IncludeImages: req.IncludeImages,
		Upload:        req.Upload,
	})
	if err != nil {
		if res != nil && errors.CodeOf(err) == errors.ErrTransport {
			// Archive written locally; only the upload failed.
			writeJSON(w, http.StatusBadGateway, res)
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Backups handles GET /api/backup
func (h *SystemHandler) Backups(w http.ResponseWriter, r *http.Request) {
	items, err := h.app.Backups()
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrExportFailed, "failed to list backups", err))
		return
	}
	if items == nil {
		items = []backup.ArchiveInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// Health handles GET /api/health
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": h.version,
		"repairs": len(h.app.Repairs()),
	})
}

// Register mounts every API route on r.
func Register(r *mux.Router, a *app.App, version string) {
	repairs := NewRepairHandler(a)
	messages := NewSmsHandler(a)
	system := NewSystemHandler(a, version)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(jsonOnly)

	api.HandleFunc("/repairs", repairs.List).Methods(http.MethodGet)
	api.HandleFunc("/repairs", repairs.Create).Methods(http.MethodPost)
	api.HandleFunc("/repairs/{id:[0-9]+}", repairs.Get).Methods(http.MethodGet)
	api.HandleFunc("/repairs/{id:[0-9]+}", repairs.Update).Methods(http.MethodPut)
	api.HandleFunc("/repairs/{id:[0-9]+}", repairs.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/repairs/{id:[0-9]+}/complete", repairs.Complete).Methods(http.MethodPost)
	api.HandleFunc("/repairs/{id:[0-9]+}/reopen", repairs.Reopen).Methods(http.MethodPost)
	api.HandleFunc("/repairs/{id:[0-9]+}/notify", repairs.Notify).Methods(http.MethodPost)
	api.HandleFunc("/repairs/{id:[0-9]+}/call", repairs.Call).Methods(http.MethodPost)
	api.HandleFunc("/repairs/{id:[0-9]+}/photo", repairs.Photo).Methods(http.MethodPut)
	api.HandleFunc("/repairs/{id:[0-9]+}/invoice", repairs.Invoice).Methods(http.MethodGet)
	api.HandleFunc("/repairs/{id:[0-9]+}/print", repairs.Print).Methods(http.MethodPost)

	api.HandleFunc("/sms", messages.List).Methods(http.MethodGet)
	api.HandleFunc("/sms", messages.Send).Methods(http.MethodPost)

	api.HandleFunc("/dashboard", system.Dashboard).Methods(http.MethodGet)
	api.HandleFunc("/vault", system.Credentials).Methods(http.MethodGet)
	api.HandleFunc("/vault/{label}", system.SaveCredential).Methods(http.MethodPut)
	api.HandleFunc("/vault/{label}", system.DeleteCredential).Methods(http.MethodDelete)
	api.HandleFunc("/backup", system.Backups).Methods(http.MethodGet)
	api.HandleFunc("/backup", system.Backup).Methods(http.MethodPost)
	api.HandleFunc("/health", system.Health).Methods(http.MethodGet)
}

// jsonOnly rejects request bodies that are not JSON, except photo uploads.
func jsonOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut {
			ct := r.Header.Get("Content-Type")
			if !strings.HasSuffix(r.URL.Path, "/photo") && r.ContentLength != 0 &&
				ct != "" && !strings.HasPrefix(ct, "application/json") {
				writeError(w, errors.Newf(errors.ErrValidation, "unsupported content type %q", ct))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
