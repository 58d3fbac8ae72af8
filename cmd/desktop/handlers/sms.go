package handlers

import (
	"net/http"

	"github.com/kimhsiao/fixdesk/backend/internal/app"
	"github.com/kimhsiao/fixdesk/backend/internal/errors"
	"github.com/kimhsiao/fixdesk/backend/internal/models"
)

// SmsHandler handles SMS sending and the SMS log.
type SmsHandler struct {
	app *app.App
}

// NewSmsHandler creates a new SmsHandler.
func NewSmsHandler(a *app.App) *SmsHandler {
	return &SmsHandler{app: a}
}

// SendRequest is the body of POST /api/sms.
type SendRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// List handles GET /api/sms
func (h *SmsHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": h.app.SmsLogs()})
}

// Send handles POST /api/sms
func (h *SmsHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	entry, err := h.app.SendSms(r.Context(), req.To, req.Message)
	writeSent(w, entry, err)
}

// writeSent reports a send attempt. A transport failure still produced a
// log entry, which is returned with 502.
func writeSent(w http.ResponseWriter, entry *models.SmsLog, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, entry)
	case entry != nil && entry.ID != 0 && errors.CodeOf(err) == errors.ErrTransport:
		writeJSON(w, http.StatusBadGateway, entry)
	default:
		writeError(w, err)
	}
}
