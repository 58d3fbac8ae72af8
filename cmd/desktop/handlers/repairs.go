package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kimhsiao/fixdesk/backend/internal/app"
	"github.com/kimhsiao/fixdesk/backend/internal/invoice"
	"github.com/kimhsiao/fixdesk/backend/internal/models"
)

// maxPhotoSize bounds uploaded photos.
const maxPhotoSize = 32 << 20

// RepairHandler handles repair job operations.
type RepairHandler struct {
	app *app.App
}

// NewRepairHandler creates a new RepairHandler.
func NewRepairHandler(a *app.App) *RepairHandler {
	return &RepairHandler{app: a}
}

// List handles GET /api/repairs
func (h *RepairHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": h.app.Repairs()})
}

// Get handles GET /api/repairs/{id}
func (h *RepairHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	job, err := h.app.Repair(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// Create handles POST /api/repairs
func (h *RepairHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in app.RepairInput
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	job, err := h.app.CreateRepair(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

// Update handles PUT /api/repairs/{id}
func (h *RepairHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var in app.RepairInput
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	job, err := h.app.EditRepair(r.Context(), id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// Delete handles DELETE /api/repairs/{id}
func (h *RepairHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.app.DeleteRepair(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Complete handles POST /api/repairs/{id}/complete
func (h *RepairHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, h.app.CompleteRepair)
}

// Reopen handles POST /api/repairs/{id}/reopen
func (h *RepairHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, h.app.ReopenRepair)
}

func (h *RepairHandler) apply(w http.ResponseWriter, r *http.Request, fn func(context.Context, int64) (*models.RepairJob, error)) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	job, err := fn(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// Photo handles PUT /api/repairs/{id}/photo. The body is the raw image.
func (h *RepairHandler) Photo(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	body := http.MaxBytesReader(w, r.Body, maxPhotoSize)
	job, err := h.app.AttachPhotoFrom(r.Context(), id, body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// Notify handles POST /api/repairs/{id}/notify
func (h *RepairHandler) Notify(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	entry, err := h.app.NotifyReady(r.Context(), id)
	writeSent(w, entry, err)
}

// Call handles POST /api/repairs/{id}/call
func (h *RepairHandler) Call(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	uri, err := h.app.CallCustomer(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"uri": uri})
}

// Invoice handles GET /api/repairs/{id}/invoice
func (h *RepairHandler) Invoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	doc, err := h.app.RenderInvoice(id)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", invoice.FileName(&models.RepairJob{ID: id})+".pdf"))
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

// Print handles POST /api/repairs/{id}/print
func (h *RepairHandler) Print(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.app.PrintInvoice(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
