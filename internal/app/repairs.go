package app

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/kimhsiao/fixdesk/backend/internal/dashboard"
	"github.com/kimhsiao/fixdesk/backend/internal/errors"
	"github.com/kimhsiao/fixdesk/backend/internal/models"
)

// RepairInput is the editable part of a repair job, as entered in the
// intake form.
type RepairInput struct {
	CustomerName string `json:"customer_name" validate:"required"`
	Phone        string `json:"phone" validate:"required"`
	Model        string `json:"model" validate:"required"`
	IMEI         string `json:"imei"`
	Problem      string `json:"problem" validate:"required"`
	PIN          string `json:"pin,omitempty"`
	Password     string `json:"password,omitempty"`
	Pattern      string `json:"pattern,omitempty"`
}

func (in RepairInput) trimmed() RepairInput {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Model = strings.TrimSpace(in.Model)
	in.IMEI = strings.TrimSpace(in.IMEI)
	in.Problem = strings.TrimSpace(in.Problem)
	return in
}

func (in RepairInput) applyTo(job *models.RepairJob) {
	job.CustomerName = in.CustomerName
	job.Phone = in.Phone
	job.Model = in.Model
	job.IMEI = in.IMEI
	job.Problem = in.Problem
	job.PIN = in.PIN
	job.Password = in.Password
	job.Pattern = in.Pattern
}

// Repairs returns every repair, newest first.
func (a *App) Repairs() []*models.RepairJob {
	return a.State.Repairs()
}

// Repair returns one repair.
func (a *App) Repair(id int64) (*models.RepairJob, error) {
	job, ok := a.State.Repair(id)
	if !ok {
		return nil, errors.Newf(errors.ErrNotFound, "repair %d not found", id)
	}
	return job, nil
}

// CreateRepair validates in and stores a new pending job.
func (a *App) CreateRepair(ctx context.Context, in RepairInput) (*models.RepairJob, error) {
	in = in.trimmed()
	if err := a.check(in); err != nil {
		return nil, err
	}

	job := &models.RepairJob{Status: models.StatusPending, CreatedAt: a.now().UnixMilli()}
	in.applyTo(job)
	if err := a.State.AddRepair(ctx, job); err != nil {
		return nil, err
	}
	a.log.Info("repair created", map[string]interface{}{"id": job.ID})
	return job, nil
}

// EditRepair replaces the editable fields of a job. Status, timestamps and
// photo are kept.
func (a *App) EditRepair(ctx context.Context, id int64, in RepairInput) (*models.RepairJob, error) {
	in = in.trimmed()
	if err := a.check(in); err != nil {
		return nil, err
	}
	job, err := a.Repair(id)
	if err != nil {
		return nil, err
	}
	in.applyTo(job)
	return a.save(ctx, job)
}

// CompleteRepair marks a job completed now. Completing an already
// completed job keeps its original completion time.
func (a *App) CompleteRepair(ctx context.Context, id int64) (*models.RepairJob, error) {
	job, err := a.Repair(id)
	if err != nil {
		return nil, err
	}
	if job.IsCompleted() {
		return job, nil
	}
	job.MarkCompleted(a.now())
	return a.save(ctx, job)
}

// ReopenRepair moves a completed job back to pending.
func (a *App) ReopenRepair(ctx context.Context, id int64) (*models.RepairJob, error) {
	job, err := a.Repair(id)
	if err != nil {
		return nil, err
	}
	if !job.IsCompleted() {
		return job, nil
	}
	job.MarkPending()
	return a.save(ctx, job)
}

// DeleteRepair removes a job and its photo. Deleting a missing job is a no-op.
func (a *App) DeleteRepair(ctx context.Context, id int64) error {
	job, found := a.State.Repair(id)
	n, err := a.State.DeleteRepair(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 && found {
		a.removePhoto(job.ImagePath)
	}
	a.log.Info("repair deleted", map[string]interface{}{"id": id, "affected": n})
	return nil
}

// AttachPhoto captures a photo with the platform camera and stores it on
// the job. If the user cancels the camera the job is returned unchanged.
func (a *App) AttachPhoto(ctx context.Context, id int64) (*models.RepairJob, error) {
	job, err := a.Repair(id)
	if err != nil {
		return nil, err
	}
	if a.camera == nil {
		return nil, errors.New(errors.ErrValidation, "camera is not available")
	}

	src, err := a.camera.Capture(ctx)
	if errors.Is(err, errors.ErrCancelled) {
		return job, nil
	}
	if err != nil {
		return nil, err
	}
	path, err := a.Photos.Import(src)
	if err != nil {
		return nil, err
	}
	return a.setPhoto(ctx, job, path)
}

// AttachPhotoFrom stores an uploaded image on the job.
func (a *App) AttachPhotoFrom(ctx context.Context, id int64, r io.Reader) (*models.RepairJob, error) {
	job, err := a.Repair(id)
	if err != nil {
		return nil, err
	}
	path, err := a.Photos.ImportReader(r)
	if err != nil {
		return nil, err
	}
	return a.setPhoto(ctx, job, path)
}

func (a *App) setPhoto(ctx context.Context, job *models.RepairJob, path string) (*models.RepairJob, error) {
	old := job.ImagePath
	job.ImagePath = path
	saved, err := a.save(ctx, job)
	if err != nil {
		a.removePhoto(path)
		return nil, err
	}
	if old != "" && old != path {
		a.removePhoto(old)
	}
	return saved, nil
}

func (a *App) removePhoto(path string) {
	if path == "" {
		return
	}
	if err := a.Photos.Remove(path); err != nil {
		a.log.Warn("failed to remove photo", map[string]interface{}{"path": path, "error": err.Error()})
	}
}

// save writes job and returns the reloaded copy.
func (a *App) save(ctx context.Context, job *models.RepairJob) (*models.RepairJob, error) {
	n, err := a.State.UpdateRepair(ctx, job)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, errors.Newf(errors.ErrNotFound, "repair %d not found", job.ID)
	}
	return a.Repair(job.ID)
}

// Dashboard aggregates the cached repairs as of now. A zero now uses the
// application clock.
func (a *App) Dashboard(now time.Time) dashboard.Summary {
	if now.IsZero() {
		now = a.now()
	}
	return dashboard.Aggregate(a.State.Repairs(), now)
}
