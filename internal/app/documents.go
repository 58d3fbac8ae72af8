package app

import (
	"context"

	"github.com/kimhsiao/fixdesk/backend/internal/backup"
	"github.com/kimhsiao/fixdesk/backend/internal/errors"
	"github.com/kimhsiao/fixdesk/backend/internal/invoice"
	"github.com/kimhsiao/fixdesk/backend/internal/models"
)

// RenderInvoice returns the PDF invoice for a job.
func (a *App) RenderInvoice(id int64) ([]byte, error) {
	job, err := a.Repair(id)
	if err != nil {
		return nil, err
	}
	return a.Invoices.Render(job)
}

// PrintInvoice renders a job's invoice and hands it to the platform printer.
func (a *App) PrintInvoice(ctx context.Context, id int64) error {
	if a.printer == nil {
		return errors.New(errors.ErrValidation, "printing is not available")
	}
	doc, err := a.RenderInvoice(id)
	if err != nil {
		return err
	}
	if err := a.printer.Print(ctx, invoice.FileName(&models.RepairJob{ID: id}), doc); err != nil {
		return errors.Wrap(errors.ErrRender, "failed to print invoice", err)
	}
	return nil
}

// Credentials returns the vault contents sorted by label.
func (a *App) Credentials(ctx context.Context) ([]models.CredentialEntry, error) {
	return a.Vault.Entries(ctx)
}

// SaveCredential upserts a vault entry.
func (a *App) SaveCredential(ctx context.Context, entry models.CredentialEntry) error {
	return a.Vault.Write(ctx, entry.Label, entry.Secret)
}

// DeleteCredential removes a vault entry.
func (a *App) DeleteCredential(ctx context.Context, label string) error {
	return a.Vault.Delete(ctx, label)
}

// ExportBackup writes a backup archive.
func (a *App) ExportBackup(ctx context.Context, cfg backup.Config) (*backup.Result, error) {
	return a.Backup.Export(ctx, cfg)
}

// Backups lists the archives in the backup directory, oldest first.
func (a *App) Backups() ([]backup.ArchiveInfo, error) {
	return backup.ListArchives(a.Backup.OutDir())
}
