// Package vault exposes the label/secret pairs kept in the platform secure
// store. Nothing is cached: every call goes to the store.
package vault

import (
	"context"
	"sort"
	"strings"

	"github.com/kimhsiao/fixdesk/backend/internal/errors"
	"github.com/kimhsiao/fixdesk/backend/internal/models"
)

// SecureStore is the platform key/value store backing the vault.
type SecureStore interface {
	List(ctx context.Context) (map[string]string, error)
	Write(ctx context.Context, label, secret string) error
	Delete(ctx context.Context, label string) error
}

// Vault is the credential vault adapter.
type Vault struct {
	store SecureStore
}

// New creates a Vault over store.
func New(store SecureStore) *Vault {
	return &Vault{store: store}
}

// ListAll returns every stored label/secret pair.
func (v *Vault) ListAll(ctx context.Context) (map[string]string, error) {
	entries, err := v.store.List(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCrypto, "failed to read secure store", err)
	}
	return entries, nil
}

// Entries returns every pair sorted by label.
func (v *Vault) Entries(ctx context.Context) ([]models.CredentialEntry, error) {
	all, err := v.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.CredentialEntry, 0, len(all))
	for label, secret := range all {
		out = append(out, models.CredentialEntry{Label: label, Secret: secret})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

// Write stores secret under label. An existing label is overwritten.
func (v *Vault) Write(ctx context.Context, label, secret string) error {
	if strings.TrimSpace(label) == "" {
		return errors.New(errors.ErrValidation, "label is required")
	}
	if err := v.store.Write(ctx, label, secret); err != nil {
		return errors.Wrap(errors.ErrCrypto, "failed to write secure store", err)
	}
	return nil
}

// Delete removes label. A missing label is not an error.
func (v *Vault) Delete(ctx context.Context, label string) error {
	if strings.TrimSpace(label) == "" {
		return errors.New(errors.ErrValidation, "label is required")
	}
	if err := v.store.Delete(ctx, label); err != nil {
		return errors.Wrap(errors.ErrCrypto, "failed to delete from secure store", err)
	}
	return nil
}
