package models

// CredentialEntry is a label/secret pair kept in the secure vault.
// It has no relational identity; Label acts as the key.
type CredentialEntry struct {
	Label  string `json:"label" validate:"required"`
	Secret string `json:"secret"`
}
