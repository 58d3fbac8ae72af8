// Package crypto provides platform-secure storage for sensitive credentials.
package crypto

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

const (
	// ServiceName namespaces the derived key so other apps on the machine
	// holding the same machine identifier derive a different key.
	ServiceName = "com.kimhsiao.fixdesk"

	secureDirName = "secure"
	vaultFileName = "vault.enc"
	saltFileName  = "vault.salt"
)

// SecureStorage is an encrypted label/secret file store. All pairs live in a
// single sealed file; every write rewrites it atomically.
type SecureStorage struct {
	serviceName string
	configDir   string
	machineID   string

	mu  sync.Mutex
	key []byte
}

// Option configures a SecureStorage.
type Option func(*SecureStorage)

// WithMachineID overrides the machine identifier used for key derivation.
func WithMachineID(id string) Option {
	return func(s *SecureStorage) { s.machineID = id }
}

// NewSecureStorage creates a new SecureStorage rooted at configDir.
func NewSecureStorage(configDir string, opts ...Option) *SecureStorage {
	s := &SecureStorage{
		serviceName: ServiceName,
		configDir:   configDir,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.machineID == "" {
		s.machineID = getMachineIdentifier()
	}
	return s
}

// List returns every stored label/secret pair.
func (s *SecureStorage) List(ctx context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Write stores secret under label, replacing any previous secret.
func (s *SecureStorage) Write(ctx context.Context, label, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	entries[label] = secret
	return s.save(entries)
}

// Delete removes label. Deleting a missing label is not an error.
func (s *SecureStorage) Delete(ctx context.Context, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := entries[label]; !ok {
		return nil
	}
	delete(entries, label)
	return s.save(entries)
}

func (s *SecureStorage) dir() string {
	return filepath.Join(s.configDir, secureDirName)
}

// load reads and decrypts the vault file. Caller holds s.mu.
func (s *SecureStorage) load() (map[string]string, error) {
	if s.configDir == "" {
		return nil, fmt.Errorf("config directory not set for secure storage")
	}

	data, err := os.ReadFile(filepath.Join(s.dir(), vaultFileName))
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read vault file: %w", err)
	}

	key, err := s.deriveKey()
	if err != nil {
		return nil, err
	}
	plaintext, err := Open(data, key)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt vault: %w", err)
	}

	entries := make(map[string]string)
	if err := json.Unmarshal(plaintext, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode vault: %w", err)
	}
	return entries, nil
}

// save encrypts entries and replaces the vault file. Caller holds s.mu.
func (s *SecureStorage) save(entries map[string]string) error {
	if err := os.MkdirAll(s.dir(), 0700); err != nil {
		return fmt.Errorf("failed to create secure directory: %w", err)
	}

	key, err := s.deriveKey()
	if err != nil {
		return err
	}
	plaintext, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode vault: %w", err)
	}
	sealed, err := Seal(plaintext, key)
	if err != nil {
		return fmt.Errorf("failed to encrypt vault: %w", err)
	}
	return writeFileAtomic(filepath.Join(s.dir(), vaultFileName), sealed)
}

// deriveKey loads or creates the salt and derives the vault key once.
func (s *SecureStorage) deriveKey() ([]byte, error) {
	if s.key != nil {
		return s.key, nil
	}

	saltPath := filepath.Join(s.dir(), saltFileName)
	salt, err := os.ReadFile(saltPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if salt, err = NewSalt(); err != nil {
			return nil, fmt.Errorf("failed to generate salt: %w", err)
		}
		if err := os.MkdirAll(s.dir(), 0700); err != nil {
			return nil, fmt.Errorf("failed to create secure directory: %w", err)
		}
		if err := writeFileAtomic(saltPath, salt); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("failed to read salt: %w", err)
	case len(salt) != SaltSize:
		return nil, fmt.Errorf("corrupted salt file")
	}

	s.key = DeriveKey([]byte(s.serviceName+":"+s.machineID), salt)
	return s.key, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

// =====================================================
// Machine Identifier Helper
// =====================================================

// getMachineIdentifier returns a platform-specific machine identifier.
// Used as part of the encryption key for file-based credential storage.
func getMachineIdentifier() string {
	if runtime.GOOS == "linux" {
		return getLinuxMachineID()
	}
	hostname, _ := os.Hostname()
	return runtime.GOOS + ":" + hostname
}

// getLinuxMachineID returns the systemd/dbus machine-id, or the hostname.
func getLinuxMachineID() string {
	for _, p := range []string{"/etc/machine-id", "/var/lib/dbus/machine-id"} {
		if data, err := os.ReadFile(p); err == nil {
			return "linux:" + strings.TrimSpace(string(data))
		}
	}
	hostname, _ := os.Hostname()
	return "linux:" + hostname
}
