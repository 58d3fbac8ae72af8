// Package crypto tests for encryption and key derivation functionality.
package crypto

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// TestSealOpen_roundtrip verifies basic encryption and decryption.
func TestSealOpen_roundtrip(t *testing.T) {
	key := DeriveKey([]byte("secret"), bytes.Repeat([]byte{1}, SaltSize))
	plaintext := []byte("Hello, World!")

	sealed, err := Seal(plaintext, key)
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	if bytes.Contains(sealed, plaintext) {
		t.Error("Seal() output contains plaintext")
	}

	opened, err := Open(sealed, key)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Errorf("Open() = %q, want %q", opened, plaintext)
	}
}

// TestSeal_randomNonce verifies each encryption produces unique output.
func TestSeal_randomNonce(t *testing.T) {
	key := make([]byte, KeySize)
	a, _ := Seal([]byte("x"), key)
	b, _ := Seal([]byte("x"), key)
	if bytes.Equal(a, b) {
		t.Error("Seal() twice with same key produced same output")
	}
}

// TestOpen_wrongKey verifies authentication failure on a different key.
func TestOpen_wrongKey(t *testing.T) {
	key := make([]byte, KeySize)
	sealed, err := Seal([]byte("payload"), key)
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}

	other := bytes.Repeat([]byte{7}, KeySize)
	if _, err := Open(sealed, other); !errors.Is(err, ErrInvalidCiphertext) {
		t.Errorf("Open() error = %v, want ErrInvalidCiphertext", err)
	}
}

func TestOpen_tooShort(t *testing.T) {
	if _, err := Open([]byte{1, 2}, make([]byte, KeySize)); !errors.Is(err, ErrInvalidCiphertext) {
		t.Errorf("Open() error = %v, want ErrInvalidCiphertext", err)
	}
}

func TestSeal_badKeySize(t *testing.T) {
	if _, err := Seal([]byte("x"), []byte("short")); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Seal() error = %v, want ErrInvalidKey", err)
	}
}

// TestDeriveKey verifies argon2id output is deterministic per salt.
func TestDeriveKey(t *testing.T) {
	salt := bytes.Repeat([]byte{3}, SaltSize)
	k1 := DeriveKey([]byte("pw"), salt)
	k2 := DeriveKey([]byte("pw"), salt)
	k3 := DeriveKey([]byte("pw"), bytes.Repeat([]byte{4}, SaltSize))

	if len(k1) != KeySize {
		t.Fatalf("len(DeriveKey()) = %d, want %d", len(k1), KeySize)
	}
	if !bytes.Equal(k1, k2) {
		t.Error("DeriveKey() not deterministic")
	}
	if bytes.Equal(k1, k3) {
		t.Error("DeriveKey() ignored salt")
	}
}

func TestEncryptString_roundtrip(t *testing.T) {
	ct, err := EncryptString("aws-secret", "correct horse")
	if err != nil {
		t.Fatalf("EncryptString() error = %v", err)
	}

	pt, err := DecryptString(ct, "correct horse")
	if err != nil {
		t.Fatalf("DecryptString() error = %v", err)
	}
	if pt != "aws-secret" {
		t.Errorf("DecryptString() = %q, want %q", pt, "aws-secret")
	}

	if _, err := DecryptString(ct, "wrong"); !errors.Is(err, ErrInvalidCiphertext) {
		t.Errorf("DecryptString() wrong password error = %v", err)
	}
	if _, err := DecryptString("%%%", "correct horse"); !errors.Is(err, ErrInvalidCiphertext) {
		t.Errorf("DecryptString() bad base64 error = %v", err)
	}
	if _, err := EncryptString("x", ""); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("EncryptString() empty password error = %v", err)
	}
}

// =====================================================
// SecureStorage
// =====================================================

func TestSecureStorage_emptyVault(t *testing.T) {
	s := NewSecureStorage(t.TempDir(), WithMachineID("test-machine"))

	entries, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("List() = %v, want empty", entries)
	}
}

func TestSecureStorage_writeOverwriteDelete(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := NewSecureStorage(dir, WithMachineID("test-machine"))

	if err := s.Write(ctx, "wifi", "one"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := s.Write(ctx, "wifi", "two"); err != nil {
		t.Fatalf("Write() overwrite error = %v", err)
	}
	if err := s.Write(ctx, "router", "admin"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	entries, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 2 || entries["wifi"] != "two" || entries["router"] != "admin" {
		t.Errorf("List() = %v", entries)
	}

	if err := s.Delete(ctx, "missing"); err != nil {
		t.Errorf("Delete() missing label error = %v", err)
	}
	if err := s.Delete(ctx, "wifi"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	entries, _ = s.List(ctx)
	if _, ok := entries["wifi"]; ok {
		t.Error("Delete() left label in vault")
	}

	raw, err := os.ReadFile(filepath.Join(dir, "secure", "vault.enc"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if bytes.Contains(raw, []byte("admin")) {
		t.Error("vault file contains plaintext secret")
	}
}

// TestSecureStorage_reopen verifies a new instance reads the same vault.
func TestSecureStorage_reopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	if err := NewSecureStorage(dir, WithMachineID("m1")).Write(ctx, "k", "v"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	entries, err := NewSecureStorage(dir, WithMachineID("m1")).List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if entries["k"] != "v" {
		t.Errorf("List()[k] = %q, want v", entries["k"])
	}

	if _, err := NewSecureStorage(dir, WithMachineID("m2")).List(ctx); err == nil {
		t.Error("List() with different machine id should fail")
	}
}

func TestSecureStorage_noConfigDir(t *testing.T) {
	s := NewSecureStorage("", WithMachineID("m"))
	if _, err := s.List(context.Background()); err == nil {
		t.Error("List() without config dir should fail")
	}
}

func TestGetMachineIdentifier(t *testing.T) {
	if id := getMachineIdentifier(); id == "" {
		t.Error("getMachineIdentifier() returned empty string")
	}
}
