package keyring

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/zalando/go-keyring"

	"github.com/yllada/vpn-provider-cli/common"
)

func TestLocalStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := NewLocal(dir)

	if s.Backend() != BackendFile {
		t.Errorf("Backend() = %q, want %q", s.Backend(), BackendFile)
	}
	if err := s.SetToken(3, "  s3cr3t-token "); err != nil {
		t.Fatalf("SetToken() error = %v", err)
	}

	got, err := s.Token(3)
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if got != "s3cr3t-token" {
		t.Errorf("Token() = %q, want %q", got, "s3cr3t-token")
	}

	data, err := os.ReadFile(filepath.Join(dir, common.CredentialsFileName))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if bytes.Contains(data, []byte("s3cr3t-token")) {
		t.Error("credentials file contains the plaintext token")
	}

	reopened := NewLocal(dir)
	if got, err := reopened.Token(3); err != nil || got != "s3cr3t-token" {
		t.Errorf("reopened Token() = %q, %v, want %q", got, err, "s3cr3t-token")
	}
}

func TestLocalStore_Delete(t *testing.T) {
	s := NewLocal(t.TempDir())
	if err := s.SetToken(1, "abc"); err != nil {
		t.Fatalf("SetToken() error = %v", err)
	}
	if !s.HasToken(1) {
		t.Fatal("HasToken() = false after SetToken")
	}
	if err := s.DeleteToken(1); err != nil {
		t.Fatalf("DeleteToken() error = %v", err)
	}
	if _, err := s.Token(1); !errors.Is(err, ErrNotFound) {
		t.Errorf("Token() after delete error = %v, want ErrNotFound", err)
	}
}

func TestLocalStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, common.CredentialsFileName), []byte("garbage"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	s := NewLocal(dir)
	if s.HasToken(1) {
		t.Error("HasToken() = true for corrupt file")
	}
	if err := s.SetToken(1, "fresh"); err != nil {
		t.Errorf("SetToken() over corrupt file error = %v", err)
	}
}

func TestSetToken_Empty(t *testing.T) {
	s := NewLocal(t.TempDir())
	for _, token := range []string{"", "   "} {
		if err := s.SetToken(1, token); !errors.Is(err, ErrEmpty) {
			t.Errorf("SetToken(%q) error = %v, want ErrEmpty", token, err)
		}
	}
}

func TestSystemStore(t *testing.T) {
	keyring.MockInit()
	s := New(t.TempDir())

	if s.Backend() != BackendSystem {
		t.Fatalf("Backend() = %q, want %q", s.Backend(), BackendSystem)
	}
	if _, err := s.Token(2); !errors.Is(err, ErrNotFound) {
		t.Errorf("Token() before set error = %v, want ErrNotFound", err)
	}
	if err := s.SetToken(2, "tok"); err != nil {
		t.Fatalf("SetToken() error = %v", err)
	}
	if got, err := s.Token(2); err != nil || got != "tok" {
		t.Errorf("Token() = %q, %v, want %q", got, err, "tok")
	}
	if err := s.DeleteToken(2); err != nil {
		t.Errorf("DeleteToken() error = %v", err)
	}
	if err := s.DeleteToken(2); err != nil {
		t.Errorf("DeleteToken() of missing token error = %v", err)
	}
}

func TestDeriveKey_Stable(t *testing.T) {
	a, b := deriveKey(), deriveKey()
	if len(a) != 32 {
		t.Fatalf("deriveKey() len = %d, want 32", len(a))
	}
	if !bytes.Equal(a, b) {
		t.Error("deriveKey() is not deterministic")
	}
}
