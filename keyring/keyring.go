// Package keyring stores provider login tokens.
// It uses the system keyring when available, falling back to
// encrypted local file storage when not.
package keyring

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"
	"golang.org/x/crypto/hkdf"

	"github.com/yllada/vpn-provider-cli/common"
)

const (
	// serviceName is the identifier used in the system keyring.
	serviceName = common.ConfigDirName
	checkKey    = serviceName + "-check"
)

// Errors returned by token operations.
var (
	ErrNotFound = common.ErrCredentialsNotFound
	ErrEmpty    = errors.New("token cannot be empty")
)

// Backend names reported by Store.Backend.
const (
	BackendSystem = "system"
	BackendFile   = "file"
)

// Store keeps one login token per provider.
type Store struct {
	mu      sync.RWMutex
	local   bool
	file    string
	key     []byte
	entries map[string]string
}

// New returns a store backed by the system keyring, or by an encrypted
// file in dir when the keyring service is unreachable.
func New(dir string) *Store {
	s := &Store{file: filepath.Join(dir, common.CredentialsFileName)}

	if err := keyring.Set(serviceName, checkKey, "check"); err == nil {
		keyring.Delete(serviceName, checkKey)
		return s
	}

	common.LogWarn("System keyring unavailable, storing tokens in %s", s.file)
	s.initLocal()
	return s
}

// NewLocal returns a store that always uses the encrypted file in dir.
func NewLocal(dir string) *Store {
	s := &Store{file: filepath.Join(dir, common.CredentialsFileName)}
	s.initLocal()
	return s
}

func (s *Store) initLocal() {
	s.local = true
	s.key = deriveKey()
	s.entries = make(map[string]string)
	s.load()
}

// Backend reports where tokens are kept.
func (s *Store) Backend() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.local {
		return BackendFile
	}
	return BackendSystem
}

func account(providerID int) string {
	return fmt.Sprintf("provider-%d", providerID)
}

// SetToken saves the login token for a provider.
func (s *Store) SetToken(providerID int, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmpty
	}
	key := account(providerID)
	common.GetLogger().AddSecret(token)

	s.mu.Lock()
	local := s.local
	s.mu.Unlock()

	if !local {
		err := keyring.Set(serviceName, key, token)
		if err == nil {
			return nil
		}
		common.LogWarn("System keyring rejected token for %s, falling back to file: %v", key, err)
		s.mu.Lock()
		s.initLocal()
		s.mu.Unlock()
	}

	s.mu.Lock()
	s.entries[key] = token
	s.mu.Unlock()
	return s.save()
}

// Token returns the login token for a provider.
func (s *Store) Token(providerID int) (string, error) {
	key := account(providerID)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.local {
		token, ok := s.entries[key]
		if !ok {
			return "", ErrNotFound
		}
		common.GetLogger().AddSecret(token)
		return token, nil
	}

	token, err := keyring.Get(serviceName, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", common.WrapError(err, "failed to read system keyring")
	}
	common.GetLogger().AddSecret(token)
	return token, nil
}

// DeleteToken removes the login token for a provider.
func (s *Store) DeleteToken(providerID int) error {
	key := account(providerID)

	s.mu.Lock()
	local := s.local
	if local {
		delete(s.entries, key)
	}
	s.mu.Unlock()

	if local {
		return s.save()
	}
	if err := keyring.Delete(serviceName, key); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return common.WrapError(err, "failed to delete from system keyring")
	}
	return nil
}

// HasToken reports whether a token is stored for a provider.
func (s *Store) HasToken(providerID int) bool {
	_, err := s.Token(providerID)
	return err == nil
}

// deriveKey binds the file encryption key to this machine and user.
func deriveKey() []byte {
	hostname, _ := os.Hostname()
	secret := fmt.Sprintf("%s-%s-%d", hostname, machineID(), os.Getuid())

	key := make([]byte, 32)
	r := hkdf.New(sha256.New, []byte(secret), []byte(serviceName), []byte("provider-tokens"))
	if _, err := io.ReadFull(r, key); err != nil {
		sum := sha256.Sum256([]byte(secret))
		return sum[:]
	}
	return key
}

func machineID() string {
	data, err := os.ReadFile("/etc/machine-id")
	if err == nil {
		return strings.TrimSpace(string(data))
	}
	return "default-machine-id"
}

// load must be called with s.mu held or before the store is shared.
func (s *Store) load() {
	data, err := os.ReadFile(s.file)
	if err != nil {
		return
	}

	decrypted, err := s.decrypt(data)
	if err != nil {
		common.LogWarn("Ignoring unreadable credentials file %s: %v", s.file, err)
		return
	}

	if err := json.Unmarshal(decrypted, &s.entries); err != nil {
		common.LogWarn("Ignoring malformed credentials file %s: %v", s.file, err)
	}
}

func (s *Store) save() error {
	s.mu.RLock()
	data, err := json.Marshal(s.entries)
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	encrypted, err := s.encrypt(data)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.file), 0700); err != nil {
		return common.WrapError(err, "failed to create credentials directory")
	}
	return os.WriteFile(s.file, encrypted, 0600)
}

func (s *Store) encrypt(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)
	return []byte(base64.StdEncoding.EncodeToString(ciphertext)), nil
}

func (s *Store) decrypt(data []byte) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(string(data))
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce, ciphertext := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}
