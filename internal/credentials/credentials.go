// Package credentials implements a file-backed connector.CredentialsProvider.
// Venue API keys/secrets/passphrases are stored encrypted at rest (AES-GCM,
// Argon2id-derived key) and decrypted only on demand; they are never
// logged (§6: "Never logged; injected via a CredentialsProvider interface
// with a single get(venue) call").
package credentials

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/crypto/argon2"

	"github.com/cryptospreadedge/platform/internal/connector"
)

// kdf parameters for deriving the AES-256 key from a passphrase. Values
// mirror the Argon2id defaults used elsewhere in this stack (time=1,
// memory=64MiB, threads=4).
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024
	argon2Threads = 4
	argon2KeyLen  = 32
	saltSize      = 16
)

// record is the on-disk shape for one venue's encrypted credentials.
type record struct {
	Salt       string `json:"salt"`
	Ciphertext string `json:"ciphertext"`
}

// Store is a file-backed, encrypted-at-rest credentials provider keyed by
// venue name. It satisfies connector.CredentialsProvider.
type Store struct {
	path       string
	passphrase []byte

	mu      sync.RWMutex
	records map[string]record
}

// Open loads (or creates, if absent) the credentials file at path,
// encrypted with passphrase.
func Open(path string, passphrase string) (*Store, error) {
	s := &Store{
		path:       path,
		passphrase: []byte(passphrase),
		records:    make(map[string]record),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s.records); err != nil {
		return nil, fmt.Errorf("parsing credentials file: %w", err)
	}
	return s, nil
}

// Put encrypts creds and stores them under venue, persisting the file.
func (s *Store) Put(venue string, creds connector.Credentials) error {
	plaintext, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("generating salt: %w", err)
	}
	key := argon2.IDKey(s.passphrase, salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	ciphertext, err := encrypt(key, plaintext)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.records[venue] = record{
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Ciphertext: ciphertext,
	}
	s.mu.Unlock()

	return s.persist()
}

// Get decrypts and returns the credentials for venue, satisfying
// connector.CredentialsProvider.
func (s *Store) Get(_ context.Context, venue string) (connector.Credentials, error) {
	s.mu.RLock()
	rec, ok := s.records[venue]
	s.mu.RUnlock()
	if !ok {
		return connector.Credentials{}, fmt.Errorf("no credentials stored for venue %q", venue)
	}

	salt, err := base64.StdEncoding.DecodeString(rec.Salt)
	if err != nil {
		return connector.Credentials{}, fmt.Errorf("decoding salt: %w", err)
	}
	key := argon2.IDKey(s.passphrase, salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	plaintext, err := decrypt(key, rec.Ciphertext)
	if err != nil {
		return connector.Credentials{}, fmt.Errorf("decrypting credentials for venue %q: %w", venue, err)
	}

	var creds connector.Credentials
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return connector.Credentials{}, fmt.Errorf("parsing decrypted credentials: %w", err)
	}
	return creds, nil
}

// Remove deletes venue's stored credentials, persisting the file.
func (s *Store) Remove(venue string) error {
	s.mu.Lock()
	delete(s.records, venue)
	s.mu.Unlock()
	return s.persist()
}

// Venues lists every venue with stored credentials.
func (s *Store) Venues() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.records))
	for v := range s.records {
		out = append(out, v)
	}
	return out
}

func (s *Store) persist() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.records, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshaling credentials store: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("writing credentials file: %w", err)
	}
	return nil
}

func encrypt(key, plaintext []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("creating GCM: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func decrypt(key []byte, encoded string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding ciphertext: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	nonceSize := gcm.NonceSize()
	if len(data) <= nonceSize {
		return nil, errors.New("ciphertext too short")
	}
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	return gcm.Open(nil, nonce, ciphertext, nil)
}
