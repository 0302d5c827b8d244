// Package credentials stores the operator's POS login encrypted at rest
// under a machine/user/app-derived key. The blob is opaque and only
// readable by the same user on the same installation.
package credentials

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"os/user"
	"path/filepath"

	"golang.org/x/crypto/scrypt"
)

const fileName = "credentials.enc"

type payload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	App      string `json:"app"`
}

// Store encrypts and decrypts one credential file.
type Store struct {
	appName string
	path    string
	key     []byte
}

// NewStore creates a store rooted at dir (the user's home when empty).
// The key is derived from the username, the directory and the app name,
// so a copied file does not decrypt elsewhere.
func NewStore(dir, appName string) (*Store, error) {
	if appName == "" {
		appName = "ticketera"
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not resolve home directory: %w", err)
		}
		dir = filepath.Join(home, "."+appName)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create credential directory: %w", err)
	}

	username := "unknown"
	if u, err := user.Current(); err == nil {
		username = u.Username
	}
	seed := fmt.Sprintf("%s:%s:%s", username, dir, appName)
	key, err := scrypt.Key([]byte(seed), []byte(appName), 1<<15, 8, 1, 32)
	if err != nil {
		return nil, fmt.Errorf("could not derive key: %w", err)
	}

	return &Store{
		appName: appName,
		path:    filepath.Join(dir, fileName),
		key:     key,
	}, nil
}

// Save encrypts and writes the credentials.
func (s *Store) Save(email, password string) error {
	data, err := json.Marshal(payload{Email: email, Password: password, App: s.appName})
	if err != nil {
		return err
	}

	block, err := aes.NewCipher(s.key)
	if err != nil {
		return err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return err
	}
	sealed := gcm.Seal(nonce, nonce, data, nil)

	return os.WriteFile(s.path, sealed, 0o600)
}

// Load returns the stored credentials. A missing or undecipherable file
// yields empty strings, not an error: the operator simply types again.
func (s *Store) Load() (email, password string) {
	sealed, err := os.ReadFile(s.path)
	if err != nil {
		return "", ""
	}

	block, err := aes.NewCipher(s.key)
	if err != nil {
		return "", ""
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", ""
	}
	if len(sealed) < gcm.NonceSize() {
		return "", ""
	}
	data, err := gcm.Open(nil, sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():], nil)
	if err != nil {
		return "", ""
	}

	var p payload
	if err := json.Unmarshal(data, &p); err != nil || p.App != s.appName {
		return "", ""
	}
	return p.Email, p.Password
}

// Exists reports whether loadable credentials are present.
func (s *Store) Exists() bool {
	email, password := s.Load()
	return email != "" && password != ""
}

// Clear removes the credential file.
func (s *Store) Clear() error {
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// UpdateIfChanged rewrites the file only when the credentials differ from
// what is stored.
func (s *Store) UpdateIfChanged(email, password string) (bool, error) {
	curEmail, curPassword := s.Load()
	if curEmail == email && curPassword == password {
		return false, nil
	}
	if err := s.Save(email, password); err != nil {
		return false, err
	}
	return true, nil
}
