package storage

import (
	"errors"
	"io/fs"
	"os"
	"time"
)

// Credentials hold the API key sent as a bearer token.
type Credentials struct {
	APIKey  string `json:"api_key"`
	SavedAt string `json:"saved_at"`
}

func NewCredentials(apiKey string, now time.Time) *Credentials {
	return &Credentials{APIKey: apiKey, SavedAt: now.UTC().Format(time.RFC3339)}
}

// LoadCredentials returns nil when no key has been saved.
func LoadCredentials() (*Credentials, error) {
	path, err := CredentialsPath()
	if err != nil {
		return nil, err
	}
	var creds Credentials
	found, err := readJSONFile(path, &creds)
	if err != nil || !found {
		return nil, err
	}
	return &creds, nil
}

func SaveCredentials(creds *Credentials) error {
	path, err := CredentialsPath()
	if err != nil {
		return err
	}
	if err := writeJSONFile(path, creds, 0o600); err != nil {
		return err
	}
	// WriteFile keeps the mode of an existing file.
	return os.Chmod(path, 0o600)
}

func ClearCredentials() error {
	path, err := CredentialsPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// MaskedKey shows only the last four characters of the key.
func (c *Credentials) MaskedKey() string {
	if c == nil || c.APIKey == "" {
		return ""
	}
	if len(c.APIKey) <= 4 {
		return "****"
	}
	return "****" + c.APIKey[len(c.APIKey)-4:]
}
