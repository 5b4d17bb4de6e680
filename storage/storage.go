package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	placesFile    = "places.json"
	snapshotsFile = "snapshots.db"
	credsFile     = "credentials.json"
	configFile    = "config.json"

	// ConfigDirEnv overrides the config directory.
	ConfigDirEnv = "COURTMAP_CONFIG_DIR"
)

func ConfigDir() (string, error) {
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "courtmap"), nil
}

func ConfigPath() (string, error) {
	return configFilePath(configFile)
}

func PlacesPath() (string, error) {
	return configFilePath(placesFile)
}

func SnapshotsPath() (string, error) {
	return configFilePath(snapshotsFile)
}

func CredentialsPath() (string, error) {
	return configFilePath(credsFile)
}

func configFilePath(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

func ensureConfigDir() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return dir, nil
}

// LoadConfig decodes config.json into dest. A missing file leaves dest untouched.
func LoadConfig(dest any) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	_, err = readJSONFile(path, dest)
	return err
}

// readJSONFile decodes path into dest and reports whether the file existed.
func readJSONFile(path string, dest any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return true, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

func writeJSONFile(path string, v any, perm os.FileMode) error {
	if _, err := ensureConfigDir(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), perm)
}
