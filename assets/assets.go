package assets

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed configs/*
var configFS embed.FS

// ExampleConfig returns the bundled example config for the given format ("yml" or "toml").
func ExampleConfig(format string) ([]byte, error) {
	switch format {
	case "yml", "yaml":
		return configFS.ReadFile("configs/showdown-tracker.example.yml")
	case "toml":
		return configFS.ReadFile("configs/showdown-tracker.example.toml")
	default:
		return nil, fmt.Errorf("unsupported config format: %s (use yml or toml)", format)
	}
}

// WriteExampleConfig writes the example config to path, refusing to overwrite an existing file.
func WriteExampleConfig(path string, format string) error {
	content, err := ExampleConfig(format)
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	return os.WriteFile(path, content, 0644)
}

// ListConfigs returns the names of the bundled example configs.
func ListConfigs() ([]string, error) {
	entries, err := fs.ReadDir(configFS, "configs")
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names, nil
}
