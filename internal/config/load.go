package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	appName = "rscatlas"

	// Looked up in the working directory before the per-user file.
	localConfigName = "rsctool.yaml"
	userConfigName  = "config.yaml"
)

// Load returns Default overlaid with the YAML file and then with f.
// f.Config names the file explicitly; otherwise SearchPaths is consulted and
// a missing file is not an error.
func Load(f Flags) (*Config, error) {
	cfg := Default()

	path := f.Config
	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", path, err)
		}
	}

	applyFlags(cfg, f)
	return cfg, nil
}

// SearchPaths lists the files Load tries, in order, without --config.
func SearchPaths() []string {
	return []string{localConfigName, UserConfigPath()}
}

// UserConfigPath is the per-user config file, written by Save.
func UserConfigPath() string {
	return filepath.Join(ConfigDir(), userConfigName)
}

// ConfigDir is the rscatlas directory under the platform's user config root
// (XDG_CONFIG_HOME, ~/Library/Application Support or %AppData%). Without a
// resolvable home it falls back to a dot-directory in the working directory.
func ConfigDir() string {
	root, err := os.UserConfigDir()
	if err != nil {
		if wd, werr := os.Getwd(); werr == nil {
			return filepath.Join(wd, "."+appName)
		}
		return "." + appName
	}
	return filepath.Join(root, appName)
}

func findConfigFile() string {
	for _, path := range SearchPaths() {
		if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
			return path
		}
	}
	return ""
}

// loadFromFile overlays the YAML document at path onto cfg. Keys absent from
// the file keep their current values; unknown keys are rejected.
func loadFromFile(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
