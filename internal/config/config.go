package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileNames are the config file names looked up by Load, in order.
var FileNames = []string{"graft.yml", "graft.yaml"}

// Labels name the sides in conflict markers.
type Labels struct {
	Left  string `yaml:"left,omitempty"`
	Right string `yaml:"right,omitempty"`
}

// ProjectConfig holds project-level settings loaded from graft.yml.
type ProjectConfig struct {
	Strategy  string   `yaml:"strategy,omitempty"`
	Solver    string   `yaml:"solver,omitempty"`
	Workers   int      `yaml:"workers,omitempty"`
	Languages []string `yaml:"languages,omitempty"`
	StatsDB   string   `yaml:"statsDB,omitempty"`
	Scripts   string   `yaml:"scripts,omitempty"`
	Diff3     bool     `yaml:"diff3,omitempty"`
	Verbose   bool     `yaml:"verbose,omitempty"`
	Labels    Labels   `yaml:"labels,omitempty"`
}

// Load attempts to read graft.yml or graft.yaml from the given directory.
// Returns a zero-value config (not an error) if no config file exists.
// Relative statsDB and scripts paths are resolved against dir.
func Load(dir string) (*ProjectConfig, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		var cfg ProjectConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
		if cfg.Workers < 0 {
			return nil, fmt.Errorf("config: %s: workers must not be negative", path)
		}
		cfg.StatsDB = resolve(dir, cfg.StatsDB)
		cfg.Scripts = resolve(dir, cfg.Scripts)
		return &cfg, nil
	}
	return &ProjectConfig{}, nil
}

func resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
