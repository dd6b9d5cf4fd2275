package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/mdsohelmia/smartchunking/internal/planner"
)

// fileConfig is the YAML shape of a config file. Only the fields that make
// sense to persist are exposed; paths stay on the command line.
type fileConfig struct {
	Plan        planner.Config `yaml:"plan"`
	ForceFormat string         `yaml:"format"`
	Fragmented  bool           `yaml:"fragmented"`
	Faststart   bool           `yaml:"faststart"`
	Workers     int            `yaml:"workers"`
	Verify      bool           `yaml:"verify"`
}

// LoadFile overlays a YAML config file onto cfg. The decode target is
// pre-seeded from the current config, so absent keys leave their values
// untouched.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config file: %w", err)
	}

	fc := fileConfig{
		Plan:        cfg.Plan,
		ForceFormat: cfg.ForceFormat,
		Fragmented:  cfg.Fragmented,
		Faststart:   cfg.Faststart,
		Workers:     cfg.Workers,
		Verify:      cfg.Verify,
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}

	cfg.Plan = fc.Plan
	cfg.ForceFormat = fc.ForceFormat
	cfg.Fragmented = fc.Fragmented
	cfg.Faststart = fc.Faststart
	cfg.Workers = fc.Workers
	cfg.Verify = fc.Verify
	return nil
}
