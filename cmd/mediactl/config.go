package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig represents the YAML config file structure.
type fileConfig struct {
	Port    *int    `yaml:"port"`
	Host    *string `yaml:"host"`
	Timeout *string `yaml:"timeout"` // duration string, e.g. "30s"
	Output  *string `yaml:"output"`
	Target  *string `yaml:"target"`
	Driver  *string `yaml:"driver"`
	Kind    *string `yaml:"kind"`
	Listen  *string `yaml:"listen"`
}

// configPaths lists the .mediactlrc locations in lookup order.
func configPaths() []string {
	paths := []string{
		filepath.Join(".", ".mediactlrc"),
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".mediactlrc"))
	}
	return paths
}

// loadConfigFile loads the first .mediactlrc found, checking the working
// directory before the home directory, and applies it to cfg. A missing
// file is not an error; a malformed one is.
func loadConfigFile(cfg *Config) error {
	for _, p := range configPaths() {
		data, err := os.ReadFile(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", p, err)
		}

		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return fmt.Errorf("parsing %s: %w", p, err)
		}
		return applyFileConfig(cfg, &fc)
	}
	return nil
}

func applyFileConfig(cfg *Config, fc *fileConfig) error {
	if fc.Port != nil {
		cfg.Port = *fc.Port
	}
	if fc.Host != nil {
		cfg.Host = *fc.Host
	}
	if fc.Timeout != nil {
		d, err := time.ParseDuration(*fc.Timeout)
		if err != nil {
			return fmt.Errorf("timeout in .mediactlrc: %w", err)
		}
		cfg.Timeout = d
	}
	if fc.Output != nil {
		cfg.Output = *fc.Output
	}
	if fc.Target != nil {
		cfg.Target = *fc.Target
	}
	if fc.Driver != nil {
		cfg.Driver = *fc.Driver
	}
	if fc.Kind != nil {
		cfg.Kind = *fc.Kind
	}
	if fc.Listen != nil {
		cfg.Listen = *fc.Listen
	}
	return nil
}
