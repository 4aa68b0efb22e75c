package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the tokcount configuration file
// (~/.config/tokcount/config.yaml). Empty fields mean "not set".
type Config struct {
	DefaultTokenizer string `yaml:"default_tokenizer"`

	// Hub
	CacheDir   string `yaml:"cache_dir"`
	HFEndpoint string `yaml:"hf_endpoint"`
	Revision   string `yaml:"revision"`
	Offline    *bool  `yaml:"offline"`

	// Output
	Output    string `yaml:"output"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "tokcount", "config.yaml")
}

// LoadConfig reads the config file at path. A missing file yields a zero
// Config and no error; a malformed one yields a zero Config and the error.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// applyConfig applies config file defaults to opts when the corresponding
// flag was not set on the command line or through its environment variable.
func applyConfig(c *cli.Command, cfg Config, opts *options) {
	if cfg.DefaultTokenizer != "" {
		opts.defaultTokenizer = cfg.DefaultTokenizer
	}
	if cfg.CacheDir != "" && !c.IsSet("cache-dir") {
		opts.cacheDir = cfg.CacheDir
	}
	if cfg.HFEndpoint != "" && !c.IsSet("hf-endpoint") {
		opts.hfEndpoint = cfg.HFEndpoint
	}
	if cfg.Revision != "" && !c.IsSet("revision") {
		opts.revision = cfg.Revision
	}
	if cfg.Offline != nil && !c.IsSet("offline") {
		opts.offline = *cfg.Offline
	}
	if cfg.Output != "" && !c.IsSet("output") {
		opts.output = cfg.Output
	}
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		opts.logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		opts.logFormat = cfg.LogFormat
	}
}
