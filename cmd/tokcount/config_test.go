package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/urfave/cli/v3"
)

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := `default_tokenizer: gpt2
cache_dir: ~/tok-cache
hf_endpoint: https://hf-mirror.example
revision: v2
offline: true
output: json
log_level: debug
log_format: json
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.DefaultTokenizer != "gpt2" || cfg.CacheDir != "~/tok-cache" || cfg.Revision != "v2" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Offline == nil || !*cfg.Offline {
		t.Fatalf("expected offline=true")
	}
	if cfg.Output != "json" || cfg.LogLevel != "debug" || cfg.LogFormat != "json" {
		t.Fatalf("unexpected output settings: %+v", cfg)
	}
}

func TestLoadConfigMissingAndEmptyPath(t *testing.T) {
	t.Parallel()

	for _, path := range []string{"", filepath.Join(t.TempDir(), "nope.yaml")} {
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig(%q): %v", path, err)
		}
		if cfg != (Config{}) {
			t.Fatalf("LoadConfig(%q): expected zero config, got %+v", path, cfg)
		}
	}
}

func TestLoadConfigMalformed(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("offline: [\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if cfg != (Config{}) {
		t.Fatalf("expected zero config on error, got %+v", cfg)
	}
}

func TestApplyConfigFlagsWin(t *testing.T) {
	t.Parallel()

	offline := true
	cfg := Config{
		DefaultTokenizer: "gpt2",
		CacheDir:         "/from-config",
		Revision:         "v2",
		Offline:          &offline,
		Output:           "json",
		LogLevel:         "debug",
	}

	opts := defaultOptions()
	var applied options
	cmd := &cli.Command{
		Name:  "tokcount",
		Flags: opts.flags(),
		Action: func(_ context.Context, c *cli.Command) error {
			applyConfig(c, cfg, opts)
			applied = *opts
			return nil
		},
	}
	if err := cmd.Run(context.Background(), []string{"tokcount", "--revision", "pinned", "--output", "text"}); err != nil {
		t.Fatalf("run: %v", err)
	}

	if applied.defaultTokenizer != "gpt2" {
		t.Errorf("default tokenizer: got %q", applied.defaultTokenizer)
	}
	if applied.cacheDir != "/from-config" {
		t.Errorf("cache dir: got %q", applied.cacheDir)
	}
	if !applied.offline {
		t.Errorf("offline: expected config value")
	}
	if applied.logLevel != "debug" {
		t.Errorf("log level: got %q", applied.logLevel)
	}
	if applied.revision != "pinned" {
		t.Errorf("revision: flag should win, got %q", applied.revision)
	}
	if applied.output != "text" {
		t.Errorf("output: flag should win, got %q", applied.output)
	}
}
