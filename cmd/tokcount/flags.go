package main

import (
	"github.com/samcharles93/tokcount/internal/counter"
	"github.com/samcharles93/tokcount/internal/hub"

	"github.com/urfave/cli/v3"
)

type options struct {
	configPath       string
	defaultTokenizer string

	cacheDir   string
	hfEndpoint string
	hfToken    string
	revision   string
	offline    bool

	output    string
	logLevel  string
	logFormat string
	debug     bool
}

func defaultOptions() *options {
	return &options{
		configPath:       configPath(),
		defaultTokenizer: counter.DefaultTokenizer,
		hfEndpoint:       hub.DefaultEndpoint,
		revision:         hub.DefaultRevision,
		output:           counter.FormatText,
		logLevel:         "warn",
		logFormat:        "auto",
	}
}

func (o *options) flags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to config.yaml",
			Value:       o.configPath,
			Destination: &o.configPath,
		},
	}
	flags = append(flags, o.hubFlags()...)
	flags = append(flags, o.outputFlags()...)
	return flags
}

func (o *options) hubFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "cache-dir",
			Usage:       "directory for downloaded tokenizer definitions",
			Sources:     cli.EnvVars("TOKCOUNT_CACHE_DIR"),
			Destination: &o.cacheDir,
		},
		&cli.StringFlag{
			Name:        "hf-endpoint",
			Usage:       "Hugging Face compatible hub endpoint",
			Value:       o.hfEndpoint,
			Sources:     cli.EnvVars("HF_ENDPOINT"),
			Destination: &o.hfEndpoint,
		},
		&cli.StringFlag{
			Name:        "hf-token",
			Usage:       "access token for gated or private repositories",
			Sources:     cli.EnvVars("HF_TOKEN"),
			Destination: &o.hfToken,
		},
		&cli.StringFlag{
			Name:        "revision",
			Usage:       "hub revision used when the tokenizer name has no @revision",
			Value:       o.revision,
			Destination: &o.revision,
		},
		&cli.BoolFlag{
			Name:        "offline",
			Usage:       "only use tokenizer definitions already in the cache",
			Sources:     cli.EnvVars("HF_HUB_OFFLINE"),
			Destination: &o.offline,
		},
	}
}

func (o *options) outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "report format (text, json)",
			Value:       o.output,
			Destination: &o.output,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       o.logLevel,
			Destination: &o.logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (auto, pretty, text, json)",
			Value:       o.logFormat,
			Destination: &o.logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &o.debug,
		},
	}
}
