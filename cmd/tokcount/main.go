package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/samcharles93/tokcount/internal/counter"
	"github.com/samcharles93/tokcount/internal/hub"
	"github.com/samcharles93/tokcount/internal/logger"
	"github.com/samcharles93/tokcount/internal/term"
	"github.com/samcharles93/tokcount/internal/tokenizer"
	"github.com/samcharles93/tokcount/internal/version"

	"github.com/urfave/cli/v3"
)

// errUsage is returned after the usage text has been printed.
var errUsage = errors.New("invalid arguments")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the CLI and returns the process exit code. Only invalid
// arguments or flags exit non-zero; counting failures are reported on
// stdout and exit 0.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts := defaultOptions()
	app := &cli.Command{
		Name:            "tokcount",
		Usage:           "Count the tokens in a text file",
		ArgsUsage:       "<file_path> [tokenizer_name]",
		Version:         version.String(),
		HideHelpCommand: true,
		Writer:          stdout,
		ErrWriter:       stderr,
		Flags:           opts.flags(),
		// Unknown flags are reported on stderr by run; the usage text on
		// stdout is reserved for a wrong positional count.
		OnUsageError: func(_ context.Context, _ *cli.Command, err error, _ bool) error {
			return err
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if n := cmd.Args().Len(); n < 1 || n > 2 {
				printUsage(stdout)
				return errUsage
			}
			return countAction(ctx, cmd, opts, stdout, stderr)
		},
	}

	if err := app.Run(ctx, args); err != nil {
		if !errors.Is(err, errUsage) {
			_, _ = fmt.Fprintln(stderr, err)
		}
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Usage: tokcount <file_path> [tokenizer_name]")
	_, _ = fmt.Fprintf(w, "Default tokenizer: %s\n", counter.DefaultTokenizer)
}

func countAction(ctx context.Context, cmd *cli.Command, opts *options, stdout, stderr io.Writer) error {
	cfg, cfgErr := LoadConfig(opts.configPath)
	applyConfig(cmd, cfg, opts)

	log, err := buildLogger(opts, stderr)
	if err != nil {
		return err
	}
	if cfgErr != nil {
		log.Warn("ignoring config file", "error", cfgErr)
	}
	if !counter.ValidFormat(opts.output) {
		return fmt.Errorf("unknown output format %q (want text or json)", opts.output)
	}
	ctx = logger.WithContext(ctx, log)

	inv := counter.Invocation{
		FilePath:  cmd.Args().Get(0),
		Tokenizer: opts.defaultTokenizer,
	}
	if cmd.Args().Len() == 2 {
		inv.Tokenizer = cmd.Args().Get(1)
	}

	var res counter.Result
	provider, err := newResolver(opts, stderr)
	if err == nil {
		res, err = counter.Count(ctx, provider, inv)
	}
	if err != nil {
		log.Debug("count failed", "error", err)
	}
	return counter.Report(stdout, opts.output, inv, res, err)
}

func buildLogger(opts *options, stderr io.Writer) (logger.Logger, error) {
	level := slog.LevelDebug
	if !opts.debug {
		var err error
		if level, err = logger.ParseLevel(opts.logLevel); err != nil {
			return nil, err
		}
	}
	return logger.Build(stderr, opts.logFormat, level)
}

func newResolver(opts *options, stderr io.Writer) (*tokenizer.Resolver, error) {
	cacheDir, err := hub.ResolveCacheDir(opts.cacheDir)
	if err != nil {
		return nil, err
	}
	client := &hub.Client{
		Endpoint: opts.hfEndpoint,
		Token:    opts.hfToken,
		CacheDir: cacheDir,
		Offline:  opts.offline,
	}
	if f, ok := stderr.(*os.File); ok && term.IsTerminal(f) && opts.logFormat != logger.FormatJSON {
		client.Progress = stderr
	}
	return &tokenizer.Resolver{Hub: client, Revision: opts.revision}, nil
}
