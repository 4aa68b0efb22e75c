package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/samcharles93/tokcount/internal/logger"
	"github.com/samcharles93/tokcount/internal/minify"
	"github.com/samcharles93/tokcount/internal/term"
	"github.com/samcharles93/tokcount/internal/version"

	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args, os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run minifies a Telegram export read from stdin (or the file named by the
// single positional argument) and writes the transcript to stdout.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var (
		minGap     int64
		maxUndated int
		noProgress bool
		logLevel   string
		logFormat  string
	)

	app := &cli.Command{
		Name:            "tgminify",
		Usage:           "Convert a Telegram chat export into a compact transcript",
		ArgsUsage:       "[result.json]",
		Version:         version.String(),
		HideHelpCommand: true,
		Writer:          stdout,
		ErrWriter:       stderr,
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:        "min-gap",
				Usage:       "seconds between messages that start a dated block",
				Value:       minify.DefaultMinTimeGap,
				Destination: &minGap,
			},
			&cli.IntFlag{
				Name:        "max-undated",
				Usage:       "blocks without a date header before one is forced",
				Value:       minify.DefaultMaxUndated,
				Destination: &maxUndated,
			},
			&cli.BoolFlag{
				Name:        "no-progress",
				Usage:       "disable the progress bar",
				Destination: &noProgress,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error)",
				Value:       "info",
				Destination: &logLevel,
			},
			&cli.StringFlag{
				Name:        "log-format",
				Usage:       "log format (auto, pretty, text, json)",
				Value:       logger.FormatAuto,
				Destination: &logFormat,
			},
		},
		OnUsageError: func(_ context.Context, _ *cli.Command, err error, _ bool) error {
			return err
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() > 1 {
				return fmt.Errorf("expected at most one input file, got %d", cmd.Args().Len())
			}
			level, err := logger.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			log, err := logger.Build(stderr, logFormat, level)
			if err != nil {
				return err
			}
			ctx = logger.WithContext(ctx, log)

			in := stdin
			if path := cmd.Args().First(); path != "" && path != "-" {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			} else {
				log.Info("waiting for input from stdin")
			}

			opts := minify.Options{MinTimeGap: minGap, MaxUndated: maxUndated}
			if f, ok := stderr.(*os.File); ok && !noProgress && term.IsTerminal(f) {
				opts.Progress = stderr
			}
			stats, err := minify.Minify(ctx, in, stdout, opts)
			if err != nil {
				return err
			}
			log.Debug("done", "messages", stats.Messages, "written", stats.Written)
			return nil
		},
	}

	if err := app.Run(ctx, args); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
