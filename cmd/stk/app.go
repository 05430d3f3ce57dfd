package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/starford/stk/internal"
	pkgconfig "github.com/starford/stk/pkg/config"
)

const defaultConfigPath = "config/config.yaml"

// app carries what every subcommand needs once the root Before hook ran.
type app struct {
	stdout io.Writer
	stderr io.Writer

	cfg    *internal.Config
	logger *slog.Logger
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{stdout: stdout, stderr: stderr}
}

func (a *app) command() *cli.Command {
	return &cli.Command{
		Name:      "stk",
		Usage:     "Batch playlist and object extraction toolkit",
		Writer:    a.stdout,
		ErrWriter: a.stderr,
		// Exit codes are mapped in main.
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
		Before:         a.before,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: defaultConfigPath,
				Value:       defaultConfigPath,
				Sources:     cli.EnvVars("STK_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Override the configured log level (debug, info, warn, error)",
				Sources: cli.EnvVars("STK_LOG_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			a.operatorCommand(),
			a.diffCommand(),
			a.splitOnlineCommand(),
			a.genPlaylistCommand(),
			a.splitCommand(),
			a.convertCommand(),
			a.fromFolderCommand(),
			a.findCommand(),
			a.bsigCopyCommand(),
			a.bsigExtractCommand(),
			a.objectsCommand(),
			a.catalogCommand(),
			a.serveCommand(),
			a.mcpCommand(),
		},
	}
}

func (a *app) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return ctx, fmt.Errorf("failed to parse config: %w", err)
	}

	level := cfg.App.LogLevel
	if s := cmd.String("log-level"); s != "" {
		if err := level.UnmarshalText([]byte(s)); err != nil {
			return ctx, fmt.Errorf("invalid log level %q: %w", s, err)
		}
		cfg.App.LogLevel = level
	}

	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
	return ctx, nil
}

// usageError reports a violated argument contract with exit code 1.
func usageError(command, format string, args ...any) error {
	return cli.Exit(command+": "+fmt.Sprintf(format, args...), 1)
}
