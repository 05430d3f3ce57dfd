package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/starford/stk/internal"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func (a *app) serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the REST API with live catalog updates",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := internal.Run(ctx, a.options()...); err != nil {
				return fmt.Errorf("app run error: %w", err)
			}
			return nil
		},
	}
}

func (a *app) mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the playlist tools over MCP stdio",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := internal.RunMCP(ctx, a.options()...); err != nil {
				return fmt.Errorf("mcp run error: %w", err)
			}
			return nil
		},
	}
}

// options leaves the logger to internal: serve logs JSON to stdout, mcp to stderr.
func (a *app) options() []internal.Option {
	return []internal.Option{
		internal.WithConfig(a.cfg),
		internal.WithVersion(version),
	}
}
