package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/starford/stk/internal/bpl"
	"github.com/starford/stk/internal/splitter"
)

func (a *app) splitOnlineCommand() *cli.Command {
	return &cli.Command{
		Name:  "bpl-split-online",
		Usage: "Split a playlist into online and offline recordings",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "playlist to split"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s := splitter.New(
				splitter.WithServerAliases(a.cfg.Paths.ServerAliases),
				splitter.WithOutput(a.stdout),
				splitter.WithLogger(a.logger),
			)
			res, code := s.Run(cmd.String("input"))
			if res != nil {
				a.logger.Info("bpl-split-online: done",
					slog.Int("online", res.Online.Len()),
					slog.Int("offline", res.Offline.Len()),
					slog.Int("missing", len(res.Missing)))
			}
			if code != splitter.CodeOK {
				return cli.Exit(fmt.Sprintf("bpl_online_offline_split error: %d", code), code)
			}
			return nil
		},
	}
}

func (a *app) splitCommand() *cli.Command {
	return &cli.Command{
		Name:  "bpl-split",
		Usage: "Split a playlist by task size, into balanced parts or one per recording",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Required: true, Usage: "playlist to split"},
			&cli.IntFlag{Name: "task-size", Usage: "entries per playlist (T00001.bpl, ...)"},
			&cli.IntFlag{Name: "parts", Usage: "number of playlists balanced by recording size"},
			&cli.BoolFlag{Name: "single", Usage: "one playlist per recording (Rec00001.bpl, ...)"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output folder (default: next to the input)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			in := cmd.String("input")
			taskSize, parts, single := int(cmd.Int("task-size")), int(cmd.Int("parts")), cmd.Bool("single")

			modes := 0
			for _, set := range []bool{taskSize != 0, parts != 0, single} {
				if set {
					modes++
				}
			}
			if modes != 1 {
				return usageError("bpl-split", "exactly one of --task-size, --parts, --single is required")
			}

			p, err := bpl.ReadFile(in)
			if err != nil {
				return err
			}

			var chunks []bpl.Chunk
			switch {
			case single:
				chunks = bpl.SplitSingle(p)
			case parts != 0:
				chunks, err = bpl.SplitParts(p, parts, in, nil)
			default:
				chunks, err = bpl.SplitBySize(p, taskSize)
			}
			if err != nil {
				return usageError("bpl-split", "%v", err)
			}

			dir := cmd.String("output")
			if dir == "" {
				dir = filepath.Dir(in)
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("bpl-split: create %s: %w", dir, err)
			}
			paths, err := bpl.WriteChunks(dir, chunks)
			if err != nil {
				return err
			}
			for _, path := range paths {
				fmt.Fprintln(a.stdout, path)
			}
			return nil
		},
	}
}
