package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/starford/stk/internal"
	"github.com/starford/stk/internal/catalog"
)

func (a *app) catalogCommand() *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "Maintain and query the playlist catalog",
		Commands: []*cli.Command{
			{
				Name:  "sync",
				Usage: "Bring the catalog up to date with the library folder",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					store, db, err := internal.OpenLibrary(a.cfg)
					if err != nil {
						return err
					}
					defer db.Close()

					st, err := catalog.Sync(ctx, db, store, a.logger)
					if err != nil {
						return err
					}
					a.logger.Info("catalog: sync done",
						slog.Int("indexed", st.Indexed),
						slog.Int("removed", st.Removed),
						slog.Int("failed", st.Failed))
					fmt.Fprintf(a.stdout, "indexed %d, removed %d, failed %d\n", st.Indexed, st.Removed, st.Failed)
					return nil
				},
			},
			{
				Name:      "find",
				Usage:     "List catalog entries whose recording path contains a text",
				ArgsUsage: "<text>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 50, Usage: "maximum number of hits"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.NArg() != 1 {
						return usageError("catalog find", "expected exactly one search text")
					}
					_, db, err := internal.OpenLibrary(a.cfg)
					if err != nil {
						return err
					}
					defer db.Close()

					hits, err := db.FindRecording(cmd.Args().First(), int(cmd.Int("limit")))
					if err != nil {
						return err
					}
					rows := make([][]string, 0, len(hits))
					for _, h := range hits {
						rows = append(rows, []string{h.Playlist, strconv.Itoa(h.Position), h.FilePath})
					}
					fmt.Fprintln(a.stdout, renderTable(a.stdout,
						[]string{"Playlist", "Index", "Recording"}, rows,
						[]columnAlignment{alignLeft, alignRight, alignLeft}))
					return nil
				},
			},
			{
				Name:      "containing",
				Usage:     "List the playlists referencing a recording",
				ArgsUsage: "<recording>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.NArg() != 1 {
						return usageError("catalog containing", "expected exactly one recording path")
					}
					_, db, err := internal.OpenLibrary(a.cfg)
					if err != nil {
						return err
					}
					defer db.Close()

					paths, err := db.PlaylistsContaining(cmd.Args().First())
					if err != nil {
						return err
					}
					for _, p := range paths {
						fmt.Fprintln(a.stdout, p)
					}
					return nil
				},
			},
		},
	}
}
