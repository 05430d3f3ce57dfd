package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/starford/stk/internal/bpl"
	"github.com/starford/stk/internal/bsig"
	"github.com/starford/stk/internal/bsigcopy"
)

func (a *app) bsigCopyCommand() *cli.Command {
	return &cli.Command{
		Name:  "bsig-copy",
		Usage: "Copy the bsig exports of the recordings of a playlist",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bpl", Aliases: []string{"b"}, Required: true, Usage: "playlist naming the recordings"},
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Required: true, Usage: "folder holding <rec>_<component>.bsig files"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Required: true, Usage: "target folder"},
			&cli.StringSliceFlag{Name: "component", Aliases: []string{"c"}, Required: true, Usage: "component name, repeatable"},
			&cli.BoolFlag{Name: "timestamps", Aliases: []string{"t"}, Usage: "also copy <rec>_tstp.bsig"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			p, err := bpl.ReadFile(cmd.String("bpl"))
			if err != nil {
				return err
			}
			st, err := bsigcopy.Copy(ctx, p, bsigcopy.Options{
				InDir:      cmd.String("input"),
				OutDir:     cmd.String("output"),
				Components: cmd.StringSlice("component"),
				Timestamps: cmd.Bool("timestamps"),
				Out:        a.stdout,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "done, copied %d file(s), skipped %d file(s)\n", st.Copied, st.Skipped)
			return nil
		},
	}
}

func (a *app) bsigExtractCommand() *cli.Command {
	return &cli.Command{
		Name:  "bsig-extract",
		Usage: "List the signals of a bsig file or copy a subset into a new file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Required: true, Usage: "source bsig file"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "target bsig file; without it the signals are listed"},
			&cli.StringSliceFlag{Name: "signal", Aliases: []string{"s"}, Usage: "signal name or glob pattern, repeatable"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			f, err := bsig.Open(cmd.String("input"))
			if err != nil {
				return err
			}
			defer f.Close()

			selected, err := selectSignals(f.Signals(), cmd.StringSlice("signal"))
			if err != nil {
				return err
			}

			out := cmd.String("output")
			if out == "" {
				rows := make([][]string, 0, len(selected))
				for _, s := range selected {
					rows = append(rows, []string{s.Name, s.Type.String(), strconv.Itoa(s.ArrayLength), strconv.Itoa(s.SampleCount)})
				}
				fmt.Fprintln(a.stdout, renderTable(a.stdout,
					[]string{"Signal", "Type", "Array", "Samples"}, rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight}))
				return nil
			}

			if len(selected) == 0 {
				return usageError("bsig-extract", "no signal matches")
			}
			w := bsig.NewWriter(f.BlockSize(), f.Compressed())
			for _, s := range selected {
				data, err := f.Raw(s.Name)
				if err != nil {
					return err
				}
				if err := w.AddRaw(s, data); err != nil {
					return err
				}
			}
			if err := w.WriteFile(out); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "%d signal(s) written to '%s'\n", len(selected), out)
			return nil
		},
	}
}

// selectSignals keeps the signals matching any pattern, all of them when
// no pattern is given.
func selectSignals(all []bsig.Signal, patterns []string) ([]bsig.Signal, error) {
	if len(patterns) == 0 {
		return all, nil
	}
	var out []bsig.Signal
	for _, s := range all {
		for _, p := range patterns {
			ok, err := filepath.Match(p, s.Name)
			if err != nil {
				return nil, fmt.Errorf("bsig-extract: pattern %q: %w", p, err)
			}
			if ok {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}
