package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/starford/stk/internal/bpl"
	"github.com/starford/stk/internal/storage"
)

func operatorFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "input",
			Aliases: []string{"i"},
			Usage:   "input playlist (one or two)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output playlist, always written as BatchList XML",
		},
		&cli.BoolFlag{
			Name:    "strict",
			Aliases: []string{"s"},
			Usage:   "compare raw paths instead of normalized ones",
		},
	}
}

func (a *app) operatorCommand() *cli.Command {
	return &cli.Command{
		Name:      "bpl-operator",
		Usage:     "Combine playlists with and, or, xor or sub",
		ArgsUsage: "<and|or|xor|sub> [second]",
		Flags:     operatorFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args().Slice()
			if len(args) == 0 {
				return usageError("bpl-operator", "missing operator (and, or, xor, sub)")
			}
			inputs := append(cmd.StringSlice("input"), args[1:]...)
			return a.operate("bpl-operator", args[0], inputs, cmd.String("output"), cmd.Bool("strict"))
		},
	}
}

func (a *app) diffCommand() *cli.Command {
	return &cli.Command{
		Name:      "bpl-diff",
		Usage:     "Deprecated, same as bpl-operator xor",
		ArgsUsage: "[second]",
		Flags:     operatorFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a.logger.Warn("bpl-diff is deprecated, use bpl-operator xor")
			inputs := append(cmd.StringSlice("input"), cmd.Args().Slice()...)
			return a.operate("bpl-diff", string(bpl.OpXor), inputs, cmd.String("output"), cmd.Bool("strict"))
		},
	}
}

// operate applies op to one or two playlists. Unreadable inputs count as
// empty playlists; the result is written only when every argument is valid.
func (a *app) operate(name, opName string, inputs []string, output string, strict bool) error {
	op, err := bpl.ParseOp(opName)
	if err != nil {
		return usageError(name, "%v", err)
	}
	if len(inputs) == 0 || len(inputs) > 2 {
		return usageError(name, "expected one or two input playlists, got %d", len(inputs))
	}
	if output == "" {
		return usageError(name, "missing output playlist (-o)")
	}

	lists := [2]*bpl.Playlist{bpl.New(), bpl.New()}
	for i, in := range inputs {
		lists[i] = a.readLenient(name, in)
	}

	res, err := bpl.Apply(op, lists[0], lists[1], strict)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := (bpl.XML{}).Encode(&buf, res); err != nil {
		return err
	}
	if err := storage.WriteFileAtomic(output, buf.Bytes()); err != nil {
		return fmt.Errorf("%s: write %s: %w", name, output, err)
	}

	a.logger.Info(name+": written",
		slog.String("op", string(op)),
		slog.String("output", output),
		slog.Int("entries", res.Len()))
	return nil
}

func (a *app) readLenient(name, path string) *bpl.Playlist {
	p, err := bpl.ReadFile(path)
	if err != nil {
		a.logger.Warn(name+": input treated as empty playlist",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return bpl.New()
	}
	return p
}

func (a *app) genPlaylistCommand() *cli.Command {
	return &cli.Command{
		Name:      "mts-gen-playlist",
		Usage:     "Write a playlist of the given recordings",
		ArgsUsage: "<rec> [rec...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Value:   "mts_playlist.bpl",
				Usage:   "output playlist",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			out := cmd.String("output")
			p := bpl.FromPaths(cmd.Args().Slice()...)
			if err := bpl.WriteFile(out, p); err != nil {
				return err
			}
			a.logger.Info("mts-gen-playlist: written", slog.String("output", out), slog.Int("entries", p.Len()))
			return nil
		},
	}
}

func (a *app) convertCommand() *cli.Command {
	return &cli.Command{
		Name:  "bpl-convert",
		Usage: "Convert a playlist between bpl, ini and txt",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Required: true, Usage: "input playlist"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Required: true, Usage: "output playlist, format by extension"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			p, err := bpl.ReadFile(cmd.String("input"))
			if err != nil {
				return err
			}
			out := cmd.String("output")
			codec, err := bpl.CodecFor(out)
			if err != nil {
				return err
			}
			if !codec.SupportsSections() {
				for _, e := range p.Entries() {
					if e.HasSections() {
						a.logger.Warn("bpl-convert: sections dropped", slog.String("format", codec.Name()))
						break
					}
				}
			}
			return bpl.WriteFile(out, p)
		},
	}
}

func (a *app) findCommand() *cli.Command {
	return &cli.Command{
		Name:  "bpl-find",
		Usage: "Print the indices of entries whose path contains a text",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bpl", Aliases: []string{"b"}, Required: true, Usage: "playlist to scan"},
			&cli.StringFlag{Name: "rec", Aliases: []string{"r"}, Required: true, Usage: "recording (part of path) to search for"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			p, err := bpl.ReadFile(cmd.String("bpl"))
			if err != nil {
				return err
			}
			text := cmd.String("rec")
			var idx []string
			for i, path := range p.Paths() {
				if strings.Contains(path, text) {
					idx = append(idx, fmt.Sprint(i))
				}
			}
			fmt.Fprintf(a.stdout, "recording '%s' could match at indices %s\n", text, strings.Join(idx, ", "))
			return nil
		},
	}
}

func (a *app) fromFolderCommand() *cli.Command {
	return &cli.Command{
		Name:  "bpl-from-folder",
		Usage: "Write a playlist of the files found in a folder",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "folder", Aliases: []string{"f"}, Required: true, Usage: "folder to scan"},
			&cli.StringFlag{Name: "pattern", Aliases: []string{"p"}, Value: "*.*", Usage: "';'-separated file patterns"},
			&cli.BoolFlag{Name: "recursive", Aliases: []string{"r"}, Usage: "scan sub folders too"},
			&cli.StringFlag{Name: "bpl", Aliases: []string{"b"}, Required: true, Usage: "playlist to write"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			folder := cmd.String("folder")
			if info, err := os.Stat(folder); err != nil || !info.IsDir() {
				return cli.Exit(fmt.Sprintf("input folder '%s' doesn't exist!", folder), 255)
			}
			recs, err := scanFolder(folder, strings.Split(cmd.String("pattern"), ";"), cmd.Bool("recursive"))
			if err != nil {
				return err
			}
			out := cmd.String("bpl")
			if len(recs) > 0 {
				if err := bpl.WriteFile(out, bpl.FromPaths(recs...)); err != nil {
					return err
				}
			}
			fmt.Fprintf(a.stdout, "%d files written to '%s'\n", len(recs), out)
			return nil
		},
	}
}

// scanFolder returns the regular files below dir whose name matches any pattern.
func scanFolder(dir string, patterns []string, recursive bool) ([]string, error) {
	match := func(name string) bool {
		for _, p := range patterns {
			if ok, _ := filepath.Match(strings.TrimSpace(p), name); ok {
				return true
			}
		}
		return false
	}

	var out []string
	if !recursive {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		for _, de := range entries {
			if de.Type().IsRegular() && match(de.Name()) {
				out = append(out, filepath.Join(dir, de.Name()))
			}
		}
		return out, nil
	}

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && match(d.Name()) {
			out = append(out, path)
		}
		return nil
	})
	return out, err
}
