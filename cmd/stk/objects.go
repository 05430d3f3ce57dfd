package main

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/starford/stk/internal/bsig"
	"github.com/starford/stk/internal/objconv"
	"github.com/starford/stk/internal/storage"
)

func (a *app) objectsCommand() *cli.Command {
	return &cli.Command{
		Name:  "objects",
		Usage: "Extract object records from the lifecycle signals of a bsig file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Required: true, Usage: "bsig recording export"},
			&cli.StringFlag{Name: "lifecycle", Usage: "lifecycle signal template with one %d lane placeholder (default from config)"},
			&cli.IntFlag{Name: "min-life", Value: -1, Usage: "minimum object lifetime in samples (default from config)"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "write all records to a .yaml or .json file"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			oc := a.cfg.Objects
			if s := cmd.String("lifecycle"); s != "" {
				oc.Lifecycle = s
			}
			if n := cmd.Int("min-life"); n >= 0 {
				oc.MinLifetime = int(n)
			}
			if oc.Lifecycle == "" {
				return usageError("objects", "no lifecycle signal template configured")
			}

			f, err := bsig.Open(cmd.String("input"))
			if err != nil {
				return err
			}
			defer f.Close()

			conv := objconv.New(oc.ConverterOptions(a.logger)...)
			n, err := conv.Init(f, oc.Lifecycle)
			if err != nil {
				return err
			}

			records := make([]*objconv.Record, 0, n)
			rows := make([][]string, 0, n)
			for i := 0; i < n; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				rec, err := conv.Convert(i, oc.Signals)
				if err != nil {
					return err
				}
				records = append(records, rec)
				rows = append(rows, []string{
					strconv.Itoa(rec.ObjectID),
					strconv.Itoa(rec.Lane),
					strconv.Itoa(rec.StartIndex),
					strconv.Itoa(rec.Lifetime),
					strconv.FormatFloat(rec.StartTime, 'f', -1, 64),
				})
			}

			fmt.Fprintln(a.stdout, renderTable(a.stdout,
				[]string{"Object", "Lane", "Start", "Lifetime", "Start time"}, rows,
				[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight}))
			fmt.Fprintf(a.stdout, "%d object(s)\n", n)

			if out := cmd.String("output"); out != "" {
				return writeRecords(out, records)
			}
			return nil
		},
	}
}

func writeRecords(path string, records []*objconv.Record) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = json.MarshalIndent(records, "", "  ")
	case ".yaml", ".yml":
		data, err = yaml.Marshal(records)
	default:
		return usageError("objects", "unsupported output format %q (want .yaml or .json)", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("objects: encode records: %w", err)
	}
	return storage.WriteFileAtomic(path, data)
}
