package main

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/craftlore/ragcheck/internal/batch"
	"github.com/craftlore/ragcheck/internal/evallog"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
)

type exportOptions struct {
	evalType string
	format   string
	outPath  string
}

func newExportCmd(st *cliState) *cobra.Command {
	var opts exportOptions

	cmd := &cobra.Command{
		Use:     "export",
		Short:   "Export persisted evaluation results",
		Args:    cobra.NoArgs,
		PreRunE: loadConfigPreRun(st),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, st, &opts)
		},
	}

	cmd.Flags().StringVar(&opts.evalType, "type", "retrieval", "evaluation type: retrieval|faithfulness")
	cmd.Flags().StringVar(&opts.format, "format", "table", "output format: csv|table")
	cmd.Flags().StringVar(&opts.outPath, "out", "", "write to file instead of stdout")

	return cmd
}

func runExport(cmd *cobra.Command, st *cliState, opts *exportOptions) error {
	if st == nil || st.cfg == nil {
		return fmt.Errorf("export: missing config (internal error)")
	}

	evalType, err := batch.ParseType(opts.evalType)
	if err != nil {
		return err
	}

	logger := evallog.New(st.cfg.LogPath(string(evalType)))

	var out io.Writer = cmd.OutOrStdout()
	if opts.outPath != "" {
		f, err := os.Create(opts.outPath)
		if err != nil {
			return fmt.Errorf("export: create %q: %w", opts.outPath, err)
		}
		defer f.Close()
		out = f
	}

	switch strings.ToLower(strings.TrimSpace(opts.format)) {
	case "csv":
		return logger.ExportCSV(out)
	case "table":
		return exportTable(logger, out)
	default:
		return fmt.Errorf("export: unknown format %q (want csv or table)", opts.format)
	}
}

// exportTable renders the CSV export as an aligned table.
func exportTable(logger *evallog.Logger, out io.Writer) error {
	var buf bytes.Buffer
	if err := logger.ExportCSV(&buf); err != nil {
		return err
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		return fmt.Errorf("export: parse csv: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	table := newResultTable(rows[0], out)
	for _, row := range rows[1:] {
		_ = table.Append(row)
	}
	return table.Render()
}

func newResultTable(headers []string, w io.Writer) *tablewriter.Table {
	cfg := tablewriter.Config{
		Header: tw.CellConfig{
			Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			Formatting: tw.CellFormatting{AutoFormat: tw.Off},
		},
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
		Behavior: tw.Behavior{TrimSpace: tw.Off},
	}
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(cfg),
		tablewriter.WithHeader(headers),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleMarkdown),
			Borders: tw.Border{
				Left:   tw.On,
				Top:    tw.Off,
				Right:  tw.On,
				Bottom: tw.Off,
			},
		}),
	)
}
