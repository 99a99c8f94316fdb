package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agenthands/cardleads/internal/core"
	"github.com/agenthands/cardleads/internal/core/dedupe"
	"github.com/agenthands/cardleads/internal/core/model"
	"github.com/agenthands/cardleads/internal/export"
)

var (
	exportFormat string
	filterStage  string
	filterQuery  string
	outPath      string

	keyInput model.Identity
)

var scanCmd = &cobra.Command{
	Use:   "scan [image]",
	Short: "OCR and extract a card image",
	Long: `Runs OCR and field extraction on a local image file and prints the
draft, its uncertain fields and the raw OCR text as JSON. Nothing is saved.`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Print the dedupe key for a contact",
	Long: `Prints the key used to detect duplicate leads, or "(none)" when the
contact has too little identity to dedupe.

Example:
  cardctl key --name "Jane Doe" --phone "(555) 123-4567"`,
	RunE: runKey,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export leads as CSV or XLSX",
	RunE:  runExport,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Replace the configured Google Sheet tab with the current leads",
	RunE:  runSync,
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	p, st, err := openPipeline(ctx)
	if err != nil {
		return err
	}
	defer st.Close(ctx)

	res := p.ExtractImage(ctx, data)
	if res.Error != nil {
		logger.Warn("extraction degraded", zap.String("error", *res.Error))
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func runKey(cmd *cobra.Command, args []string) error {
	key := dedupe.BuildKey(keyInput)
	out := key.String()
	if !key.Present() {
		out = "(none)"
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}

func runExport(cmd *cobra.Command, args []string) error {
	write := export.WriteCSV
	switch exportFormat {
	case "csv":
	case "xlsx":
		write = export.WriteXLSX
	default:
		return fmt.Errorf("unknown export format %q", exportFormat)
	}

	ctx := cmd.Context()
	p, st, err := openPipeline(ctx)
	if err != nil {
		return err
	}
	defer st.Close(ctx)

	rows, err := p.Export(ctx, core.Filter{StageID: filterStage, Query: filterQuery}, export.DisplayDateLayout)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", outPath, err)
		}
		defer f.Close()
		w = f
	}
	if err := write(w, export.Header, rows); err != nil {
		return err
	}
	logger.Info("exported leads", zap.Int("rows", len(rows)), zap.String("format", exportFormat))
	return nil
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	syncer, err := export.NewSheetsSyncer(ctx, cfg.Sheets)
	if err != nil {
		return err
	}

	p, st, err := openPipeline(ctx)
	if err != nil {
		return err
	}
	defer st.Close(ctx)

	rows, err := p.SyncRows(ctx, filterStage, export.SheetsDateLayout)
	if err != nil {
		return err
	}
	n, err := syncer.Sync(ctx, export.Header, rows)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows\n", n)
	return nil
}
