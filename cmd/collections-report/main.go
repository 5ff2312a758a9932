package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"collectdash/internal/collections"
	"collectdash/internal/config"
	"collectdash/internal/exporter"
	"collectdash/internal/infrastructure"
	"collectdash/internal/sources"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	logger := infrastructure.NewLogger(os.Stderr, config.LoggingConfig{Level: "info", Format: "text"})
	if err := run(ctx, os.Args[1:], os.Stdout, logger); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		logger.Error("Report failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// run aggregates every agent batch of a workbook or spreadsheet once and
// writes the report CSVs.
func run(ctx context.Context, args []string, stdout io.Writer, logger *slog.Logger) error {
	fs := flag.NewFlagSet("collections-report", flag.ContinueOnError)
	workbook := fs.String("workbook", "", "path to an .xlsx workbook with one worksheet per agent")
	sheetID := fs.String("sheet-id", "", "Google Sheets spreadsheet id with one worksheet per agent")
	credentials := fs.String("credentials", "credentials.json", "service account credentials for -sheet-id")
	outDir := fs.String("out", "reports", "output directory for the CSV files")
	policy := fs.String("exclusion-policy", string(collections.ExcludeFold), "how excluded worksheet names match: fold or exact")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var src collections.BatchSource
	switch {
	case *workbook != "" && *sheetID != "":
		return errors.New("use either -workbook or -sheet-id, not both")
	case *workbook != "":
		src = sources.NewWorkbookSource(*workbook, logger)
	case *sheetID != "":
		svc, err := sources.NewSheetsService(ctx, sources.SheetsConfig{
			SpreadsheetID:   *sheetID,
			CredentialsFile: *credentials,
		})
		if err != nil {
			return err
		}
		src = sources.NewSheetsSource(svc, *sheetID, logger)
	default:
		return errors.New("one of -workbook or -sheet-id is required")
	}

	exclusion, err := collections.ParseExclusionPolicy(*policy)
	if err != nil {
		return err
	}
	cfg := config.Default().Source
	normalizer := collections.NewNormalizer(collections.NormalizerOptions{CurrencyToken: cfg.CurrencyToken})
	aggregator := collections.NewAggregator(normalizer, collections.NewExclusions(exclusion, nil), logger)

	coll, err := aggregator.Aggregate(ctx, src)
	if err != nil {
		return fmt.Errorf("aggregate: %w", err)
	}
	for _, w := range coll.Warnings {
		logger.Warn("Batch skipped", slog.String("batch", w.Batch), slog.String("reason", w.Message))
	}

	report := collections.Compute(coll.Records)
	paths, err := exporter.NewCSVWriter(*outDir, logger).WriteReport(report)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Total collected: %s across %s records (%s conversion)\n",
		exporter.Currency(report.TotalCollected),
		exporter.Count(report.RecordCount),
		exporter.Percent(report.States.Total.ConversionRate))
	for _, p := range paths {
		fmt.Fprintln(stdout, p)
	}
	return nil
}
