package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Upsolver/iceberg-diag/internal/catalog"
	"github.com/Upsolver/iceberg-diag/internal/config"
	"github.com/Upsolver/iceberg-diag/internal/diag"
	"github.com/Upsolver/iceberg-diag/internal/logger"
	"github.com/Upsolver/iceberg-diag/internal/render"
	"github.com/Upsolver/iceberg-diag/internal/submit"
)

var (
	// Config flags
	configFile string

	// Catalog flags
	catalogType      string
	catalogURI       string
	catalogToken     string
	catalogWarehouse string
	awsRegion        string
	awsProfile       string

	// Selection flags
	database  string
	tableName string

	// Analysis flags
	targetFileSize   string
	tableConcurrency int

	// Submission flags
	remote         bool
	remoteEndpoint string
	remoteToken    string

	verbosityName string
	verbose       bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "iceberg-diag",
		Short: "Diagnose storage inefficiencies in Apache Iceberg tables",
		Long: `Iceberg Table Diagnostics

This tool scans the metadata of Apache Iceberg tables (manifest lists and
manifest files, never the data itself), aggregates file statistics per table
and per partition, and projects how much a compaction to the target file size
would improve scan cost.

Examples:
  # List databases in a Glue catalog
  iceberg-diag --catalog-type=glue --region=us-east-1

  # List tables in a database
  iceberg-diag --catalog-type=glue --region=us-east-1 --database=analytics

  # Diagnose tables matching a pattern
  iceberg-diag --catalog-type=glue --region=us-east-1 \
    --database=analytics --table-name='events*'

  # Diagnose against a REST catalog with a config file
  iceberg-diag --config=iceberg-diag.yaml --database=analytics --table-name='*'

  # Diagnose and submit the reports for remote analysis
  iceberg-diag --catalog-type=glue --region=us-east-1 \
    --database=analytics --table-name='*' --remote`,
		RunE:          runDiag,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.Flags().StringVar(&configFile, "config", "", "Path to a YAML config file")

	// Catalog flags
	rootCmd.Flags().StringVar(&catalogType, "catalog-type", "", "Catalog type: rest, glue")
	rootCmd.Flags().StringVar(&catalogURI, "catalog-uri", "", "REST catalog URI")
	rootCmd.Flags().StringVar(&catalogToken, "catalog-token", "", "Catalog bearer token")
	rootCmd.Flags().StringVar(&catalogWarehouse, "catalog-warehouse", "", "Catalog warehouse location")
	rootCmd.Flags().StringVar(&awsRegion, "region", "", "AWS region")
	rootCmd.Flags().StringVar(&awsProfile, "profile", "", "AWS named profile")

	// Selection flags
	rootCmd.Flags().StringVar(&database, "database", "", "Database to inspect (omit to list databases)")
	rootCmd.Flags().StringVar(&tableName, "table-name", "", "Table name glob pattern (omit to list tables)")

	// Analysis flags
	rootCmd.Flags().StringVar(&targetFileSize, "target-file-size", "", "Compaction target file size (e.g. 512MiB)")
	rootCmd.Flags().IntVar(&tableConcurrency, "table-concurrency", 0, "Max tables analyzed in parallel")

	// Submission flags
	rootCmd.Flags().BoolVar(&remote, "remote", false, "Submit the reports for remote analysis")
	rootCmd.Flags().StringVar(&remoteEndpoint, "remote-endpoint", "", "Report collection endpoint")
	rootCmd.Flags().StringVar(&remoteToken, "remote-token", "", "Report collection bearer token")

	rootCmd.Flags().StringVar(&verbosityName, "verbosity", "normal", "Log verbosity: basic, normal, detailed")
	rootCmd.Flags().BoolVar(&verbose, "verbose", false, "Shorthand for --verbosity=detailed")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runDiag(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, canceling...")
		cancel()
	}()

	vlogger, sync, err := buildLogger()
	if err != nil {
		return err
	}
	defer sync()

	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	cat, err := catalog.New(ctx, cfg.Catalog, vlogger)
	if err != nil {
		return err
	}

	out := render.New(os.Stdout)
	resolver := catalog.NewResolver(cat, "", vlogger)

	if database == "" {
		databases, err := resolver.ListDatabases(ctx)
		if err != nil {
			return err
		}
		out.Databases(databases)
		return nil
	}

	ids, err := resolver.ResolveTables(ctx, database, tableName)
	if err != nil {
		return err
	}

	if tableName == "" {
		out.Tables(ids)
		return nil
	}
	if len(ids) == 0 {
		return fmt.Errorf("no tables in %s match %q", database, tableName)
	}

	loader := diag.NewLoader(cat, cfg.Analysis.LoaderConfig(), vlogger)
	runner, err := diag.NewRunner(loader, cfg.Analysis.PipelineConfig(), vlogger)
	if err != nil {
		return err
	}

	reports, failures := runner.Run(ctx, ids)

	out.Reports(reports)
	out.Failures(failures)

	if remote && len(reports) > 0 {
		submitter := submit.New(cfg.Submit, vlogger)
		runID, err := submitter.Submit(ctx, reports)
		if err != nil {
			return fmt.Errorf("submitting reports: %w", err)
		}
		fmt.Printf("Reports submitted (run %s)\n", runID)
	}

	if len(reports) == 0 && len(failures) > 0 {
		return fmt.Errorf("all %d tables failed", len(failures))
	}
	return nil
}

func buildLogger() (*logger.VerboseLogger, func(), error) {
	verbosity := selectVerbosity()
	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(zapLevelFor(verbosity))
	zapConfig.Encoding = "console"
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapLogger, err := zapConfig.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return logger.New(zapLogger, verbosity), func() { _ = zapLogger.Sync() }, nil
}

// selectVerbosity resolves the logging flags; --verbose wins over
// --verbosity.
func selectVerbosity() logger.Verbosity {
	if verbose {
		return logger.LevelDetailed
	}
	return logger.ParseVerbosity(verbosityName)
}

func zapLevelFor(v logger.Verbosity) zapcore.Level {
	switch v {
	case logger.LevelDetailed:
		return zapcore.DebugLevel
	case logger.LevelBasic:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}

// buildConfig layers CLI flags over the config file (or the defaults when no
// file is given).
func buildConfig() (config.Config, error) {
	cfg := config.Default()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	if catalogType != "" {
		cfg.Catalog.Type = catalogType
	}
	if catalogURI != "" {
		cfg.Catalog.REST.URI = catalogURI
	}
	if catalogToken != "" {
		cfg.Catalog.REST.Token = catalogToken
	}
	if catalogWarehouse != "" {
		cfg.Catalog.REST.Warehouse = catalogWarehouse
	}
	if awsRegion != "" {
		cfg.Catalog.AWS.Region = awsRegion
	}
	if awsProfile != "" {
		cfg.Catalog.AWS.Profile = awsProfile
	}

	if targetFileSize != "" {
		parsed, err := humanize.ParseBytes(targetFileSize)
		if err != nil {
			return config.Config{}, fmt.Errorf("invalid --target-file-size %q: %w", targetFileSize, err)
		}
		cfg.Analysis.TargetFileSize = config.ByteSize(parsed)
	}
	if tableConcurrency > 0 {
		cfg.Analysis.TableConcurrency = tableConcurrency
	}

	if remoteEndpoint != "" {
		cfg.Submit.Endpoint = remoteEndpoint
	}
	if remoteToken != "" {
		cfg.Submit.Token = remoteToken
	}

	return cfg, nil
}
