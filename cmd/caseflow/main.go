// CaseFlow - Event log analytics for process mining.
// Discovers process maps and performance statistics from CSV, XES, and XLSX
// event logs.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/caseflow/caseflow/internal/model"
	"github.com/caseflow/caseflow/pkg/archive"
	"github.com/caseflow/caseflow/pkg/config"
	"github.com/caseflow/caseflow/pkg/inspect"
	"github.com/caseflow/caseflow/pkg/parser"
	"github.com/caseflow/caseflow/pkg/server"
	"github.com/caseflow/caseflow/pkg/telemetry"
	"github.com/caseflow/caseflow/pkg/tui"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// CLI flags
var (
	formatFlag string
	jsonOutput bool
	archiveRun bool
	verbose    bool

	// Column mapping flags
	caseIDColumn    string
	activityColumn  string
	timestampColumn string
	resourceColumn  string
	timestampFormat string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "caseflow",
	Short: "CaseFlow - Event log analytics for process mining",
	Long: `CaseFlow analyzes process event logs (CSV, XES, XLSX): it discovers the
directly-follows process map, computes case duration and variant statistics,
and ranks transition bottlenecks.`,
	Version: fmt.Sprintf("%s (%s)", version, commit),
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [files...]",
	Short: "Analyze event log files",
	Long: `Parse one or more event log files and print the full analysis: process
map size, summary statistics, top variants, and bottlenecks.

Examples:
  caseflow analyze events.csv
  caseflow analyze --json events.csv > report.json
  caseflow analyze --case-id order_id --activity step events.csv
  caseflow analyze --archive events.csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

var infoCmd = &cobra.Command{
	Use:   "info [file]",
	Short: "Display basic information about an event log file",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

var infoQuality bool

var schemaCmd = &cobra.Command{
	Use:   "schema [file]",
	Short: "Infer and display the column schema of a CSV file",
	Long:  `Use DuckDB's schema inference to analyze a CSV file, display column types, and suggest a process-mining column mapping.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSchema,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	analyzeCmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Input format (csv, xes, xlsx) - auto-detected if not specified")
	analyzeCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the report as JSON")
	analyzeCmd.Flags().BoolVar(&archiveRun, "archive", false, "Export the report to the configured archive backend")
	analyzeCmd.Flags().StringVar(&caseIDColumn, "case-id", "", "Case ID column name")
	analyzeCmd.Flags().StringVar(&activityColumn, "activity", "", "Activity column name")
	analyzeCmd.Flags().StringVar(&timestampColumn, "timestamp", "", "Timestamp column name")
	analyzeCmd.Flags().StringVar(&resourceColumn, "resource", "", "Resource column name")
	analyzeCmd.Flags().StringVar(&timestampFormat, "timestamp-format", "", "Timestamp format (Go time layout)")

	infoCmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Input format (csv, xes, xlsx)")
	infoCmd.Flags().BoolVar(&infoQuality, "quality", false, "Include a data quality report")
	schemaCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the schema as JSON")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(schemaCmd)
}

// parserConfig merges the loaded configuration with CLI overrides.
func parserConfig() parser.Config {
	p := config.Global().Get().Parser
	cfg := parser.Config{
		CaseIDColumn:    p.CaseIDColumn,
		ActivityColumn:  p.ActivityColumn,
		TimestampColumn: p.TimestampColumn,
		ResourceColumn:  p.ResourceColumn,
		TimestampFormat: p.TimestampFormat,
	}
	if caseIDColumn != "" {
		cfg.CaseIDColumn = caseIDColumn
	}
	if activityColumn != "" {
		cfg.ActivityColumn = activityColumn
	}
	if timestampColumn != "" {
		cfg.TimestampColumn = timestampColumn
	}
	if resourceColumn != "" {
		cfg.ResourceColumn = resourceColumn
	}
	if timestampFormat != "" {
		cfg.TimestampFormat = timestampFormat
	}
	return cfg
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupted, cleaning up...")
		cancel()
	}()

	return ctx, cancel
}

func parseLogFile(ctx context.Context, path string) (*model.EventLog, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("input file does not exist: %s", path)
	}

	cfg := parserConfig()
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if formatFlag != "" {
		format := parser.ParseFormat(formatFlag)
		p, err := parser.NewParser(format, cfg)
		if err != nil {
			return nil, err
		}
		log, err := p.Parse(ctx, f)
		if err != nil {
			return nil, err
		}
		log.Filename = filepath.Base(path)
		return log, nil
	}

	return parser.ParseFile(ctx, path, f, cfg)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg := config.Global().Get()
	if cfg.Telemetry.Enabled {
		tcfg := telemetry.DefaultConfig(cfg.Telemetry.ServiceName)
		if cfg.Telemetry.Endpoint != "" {
			tcfg.Endpoint = cfg.Telemetry.Endpoint
		}
		if shutdown, err := telemetry.Init(ctx, tcfg); err == nil {
			defer shutdown(context.Background())
		}
	}

	var backend archive.Backend
	if archiveRun {
		var err error
		backend, err = archive.New(ctx, cfg.Archive)
		if err != nil {
			return fmt.Errorf("archive backend: %w", err)
		}
	}

	if !jsonOutput {
		tui.PrintHeader(version)
	}

	var bar interface{ Add(int) error }
	if len(args) > 1 && !jsonOutput {
		bar = tui.ShowProgress(int64(len(args)), "analyzing")
	}

	for _, path := range args {
		ctx, span := telemetry.StartSpan(ctx, "analyze")
		telemetry.SetAttributes(ctx, attribute.String("file", path))

		log, err := parseLogFile(ctx, path)
		if err != nil {
			telemetry.RecordError(ctx, err)
			span.End()
			return fmt.Errorf("analyze %s: %w", path, err)
		}

		report, err := server.BuildReport(path, log)
		if err != nil {
			telemetry.RecordError(ctx, err)
			span.End()
			return err
		}
		span.End()

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
		} else {
			tui.PrintReport(report)
		}

		if backend != nil {
			if err := backend.Save(ctx, report); err != nil {
				return fmt.Errorf("archive %s: %w", path, err)
			}
			if !jsonOutput {
				tui.PrintSuccess("archived to " + backend.Name())
			}
		}

		if bar != nil {
			bar.Add(1)
		}
	}

	return nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	path := args[0]
	log, err := parseLogFile(ctx, path)
	if err != nil {
		return err
	}

	stat, _ := os.Stat(path)

	tui.PrintHeader(version)
	fmt.Printf("  File:       %s\n", path)
	if stat != nil {
		fmt.Printf("  Size:       %s\n", tui.FormatBytes(stat.Size()))
	}
	fmt.Printf("  Format:     %s\n", parser.DetectFormat(path))
	fmt.Printf("  Cases:      %d\n", log.CaseCount())
	fmt.Printf("  Events:     %d\n", log.EventCount())
	fmt.Printf("  Activities: %d\n", len(log.Activities()))
	for _, a := range log.Activities() {
		fmt.Printf("    - %s\n", a)
	}

	if infoQuality {
		fmt.Println()
		fmt.Print(inspect.AnalyzeQuality(log).String())
	}
	return nil
}

func runSchema(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	path := args[0]
	if parser.DetectFormat(path) != parser.FormatCSV {
		return fmt.Errorf("schema inference supports CSV files only")
	}

	inspector, err := inspect.NewInspector()
	if err != nil {
		return err
	}
	defer inspector.Close()

	schema, err := inspector.InferSchema(ctx, path, 1000)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(schema)
	}

	tui.PrintHeader(version)
	fmt.Printf("  Schema for %s\n\n", path)
	for _, col := range schema.Columns {
		nullable := ""
		if col.Nullable {
			nullable = " (nullable)"
		}
		fmt.Printf("    %-24s %s%s\n", col.Name, col.Type, nullable)
	}

	fmt.Println()
	m := schema.Mapping
	fmt.Println("  Detected mapping:")
	fmt.Printf("    case id:   %s\n", orNone(m.CaseIDColumn))
	fmt.Printf("    activity:  %s\n", orNone(m.ActivityColumn))
	fmt.Printf("    timestamp: %s\n", orNone(m.TimestampColumn))
	fmt.Printf("    resource:  %s\n", orNone(m.ResourceColumn))
	if !schema.Complete() {
		tui.PrintInfo("mapping incomplete: pass --case-id/--activity/--timestamp to analyze")
	}
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
