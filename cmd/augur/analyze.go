package main

import (
	"fmt"
	"os/signal"
	"sync"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/augurhq/augur/internal/orchestrator"
	"github.com/augurhq/augur/internal/output"
	"github.com/augurhq/augur/internal/progress"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [path]",
	Short: "Analyze a directory or file and report quality issues",
	Long: `Runs every enabled analyzer over the discovered source files and
prints the aggregated issue report.

Examples:
  augur analyze                          # Analyze the current directory
  augur analyze ./src --format json      # Machine-readable output
  augur analyze --categories security    # Security findings only
  augur analyze --fail-under 70          # Gate CI on the quality score`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringP("format", "f", "", "Output format: text, json, markdown")
	analyzeCmd.Flags().StringP("output", "o", "", "Write output to file")
	analyzeCmd.Flags().Bool("no-cache", false, "Ignore cached results (fresh results are still saved)")
	analyzeCmd.Flags().StringSlice("categories", nil, "Categories to run (default: all enabled in config)")
	analyzeCmd.Flags().String("min-severity", "", "Drop issues below this severity")
	analyzeCmd.Flags().Int("workers", 0, "Number of parallel workers (default: CPU count)")
	analyzeCmd.Flags().Float64("fail-under", 0, "Exit with an error if the quality score is below this value")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cats, _ := cmd.Flags().GetStringSlice("categories"); len(cats) > 0 {
		cfg.Analysis.Categories = cats
	}
	if sev, _ := cmd.Flags().GetString("min-severity"); sev != "" {
		cfg.Analysis.MinSeverity = sev
	}
	if workers, _ := cmd.Flags().GetInt("workers"); workers > 0 {
		cfg.Analysis.MaxWorkers = workers
	}
	if format, _ := cmd.Flags().GetString("format"); format != "" {
		cfg.Output.Format = format
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The spinner covers discovery and fingerprinting; the counting bar
	// takes over once the work unit total is known.
	spin := progress.NewSpinner("Scanning files...")
	spin.Tick()
	var scanned sync.Once
	endScan := func() { scanned.Do(spin.FinishSuccess) }

	opts := []orchestrator.Option{orchestrator.WithProgress(analysisTracker(endScan))}
	if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
		opts = append(opts, orchestrator.WithCacheBypass())
	}

	result, err := orchestrator.New(cfg, opts...).Run(ctx, getPath(args))
	if err != nil {
		scanned.Do(func() { spin.FinishError(err) })
		return err
	}
	endScan()
	if result.Incomplete {
		color.Yellow("Analysis interrupted; showing partial results")
	}

	outputFile, _ := cmd.Flags().GetString("output")
	format := output.ParseFormat(cfg.Output.Format)
	formatter, err := output.NewFormatter(format, outputFile, cfg.Output.Color)
	if err != nil {
		return err
	}
	defer formatter.Close()

	colored := formatter.Colored() && format == output.FormatText
	report := output.BuildReport(result, colored, verbose || cfg.Output.Verbose)
	if err := formatter.Output(report); err != nil {
		return err
	}

	if floor, _ := cmd.Flags().GetFloat64("fail-under"); floor > 0 && result.Summary.QualityScore < floor {
		return fmt.Errorf("quality score %.1f is below the required %.1f", result.Summary.QualityScore, floor)
	}
	return nil
}

// analysisTracker lazily creates the progress bar once the unit count is
// known, then follows completion counts from worker goroutines. onStart
// runs before the bar first renders.
func analysisTracker(onStart func()) func(done, total int) {
	var once sync.Once
	var tracker *progress.Tracker
	return func(done, total int) {
		once.Do(func() {
			onStart()
			tracker = progress.NewTracker("Analyzing...", total)
		})
		tracker.Set(done)
		if done == total {
			tracker.FinishSuccess()
		}
	}
}
