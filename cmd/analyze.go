package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-moments/internal/curator"
	"github.com/kozaktomas/photo-moments/internal/progress"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a photo library and pick the best photo of every moment",
	Long: `Discovers the photos of a PhotoPrism album or a local directory, scores them
with the configured vision backend, groups them into moments and selects a
representative for each moment. Results are stored and reused by the other
commands.

Stored results are reused when the library has not changed and they are
younger than the staleness window; use --force to analyze anyway.

Examples:
  photo-moments analyze --album aq8i4k2l3m1n0o9p
  photo-moments analyze --dir ~/Pictures/2024-06-trip --recursive --provider sidecar`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	addLibraryFlags(analyzeCmd)
	analyzeCmd.Flags().Bool("force", false, "Analyze even when stored results are still fresh")
	analyzeCmd.Flags().Bool("quiet", false, "Do not render the progress bar")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireLibrary(); err != nil {
		return err
	}

	var report progress.Func
	var bar *progress.BarSink
	if !mustGetBool(cmd, "quiet") {
		bar = progress.NewBarSink(os.Stderr)
		report = bar.Report
	}

	start := time.Now()
	var (
		result *curator.Result
		ran    = true
	)
	if mustGetBool(cmd, "force") {
		result, err = a.service.Run(ctx, a.source, report)
	} else {
		result, ran, err = a.service.LoadOrRecluster(ctx, a.source, report)
	}
	if bar != nil {
		bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("analysis cancelled: %w", ctx.Err())
		}
		return fmt.Errorf("analysis failed: %w", err)
	}

	if !ran {
		fmt.Printf("Library unchanged since %s, reusing stored results (use --force to analyze again)\n\n",
			a.service.AnalyzedAt().Local().Format("2006-01-02 15:04"))
	}
	printAnalysisSummary(a, result, ran, time.Since(start))
	printClusterTable(a, result.Clusters, result.Representatives)
	return nil
}

func printAnalysisSummary(a *app, result *curator.Result, ran bool, elapsed time.Duration) {
	photos := 0
	for _, c := range result.Clusters {
		photos += c.Size()
	}
	important := 0
	for _, r := range result.Representatives {
		if r.IsImportantMoment {
			important++
		}
	}

	fmt.Printf("Photos:            %d\n", photos)
	if ran {
		fmt.Printf("Screenshots:       %d (skipped)\n", result.Screenshots)
		fmt.Printf("Unscored:          %d\n", result.Unscored)
	}
	fmt.Printf("Moments:           %d\n", len(result.Clusters))
	fmt.Printf("Important moments: %d\n", important)
	fmt.Printf("Time:              %s\n", elapsed.Round(time.Millisecond))

	if report := a.source.LastReport(); report != nil && len(report.Failures) > 0 {
		fmt.Printf("\nAnalysis failed for %d photos (scored as neutral):\n", len(report.Failures))
		for _, f := range report.Failures {
			fmt.Printf("  %s: %s\n", f.PhotoID, f.Error)
		}
	}
	if result.PersistError != nil {
		fmt.Printf("\nWarning: results could not be saved: %v\n", result.PersistError)
	}
	a.printUsage()
	fmt.Println()
}
