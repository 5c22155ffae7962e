package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/sanhita/internal/analysis"
	"github.com/ppiankov/sanhita/internal/narrative"
	"github.com/ppiankov/sanhita/internal/worker"
	"github.com/spf13/cobra"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <dir|file|@list>...",
	Short: "Analyze many narratives in parallel",
	Long: `Batch analyzes many incident narratives concurrently:
- Directories contribute their .txt, .md, .html and .htm files
- "@list.txt" names a file with one narrative path per line
- Narratives run on a bounded worker pool; one failure does not stop the rest
- With --output-dir, one JSON result is written per narrative

Example:
  sanhita batch ./complaints
  sanhita batch ./complaints --concurrency 8 --output-dir ./results
  sanhita batch @pending.txt --strategy auto --timeout 30m`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default from config)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "", "write one JSON result per narrative to this directory")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")
	addAnalysisFlags(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("concurrency") {
		config.Concurrency.Workers = concurrency
	}
	if err := applyAnalysisFlags(cmd, config); err != nil {
		return err
	}

	narratives, err := narrative.Collect(args)
	if err != nil {
		return err
	}
	if len(narratives) == 0 {
		return fmt.Errorf("no narratives found in %s", strings.Join(args, ", "))
	}

	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	a, err := newAnalyzer(config, nil)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "Analyzing %d narratives with %d workers (strategy: %s)\n\n",
		len(narratives), config.Concurrency.Workers, config.Analysis.Strategy)

	results := a.AnalyzeBatch(ctx, narratives, analysis.Options{})

	out := cmd.OutOrStdout()
	failures := 0
	for _, r := range results {
		if r.Error != nil {
			failures++
			fmt.Fprintf(out, "FAIL  %s: %v\n", r.Source, describeError(r.Error))
			continue
		}

		line := batchLine(r)
		if outputDir != "" {
			path := filepath.Join(outputDir, resultFilename(r.Index, r.Source))
			if err := analysis.WriteJSON(r.Result, path); err != nil {
				failures++
				fmt.Fprintf(out, "FAIL  %s: %v\n", r.Source, err)
				continue
			}
			line += " -> " + path
		}
		fmt.Fprintln(out, line)
	}

	fmt.Fprintf(os.Stderr, "\nTotal: %d  Success: %d  Failures: %d\n",
		len(results), len(results)-failures, failures)

	if failures > 0 {
		return fmt.Errorf("%d of %d narratives failed", failures, len(results))
	}
	return nil
}

func batchLine(r *worker.AnalysisResult) string {
	offenses := make([]string, 0, len(r.Result.Substantive))
	for _, f := range r.Result.Substantive {
		offenses = append(offenses, fmt.Sprintf("%s (s. %s)", f.Entry.Offense, f.Entry.Section))
	}
	summary := "no offenses identified"
	if len(offenses) > 0 {
		summary = strings.Join(offenses, ", ")
	}
	return fmt.Sprintf("OK    %s [%s]: %s", r.Source, r.Result.Status, summary)
}

// resultFilename names the JSON file for the i-th narrative. The index
// keeps names unique when two sources share a base name.
func resultFilename(index int, source string) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	base = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		case ' ':
			return '-'
		}
		return r
	}, base)
	if len(base) > 100 {
		base = base[:100]
	}
	return fmt.Sprintf("%03d-%s.json", index+1, base)
}
