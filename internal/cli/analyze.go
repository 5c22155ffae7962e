package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/sanhita/internal/analysis"
	"github.com/ppiankov/sanhita/internal/metrics"
	"github.com/ppiankov/sanhita/internal/model"
	"github.com/ppiankov/sanhita/internal/narrative"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	strategy    string
	threshold   float64
	callTimeout time.Duration
	timeout     time.Duration
	outJSON     string
	format      string
	noCache     bool
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <file|->",
	Short: "Analyze a single incident narrative",
	Long: `Analyze maps one incident narrative to BNS offense sections and BNSS
procedural provisions.

The narrative is read from a text or HTML file, or from stdin when the
argument is "-".

Example:
  sanhita analyze complaint.txt
  sanhita analyze fir.html --json result.json
  cat complaint.txt | sanhita analyze - --format json
  sanhita analyze complaint.txt --strategy delegated --llm-provider openai --llm-model gpt-4o-mini`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&outJSON, "json", "", "also write the JSON result to this path")
	analyzeCmd.Flags().StringVar(&format, "format", "text", "stdout format (text, json)")
	addAnalysisFlags(analyzeCmd)
	analyzeCmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "overall analysis timeout")
}

// addAnalysisFlags registers the flags shared by analyze and batch
func addAnalysisFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&strategy, "strategy", "", "analysis strategy (keyword, delegated, auto; default from config)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "near-duplicate similarity threshold (default from config)")
	cmd.Flags().DurationVar(&callTimeout, "call-timeout", 0, "timeout for each reasoning call (default from config)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the result cache")
}

// applyAnalysisFlags overrides cfg with the analysis flags the user set
func applyAnalysisFlags(cmd *cobra.Command, cfg *model.Config) error {
	flags := cmd.Flags()
	if flags.Changed("strategy") {
		cfg.Analysis.Strategy = model.Strategy(strategy)
	}
	if flags.Changed("threshold") {
		cfg.Analysis.SimilarityThreshold = threshold
	}
	if flags.Changed("call-timeout") {
		cfg.Analysis.CallTimeout = callTimeout
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	return validateConfig(cfg)
}

func newAnalyzer(cfg *model.Config, m *metrics.Metrics) (*analysis.Analyzer, error) {
	a, err := analysis.NewAnalyzer(cfg, analysis.WithLogger(logger), analysis.WithMetrics(m))
	if err != nil {
		return nil, fmt.Errorf("create analyzer: %w", err)
	}
	return a, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if format != "text" && format != "json" {
		return fmt.Errorf("unknown format %q (supported: text, json)", format)
	}
	if err := applyAnalysisFlags(cmd, config); err != nil {
		return err
	}

	n, err := loadNarrative(cmd, args[0])
	if err != nil {
		return err
	}

	a, err := newAnalyzer(config, nil)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	logger.Debug("analyzing narrative",
		zap.String("source", n.Source),
		zap.Int("bytes", len(n.Text)),
		zap.String("strategy", string(config.Analysis.Strategy)))

	result, err := a.Analyze(ctx, n.Text, analysis.Options{})
	if err != nil {
		return describeError(err)
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		if err := analysis.RenderJSON(out, result); err != nil {
			return err
		}
	} else {
		analysis.RenderSummary(out, result)
	}

	if outJSON != "" {
		if err := analysis.WriteJSON(result, outJSON); err != nil {
			return fmt.Errorf("write JSON: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Result written to %s\n", outJSON)
	}
	return nil
}

func loadNarrative(cmd *cobra.Command, path string) (narrative.Narrative, error) {
	if path == "-" {
		return narrative.LoadReader("stdin", cmd.InOrStdin())
	}
	return narrative.Load(path)
}

// describeError turns analysis errors into messages a CLI user can act on
func describeError(err error) error {
	var inputErr *analysis.InputError
	var serviceErr *analysis.ServiceError

	switch {
	case errors.As(err, &inputErr):
		return fmt.Errorf("nothing to analyze: %s", inputErr.Reason)
	case errors.Is(err, analysis.ErrNoProvider):
		return fmt.Errorf("%w: set --llm-provider (and the provider's API key) or use --strategy keyword", err)
	case errors.As(err, &serviceErr):
		return fmt.Errorf("%w (retry, or use --strategy keyword to analyze offline)", err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("analysis did not finish: %w", err)
	default:
		return fmt.Errorf("analysis failed: %w", err)
	}
}
