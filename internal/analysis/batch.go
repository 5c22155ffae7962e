package analysis

import (
	"context"

	"github.com/ppiankov/sanhita/internal/model"
	"github.com/ppiankov/sanhita/internal/narrative"
	"github.com/ppiankov/sanhita/internal/worker"
	"go.uber.org/zap"
)

// AnalyzeBatch analyzes narratives on a bounded worker pool
// (concurrency.workers). Results are in input order; one narrative's failure
// does not affect the others.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, narratives []narrative.Narrative, opts Options) []*worker.AnalysisResult {
	processor := worker.NewBatchProcessor(worker.AnalyzerFunc(func(ctx context.Context, text string) (*model.AnalysisResult, error) {
		return a.Analyze(ctx, text, opts)
	}), a.config.Concurrency.Workers)

	results := processor.Process(ctx, narratives)

	failed := 0
	for _, r := range results {
		if r.Error != nil {
			failed++
		}
	}
	a.logger.Info("batch complete",
		zap.Int("narratives", len(narratives)),
		zap.Int("failed", failed),
		zap.Int("workers", a.config.Concurrency.Workers))

	return results
}
