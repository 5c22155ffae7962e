package worker

import (
	"context"

	"github.com/ppiankov/sanhita/internal/model"
	"github.com/ppiankov/sanhita/internal/narrative"
)

// Analyzer analyzes one narrative
type Analyzer interface {
	Analyze(ctx context.Context, text string) (*model.AnalysisResult, error)
}

// AnalyzerFunc adapts a function to the Analyzer interface
type AnalyzerFunc func(ctx context.Context, text string) (*model.AnalysisResult, error)

// Analyze calls f
func (f AnalyzerFunc) Analyze(ctx context.Context, text string) (*model.AnalysisResult, error) {
	return f(ctx, text)
}

// AnalysisJob represents one narrative to analyze
type AnalysisJob struct {
	Index     int
	Narrative narrative.Narrative
	Analyzer  Analyzer
}

// Execute executes the analysis job
func (j *AnalysisJob) Execute(ctx context.Context) Result {
	result, err := j.Analyzer.Analyze(ctx, j.Narrative.Text)
	return &AnalysisResult{
		Index:  j.Index,
		Source: j.Narrative.Source,
		Result: result,
		Error:  err,
	}
}

// AnalysisResult is the outcome for one narrative of a batch
type AnalysisResult struct {
	Index  int
	Source string
	Result *model.AnalysisResult
	Error  error
}

// GetError returns the error from the analysis
func (r *AnalysisResult) GetError() error {
	return r.Error
}

// BatchProcessor analyzes many narratives concurrently
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(analyzer Analyzer, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
	}
}

// Process analyzes the narratives and returns one result per input, in input
// order. Narratives not started before ctx is done report ctx's error.
func (b *BatchProcessor) Process(ctx context.Context, narratives []narrative.Narrative) []*AnalysisResult {
	if len(narratives) == 0 {
		return []*AnalysisResult{}
	}

	pool := NewPoolWithContext(ctx, b.concurrency)
	pool.Start()

	for i, n := range narratives {
		if !pool.Submit(&AnalysisJob{Index: i, Narrative: n, Analyzer: b.analyzer}) {
			break
		}
	}

	results := make([]*AnalysisResult, len(narratives))
	for _, r := range pool.Wait() {
		ar := r.(*AnalysisResult)
		results[ar.Index] = ar
	}

	for i, r := range results {
		if r == nil {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			results[i] = &AnalysisResult{Index: i, Source: narratives[i].Source, Error: err}
		}
	}

	return results
}
