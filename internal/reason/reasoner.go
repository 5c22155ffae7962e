// Package reason implements the delegated strategy: it asks an external
// completion service to summarize a narrative and name the applicable
// substantive and procedural sections, parsing the structured replies.
package reason

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ppiankov/sanhita/internal/kb"
	"github.com/ppiankov/sanhita/internal/llm"
	"github.com/ppiankov/sanhita/internal/metrics"
	"github.com/ppiankov/sanhita/internal/model"
	"go.uber.org/zap"
)

// Stage names used in errors, logs and metrics
const (
	StageSummary     = "summary"
	StageSubstantive = "substantive"
	StageProcedural  = "procedural"
)

// ErrNoProvider is returned when no completion provider is configured
var ErrNoProvider = llm.ErrNoProvider

// CallError reports a failed reasoning-service call. It is never used for
// replies that arrived but could not be parsed.
type CallError struct {
	Stage string
	Err   error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s call failed: %v", e.Stage, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// Config tunes the reasoner
type Config struct {
	Timeout   time.Duration // Per call; zero means no extra bound
	MaxTokens int
	Model     string
}

// Reasoner runs the three sequential reasoning-service calls
type Reasoner struct {
	provider llm.Provider
	kb       *kb.KnowledgeBase
	config   Config
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// New creates a reasoner. logger and m may be nil.
func New(provider llm.Provider, base *kb.KnowledgeBase, config Config, logger *zap.Logger, m *metrics.Metrics) (*Reasoner, error) {
	if provider == nil {
		return nil, ErrNoProvider
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reasoner{
		provider: provider,
		kb:       base,
		config:   config,
		logger:   logger.Named("reason"),
		metrics:  m,
	}, nil
}

// Provider returns the provider name
func (r *Reasoner) Provider() string {
	return r.provider.Name()
}

// Model returns the configured model, empty for the provider default
func (r *Reasoner) Model() string {
	return r.config.Model
}

// WithTimeout returns a copy bounded by a different per-call timeout
func (r *Reasoner) WithTimeout(timeout time.Duration) *Reasoner {
	clone := *r
	clone.config.Timeout = timeout
	return &clone
}

// Summarize returns a short summary of the criminal acts in the narrative
func (r *Reasoner) Summarize(ctx context.Context, text string) (string, error) {
	return r.call(ctx, StageSummary, buildSummaryPrompt(text))
}

// FindSubstantive returns the substantive findings, highest relevance first.
// degraded is true when the reply was unusable and the fallback fixture was
// substituted.
func (r *Reasoner) FindSubstantive(ctx context.Context, text, summary string) ([]model.SubstantiveFinding, bool, error) {
	reply, err := r.call(ctx, StageSubstantive, buildSubstantivePrompt(r.kb, text, summary))
	if err != nil {
		return nil, false, err
	}

	findings, err := parseSubstantive(r.kb, reply)
	if err != nil {
		r.degrade(StageSubstantive, reply, err)
		return r.kb.SubstantiveFallback(), true, nil
	}

	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].RelevanceScore > findings[j].RelevanceScore
	})
	return findings, false, nil
}

// FindProcedural returns the procedural findings in the order the service
// listed them, or the fallback fixture with degraded set
func (r *Reasoner) FindProcedural(ctx context.Context, text, summary string, findings []model.SubstantiveFinding) ([]model.ProceduralFinding, bool, error) {
	reply, err := r.call(ctx, StageProcedural, buildProceduralPrompt(r.kb, text, summary, findings))
	if err != nil {
		return nil, false, err
	}

	procedural, err := parseProcedural(r.kb, reply)
	if err != nil {
		r.degrade(StageProcedural, reply, err)
		return r.kb.ProceduralFallback(), true, nil
	}
	return procedural, false, nil
}

func (r *Reasoner) call(ctx context.Context, stage, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &CallError{Stage: stage, Err: err}
	}

	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := r.provider.Complete(ctx, llm.CompletionRequest{
		System:    systemPrompt,
		Prompt:    prompt,
		Model:     r.config.Model,
		MaxTokens: r.config.MaxTokens,
	})
	elapsed := time.Since(start)
	r.metrics.RecordReasonerCall(stage, elapsed, err)

	if err != nil {
		r.logger.Warn("reasoning call failed",
			zap.String("stage", stage),
			zap.String("provider", r.provider.Name()),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return "", &CallError{Stage: stage, Err: err}
	}

	r.logger.Debug("reasoning call complete",
		zap.String("stage", stage),
		zap.String("model", resp.Model),
		zap.Int("tokens", resp.TokensUsed),
		zap.Duration("elapsed", elapsed))
	return resp.Text, nil
}

func (r *Reasoner) degrade(stage, reply string, err error) {
	r.metrics.RecordFallback(stage)
	r.logger.Warn("unusable reply, using fallback",
		zap.String("stage", stage),
		zap.String("kb_version", r.kb.Version()),
		zap.Int("reply_bytes", len(reply)),
		zap.Error(err))
}
