// Package analysis composes fingerprinting, the result cache, the two
// strategies and the procedural deriver into a single analysis operation.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/sanhita/internal/cache"
	"github.com/ppiankov/sanhita/internal/fingerprint"
	"github.com/ppiankov/sanhita/internal/kb"
	"github.com/ppiankov/sanhita/internal/llm"
	"github.com/ppiankov/sanhita/internal/mapper"
	"github.com/ppiankov/sanhita/internal/metrics"
	"github.com/ppiankov/sanhita/internal/model"
	"github.com/ppiankov/sanhita/internal/procedural"
	"github.com/ppiankov/sanhita/internal/reason"
	"go.uber.org/zap"
)

// Options adjust a single analysis. Zero values fall back to configuration.
type Options struct {
	Strategy            model.Strategy
	SimilarityThreshold float64       // 0 uses analysis.similarity_threshold
	Timeout             time.Duration // Per reasoning call; 0 uses analysis.call_timeout
}

// Analyzer orchestrates the analysis of narratives
type Analyzer struct {
	kb       *kb.KnowledgeBase
	mapper   *mapper.Mapper
	deriver  *procedural.Deriver
	reasoner *reason.Reasoner // nil when no provider is configured
	store    cache.Store
	config   *model.Config
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	provider llm.Provider
}

// Option customizes an Analyzer at construction
type Option func(*Analyzer)

// WithKnowledgeBase uses base instead of loading one from configuration
func WithKnowledgeBase(base *kb.KnowledgeBase) Option {
	return func(a *Analyzer) { a.kb = base }
}

// WithProvider uses p for the delegated strategy instead of building one from configuration
func WithProvider(p llm.Provider) Option {
	return func(a *Analyzer) { a.provider = p }
}

// WithStore replaces the result cache
func WithStore(s cache.Store) Option {
	return func(a *Analyzer) { a.store = s }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// WithMetrics sets the metrics sink
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Analyzer) { a.metrics = m }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// NewAnalyzer creates an analyzer with the given configuration
func NewAnalyzer(cfg *model.Config, opts ...Option) (*Analyzer, error) {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}

	a := &Analyzer{config: cfg, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	a.logger = a.logger.Named("analysis")

	if a.kb == nil {
		base, err := loadKnowledgeBase(cfg.KB.Path)
		if err != nil {
			return nil, err
		}
		a.kb = base
	}

	a.mapper = mapper.New(a.kb)

	deriver, err := procedural.NewDeriver(a.kb, cfg.Procedural)
	if err != nil {
		return nil, fmt.Errorf("procedural rules: %w", err)
	}
	a.deriver = deriver

	if a.store == nil {
		a.store = cache.NopStore{}
		if cfg.Cache.Enabled {
			a.store = cache.NewMemoryStore(cfg.Cache.WritePolicy)
		}
	}

	if a.provider == nil && cfg.LLM.Provider != "" {
		p, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
		if err != nil {
			return nil, fmt.Errorf("LLM provider: %w", err)
		}
		a.provider = llm.RateLimited(p, llm.NewLimiter(cfg.LLM.RequestsPerSecond, cfg.LLM.Burst))
	}

	if a.provider != nil {
		r, err := reason.New(a.provider, a.kb, reason.Config{
			Timeout:   cfg.Analysis.CallTimeout,
			MaxTokens: cfg.LLM.MaxTokens,
			Model:     cfg.LLM.Model,
		}, a.logger, a.metrics)
		if err != nil {
			return nil, err
		}
		a.reasoner = r
	}

	a.logger.Debug("analyzer ready",
		zap.String("kb_version", a.kb.Version()),
		zap.Bool("delegated_available", a.reasoner != nil),
		zap.Bool("cache_enabled", cfg.Cache.Enabled))

	return a, nil
}

func loadKnowledgeBase(path string) (*kb.KnowledgeBase, error) {
	if path == "" {
		base, err := kb.Default()
		if err != nil {
			return nil, fmt.Errorf("load embedded knowledge base: %w", err)
		}
		return base, nil
	}
	base, err := kb.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load knowledge base %s: %w", path, err)
	}
	return base, nil
}

// KnowledgeBase returns the knowledge base in use
func (a *Analyzer) KnowledgeBase() *kb.KnowledgeBase {
	return a.kb
}

// Store returns the result cache
func (a *Analyzer) Store() cache.Store {
	return a.store
}

// DelegatedAvailable reports whether a completion provider is configured
func (a *Analyzer) DelegatedAvailable() bool {
	return a.reasoner != nil
}

// ResolveStrategy maps a requested strategy (possibly empty or auto) to the
// strategy that will run
func (a *Analyzer) ResolveStrategy(s model.Strategy) (model.Strategy, error) {
	if s == "" {
		s = model.Strategy(a.config.Analysis.Strategy)
	}
	switch model.Strategy(strings.ToLower(string(s))) {
	case "", model.StrategyKeyword:
		return model.StrategyKeyword, nil
	case model.StrategyDelegated:
		if a.reasoner == nil {
			return "", ErrNoProvider
		}
		return model.StrategyDelegated, nil
	case model.StrategyAuto:
		if a.reasoner != nil {
			return model.StrategyDelegated, nil
		}
		return model.StrategyKeyword, nil
	default:
		return "", &InputError{Reason: fmt.Sprintf("unknown strategy %q (supported: keyword, delegated, auto)", s)}
	}
}

// Analyze maps a narrative to substantive and procedural sections. A result
// already cached for the same or a near-duplicate narrative is returned with
// Status cached; otherwise the selected strategy runs and the fresh result is
// stored. A cancelled analysis writes nothing to the cache.
func (a *Analyzer) Analyze(ctx context.Context, text string, opts Options) (*model.AnalysisResult, error) {
	start := a.now()
	r := newRun(a.logger)

	if strings.TrimSpace(text) == "" {
		return nil, a.fail(r, &InputError{Reason: "narrative text is empty"})
	}

	strategy, err := a.ResolveStrategy(opts.Strategy)
	if err != nil {
		return nil, a.fail(r, err)
	}

	threshold := opts.SimilarityThreshold
	if threshold <= 0 {
		threshold = a.config.Analysis.SimilarityThreshold
	}

	if err := checkpoint(ctx, r); err != nil {
		return nil, a.fail(r, err)
	}
	r.enter(StateFingerprinting)
	id := fingerprint.Fingerprint(text)
	sig := fingerprint.Signature(text)
	key := cache.CacheKey(id)
	r.logger = r.logger.With(zap.String("fingerprint", string(id)))

	if err := checkpoint(ctx, r); err != nil {
		return nil, a.fail(r, err)
	}
	r.enter(StateCacheLookup)
	if entry, ok := a.lookup(key, sig, threshold, r); ok {
		r.enter(StateCacheHit)
		result := entry.Result.Clone()
		result.Status = model.StatusCached
		r.enter(StateDone)
		a.metrics.RecordAnalysis(string(result.Strategy), string(result.Status), a.now().Sub(start))
		return result, nil
	}

	result := model.AnalysisResult{
		Fingerprint: string(id),
		Strategy:    strategy,
		Signature:   sig.Sorted(),
		Keywords:    []model.KeywordHit{},
	}

	switch strategy {
	case model.StrategyDelegated:
		err = a.runDelegated(ctx, r, text, opts.Timeout, &result)
	default:
		err = a.runKeyword(ctx, r, text, &result)
	}
	if err != nil {
		return nil, a.fail(r, err)
	}

	if err := checkpoint(ctx, r); err != nil {
		return nil, a.fail(r, err)
	}
	r.enter(StateCaching)
	result.Status = model.StatusFresh
	result.AnalyzedAt = a.now().UTC()
	a.writeCache(key, sig, result, r)

	r.enter(StateDone)
	a.metrics.RecordAnalysis(string(result.Strategy), string(result.Status), a.now().Sub(start))
	return &result, nil
}

func (a *Analyzer) runKeyword(ctx context.Context, r *run, text string, result *model.AnalysisResult) error {
	r.enter(StateMapping)
	mapped := a.mapper.Map(text)

	if err := checkpoint(ctx, r); err != nil {
		return err
	}
	r.enter(StateDeriving)
	derived := a.deriver.Derive(mapped.Findings, text)

	result.Substantive = mapped.Findings
	result.Keywords = mapped.Keywords
	result.Procedural = derived.Findings
	result.Cognizable = derived.Cognizable
	return nil
}

// runDelegated asks the reasoning service for the summary and both finding
// sets. Procedural findings come from FindProcedural alone; the rule table
// runs only to decide Cognizable.
func (a *Analyzer) runDelegated(ctx context.Context, r *run, text string, timeout time.Duration, result *model.AnalysisResult) error {
	reasoner := a.reasoner
	if timeout > 0 {
		reasoner = reasoner.WithTimeout(timeout)
	}

	r.enter(StateReasoning)
	summary, err := reasoner.Summarize(ctx, text)
	if err != nil {
		return a.reasonError(ctx, err)
	}

	if err := checkpoint(ctx, r); err != nil {
		return err
	}
	substantive, degradedSubstantive, err := reasoner.FindSubstantive(ctx, text, summary)
	if err != nil {
		return a.reasonError(ctx, err)
	}

	if err := checkpoint(ctx, r); err != nil {
		return err
	}
	r.enter(StateDeriving)
	proceduralFindings, degradedProcedural, err := reasoner.FindProcedural(ctx, text, summary, substantive)
	if err != nil {
		return a.reasonError(ctx, err)
	}

	derived := a.deriver.Derive(substantive, text)

	result.Summary = summary
	result.Substantive = substantive
	result.Procedural = proceduralFindings
	result.Cognizable = derived.Cognizable
	result.Degraded = model.Degraded{Substantive: degradedSubstantive, Procedural: degradedProcedural}
	result.Provider = reasoner.Provider()
	result.Model = reasoner.Model()
	return nil
}

// reasonError separates caller cancellation from service failure
func (a *Analyzer) reasonError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("analysis cancelled: %w", ctxErr)
	}
	var callErr *reason.CallError
	if errors.As(err, &callErr) {
		return &ServiceError{Stage: callErr.Stage, Err: callErr.Err}
	}
	return &ServiceError{Stage: "unknown", Err: err}
}

// checkpoint aborts the run when ctx is done
func checkpoint(ctx context.Context, r *run) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("analysis cancelled during %s: %w", r.state, err)
	}
	return nil
}

func (a *Analyzer) lookup(key string, sig fingerprint.Set, threshold float64, r *run) (cache.Entry, bool) {
	if entry, ok := a.store.Get(key); ok {
		a.metrics.RecordCacheLookup(metrics.CacheExact)
		r.logger.Debug("cache hit", zap.String("match", "exact"))
		return entry, true
	}

	if entry, score, ok := a.store.Scan(sig, threshold); ok {
		a.metrics.RecordCacheLookup(metrics.CacheNear)
		r.logger.Debug("cache hit",
			zap.String("match", "near"),
			zap.String("cached_fingerprint", entry.Result.Fingerprint),
			zap.Float64("similarity", score))
		return entry, true
	}

	a.metrics.RecordCacheLookup(metrics.CacheMiss)
	return cache.Entry{}, false
}

// writeCache stores the fresh result. Cache failures are logged, never returned.
func (a *Analyzer) writeCache(key string, sig fingerprint.Set, result model.AnalysisResult, r *run) {
	stored, err := a.store.Put(key, cache.Entry{
		Result:    *result.Clone(),
		Signature: sig,
		StoredAt:  result.AnalyzedAt,
	})
	switch {
	case err != nil:
		r.logger.Warn("cache write failed", zap.Error(err))
		a.metrics.RecordCacheWrite("error", a.store.Len())
	case stored:
		a.metrics.RecordCacheWrite("stored", a.store.Len())
	default:
		r.logger.Debug("cache key already present, keeping first result")
		a.metrics.RecordCacheWrite("kept", a.store.Len())
	}
}

// fail records the error kind and moves the run to the error state
func (a *Analyzer) fail(r *run, err error) error {
	a.recordError(err)
	return r.fail(err)
}

func (a *Analyzer) recordError(err error) {
	var inputErr *InputError
	var serviceErr *ServiceError
	switch {
	case errors.As(err, &inputErr):
		a.metrics.RecordError("input")
	case errors.As(err, &serviceErr):
		a.metrics.RecordError("service")
	case errors.Is(err, ErrNoProvider):
		a.metrics.RecordError("no_provider")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		a.metrics.RecordError("cancelled")
	default:
		a.metrics.RecordError("other")
	}
}
