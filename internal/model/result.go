package model

import (
	"slices"
	"time"
)

// SubstantiveFinding is one matched offense within a single analysis
type SubstantiveFinding struct {
	Entry           SubstantiveEntry `json:"entry"`
	RelevanceScore  int              `json:"relevance_score"`     // Matched keyword count, or 3/2/1 for high/medium/low
	Relevance       Relevance        `json:"relevance,omitempty"` // Only set by the delegated strategy
	MatchedKeywords []string         `json:"matched_keywords"`    // Discovery order, may be empty
}

// Clone returns a copy that shares no slices with f
func (f SubstantiveFinding) Clone() SubstantiveFinding {
	f.Entry = f.Entry.Clone()
	f.MatchedKeywords = slices.Clone(f.MatchedKeywords)
	return f
}

// Relevance is the categorical relevance reported by the delegated strategy
type Relevance string

const (
	RelevanceHigh   Relevance = "high"
	RelevanceMedium Relevance = "medium"
	RelevanceLow    Relevance = "low"
)

// Score converts a categorical relevance into a sortable score.
// Unknown values rank as low.
func (r Relevance) Score() int {
	switch r {
	case RelevanceHigh:
		return 3
	case RelevanceMedium:
		return 2
	default:
		return 1
	}
}

// ProceduralFinding is a triggered procedural topic with the case-specific reason
type ProceduralFinding struct {
	Entry  ProceduralEntry `json:"entry"`
	Reason string          `json:"reason"`
}

// Clone returns a copy that shares no slices with f
func (f ProceduralFinding) Clone() ProceduralFinding {
	f.Entry = f.Entry.Clone()
	return f
}

// KeywordHit records a keyword found in the narrative and the offense it matched under
type KeywordHit struct {
	Keyword string `json:"keyword"`
	Offense string `json:"offense"`
}

// Strategy selects how substantive findings are produced
type Strategy string

const (
	StrategyKeyword   Strategy = "keyword"
	StrategyDelegated Strategy = "delegated"
	StrategyAuto      Strategy = "auto" // delegated when a provider is configured, keyword otherwise
)

// ResultStatus tells the caller whether the result came from the cache
type ResultStatus string

const (
	StatusFresh  ResultStatus = "fresh"
	StatusCached ResultStatus = "cached"
)

// Degraded flags the stages that substituted their fallback fixture
type Degraded struct {
	Substantive bool `json:"substantive"`
	Procedural  bool `json:"procedural"`
}

// Any reports whether any stage fell back
func (d Degraded) Any() bool {
	return d.Substantive || d.Procedural
}

// AnalysisResult is the wire contract handed to presentation layers.
// It is never modified after the analyzer returns it.
type AnalysisResult struct {
	Fingerprint string               `json:"fingerprint"`
	Strategy    Strategy             `json:"strategy"`
	Summary     string               `json:"summary,omitempty"` // Empty for the keyword strategy
	Substantive []SubstantiveFinding `json:"substantive"`
	Procedural  []ProceduralFinding  `json:"procedural"`
	Keywords    []KeywordHit         `json:"keywords,omitempty"`
	Signature   []string             `json:"signature"` // Sorted for stable output
	Cognizable  bool                 `json:"cognizable"`
	Status      ResultStatus         `json:"status"`
	Degraded    Degraded             `json:"degraded"`
	Provider    string               `json:"provider,omitempty"`
	Model       string               `json:"model,omitempty"`
	AnalyzedAt  time.Time            `json:"analyzed_at"`
}

// Clone returns a deep copy of the result. The cache stores and hands out
// clones so no caller can reach another caller's findings.
func (r *AnalysisResult) Clone() *AnalysisResult {
	if r == nil {
		return nil
	}
	out := *r
	if r.Substantive != nil {
		out.Substantive = make([]SubstantiveFinding, len(r.Substantive))
		for i, f := range r.Substantive {
			out.Substantive[i] = f.Clone()
		}
	}
	if r.Procedural != nil {
		out.Procedural = make([]ProceduralFinding, len(r.Procedural))
		for i, f := range r.Procedural {
			out.Procedural[i] = f.Clone()
		}
	}
	out.Keywords = slices.Clone(r.Keywords)
	out.Signature = slices.Clone(r.Signature)
	return &out
}
