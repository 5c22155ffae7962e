// Package mapper implements the deterministic keyword strategy: it scans a
// narrative for the knowledge base's keyword phrases and scores each offense
// by the number of distinct phrases found.
package mapper

import (
	"sort"
	"strings"
	"sync"

	ahocorasick "github.com/cloudflare/ahocorasick"
	"github.com/ppiankov/sanhita/internal/kb"
	"github.com/ppiankov/sanhita/internal/model"
)

// Result is the output of one keyword scan
type Result struct {
	Findings []model.SubstantiveFinding // Score desc, ties in KB order
	Keywords []model.KeywordHit         // Every matched keyword once, tagged with the first offense it matched
}

// Mapper matches narratives against the substantive entries of a knowledge base.
// A single Aho-Corasick pass finds every keyword contained in the text; the
// entries are then walked in KB order so output is identical to checking each
// keyword with strings.Contains.
type Mapper struct {
	entries    []model.SubstantiveEntry
	dictionary []string

	mu      sync.Mutex // Matcher.Match keeps per-call state in the automaton
	matcher *ahocorasick.Matcher
}

// New builds the automaton for the knowledge base's keywords
func New(base *kb.KnowledgeBase) *Mapper {
	m := &Mapper{entries: base.Substantive()}

	seen := make(map[string]bool)
	for _, entry := range m.entries {
		for _, kw := range entry.Keywords {
			if !seen[kw] {
				seen[kw] = true
				m.dictionary = append(m.dictionary, kw)
			}
		}
	}

	if len(m.dictionary) > 0 {
		m.matcher = ahocorasick.NewStringMatcher(m.dictionary)
	}

	return m
}

// Map scans the narrative. It is a pure function of the text and the knowledge base.
func (m *Mapper) Map(text string) Result {
	found := m.contained(strings.ToLower(text))

	result := Result{
		Findings: []model.SubstantiveFinding{},
		Keywords: []model.KeywordHit{},
	}
	if len(found) == 0 {
		return result
	}

	tagged := make(map[string]bool)
	for _, entry := range m.entries {
		var matched []string
		for _, kw := range entry.Keywords {
			if !found[kw] {
				continue
			}
			matched = append(matched, kw)
			if !tagged[kw] {
				tagged[kw] = true
				result.Keywords = append(result.Keywords, model.KeywordHit{Keyword: kw, Offense: entry.Offense})
			}
		}

		if len(matched) > 0 {
			result.Findings = append(result.Findings, model.SubstantiveFinding{
				Entry:           entry.Clone(),
				RelevanceScore:  len(matched),
				MatchedKeywords: matched,
			})
		}
	}

	sort.SliceStable(result.Findings, func(i, j int) bool {
		return result.Findings[i].RelevanceScore > result.Findings[j].RelevanceScore
	})

	return result
}

// contained returns the dictionary keywords that occur in text
func (m *Mapper) contained(text string) map[string]bool {
	if m.matcher == nil || text == "" {
		return nil
	}

	m.mu.Lock()
	hits := m.matcher.Match([]byte(text))
	m.mu.Unlock()

	found := make(map[string]bool, len(hits))
	for _, idx := range hits {
		if idx >= 0 && idx < len(m.dictionary) {
			found[m.dictionary[idx]] = true
		}
	}
	return found
}
