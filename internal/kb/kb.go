// Package kb loads the reference data for the substantive and procedural codes.
//
// The knowledge base is pure data: the keyword mapper, the procedural rule table
// and the delegated reasoner only read it. The default fixture is embedded in the
// binary and parsed once; an alternative file can be supplied with LoadFile.
package kb

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/ppiankov/sanhita/internal/model"
	"gopkg.in/yaml.v3"
)

//go:embed data/kb.yaml
var embedded []byte

// KnowledgeBase is the immutable, ordered reference data
type KnowledgeBase struct {
	version     string
	substantive []model.SubstantiveEntry // category order, then declaration order
	procedural  []model.ProceduralEntry
	categories  []string

	offenseIndex map[string]int
	topicIndex   map[string]int
	sectionIndex map[string]int // procedural section -> entry

	fallbackSubstantive []substantiveFixture
	fallbackProcedural  []proceduralFixture
}

type document struct {
	Version     string                `yaml:"version"`
	Substantive []substantiveCategory `yaml:"substantive"`
	Procedural  []proceduralCategory  `yaml:"procedural"`
	Fallbacks   fallbacks             `yaml:"fallbacks"`
}

type substantiveCategory struct {
	Category string                   `yaml:"category"`
	Entries  []model.SubstantiveEntry `yaml:"entries"`
}

type proceduralCategory struct {
	Category string                  `yaml:"category"`
	Entries  []model.ProceduralEntry `yaml:"entries"`
}

type fallbacks struct {
	Substantive []substantiveFixture `yaml:"substantive"`
	Procedural  []proceduralFixture  `yaml:"procedural"`
}

type substantiveFixture struct {
	Section     string `yaml:"section"`
	Offense     string `yaml:"offense"`
	Description string `yaml:"description"`
	Punishment  string `yaml:"punishment"`
	Relevance   string `yaml:"relevance"`
}

type proceduralFixture struct {
	Section       string `yaml:"section"`
	Title         string `yaml:"title"`
	Description   string `yaml:"description"`
	ApplicableWhy string `yaml:"applicable_why"`
}

// requiredTopics are the procedural topics the rule table depends on
var requiredTopics = []string{
	model.TopicFIR, model.TopicInvestigation, model.TopicArrest, model.TopicSearch,
	model.TopicCognizable, model.TopicCharge, model.TopicTrial, model.TopicProtection,
	model.TopicCompensation,
}

var (
	defaultOnce sync.Once
	defaultKB   *KnowledgeBase
	defaultErr  error
)

// Default returns the embedded knowledge base, parsed on first use
func Default() (*KnowledgeBase, error) {
	defaultOnce.Do(func() {
		defaultKB, defaultErr = Load(bytes.NewReader(embedded))
	})
	return defaultKB, defaultErr
}

// LoadFile loads a knowledge base from a YAML file
func LoadFile(path string) (*KnowledgeBase, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open knowledge base: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Load(f)
}

// Load parses and validates a knowledge base document
func Load(r io.Reader) (*KnowledgeBase, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode knowledge base: %w", err)
	}

	kb := &KnowledgeBase{
		version:             doc.Version,
		offenseIndex:        make(map[string]int),
		topicIndex:          make(map[string]int),
		sectionIndex:        make(map[string]int),
		fallbackSubstantive: doc.Fallbacks.Substantive,
		fallbackProcedural:  doc.Fallbacks.Procedural,
	}

	for _, cat := range doc.Substantive {
		if cat.Category == "" {
			return nil, fmt.Errorf("substantive category without a name")
		}
		kb.categories = append(kb.categories, cat.Category)

		seen := make(map[string]bool)
		for _, entry := range cat.Entries {
			key := NormalizeName(entry.Offense)
			if key == "" || entry.Section == "" {
				return nil, fmt.Errorf("category %s: offense and section are required", cat.Category)
			}
			if seen[key] {
				return nil, fmt.Errorf("category %s: duplicate offense %q", cat.Category, entry.Offense)
			}
			seen[key] = true

			entry.Category = cat.Category
			entry.Keywords = normalizeKeywords(entry.Keywords)
			if _, exists := kb.offenseIndex[key]; !exists {
				kb.offenseIndex[key] = len(kb.substantive)
			}
			kb.substantive = append(kb.substantive, entry)
		}
	}

	for _, cat := range doc.Procedural {
		for _, entry := range cat.Entries {
			key := NormalizeName(entry.Topic)
			if key == "" || entry.Section == "" {
				return nil, fmt.Errorf("category %s: topic and section are required", cat.Category)
			}
			if _, exists := kb.topicIndex[key]; exists {
				return nil, fmt.Errorf("duplicate procedural topic %q", entry.Topic)
			}

			entry.Category = cat.Category
			entry.Keywords = normalizeKeywords(entry.Keywords)
			kb.topicIndex[key] = len(kb.procedural)
			if _, exists := kb.sectionIndex[entry.Section]; !exists {
				kb.sectionIndex[entry.Section] = len(kb.procedural)
			}
			kb.procedural = append(kb.procedural, entry)
		}
	}

	if err := kb.validate(); err != nil {
		return nil, err
	}

	return kb, nil
}

func (kb *KnowledgeBase) validate() error {
	if len(kb.substantive) == 0 {
		return fmt.Errorf("knowledge base has no substantive entries")
	}
	for _, topic := range requiredTopics {
		if _, ok := kb.topicIndex[NormalizeName(topic)]; !ok {
			return fmt.Errorf("knowledge base is missing procedural topic %q", topic)
		}
	}
	if len(kb.fallbackSubstantive) == 0 || len(kb.fallbackProcedural) == 0 {
		return fmt.Errorf("knowledge base must define both fallback sets")
	}
	return nil
}

// Version returns the fixture version, also stamped on fallback results
func (kb *KnowledgeBase) Version() string {
	return kb.version
}

// Substantive returns copies of all substantive entries in traversal order.
// Entries returned by the knowledge base never share memory with it.
func (kb *KnowledgeBase) Substantive() []model.SubstantiveEntry {
	out := make([]model.SubstantiveEntry, len(kb.substantive))
	for i, e := range kb.substantive {
		out[i] = e.Clone()
	}
	return out
}

// Procedural returns all procedural entries in declaration order
func (kb *KnowledgeBase) Procedural() []model.ProceduralEntry {
	out := make([]model.ProceduralEntry, len(kb.procedural))
	for i, e := range kb.procedural {
		out[i] = e.Clone()
	}
	return out
}

// Categories returns the substantive category names in order
func (kb *KnowledgeBase) Categories() []string {
	return append([]string(nil), kb.categories...)
}

// Offense looks up a substantive entry by offense name
func (kb *KnowledgeBase) Offense(name string) (model.SubstantiveEntry, bool) {
	idx, ok := kb.offenseIndex[NormalizeName(name)]
	if !ok {
		return model.SubstantiveEntry{}, false
	}
	return kb.substantive[idx].Clone(), true
}

// Topic looks up a procedural entry by topic key
func (kb *KnowledgeBase) Topic(name string) (model.ProceduralEntry, bool) {
	idx, ok := kb.topicIndex[NormalizeName(name)]
	if !ok {
		return model.ProceduralEntry{}, false
	}
	return kb.procedural[idx].Clone(), true
}

// ResolveSubstantive builds an entry for an offense reported outside the KB.
// Known offenses keep the KB's keywords and cross references; the reported
// section and texts win when present.
func (kb *KnowledgeBase) ResolveSubstantive(offense, section, description, punishment string) model.SubstantiveEntry {
	entry, ok := kb.Offense(offense)
	if !ok {
		entry = model.SubstantiveEntry{
			Category: model.CategoryDelegated,
			Offense:  strings.ToLower(strings.TrimSpace(offense)),
		}
	}
	if section != "" {
		entry.Section = section
	}
	if description != "" {
		entry.Description = description
	}
	if punishment != "" {
		entry.Punishment = punishment
	}
	return entry
}

// ResolveProcedural builds an entry for a procedural section reported outside the KB
func (kb *KnowledgeBase) ResolveProcedural(section, title, description string) model.ProceduralEntry {
	var entry model.ProceduralEntry
	if idx, ok := kb.sectionIndex[strings.TrimSpace(section)]; ok {
		entry = kb.procedural[idx].Clone()
	} else {
		entry = model.ProceduralEntry{Category: model.CategoryDelegated, Section: strings.TrimSpace(section)}
	}
	if title != "" {
		entry.Title = title
	}
	if description != "" {
		entry.Description = description
	}
	return entry
}

// SubstantiveFallback returns the fixed degraded-mode substantive findings
func (kb *KnowledgeBase) SubstantiveFallback() []model.SubstantiveFinding {
	findings := make([]model.SubstantiveFinding, 0, len(kb.fallbackSubstantive))
	for _, f := range kb.fallbackSubstantive {
		rel := model.Relevance(f.Relevance)
		findings = append(findings, model.SubstantiveFinding{
			Entry:           kb.ResolveSubstantive(f.Offense, f.Section, f.Description, f.Punishment),
			RelevanceScore:  rel.Score(),
			Relevance:       rel,
			MatchedKeywords: []string{},
		})
	}
	return findings
}

// ProceduralFallback returns the fixed degraded-mode procedural findings
func (kb *KnowledgeBase) ProceduralFallback() []model.ProceduralFinding {
	findings := make([]model.ProceduralFinding, 0, len(kb.fallbackProcedural))
	for _, f := range kb.fallbackProcedural {
		findings = append(findings, model.ProceduralFinding{
			Entry:  kb.ResolveProcedural(f.Section, f.Title, f.Description),
			Reason: f.ApplicableWhy,
		})
	}
	return findings
}

// NormalizeName folds offense and topic names so "House Breaking" and
// "house-breaking" resolve to the same entry
func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, "-", " ")
	return strings.Join(strings.Fields(name), " ")
}

func normalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	seen := make(map[string]bool, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		out = append(out, kw)
	}
	return out
}
