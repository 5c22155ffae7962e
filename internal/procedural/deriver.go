// Package procedural derives the procedural (BNSS) consequences of a set of
// substantive findings.
package procedural

import (
	"fmt"
	"strings"

	"github.com/ppiankov/sanhita/internal/kb"
	"github.com/ppiankov/sanhita/internal/model"
)

// Signals are the case facts the rules look at
type Signals struct {
	Offenses []string // Offense names of the substantive findings
	Serious  bool     // Any offense is in the serious set
	Weapon   bool     // Threat, weapon or injury language present
	Fear     bool     // Fear, trauma or threat language present
}

// Rule is one row of the rule table
type Rule struct {
	Name   string
	Topic  string
	When   func(Signals) bool
	Reason func(Signals) string
}

func always(Signals) bool { return true }

func fixed(reason string) func(Signals) string {
	return func(Signals) string { return reason }
}

// DefaultRules is the rule table in emission order. Every rule is evaluated;
// findings accumulate and are never re-sorted.
var DefaultRules = []Rule{
	{
		Name:   "fir",
		Topic:  model.TopicFIR,
		When:   always,
		Reason: fixed("FIR must be registered as offences are cognizable"),
	},
	{
		Name:   "investigation",
		Topic:  model.TopicInvestigation,
		When:   always,
		Reason: fixed("Investigation required for all reported offences"),
	},
	{
		Name:   "arrest",
		Topic:  model.TopicArrest,
		When:   func(s Signals) bool { return s.Serious },
		Reason: fixed("Serious cognizable offences - arrest powers applicable"),
	},
	{
		Name:   "search",
		Topic:  model.TopicSearch,
		When:   func(s Signals) bool { return s.Weapon },
		Reason: fixed("Weapons or threats mentioned - search and seizure applicable"),
	},
	{
		Name:  "cognizable",
		Topic: model.TopicCognizable,
		When:  always,
		Reason: func(s Signals) string {
			if s.Serious {
				return "Case involves cognizable offences"
			}
			return "Need to determine cognizability"
		},
	},
	{
		Name:   "charge",
		Topic:  model.TopicCharge,
		When:   always,
		Reason: fixed("Required before trial can commence"),
	},
	{
		Name:   "trial",
		Topic:  model.TopicTrial,
		When:   always,
		Reason: fixed("Standard trial procedure for all cases"),
	},
	{
		Name:   "protection",
		Topic:  model.TopicProtection,
		When:   func(s Signals) bool { return s.Fear },
		Reason: fixed("Victim mentions threats and fear - protection needed"),
	},
	{
		Name:   "compensation",
		Topic:  model.TopicCompensation,
		When:   always,
		Reason: fixed("Victim suffered injuries and property loss"),
	},
}

// Result is the outcome of a derivation
type Result struct {
	Findings   []model.ProceduralFinding
	Cognizable bool
}

// Deriver evaluates the rule table against the knowledge base
type Deriver struct {
	kb          *kb.KnowledgeBase
	rules       []Rule
	serious     map[string]bool
	weaponWords []string
	fearWords   []string
}

// NewDeriver creates a deriver with the default rule table
func NewDeriver(base *kb.KnowledgeBase, cfg model.ProceduralConfig) (*Deriver, error) {
	return NewDeriverWithRules(base, cfg, DefaultRules)
}

// NewDeriverWithRules creates a deriver with a custom rule table. Every rule
// topic must exist in the knowledge base.
func NewDeriverWithRules(base *kb.KnowledgeBase, cfg model.ProceduralConfig, rules []Rule) (*Deriver, error) {
	for _, r := range rules {
		if _, ok := base.Topic(r.Topic); !ok {
			return nil, fmt.Errorf("rule %s: unknown procedural topic %q", r.Name, r.Topic)
		}
	}

	serious := make(map[string]bool, len(cfg.SeriousOffenses))
	for _, o := range cfg.SeriousOffenses {
		serious[kb.NormalizeName(o)] = true
	}

	return &Deriver{
		kb:          base,
		rules:       rules,
		serious:     serious,
		weaponWords: lowerAll(cfg.WeaponWords),
		fearWords:   lowerAll(cfg.FearWords),
	}, nil
}

// Signals computes the rule inputs for a case
func (d *Deriver) Signals(findings []model.SubstantiveFinding, text string) Signals {
	lower := strings.ToLower(text)

	s := Signals{
		Weapon: containsAny(lower, d.weaponWords),
		Fear:   containsAny(lower, d.fearWords),
	}
	for _, f := range findings {
		s.Offenses = append(s.Offenses, f.Entry.Offense)
		if d.serious[kb.NormalizeName(f.Entry.Offense)] {
			s.Serious = true
		}
	}
	return s
}

// Derive evaluates every rule top to bottom and returns the triggered topics
// in rule order
func (d *Deriver) Derive(findings []model.SubstantiveFinding, text string) Result {
	signals := d.Signals(findings, text)

	result := Result{
		Findings:   make([]model.ProceduralFinding, 0, len(d.rules)),
		Cognizable: signals.Serious,
	}
	for _, rule := range d.rules {
		if !rule.When(signals) {
			continue
		}
		entry, _ := d.kb.Topic(rule.Topic)
		result.Findings = append(result.Findings, model.ProceduralFinding{
			Entry:  entry,
			Reason: rule.Reason(signals),
		})
	}
	return result
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if w != "" && strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func lowerAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		out = append(out, strings.ToLower(strings.TrimSpace(w)))
	}
	return out
}
