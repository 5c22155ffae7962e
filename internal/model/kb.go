package model

import "slices"

// SubstantiveEntry is one offense of the substantive code (BNS)
type SubstantiveEntry struct {
	Category        string   `json:"category" yaml:"-"`      // KB category key (e.g., "propertyOffences")
	Offense         string   `json:"offense" yaml:"offense"` // Unique within its category
	Section         string   `json:"section" yaml:"section"` // "303", "2(7)", "35-46"
	Description     string   `json:"description" yaml:"description"`
	Punishment      string   `json:"punishment,omitempty" yaml:"punishment,omitempty"`
	Keywords        []string `json:"keywords,omitempty" yaml:"keywords"` // Lowercase phrases matched as substrings
	RelatedSections []string `json:"related_sections,omitempty" yaml:"related_sections,omitempty"`
}

// Clone returns a copy that shares no slices with e
func (e SubstantiveEntry) Clone() SubstantiveEntry {
	e.Keywords = slices.Clone(e.Keywords)
	e.RelatedSections = slices.Clone(e.RelatedSections)
	return e
}

// ProceduralEntry is one topic of the procedural code (BNSS)
type ProceduralEntry struct {
	Category       string   `json:"category" yaml:"-"`
	Topic          string   `json:"topic" yaml:"topic"`
	Section        string   `json:"section" yaml:"section"`
	Title          string   `json:"title" yaml:"title"`
	Description    string   `json:"description" yaml:"description"`
	Keywords       []string `json:"keywords,omitempty" yaml:"keywords"`
	ApplicableWhen string   `json:"applicable_when,omitempty" yaml:"applicable_when"` // Descriptive only
}

// Clone returns a copy that shares no slices with e
func (e ProceduralEntry) Clone() ProceduralEntry {
	e.Keywords = slices.Clone(e.Keywords)
	return e
}

// Procedural topic keys referenced by the rule table.
// The KB must define an entry for each of them.
const (
	TopicFIR           = "fir"
	TopicInvestigation = "investigation"
	TopicArrest        = "arrest"
	TopicSearch        = "search and seizure"
	TopicCognizable    = "cognizable"
	TopicCharge        = "charge"
	TopicTrial         = "evidence"
	TopicProtection    = "protection"
	TopicCompensation  = "victim compensation"
)

// CategoryDelegated marks substantive entries reported by the reasoning
// service that have no counterpart in the knowledge base.
const CategoryDelegated = "delegated"
