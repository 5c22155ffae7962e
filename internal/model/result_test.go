package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalysisResultClone(t *testing.T) {
	original := &AnalysisResult{
		Status: StatusFresh,
		Substantive: []SubstantiveFinding{{
			Entry:           SubstantiveEntry{Offense: "theft", Keywords: []string{"stole"}, RelatedSections: []string{"304"}},
			MatchedKeywords: []string{"stole"},
		}},
		Procedural: []ProceduralFinding{{
			Entry:  ProceduralEntry{Topic: TopicFIR, Keywords: []string{"complaint"}},
			Reason: "always",
		}},
		Keywords:  []KeywordHit{{Keyword: "stole", Offense: "theft"}},
		Signature: []string{"stole"},
	}

	clone := original.Clone()
	require.Equal(t, original, clone)

	clone.Substantive[0].Entry.Keywords[0] = "x"
	clone.Substantive[0].Entry.RelatedSections[0] = "x"
	clone.Substantive[0].MatchedKeywords[0] = "x"
	clone.Procedural[0].Entry.Keywords[0] = "x"
	clone.Procedural[0].Reason = "x"
	clone.Keywords[0].Keyword = "x"
	clone.Signature[0] = "x"

	assert.Equal(t, []string{"stole"}, original.Substantive[0].Entry.Keywords)
	assert.Equal(t, []string{"304"}, original.Substantive[0].Entry.RelatedSections)
	assert.Equal(t, []string{"stole"}, original.Substantive[0].MatchedKeywords)
	assert.Equal(t, []string{"complaint"}, original.Procedural[0].Entry.Keywords)
	assert.Equal(t, "always", original.Procedural[0].Reason)
	assert.Equal(t, "stole", original.Keywords[0].Keyword)
	assert.Equal(t, []string{"stole"}, original.Signature)
}

func TestAnalysisResultClone_KeepsEmptiness(t *testing.T) {
	var missing *AnalysisResult
	assert.Nil(t, missing.Clone())

	empty := &AnalysisResult{Substantive: []SubstantiveFinding{}, Signature: []string{}}
	clone := empty.Clone()
	assert.NotNil(t, clone.Substantive)
	assert.Empty(t, clone.Substantive)
	assert.Nil(t, clone.Procedural)
	assert.Nil(t, clone.Keywords)
	assert.Equal(t, empty, clone)
}
