package mapper

import (
	"sort"
	"strings"
	"testing"

	"github.com/ppiankov/sanhita/internal/kb"
	"github.com/ppiankov/sanhita/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFIR = `On the night of September 27th around 11:30 PM, I was sleeping in my house with my family when suddenly I heard a loud noise. Three men broke the lock of my main door and entered my house. They were carrying weapons - one had a knife and another had a stick.

They threatened us saying they would hurt us badly if we did not give them money and gold. I was very scared. One of them became angry and hit me on my head with the stick. My head was bleeding.

Then they searched my house and took all the cash I had saved. They threatened us not to tell anyone or they would come back and hurt us more.`

func defaultMapper(t *testing.T) (*Mapper, *kb.KnowledgeBase) {
	t.Helper()
	base, err := kb.Default()
	require.NoError(t, err)
	return New(base), base
}

func findingFor(findings []model.SubstantiveFinding, offense string) *model.SubstantiveFinding {
	for i := range findings {
		if findings[i].Entry.Offense == offense {
			return &findings[i]
		}
	}
	return nil
}

func TestMap_IncidentScenario(t *testing.T) {
	m, _ := defaultMapper(t)

	result := m.Map(sampleFIR)

	for _, offense := range []string{"house-breaking", "hurt", "theft", "criminal intimidation"} {
		f := findingFor(result.Findings, offense)
		require.NotNil(t, f, "expected finding for %s", offense)
		assert.NotEmpty(t, f.MatchedKeywords, "matched keywords for %s", offense)
		assert.Equal(t, len(f.MatchedKeywords), f.RelevanceScore)
	}

	hb := findingFor(result.Findings, "house-breaking")
	assert.Contains(t, hb.MatchedKeywords, "broke the lock")
	hurt := findingFor(result.Findings, "hurt")
	assert.Contains(t, hurt.MatchedKeywords, "hit")
	theft := findingFor(result.Findings, "theft")
	assert.Contains(t, theft.MatchedKeywords, "took")
	ci := findingFor(result.Findings, "criminal intimidation")
	assert.Contains(t, ci.MatchedKeywords, "threatened")
}

func TestMap_Deterministic(t *testing.T) {
	m, _ := defaultMapper(t)

	first := m.Map(sampleFIR)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, m.Map(sampleFIR))
	}
}

func TestMap_SortedByScoreThenKBOrder(t *testing.T) {
	m, base := defaultMapper(t)

	result := m.Map(sampleFIR)
	require.NotEmpty(t, result.Findings)

	order := make(map[string]int)
	for i, e := range base.Substantive() {
		order[e.Category+"/"+e.Offense] = i
	}

	for i := 1; i < len(result.Findings); i++ {
		prev, cur := result.Findings[i-1], result.Findings[i]
		require.GreaterOrEqual(t, prev.RelevanceScore, cur.RelevanceScore)
		if prev.RelevanceScore == cur.RelevanceScore {
			assert.Less(t,
				order[prev.Entry.Category+"/"+prev.Entry.Offense],
				order[cur.Entry.Category+"/"+cur.Entry.Offense])
		}
	}
}

func TestMap_MatchesNaiveScan(t *testing.T) {
	m, base := defaultMapper(t)

	texts := []string{
		sampleFIR,
		"The accused cheated me with a false promise and forged papers.",
		"My son was kidnapped and taken away; a gang robbery followed.",
		"",
	}

	for _, text := range texts {
		got := m.Map(text)

		lower := strings.ToLower(text)
		var want []model.SubstantiveFinding
		for _, entry := range base.Substantive() {
			var matched []string
			for _, kw := range entry.Keywords {
				if strings.Contains(lower, kw) {
					matched = append(matched, kw)
				}
			}
			if len(matched) > 0 {
				want = append(want, model.SubstantiveFinding{Entry: entry, RelevanceScore: len(matched), MatchedKeywords: matched})
			}
		}
		sort.SliceStable(want, func(i, j int) bool { return want[i].RelevanceScore > want[j].RelevanceScore })
		if want == nil {
			want = []model.SubstantiveFinding{}
		}

		assert.Equal(t, want, got.Findings, "text: %q", text)
	}
}

func TestMap_KeywordHitsTaggedOnce(t *testing.T) {
	m, _ := defaultMapper(t)

	result := m.Map("They threatened me.")

	count := 0
	for _, hit := range result.Keywords {
		if hit.Keyword == "threatened" {
			count++
			// extortion precedes criminal intimidation in the KB
			assert.Equal(t, "extortion", hit.Offense)
		}
	}
	assert.Equal(t, 1, count)

	assert.NotNil(t, findingFor(result.Findings, "extortion"))
	assert.NotNil(t, findingFor(result.Findings, "criminal intimidation"))
}

func TestMap_NoMatches(t *testing.T) {
	m, _ := defaultMapper(t)

	result := m.Map("Nothing to report.")

	assert.Empty(t, result.Findings)
	assert.NotNil(t, result.Findings)
	assert.Empty(t, result.Keywords)
}

func TestMap_EditedFindingsDoNotLeak(t *testing.T) {
	m, base := defaultMapper(t)

	want := m.Map(sampleFIR)
	got := m.Map(sampleFIR)
	require.NotEmpty(t, got.Findings)
	for _, f := range got.Findings {
		for i := range f.Entry.Keywords {
			f.Entry.Keywords[i] = "zzzz-never"
		}
		for i := range f.MatchedKeywords {
			f.MatchedKeywords[i] = "zzzz-never"
		}
	}

	assert.Equal(t, want, m.Map(sampleFIR))

	theft, ok := base.Offense("theft")
	require.True(t, ok)
	assert.NotContains(t, theft.Keywords, "zzzz-never")
	assert.Equal(t, want, New(base).Map(sampleFIR))
}
