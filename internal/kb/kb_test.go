package kb

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/sanhita/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalKB = `
version: "test"
substantive:
  - category: property
    entries:
      - offense: Theft
        section: "303"
        description: Dishonestly taking movable property
        keywords: [Took, stole, " took "]
procedural:
  - category: registration
    entries:
      - {topic: fir, section: "173", title: FIR}
      - {topic: investigation, section: "176", title: Investigation}
      - {topic: arrest, section: "35", title: Arrest}
      - {topic: search and seizure, section: "185", title: Search}
      - {topic: cognizable, section: "2(g)", title: Cognizable}
      - {topic: charge, section: "234", title: Charge}
      - {topic: evidence, section: "254", title: Trial}
      - {topic: protection, section: "398", title: Witness protection}
      - {topic: victim compensation, section: "396", title: Compensation}
fallbacks:
  substantive:
    - {section: "303", offense: theft, relevance: high}
  procedural:
    - {section: "173", title: FIR, applicable_why: Always}
`

func TestDefault(t *testing.T) {
	base, err := Default()
	require.NoError(t, err)

	assert.NotEmpty(t, base.Version())
	assert.NotEmpty(t, base.Substantive())
	assert.NotEmpty(t, base.Categories())

	for _, e := range base.Substantive() {
		assert.NotEmpty(t, e.Category)
		for _, kw := range e.Keywords {
			assert.Equal(t, strings.ToLower(kw), kw, "keyword of %s", e.Offense)
		}
	}

	again, err := Default()
	require.NoError(t, err)
	assert.Same(t, base, again)
}

func TestLoad_NormalizesKeywords(t *testing.T) {
	base, err := Load(strings.NewReader(minimalKB))
	require.NoError(t, err)

	theft, ok := base.Offense("THEFT")
	require.True(t, ok)
	assert.Equal(t, "property", theft.Category)
	assert.Equal(t, []string{"took", "stole"}, theft.Keywords)

	topic, ok := base.Topic("Search-and-Seizure")
	require.True(t, ok)
	assert.Equal(t, "185", topic.Section)
}

func TestLoad_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown field":     strings.Replace(minimalKB, "version:", "versoin:", 1),
		"missing topic":     strings.Replace(minimalKB, "{topic: charge, section: \"234\", title: Charge}", "{topic: other, section: \"1\", title: Other}", 1),
		"duplicate offense": strings.Replace(minimalKB, "procedural:\n", "      - {offense: theft, section: \"304\"}\nprocedural:\n", 1),
		"no fallbacks":      minimalKB[:strings.Index(minimalKB, "fallbacks:")],
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalKB), 0o644))

	base, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "test", base.Version())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestResolveSubstantive(t *testing.T) {
	base, err := Default()
	require.NoError(t, err)

	known, _ := base.Offense("robbery")
	entry := base.ResolveSubstantive("Robbery", "", "", "")
	assert.Equal(t, known, entry)

	entry = base.ResolveSubstantive("Robbery", "309(4)", "with hurt", "")
	assert.Equal(t, "309(4)", entry.Section)
	assert.Equal(t, "with hurt", entry.Description)
	assert.Equal(t, known.Keywords, entry.Keywords)

	entry = base.ResolveSubstantive("  Stalking ", "78", "following a person", "")
	assert.Equal(t, model.CategoryDelegated, entry.Category)
	assert.Equal(t, "stalking", entry.Offense)
	assert.Empty(t, entry.Keywords)
}

func TestResolveProcedural(t *testing.T) {
	base, err := Load(strings.NewReader(minimalKB))
	require.NoError(t, err)

	entry := base.ResolveProcedural(" 173 ", "", "")
	assert.Equal(t, model.TopicFIR, entry.Topic)
	assert.Equal(t, "FIR", entry.Title)

	entry = base.ResolveProcedural("999", "Unknown", "desc")
	assert.Equal(t, model.CategoryDelegated, entry.Category)
	assert.Equal(t, "999", entry.Section)
	assert.Equal(t, "Unknown", entry.Title)
}

func TestFallbacks(t *testing.T) {
	base, err := Default()
	require.NoError(t, err)

	subs := base.SubstantiveFallback()
	require.NotEmpty(t, subs)
	for _, f := range subs {
		assert.NotEmpty(t, f.Entry.Section)
		assert.NotEmpty(t, f.Relevance)
		assert.Equal(t, f.Relevance.Score(), f.RelevanceScore)
		assert.NotNil(t, f.MatchedKeywords)
	}

	procs := base.ProceduralFallback()
	require.NotEmpty(t, procs)
	for _, f := range procs {
		assert.NotEmpty(t, f.Entry.Section)
		assert.NotEmpty(t, f.Reason)
	}
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "house breaking", NormalizeName("  House-Breaking "))
	assert.Equal(t, "criminal intimidation", NormalizeName("criminal   intimidation"))
}

func TestEntriesAreCopies(t *testing.T) {
	base, err := Load(strings.NewReader(minimalKB))
	require.NoError(t, err)

	entries := base.Substantive()
	entries[0].Keywords[0] = "changed"
	entries[0].Offense = "changed"

	theft, ok := base.Offense("theft")
	require.True(t, ok)
	assert.Equal(t, []string{"took", "stole"}, theft.Keywords)
	theft.Keywords[1] = "changed"

	again, _ := base.Offense("theft")
	assert.Equal(t, []string{"took", "stole"}, again.Keywords)
	assert.Equal(t, "Theft", base.Substantive()[0].Offense)

	procs := base.Procedural()
	procs[0].Title = "changed"
	fir, ok := base.Topic(model.TopicFIR)
	require.True(t, ok)
	assert.Equal(t, "FIR", fir.Title)

	full, err := Default()
	require.NoError(t, err)
	robbery, _ := full.Offense("robbery")
	require.NotEmpty(t, robbery.Keywords)
	original := robbery.Keywords[0]
	robbery.Keywords[0] = "changed"
	if len(robbery.RelatedSections) > 0 {
		robbery.RelatedSections[0] = "changed"
	}
	robbery, _ = full.Offense("robbery")
	assert.Equal(t, original, robbery.Keywords[0])
	assert.NotContains(t, robbery.RelatedSections, "changed")
}
