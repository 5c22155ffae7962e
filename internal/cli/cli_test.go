package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/sanhita/internal/analysis"
	"github.com/ppiankov/sanhita/internal/kb"
	"github.com/ppiankov/sanhita/internal/model"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	bindEnv(v)
	return v
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(newTestViper(t))
	require.NoError(t, err)

	assert.Equal(t, model.DefaultConfig(), cfg)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SANHITA_ANALYSIS_STRATEGY", "auto")
	t.Setenv("SANHITA_ANALYSIS_SIMILARITY_THRESHOLD", "0.85")
	t.Setenv("SANHITA_ANALYSIS_CALL_TIMEOUT", "15s")
	t.Setenv("SANHITA_CACHE_WRITE_POLICY", "overwrite")
	t.Setenv("SANHITA_CONCURRENCY_WORKERS", "9")

	cfg, err := loadConfig(newTestViper(t))
	require.NoError(t, err)

	assert.Equal(t, model.StrategyAuto, cfg.Analysis.Strategy)
	assert.InDelta(t, 0.85, cfg.Analysis.SimilarityThreshold, 1e-9)
	assert.Equal(t, 15*time.Second, cfg.Analysis.CallTimeout)
	assert.Equal(t, model.WriteOverwrite, cfg.Cache.WritePolicy)
	assert.Equal(t, 9, cfg.Concurrency.Workers)
}

func TestLoadConfig_ProviderKeysFromEnv(t *testing.T) {
	t.Setenv("SANHITA_LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := loadConfig(newTestViper(t))
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)

	t.Setenv("SANHITA_LLM_PROVIDER", "ollama")
	t.Setenv("OLLAMA_BASE_URL", "http://ollama:11434")

	cfg, err = loadConfig(newTestViper(t))
	require.NoError(t, err)
	assert.Equal(t, "http://ollama:11434", cfg.LLM.BaseURL)
	assert.Empty(t, cfg.LLM.APIKey)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
analysis:
  strategy: delegated
procedural:
  serious_offenses: [murder, rape]
llm:
  provider: anthropic
  model: claude-test
`), 0o644))

	v := newTestViper(t)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	cfg, err := loadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, model.StrategyDelegated, cfg.Analysis.Strategy)
	assert.Equal(t, []string{"murder", "rape"}, cfg.Procedural.SeriousOffenses)
	assert.Equal(t, "claude-test", cfg.LLM.Model)
	assert.Equal(t, "sk-ant-test", cfg.LLM.APIKey)
	// Untouched keys keep their defaults
	assert.Equal(t, model.DefaultConfig().Procedural.FearWords, cfg.Procedural.FearWords)
}

func TestLoadConfig_Invalid(t *testing.T) {
	cases := map[string]string{
		"SANHITA_ANALYSIS_STRATEGY":             "psychic",
		"SANHITA_ANALYSIS_SIMILARITY_THRESHOLD": "1.5",
		"SANHITA_CACHE_WRITE_POLICY":            "sometimes",
		"SANHITA_CONCURRENCY_WORKERS":           "0",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := loadConfig(newTestViper(t))
			assert.Error(t, err)
		})
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".sanhita", "config.yaml")

	require.NoError(t, writeDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Sanhita configuration file")
	assert.Contains(t, string(data), "similarity_threshold: 0.7")
	assert.NotContains(t, string(data), "api_key")

	// The written file loads back to the defaults
	v := newTestViper(t)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultConfig(), cfg)

	err = writeDefaultConfig(path)
	assert.ErrorContains(t, err, "already exists")
}

func TestResultFilename(t *testing.T) {
	assert.Equal(t, "001-complaint.json", resultFilename(0, "cases/complaint.txt"))
	assert.Equal(t, "012-fir-no-7.json", resultFilename(11, "/tmp/fir no 7.html"))
	assert.Equal(t, "003-a_b.json", resultFilename(2, "a:b.md"))
}

func TestDescribeError(t *testing.T) {
	err := describeError(&analysis.InputError{Reason: "narrative is empty"})
	assert.EqualError(t, err, "nothing to analyze: narrative is empty")

	err = describeError(analysis.ErrNoProvider)
	assert.ErrorIs(t, err, analysis.ErrNoProvider)
	assert.Contains(t, err.Error(), "--strategy keyword")

	serviceErr := &analysis.ServiceError{Stage: "summary", Err: errors.New("boom")}
	err = describeError(serviceErr)
	var target *analysis.ServiceError
	assert.ErrorAs(t, err, &target)

	err = describeError(context.DeadlineExceeded)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestListSubstantive(t *testing.T) {
	base, err := kb.Default()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, listSubstantive(&buf, base, "", false))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, len(base.Substantive())+1)
	assert.Contains(t, buf.String(), "robbery")

	category := base.Substantive()[0].Category
	buf.Reset()
	require.NoError(t, listSubstantive(&buf, base, category, true))
	assert.Contains(t, buf.String(), "KEYWORDS")
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n")[1:] {
		assert.True(t, strings.HasPrefix(line, category), line)
	}

	assert.Error(t, listSubstantive(&buf, base, "noSuchCategory", false))
}

func TestListProcedural(t *testing.T) {
	base, err := kb.Default()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, listProcedural(&buf, base))
	assert.Contains(t, buf.String(), model.TopicFIR)
	assert.Contains(t, buf.String(), model.TopicCompensation)
}

func TestAnalyzeCommand(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	dir := t.TempDir()
	input := filepath.Join(dir, "complaint.txt")
	require.NoError(t, os.WriteFile(input, []byte(
		"Three men broke the lock of my door. One hit me on my head with a stick. "+
			"They took all the cash and threatened us. We are scared."), 0o644))
	jsonPath := filepath.Join(dir, "result.json")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"analyze", input, "--strategy", "keyword", "--json", jsonPath})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		outJSON = ""
	})

	require.NoError(t, Execute())

	assert.Contains(t, out.String(), "house-breaking")
	assert.Contains(t, out.String(), "Classification: cognizable")

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"status": "fresh"`)
}
