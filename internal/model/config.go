package model

import "time"

// Config is the complete runtime configuration
type Config struct {
	KB          KBConfig          `json:"kb" yaml:"kb" mapstructure:"kb"`
	Analysis    AnalysisConfig    `json:"analysis" yaml:"analysis" mapstructure:"analysis"`
	Procedural  ProceduralConfig  `json:"procedural" yaml:"procedural" mapstructure:"procedural"`
	Cache       CacheConfig       `json:"cache" yaml:"cache" mapstructure:"cache"`
	LLM         LLMConfig         `json:"llm" yaml:"llm" mapstructure:"llm"`
	Concurrency ConcurrencyConfig `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`
	Server      ServerConfig      `json:"server" yaml:"server" mapstructure:"server"`
	Logging     LoggingConfig     `json:"logging" yaml:"logging" mapstructure:"logging"`
}

// KBConfig selects the knowledge base source
type KBConfig struct {
	Path string `json:"path" yaml:"path" mapstructure:"path"` // Empty = embedded fixture
}

// AnalysisConfig controls the orchestrator defaults
type AnalysisConfig struct {
	Strategy            Strategy      `json:"strategy" yaml:"strategy" mapstructure:"strategy"`
	SimilarityThreshold float64       `json:"similarity_threshold" yaml:"similarity_threshold" mapstructure:"similarity_threshold"` // Near-duplicate hit when similarity is strictly greater
	CallTimeout         time.Duration `json:"call_timeout" yaml:"call_timeout" mapstructure:"call_timeout"`                         // Bound on each external reasoning call
}

// ProceduralConfig holds the word sets and offense set consulted by the rule table
type ProceduralConfig struct {
	SeriousOffenses []string `json:"serious_offenses" yaml:"serious_offenses" mapstructure:"serious_offenses"`
	WeaponWords     []string `json:"weapon_words" yaml:"weapon_words" mapstructure:"weapon_words"`
	FearWords       []string `json:"fear_words" yaml:"fear_words" mapstructure:"fear_words"`
}

// CacheWritePolicy decides what happens when a fingerprint is already cached
type CacheWritePolicy string

const (
	WriteKeepFirst CacheWritePolicy = "keep_first"
	WriteOverwrite CacheWritePolicy = "overwrite"
)

// CacheConfig controls the in-process result cache
type CacheConfig struct {
	Enabled     bool             `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	WritePolicy CacheWritePolicy `json:"write_policy" yaml:"write_policy" mapstructure:"write_policy"`
}

// LLMConfig configures the completion provider used by the delegated strategy
type LLMConfig struct {
	Provider          string  `json:"provider" yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama, "" (disabled)
	Model             string  `json:"model" yaml:"model" mapstructure:"model"`
	APIKey            string  `json:"-" yaml:"-" mapstructure:"api_key"` // Never written to disk
	BaseURL           string  `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout           int     `json:"timeout" yaml:"timeout" mapstructure:"timeout"` // seconds, transport-level
	MaxTokens         int     `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature       float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `json:"burst" yaml:"burst" mapstructure:"burst"`
	HTTPProxy         string  `json:"http_proxy,omitempty" yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy        string  `json:"https_proxy,omitempty" yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// ConcurrencyConfig controls batch analysis
type ConcurrencyConfig struct {
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`
}

// ServerConfig controls the HTTP API
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	Level       string `json:"level" yaml:"level" mapstructure:"level"`
	Development bool   `json:"development" yaml:"development" mapstructure:"development"`
}

// DefaultSeriousOffenses is the broad warrantless-arrest set.
// The narrow set drops "grievous hurt" and "house-breaking".
var DefaultSeriousOffenses = []string{
	"murder", "rape", "robbery", "dacoity", "kidnapping", "grievous hurt", "house-breaking",
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			Strategy:            StrategyKeyword,
			SimilarityThreshold: 0.70,
			CallTimeout:         60 * time.Second,
		},
		Procedural: ProceduralConfig{
			SeriousOffenses: append([]string(nil), DefaultSeriousOffenses...),
			WeaponWords:     []string{"threatened", "weapon", "knife", "gun", "stick", "hurt"},
			FearWords:       []string{"scared", "threatened", "traumatized", "afraid", "frightened"},
		},
		Cache: CacheConfig{
			Enabled:     true,
			WritePolicy: WriteKeepFirst,
		},
		LLM: LLMConfig{
			Provider:          "", // Disabled by default
			Timeout:           60,
			MaxTokens:         2000,
			Temperature:       0.2,
			RequestsPerSecond: 2,
			Burst:             1,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
