package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/sanhita/internal/logging"
	"github.com/ppiankov/sanhita/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Version is set at build time via -ldflags
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
	logger  = zap.NewNop()
	config  = model.DefaultConfig()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "sanhita",
	Short: "Sanhita - map incident narratives to BNS and BNSS sections",
	Long: `Sanhita reads a free-text incident narrative (an FIR or complaint) and
maps it to the applicable Bharatiya Nyaya Sanhita (BNS) offense sections and
the Bharatiya Nagarik Suraksha Sanhita (BNSS) procedural provisions.

Two strategies are available: a deterministic keyword strategy that works
offline, and a delegated strategy that asks a configured LLM provider.

Sanhita is an aid for triage, not legal advice.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		l, _, err := logging.Install(cfg.Logging)
		if err != nil {
			return err
		}
		logger = l
		config = cfg
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of Sanhita.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "sanhita %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.sanhita/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	flags.String("kb", "", "knowledge base YAML file (default: embedded)")
	flags.String("llm-provider", "", "LLM provider for the delegated strategy (openai, anthropic, ollama)")
	flags.String("llm-model", "", "LLM model name")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("kb.path", flags.Lookup("kb"))
	_ = viper.BindPFlag("llm.provider", flags.Lookup("llm-provider"))
	_ = viper.BindPFlag("llm.model", flags.Lookup("llm-model"))
	_ = viper.BindPFlag("logging.level", flags.Lookup("log-level"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(filepath.Join(home, ".sanhita"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	bindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// bindEnv maps SANHITA_ANALYSIS_STRATEGY to analysis.strategy, and so on
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("SANHITA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// setDefaults registers every config key so that AutomaticEnv can see it
// during Unmarshal
func setDefaults(v *viper.Viper, cfg *model.Config) {
	v.SetDefault("kb.path", cfg.KB.Path)

	v.SetDefault("analysis.strategy", string(cfg.Analysis.Strategy))
	v.SetDefault("analysis.similarity_threshold", cfg.Analysis.SimilarityThreshold)
	v.SetDefault("analysis.call_timeout", cfg.Analysis.CallTimeout)

	v.SetDefault("procedural.serious_offenses", cfg.Procedural.SeriousOffenses)
	v.SetDefault("procedural.weapon_words", cfg.Procedural.WeaponWords)
	v.SetDefault("procedural.fear_words", cfg.Procedural.FearWords)

	v.SetDefault("cache.enabled", cfg.Cache.Enabled)
	v.SetDefault("cache.write_policy", string(cfg.Cache.WritePolicy))

	v.SetDefault("llm.provider", cfg.LLM.Provider)
	v.SetDefault("llm.model", cfg.LLM.Model)
	v.SetDefault("llm.api_key", cfg.LLM.APIKey)
	v.SetDefault("llm.base_url", cfg.LLM.BaseURL)
	v.SetDefault("llm.timeout", cfg.LLM.Timeout)
	v.SetDefault("llm.max_tokens", cfg.LLM.MaxTokens)
	v.SetDefault("llm.temperature", cfg.LLM.Temperature)
	v.SetDefault("llm.requests_per_second", cfg.LLM.RequestsPerSecond)
	v.SetDefault("llm.burst", cfg.LLM.Burst)
	v.SetDefault("llm.http_proxy", cfg.LLM.HTTPProxy)
	v.SetDefault("llm.https_proxy", cfg.LLM.HTTPSProxy)

	v.SetDefault("concurrency.workers", cfg.Concurrency.Workers)
	v.SetDefault("server.addr", cfg.Server.Addr)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.development", cfg.Logging.Development)
}

// loadConfig resolves the configuration: flags > env > config file > defaults.
// Provider API keys fall back to the provider's conventional env variable.
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	setDefaults(v, cfg)

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	switch cfg.LLM.Provider {
	case "openai":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	case "anthropic", "claude":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	case "ollama":
		if cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
		}
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *model.Config) error {
	switch cfg.Analysis.Strategy {
	case model.StrategyKeyword, model.StrategyDelegated, model.StrategyAuto:
	default:
		return fmt.Errorf("unknown analysis strategy %q (supported: keyword, delegated, auto)", cfg.Analysis.Strategy)
	}
	if t := cfg.Analysis.SimilarityThreshold; t < 0 || t > 1 {
		return fmt.Errorf("similarity threshold %.2f out of range [0, 1]", t)
	}
	switch cfg.Cache.WritePolicy {
	case model.WriteKeepFirst, model.WriteOverwrite:
	default:
		return fmt.Errorf("unknown cache write policy %q (supported: keep_first, overwrite)", cfg.Cache.WritePolicy)
	}
	if cfg.Concurrency.Workers < 1 {
		return fmt.Errorf("concurrency.workers must be at least 1, got %d", cfg.Concurrency.Workers)
	}
	return nil
}
