package cli

import (
	"os/signal"
	"syscall"

	"github.com/ppiankov/sanhita/internal/metrics"
	"github.com/ppiankov/sanhita/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis HTTP API",
	Long: `Serve exposes analysis over HTTP:
  POST /api/v1/analyze          analyze a narrative
  GET  /api/v1/kb/substantive   list offense entries
  GET  /api/v1/kb/procedural    list procedural topics
  GET  /health                  liveness
  GET  /metrics                 Prometheus metrics

The server shuts down gracefully on SIGINT or SIGTERM.

Example:
  sanhita serve --addr :8080
  SANHITA_LLM_PROVIDER=openai OPENAI_API_KEY=sk-... sanhita serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":8080", "listen address")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	a, err := newAnalyzer(config, m)
	if err != nil {
		return err
	}

	logger.Info("analyzer ready",
		zap.String("kb_version", a.KnowledgeBase().Version()),
		zap.Bool("delegated_available", a.DelegatedAvailable()),
		zap.String("default_strategy", string(config.Analysis.Strategy)))

	return server.New(config.Server, a, m, logger, Version).Run(ctx)
}
