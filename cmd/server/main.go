package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/vibin/deepsearch-chat/config"
	httpHandler "github.com/vibin/deepsearch-chat/internal/adapters/primary/http"
	"github.com/vibin/deepsearch-chat/internal/adapters/secondary/database"
	"github.com/vibin/deepsearch-chat/internal/adapters/secondary/llm"
	"github.com/vibin/deepsearch-chat/internal/adapters/secondary/repository"
	"github.com/vibin/deepsearch-chat/internal/adapters/secondary/websearch"
	"github.com/vibin/deepsearch-chat/internal/core/ports"
	"github.com/vibin/deepsearch-chat/internal/core/services"
	"github.com/vibin/deepsearch-chat/internal/logger"
)

var (
	configPath string
	debugMode  bool
)

var rootCmd = &cobra.Command{
	Use:          "deepsearch-chat",
	Short:        "Streaming chat server with multi-source web search",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (JSON or YAML)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.AddCommand(searchCmd, initConfigCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration and builds the logger shared by every command
func setup(logOutput io.Writer) (*config.Config, logger.Logger, error) {
	logLevel := slog.LevelInfo
	if debugMode {
		logLevel = slog.LevelDebug
	}
	log := logger.New(logLevel, logOutput)

	path := configPath
	if path == "" {
		if _, err := os.Stat(config.GetConfigPath()); err == nil {
			path = config.GetConfigPath()
		}
	}

	var cfg *config.Config
	if path != "" {
		log.Info("Loading configuration", "path", path)
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, nil, fmt.Errorf("load configuration: %w", err)
		}
		cfg = loaded
	} else {
		log.Info("Using default configuration")
		cfg = config.DefaultConfig()
	}
	cfg.ApplyEnv()

	return cfg, log, nil
}

// searchStack is the search side of the application
type searchStack struct {
	aggregator *services.Aggregator
	searchLog  ports.SearchLogPort
	close      func()
}

// buildSearch wires the search log, the sources and the aggregator.
// aggregator is nil when web search is disabled.
func buildSearch(cfg *config.Config, log logger.Logger) (*searchStack, error) {
	stack := &searchStack{close: func() {}}

	if cfg.Database.Enabled {
		db, err := database.NewSearchLogDatabase(cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("open search log: %w", err)
		}
		log.Info("Recording searches", "path", cfg.Database.Path)
		stack.searchLog = db
		stack.close = func() {
			if err := db.Close(); err != nil {
				log.Warn("Failed to close search log", "error", err)
			}
		}
	} else {
		stack.searchLog = repository.NewInMemorySearchLog(0, log)
	}

	if !cfg.WebSearch.Enabled {
		log.Info("Web search disabled")
		return stack, nil
	}

	primary, sources, err := websearch.Sources(cfg.WebSearch, log)
	if err != nil {
		stack.close()
		return nil, fmt.Errorf("configure search sources: %w", err)
	}

	ranking := cfg.WebSearch.Ranking
	stack.aggregator = services.NewAggregator(primary, sources, services.AggregatorOptions{
		CacheTTL:            cfg.WebSearch.CacheTTL(),
		RecursiveThreshold:  cfg.WebSearch.RecursiveThreshold,
		MaxAlternateQueries: cfg.WebSearch.MaxAlternateQueries,
		AlternateQueryLimit: cfg.WebSearch.AlternateQueryLimit,
		Weights: services.RankingWeights{
			TitleMatch:       ranking.TitleMatch,
			SnippetMatch:     ranking.SnippetMatch,
			SourceBoost:      ranking.SourceBoost,
			RelevanceDivisor: ranking.RelevanceDivisor,
			RelevanceCap:     ranking.RelevanceCap,
		},
		SearchLog: stack.searchLog,
	}, log)
	log.Info("Web search enabled", "sources", stack.aggregator.SourceNames())

	return stack, nil
}

func runServer(ctx context.Context) error {
	cfg, log, err := setup(os.Stdout)
	if err != nil {
		return err
	}
	log.Info("Starting DeepSearch chat server")

	llmAdapter, err := llm.NewAdapter(&cfg.LLM, log)
	if err != nil {
		log.Error("Failed to initialize LLM adapter", "error", err)
		return err
	}

	stack, err := buildSearch(cfg, log)
	if err != nil {
		log.Error("Failed to initialize web search", "error", err)
		return err
	}
	defer stack.close()

	// A nil *Aggregator must not reach the interfaces as a typed nil.
	var searcher services.Searcher
	var cache httpHandler.SearchCache
	if stack.aggregator != nil {
		searcher = stack.aggregator
		cache = stack.aggregator
	}

	trigger := services.NewSearchTrigger(cfg.WebSearch.QuickKeywords, cfg.WebSearch.DeepKeywords)
	turnService := services.NewTurnService(llmAdapter, searcher, trigger, cfg, log)
	handler := httpHandler.NewHandler(turnService, cache, stack.searchLog, cfg, log)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("HTTP server error", "error", err)
			return err
		}
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Server exited")
	return nil
}
