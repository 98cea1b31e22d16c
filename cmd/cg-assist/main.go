package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/cg-assist/backend/config"
	"github.com/cg-assist/backend/internal/agent"
	"github.com/cg-assist/backend/internal/auth"
	"github.com/cg-assist/backend/internal/catalog"
	"github.com/cg-assist/backend/internal/catalog/migrations"
	"github.com/cg-assist/backend/internal/convo"
	"github.com/cg-assist/backend/internal/embeddings"
	"github.com/cg-assist/backend/internal/ollama"
	"github.com/cg-assist/backend/internal/search"
	"github.com/cg-assist/backend/internal/server"
	"github.com/cg-assist/backend/internal/thumbs"
	"github.com/cg-assist/backend/internal/tools"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "cg-assist",
		Short:        "Natural-language assistant for CG production asset catalogs",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config file")

	root.AddCommand(serveCmd(&configPath))
	root.AddCommand(migrateCmd(&configPath))
	return root
}

func loadConfig(path string) (*config.Config, error) {
	_ = godotenv.Load()
	return config.Load(path)
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
			slog.SetDefault(log)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			db, err := catalog.New(ctx, cfg.Database.ConnectionString)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()

			ollamaClient := ollama.NewClient(cfg.Ollama.BaseURL)
			model, err := ollama.NewModelSelector(ollamaClient).GetDefaultModel(ctx, cfg.Ollama.DefaultModel)
			if err != nil {
				return fmt.Errorf("failed to select model: %w", err)
			}
			log.Info("using model", "model", model)

			textEmbedder := embeddings.NewTextEmbedder(cfg.Embeddings.OllamaBaseURL, cfg.Embeddings.TextModel, cfg.Embeddings.MaxInputBytes)
			visualEmbedder := embeddings.NewVisualEmbedder(cfg.Embeddings.VisualBaseURL, cfg.Embeddings.MaxInputBytes)

			registry := tools.DefaultRegistry(tools.Deps{
				Semantic:  search.NewSemantic(db, textEmbedder),
				Visual:    search.NewVisual(db, visualEmbedder),
				Keyword:   search.NewKeyword(db),
				Filter:    search.NewFilter(db),
				Analytics: db,
				Details:   db,
			})

			store, err := convo.NewStore(cfg.Conversations.Store, db.Pool())
			if err != nil {
				return err
			}

			presigner, err := buildPresigner(ctx, cfg)
			if err != nil {
				return err
			}

			loop := agent.New(
				registry,
				agent.NewOllamaGenerator(ollamaClient, model),
				store,
				presigner,
				log,
				agent.Config{
					MaxIterations:  cfg.Agent.MaxIterations,
					ToolTimeout:    time.Duration(cfg.Agent.ToolTimeout),
					OverallTimeout: time.Duration(cfg.Agent.OverallTimeout),
				},
			)

			verifier := auth.NewStaticVerifier(cfg.Auth.Tokens, cfg.Auth.AllowAnonymous)
			handlers := server.NewHandlers(loop, store, log)
			return server.New(cfg.Server.Addr, handlers, verifier, log).Start(ctx)
		},
	}
}

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(*cobra.Command, []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if err := migrations.Up(cfg.Database.ConnectionString); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Println("migrations applied")
			return nil
		},
	}
}

func buildPresigner(ctx context.Context, cfg *config.Config) (agent.Presigner, error) {
	switch cfg.Thumbnails.Provider {
	case "s3":
		return thumbs.NewS3Presigner(ctx, thumbs.Options{
			Bucket:    cfg.Thumbnails.Bucket,
			Region:    cfg.Thumbnails.Region,
			Endpoint:  cfg.Thumbnails.Endpoint,
			AccessKey: cfg.Thumbnails.AccessKey,
			SecretKey: cfg.Thumbnails.SecretKey,
			Expiry:    time.Duration(cfg.Thumbnails.Expiry),
		})
	case "static":
		return &thumbs.StaticPresigner{BaseURL: cfg.Thumbnails.BaseURL}, nil
	case "", "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown thumbnail provider: %s", cfg.Thumbnails.Provider)
	}
}
