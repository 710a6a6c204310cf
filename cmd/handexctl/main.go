// handexctl is the operator CLI: bulk ingestion and ad-hoc searches against
// the corpus, without going through the HTTP API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sidepot-cloud/handex/internal/config"
	"github.com/sidepot-cloud/handex/internal/db"
	dbRedis "github.com/sidepot-cloud/handex/internal/db/redis"
	"github.com/sidepot-cloud/handex/internal/domain"
	"github.com/sidepot-cloud/handex/internal/domain/chunk"
	"github.com/sidepot-cloud/handex/internal/domain/hand"
	logpkg "github.com/sidepot-cloud/handex/internal/logger"
	"github.com/sidepot-cloud/handex/internal/repository/embcache"
	"github.com/sidepot-cloud/handex/internal/repository/handstore"
	openaiTransport "github.com/sidepot-cloud/handex/internal/transport/openai"
	"github.com/sidepot-cloud/handex/internal/transport/rerank"
	embeddinguc "github.com/sidepot-cloud/handex/internal/usecase/embedding"
	ingestuc "github.com/sidepot-cloud/handex/internal/usecase/ingest"
	searchuc "github.com/sidepot-cloud/handex/internal/usecase/search"
	"github.com/sidepot-cloud/handex/internal/version"
)

func main() {
	root := &cobra.Command{
		Use:           "handexctl",
		Short:         "Operator CLI for the handex corpus",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newIngestCmd(), newSearchCmd(), newVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "handexctl %s (%s, built %s)\n",
				version.Version, version.Commit, version.Date)
		},
	}
}

func newIngestCmd() *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "ingest <hands.json>",
		Short: "Ingest a JSON array of hand records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			var recs []hand.Record
			if err := json.Unmarshal(data, &recs); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}
			if len(recs) == 0 {
				return fmt.Errorf("%s contains no hands", args[0])
			}

			env, err := newEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer env.close()

			svc := ingestuc.New(env.hands, env.orchestrator, env.logger)
			if workers > 0 {
				svc.WithConcurrency(workers)
			}
			if err := svc.IngestAll(cmd.Context(), recs); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d hands\n", len(recs))
			return nil
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 0, "parallel ingestion workers (default from config)")
	return cmd
}

func newSearchCmd() *cobra.Command {
	var (
		strategy    string
		nResults    int
		useReranker bool
		showHands   bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the corpus for similar hands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer env.close()

			opts := searchuc.Options{NResults: nResults, UseReranker: useReranker}
			if strategy != "" {
				s, err := chunk.ParseStrategy(strategy)
				if err != nil {
					return err
				}
				opts.Strategy = s
			}

			results, err := env.search.Search(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}

			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No similar hands found")
				return nil
			}
			for i, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "%2d. %-24s %.4f\n", i+1, r.HandID, r.Score)
			}
			if showHands {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(env.search.Hydrate(cmd.Context(), results))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&strategy, "strategy", "", "chunking strategy (street_based, component_based, hybrid)")
	cmd.Flags().IntVarP(&nResults, "n-results", "n", 0, "number of results (default 5)")
	cmd.Flags().BoolVar(&useReranker, "rerank", true, "apply the second-stage reranker when one is configured")
	cmd.Flags().BoolVar(&showHands, "show-hands", false, "print full hand records as JSON")
	return cmd
}

// runEnv bundles everything a subcommand needs against one config.
type runEnv struct {
	logger       *zap.Logger
	store        db.Store
	hands        handstore.Store
	orchestrator *embeddinguc.Orchestrator
	search       *searchuc.Service
}

func (e *runEnv) close() {
	if e.store != nil {
		e.store.Close()
	}
	_ = e.logger.Sync()
}

func newEnv(ctx context.Context) (*runEnv, error) {
	envName := config.GetEnv()
	cfg, err := config.Load(envName)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(envName, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	var kvStore db.Store
	if cfg.Database.Driver == "redis" {
		kvStore, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("create store: %w", err)
		}
		timeout := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
		if err := kvStore.WaitForReady(ctx, timeout); err != nil {
			kvStore.Close()
			return nil, fmt.Errorf("database not ready: %w", err)
		}
	}

	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})
	var embedder domain.BatchEmbedder = base
	if kvStore != nil {
		embedder = embcache.New(base, kvStore, cfg.Embedding.Model, nil, logger)
	}

	orchestrator := embeddinguc.NewOrchestrator(embedder, logger).
		WithBatchSizes(cfg.Embedding.QueryBatchSize, cfg.Embedding.DocBatchSize).
		WithQueryPrefix(cfg.Embedding.QueryPrefixRunes)

	var hands handstore.Store
	if kvStore != nil {
		hands = handstore.NewRedis(kvStore)
	} else {
		hands = handstore.NewMemory()
	}

	defaultStrategy, err := chunk.ParseStrategy(cfg.Search.DefaultStrategy)
	if err != nil {
		return nil, err
	}
	norm, err := searchuc.ParseNormalization(cfg.Search.Normalization)
	if err != nil {
		return nil, err
	}

	searchSvc := searchuc.New(hands, orchestrator, logger).
		WithDefaultStrategy(defaultStrategy).
		WithNormalization(norm).
		WithOversample(cfg.Search.Oversample)
	if cfg.Rerank.Enabled {
		searchSvc.WithReranker(rerank.NewClient(&rerank.Config{
			BaseURL: cfg.Rerank.BaseURL,
			APIKey:  cfg.Rerank.APIKey,
			Model:   cfg.Rerank.Model,
			Timeout: time.Duration(cfg.Rerank.TimeoutSec) * time.Second,
			Logger:  logger,
		}))
	}

	return &runEnv{
		logger:       logger,
		store:        kvStore,
		hands:        hands,
		orchestrator: orchestrator,
		search:       searchSvc,
	}, nil
}
