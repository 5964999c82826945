package main

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/airadev/newsroom/config"
	"github.com/airadev/newsroom/internal/draft"
	"github.com/airadev/newsroom/internal/llm"
	"github.com/airadev/newsroom/internal/mail"
	"github.com/airadev/newsroom/internal/search"
	"github.com/airadev/newsroom/internal/subscriber"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:          "newsroom",
		Short:        "Generate, approve and deliver an email newsletter",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	root.AddCommand(newGenerateCmd())
	root.AddCommand(newPreviewCmd())
	root.AddCommand(newScheduleCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newSubscribersCmd())
	root.AddCommand(newMigrateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

func buildPipelineDeps(cfg *config.Config) (llm.Provider, search.Searcher, error) {
	provider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		return nil, nil, err
	}
	searcher, err := search.NewSearcher(cfg.Search)
	if err != nil {
		return nil, nil, err
	}
	return provider, searcher, nil
}

// buildSender wires the Gmail transport plus the subscriber store when one is
// configured. The returned store may be nil; callers must Close it otherwise.
func buildSender(ctx context.Context, cfg *config.Config) (*mail.Sender, *subscriber.Store, error) {
	gmail := mail.NewGmailClient(cfg.Email)
	var subs *subscriber.Store
	var source mail.SubscriberSource
	if cfg.Storage.Postgres.Enabled() {
		var err error
		subs, err = subscriber.New(ctx, cfg.Storage.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting subscriber store: %w", err)
		}
		source = subs
	}
	return mail.NewSender(cfg.Email, gmail, source), subs, nil
}

func buildRedis(cfg *config.Config) *redis.Client {
	if !cfg.Storage.Redis.Enabled() {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Storage.Redis.Addr(),
		Password: cfg.Storage.Redis.Pass,
		DB:       cfg.Storage.Redis.DB,
	})
}

func draftStore(cfg *config.Config) *draft.Store {
	return draft.NewStore(cfg.Storage.DraftsDir)
}
