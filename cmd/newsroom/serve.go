package main

import (
	"github.com/spf13/cobra"

	"github.com/airadev/newsroom/internal/mail"
	"github.com/airadev/newsroom/internal/server"
	"github.com/airadev/newsroom/internal/subscriber"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the public read API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Address = addr
			}
			store := draftStore(cfg)

			var subs *subscriber.Store
			var notifier *mail.Notifier
			if cfg.Storage.Postgres.Enabled() {
				subs, err = subscriber.New(cmd.Context(), cfg.Storage.Postgres)
				if err != nil {
					return err
				}
				defer subs.Close()
				notifier = mail.NewNotifier(cfg.Email, mail.NewGmailClient(cfg.Email), store)
			}

			return server.New(cfg, store, subs, notifier).Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}
