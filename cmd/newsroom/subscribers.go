package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/airadev/newsroom/config"
	"github.com/airadev/newsroom/internal/subscriber"
)

func newSubscribersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subscribers",
		Short: "Manage the mailing list",
	}
	cmd.AddCommand(newSubscribersAddCmd())
	cmd.AddCommand(newSubscribersListCmd())
	cmd.AddCommand(newSubscribersStatsCmd())
	cmd.AddCommand(newSubscribersImportCmd())
	return cmd
}

func openSubscribers(cmd *cobra.Command) (*subscriber.Store, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Storage.Postgres.Enabled() {
		return nil, nil, fmt.Errorf("subscriber store not configured (storage.postgres)")
	}
	store, err := subscriber.New(cmd.Context(), cfg.Storage.Postgres)
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}

func newSubscribersAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <email>",
		Short: "Subscribe an email address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openSubscribers(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			sub, err := store.Add(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Subscribed %s (status %s)\n", sub.Email, sub.Status)
			return nil
		},
	}
}

func newSubscribersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all subscribers",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openSubscribers(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			subs, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range subs {
				fmt.Printf("%-40s %-13s %s\n", s.Email, s.Status, s.SubscribedAt.Format("2006-01-02"))
			}
			fmt.Printf("%d subscriber(s)\n", len(subs))
			return nil
		},
	}
}

func newSubscribersStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show mailing list counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openSubscribers(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Total: %d\nActive: %d\nUnsubscribed: %d\n", stats.Total, stats.Active, stats.Unsubscribed)
			return nil
		},
	}
}

// import reads one address per line; blank lines and # comments are skipped.
func newSubscribersImportCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import subscribers from a file or the static recipient list",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, err := openSubscribers(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			var emails []string
			if file != "" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				scanner := bufio.NewScanner(f)
				for scanner.Scan() {
					line := strings.TrimSpace(scanner.Text())
					if line == "" || strings.HasPrefix(line, "#") {
						continue
					}
					emails = append(emails, line)
				}
				if err := scanner.Err(); err != nil {
					return err
				}
			} else {
				emails = cfg.Email.Recipients
			}

			n, err := store.MigrateFromList(cmd.Context(), emails)
			if err != nil {
				return err
			}
			fmt.Printf("Imported %d new subscriber(s) of %d given\n", n, len(emails))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "file with one email per line (default: config email.recipients)")
	return cmd
}
