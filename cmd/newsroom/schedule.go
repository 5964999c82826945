package main

import (
	"github.com/spf13/cobra"

	"github.com/airadev/newsroom/internal/mail"
	"github.com/airadev/newsroom/internal/scheduler"
)

func newScheduleCmd() *cobra.Command {
	var runNow bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the approved-draft send scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store := draftStore(cfg)
			sender, subs, err := buildSender(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if subs != nil {
				defer subs.Close()
			}
			notifier := mail.NewNotifier(cfg.Email, mail.NewGmailClient(cfg.Email), store)

			sched := scheduler.New(cfg, store, sender, notifier, buildRedis(cfg))
			if runNow {
				sched.RunNow(cmd.Context())
				return nil
			}
			sched.Start(cmd.Context())
			return nil
		},
	}
	cmd.Flags().BoolVar(&runNow, "run-now", false, "sweep approved drafts immediately and exit")
	return cmd
}
