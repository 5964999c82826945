package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/airadev/newsroom/internal/preview"
)

func newPreviewCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Preview the latest draft and approve, queue or discard it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store := draftStore(cfg)

			if path == "" {
				path, err = store.Latest()
				if err != nil {
					return fmt.Errorf("no draft to preview: %w", err)
				}
			}
			d, err := store.Load(path)
			if err != nil {
				return err
			}

			sender, subs, err := buildSender(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if subs != nil {
				defer subs.Close()
			}

			srv := preview.NewServer(cfg, store, sender, path, d)
			decision, err := srv.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Preview closed: %s\n", decision)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "draft", "", "draft file to preview (default: most recent)")
	return cmd
}
