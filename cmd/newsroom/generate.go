package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/airadev/newsroom/internal/newsletter"
)

func newGenerateCmd() *cobra.Command {
	var tone string
	var audience string

	cmd := &cobra.Command{
		Use:   "generate <topic>",
		Short: "Generate a newsletter draft for a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if tone == "" {
				tone = cfg.Newsletter.DefaultTone
			}
			provider, searcher, err := buildPipelineDeps(cfg)
			if err != nil {
				return err
			}

			gen := newsletter.NewGenerator(cfg, provider, searcher)
			d, validation, err := gen.Generate(cmd.Context(), args[0], tone, audience)
			if err != nil {
				return err
			}

			path, err := draftStore(cfg).Save(d)
			if err != nil {
				return err
			}

			fmt.Printf("Draft saved: %s\n", path)
			fmt.Printf("Subject: %s\n", d.Metadata.Subject)
			fmt.Printf("Words: %d (range %d-%d)\n", validation.WordCount, validation.MinWords, validation.MaxWords)
			if validation.OverLimit {
				fmt.Println("Note: content was trimmed to the word limit")
			}
			if validation.UnderLimit {
				fmt.Println("Note: content is under the minimum word count")
			}
			fmt.Printf("Citations: %d\n", len(d.Citations))
			fmt.Printf("\nRun `newsroom preview` to review and approve.\n")
			return nil
		},
	}
	cmd.Flags().StringVar(&tone, "tone", "", "writing tone profile (default from config)")
	cmd.Flags().StringVar(&audience, "audience", "", "intended audience description")
	return cmd
}
