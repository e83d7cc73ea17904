package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"srt-search-server/internal"
)

func newIndexCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "index [media-dir]",
		Short: "Rebuild the subtitle index from a media directory",
		Long: "Clears the index, rescans the media directory, and reloads every " +
			"video with its parsed subtitle segments. The directory defaults to " +
			"media_dir from the config.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			internal.SetupLogging(nil)

			app, config, closeDB, err := setupApp(*configFlag)
			if err != nil {
				return err
			}
			defer closeDB()

			mediaDir := config.MediaDir
			if len(args) == 1 {
				mediaDir = args[0]
			}
			if mediaDir == "" {
				return fmt.Errorf("no media directory given and media_dir is not configured")
			}

			summary, err := app.Reindex(cmd.Context(), mediaDir)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d/%d videos (%d skipped) from %s\n",
				summary.Indexed, summary.Total, summary.Skipped, mediaDir)
			return nil
		},
	}
}
