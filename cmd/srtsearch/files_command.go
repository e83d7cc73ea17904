package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"srt-search-server/internal"
)

func newFilesCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "files",
		Short: "List indexed video files and their segment counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			internal.SetupLogging(nil)

			app, _, closeDB, err := setupApp(*configFlag)
			if err != nil {
				return err
			}
			defer closeDB()

			files, err := app.ListFiles(cmd.Context())
			if err != nil {
				return err
			}
			if len(files) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No indexed videos. Run `srtsearch index` first.")
				return nil
			}

			rows := make([][]string, 0, len(files))
			for _, f := range files {
				subtitle := "no"
				if f.HasSrt {
					subtitle = "yes"
				}
				rows = append(rows, []string{
					f.Basename, f.Ext, f.RelPath, subtitle, strconv.Itoa(f.SegmentCount),
				})
			}

			headers := []string{"Basename", "Ext", "Path", "Subtitle", "Segments"}
			aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, aligns))
			return nil
		},
	}
}
