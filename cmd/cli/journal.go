package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var journalLimit int

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect the finalize attempt journal",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		if err = cmd.Usage(); err != nil {
			return
		}
		return
	},
	PersistentPreRunE: initHandler,
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent finalize attempts, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		defer stopHandler()
		entries, err := fgHandler.Journal.List(cmd.Context(), journalLimit)
		if err != nil {
			return err
		}
		fmt.Printf("|%-36s|%-25s|%-24s|%-64s|\n", "ID", "Reason", "Date", "Destination")
		for _, entry := range entries {
			fmt.Printf("|%-36s|%-25s|%-24s|%-64s|\n", entry.AttemptID, entry.Reason, entry.CreatedAt.Format("2006-01-02 15:04:05"), entry.Destination)
		}
		return nil
	},
}

var journalExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Ship recent finalize attempts to the configured S3 bucket",
	RunE: func(cmd *cobra.Command, args []string) error {
		defer stopHandler()
		key, err := fgHandler.ExportJournal(cmd.Context(), journalLimit)
		if err != nil {
			return err
		}
		fmt.Printf("journal exported to %s\n", key)
		return nil
	},
}

func init() {
	journalCmd.PersistentFlags().IntVar(&journalLimit, "limit", 0, "maximum number of attempts to consider (0 means all)")
}
