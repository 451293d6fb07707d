package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var quarantineCmd = &cobra.Command{
	Use:   "quarantine",
	Short: "Handle files sealed by a blocking inspection",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		if err = cmd.Usage(); err != nil {
			return
		}
		return
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if conf.Quarantine.Location == "" {
			return errors.New("quarantine location is mandatory")
		}
		return initHandler(cmd, args)
	},
}

var quarantineListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sealed files",
	RunE: func(cmd *cobra.Command, args []string) error {
		defer stopHandler()
		entries, err := fgHandler.Quarantiner.List(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("|%-36s|%-25s|%-64s|\n", "ID", "Verdict", "File")
		for _, entry := range entries {
			fmt.Printf("|%-36s|%-25s|%-64s|\n", entry.ID, entry.Verdict, filepath.Base(entry.OriginalPath))
		}
		return nil
	},
}

var quarantineRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore sealed files to their original location",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		defer stopHandler()
		for _, id := range args {
			id = strings.TrimSuffix(filepath.Base(id), ".sealed")
			if err := fgHandler.Quarantiner.Restore(cmd.Context(), id); err != nil {
				return err
			}
		}
		return nil
	},
}
