package cli

import (
	"fmt"

	"github.com/fetchguard/finalizer/pkg/config"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print finalizer version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fgfinalize version: %s\n", config.Version)
	},
}
