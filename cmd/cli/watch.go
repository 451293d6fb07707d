package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the intake directory and finalize downloads as they complete",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		logger.Debug("config", slog.Any("config", conf))
		if len(args) == 1 {
			conf.Intake = args[0]
		}
		if err = initHandler(cmd, args); err != nil {
			return
		}
		if err = fgHandler.Start(cmd.Context()); err != nil {
			return fmt.Errorf("could not start finalizer, err: %w", err)
		}
		defer stopHandler()
		<-cmd.Context().Done()
		return
	},
	Args: cobra.MaximumNArgs(1),
}
