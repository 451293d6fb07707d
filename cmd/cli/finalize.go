package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fetchguard/finalizer/pkg/interrupt"
	"github.com/spf13/cobra"
)

var sourceURL string

var finalizeCmd = &cobra.Command{
	Use:   "finalize",
	Short: "Finalize completed downloads once",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		if err = initHandler(cmd, args); err != nil {
			return
		}
		defer stopHandler()
		interrupted := 0
		for _, arg := range args {
			reason, ferr := fgHandler.FinalizeFile(cmd.Context(), arg, sourceURL)
			if ferr != nil {
				logger.Error("error during finalization", slog.String("file", arg), slog.String("error", ferr.Error()))
				return ferr
			}
			fmt.Printf("%s: %s\n", arg, reason)
			if reason != interrupt.None {
				interrupted++
			}
		}
		if interrupted > 0 {
			err = fmt.Errorf("%d file(s) interrupted", interrupted)
		}
		return
	},
	Args: checkFiles,
}

func stopHandler() {
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if e := fgHandler.Stop(stopCtx); e != nil {
		logger.Error("error stopping finalizer", slog.String("error", e.Error()))
	}
}
