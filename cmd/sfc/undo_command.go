package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"sfc/internal/engine"
	"sfc/internal/journal"
)

func newUndoCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Revert the moves of the most recent classification run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := ctx.ensureEngine()
			if err != nil {
				return err
			}

			report, err := eng.Undo(cmd.Context())
			if errors.Is(err, engine.ErrNoJournal) {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to undo")
				return nil
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, outcome := range report.Outcomes {
				switch outcome.Status {
				case journal.UndoRestored:
					fmt.Fprintf(out, "restored  %s\n", outcome.RestoredPath)
				case journal.UndoSourceMissing:
					fmt.Fprintf(out, "missing   %s\n", outcome.Entry.Destination)
				case journal.UndoFailed:
					fmt.Fprintf(out, "failed    %s\n", filepath.Base(outcome.Entry.Source))
				}
			}
			fmt.Fprintf(out, "Restored %d, missing %d, failed %d\n",
				report.Restored, report.Missing, report.Failed)
			if report.Failed > 0 {
				fmt.Fprintln(out, "Failed entries were kept; run `sfc undo` again to retry")
			}
			return nil
		},
	}
}
