package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"sfc/internal/config"
	"sfc/internal/executor"
	"sfc/internal/mover"
	"sfc/internal/planner"
	"sfc/internal/scanner"
)

func newClassifyCommand(ctx *commandContext) *cobra.Command {
	var (
		dryRun       bool
		assumeYes    bool
		strategyFlag string
		asIsFlag     []string
		onlyFlag     []string
	)

	cmd := &cobra.Command{
		Use:   "classify SOURCE DEST",
		Short: "Scan SOURCE and move its files into categorized folders under DEST",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(asIsFlag) > 0 && len(onlyFlag) > 0 {
				return fmt.Errorf("--as-is and --only are mutually exclusive")
			}
			strategy, err := mover.ParseStrategy(strategyFlag)
			if err != nil {
				return err
			}

			source, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve source path: %w", err)
			}
			dest, err := config.ExpandPath(args[1])
			if err != nil {
				return fmt.Errorf("resolve destination path: %w", err)
			}

			eng, err := ctx.ensureEngine()
			if err != nil {
				return err
			}

			items, err := eng.Scan(source)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to classify")
				return nil
			}

			var plan []planner.Entry
			switch {
			case len(asIsFlag) > 0:
				selected, err := selectItems(items, source, asIsFlag)
				if err != nil {
					return err
				}
				plan = eng.GenerateAdvancedPlan(items, selected, dest, planner.ModeMoveAsIs)
			case len(onlyFlag) > 0:
				selected, err := selectItems(items, source, onlyFlag)
				if err != nil {
					return err
				}
				plan = eng.GenerateAdvancedPlan(items, selected, dest, planner.ModeClassifySelected)
			default:
				plan = eng.GeneratePlan(items, dest)
			}

			out := cmd.OutOrStdout()
			if dryRun {
				printPlan(out, plan)
				printUnresolved(out, eng.Unresolved())
				return nil
			}

			if !assumeYes && !confirmExecution(cmd.InOrStdin(), out, len(plan)) {
				fmt.Fprintln(out, "Aborted")
				return nil
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			color := shouldColorize(out)
			summary, err := eng.ExecutePlan(runCtx, plan, strategy, func(p executor.Progress) {
				if p.Percent < 0 {
					fmt.Fprintf(out, "[ ---] %s\n", p.Status)
					return
				}
				status := p.Status
				switch status {
				case "MOVED":
					status = colorize(status, ansiGreen, color)
				case "ERROR":
					status = colorize(status, ansiRed, color)
				}
				fmt.Fprintf(out, "[%3d%%] %-18s %s\n", p.Percent, status, p.Name)
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Moved %d, skipped %d, failed %d\n",
				summary.Moved, summary.Skipped, summary.Failed)
			if summary.Cancelled {
				fmt.Fprintln(out, "Run was cancelled; use `sfc undo` to revert completed moves")
			}
			printUnresolved(out, eng.Unresolved())
			return nil
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Print the plan without moving anything")
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Execute without asking for confirmation")
	cmd.Flags().StringVarP(&strategyFlag, "strategy", "s", "append", "Duplicate handling: append, skip, or replace")
	cmd.Flags().StringArrayVar(&asIsFlag, "as-is", nil, "Move the named item verbatim instead of classifying it (repeatable)")
	cmd.Flags().StringArrayVar(&onlyFlag, "only", nil, "Classify only the named item (repeatable)")
	return cmd
}

// selectItems resolves user-supplied names against the scanned items. Names
// are matched as paths relative to the source root, falling back to the base
// name.
func selectItems(items []scanner.Item, sourceRoot string, names []string) ([]scanner.Item, error) {
	byRel := make(map[string]scanner.Item, len(items))
	byBase := make(map[string]scanner.Item, len(items))
	for _, item := range items {
		if rel, err := filepath.Rel(sourceRoot, item.Path); err == nil {
			byRel[rel] = item
		}
		byBase[filepath.Base(item.Path)] = item
	}

	selected := make([]scanner.Item, 0, len(names))
	for _, name := range names {
		if item, ok := byRel[filepath.Clean(name)]; ok {
			selected = append(selected, item)
			continue
		}
		if item, ok := byBase[name]; ok {
			selected = append(selected, item)
			continue
		}
		return nil, fmt.Errorf("no scanned item matches %q", name)
	}
	return selected, nil
}

// confirmExecution asks before moving files, but only when run interactively;
// piped input proceeds without a prompt.
func confirmExecution(in io.Reader, out io.Writer, moves int) bool {
	file, ok := in.(*os.File)
	if !ok || !isatty.IsTerminal(file.Fd()) {
		return true
	}
	fmt.Fprintf(out, "Execute %d moves? [y/N]: ", moves)
	reader := bufio.NewReader(in)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// previewRows caps the dry-run table; large plans list a remainder line.
const previewRows = 20

func printPlan(out io.Writer, plan []planner.Entry) {
	rows := make([][]string, 0, min(len(plan), previewRows))
	for i, entry := range plan {
		if i == previewRows {
			break
		}
		rows = append(rows, []string{filepath.Base(entry.Source), entry.DestinationDir})
	}
	fmt.Fprintln(out, renderTable([]string{"Item", "Destination"}, rows, nil))
	if extra := len(plan) - previewRows; extra > 0 {
		fmt.Fprintf(out, "... and %d more\n", extra)
	}
	fmt.Fprintf(out, "%d planned moves\n", len(plan))
}

func printUnresolved(out io.Writer, unresolved []scanner.Item) {
	if len(unresolved) == 0 {
		return
	}
	fmt.Fprintf(out, "%d items had no matching rule:\n", len(unresolved))
	for _, item := range unresolved {
		fmt.Fprintf(out, "  %s\n", filepath.Base(item.Path))
	}
	fmt.Fprintln(out, "Teach new rules with `sfc knowledge add`")
}
