package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sfc/internal/config"
	"sfc/internal/rules"
)

func newKnowledgeCommand(ctx *commandContext) *cobra.Command {
	knowledgeCmd := &cobra.Command{
		Use:   "knowledge",
		Short: "Inspect and extend the classification knowledge base",
	}

	knowledgeCmd.AddCommand(newKnowledgeAddCommand(ctx))
	knowledgeCmd.AddCommand(newKnowledgeImportCommand(ctx))
	knowledgeCmd.AddCommand(newKnowledgeShowCommand(ctx))

	return knowledgeCmd
}

func newKnowledgeAddCommand(ctx *commandContext) *cobra.Command {
	var (
		category    string
		description string
		contains    string
	)

	cmd := &cobra.Command{
		Use:   "add KEY",
		Short: "Add a rule mapping an extension or file name to a category",
		Long: `Add a rule mapping an extension (".log") or exact file name ("makefile")
to a category. With --contains the rule becomes content-aware, letting the
same extension belong to several categories distinguished by a keyword in
the file's first bytes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := ctx.ensureEngine()
			if err != nil {
				return err
			}

			key := strings.TrimSpace(args[0])
			if key == "" {
				return fmt.Errorf("rule key must not be empty")
			}

			rule := rules.NewRule{
				Category:    strings.TrimSpace(category),
				Key:         key,
				Description: strings.TrimSpace(description),
			}
			if keyword := strings.TrimSpace(contains); keyword != "" {
				rule.Analysis = []rules.AnalysisRule{{
					Type:     rules.AnalysisTypeContentContains,
					Contains: []byte(keyword),
				}}
			}
			if rule.Category == "" {
				return fmt.Errorf("--category is required")
			}

			if err := eng.LearnRule(rule); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added rule: %s -> %s\n", key, rule.Category)
			return nil
		},
	}

	cmd.Flags().StringVarP(&category, "category", "C", "", "Destination category for the rule")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Human-readable rule description")
	cmd.Flags().StringVar(&contains, "contains", "", "Keyword that must appear in the file's first bytes")
	return cmd
}

func newKnowledgeImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE.csv",
		Short: "Bulk-import rules from a CSV file (category,key,description)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := ctx.ensureEngine()
			if err != nil {
				return err
			}

			path, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve import path: %w", err)
			}

			report, err := eng.ImportRules(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d rules, skipped %d rows\n",
				report.Imported, report.Skipped)
			return nil
		},
	}
}

func newKnowledgeShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "List the loaded categories and their rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := ctx.ensureEngine()
			if err != nil {
				return err
			}

			store := eng.Rules()
			rows := make([][]string, 0, store.Len())
			for _, category := range store.Categories() {
				keys := store.Keys(category)
				rows = append(rows, []string{
					categoryLabel(category),
					fmt.Sprintf("%d", len(keys)),
					strings.Join(keys, ", "),
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Category", "Rules", "Keys"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft},
			))
			fmt.Fprintf(out, "%d rules in %d categories (%d extensions, %d exact names)\n",
				store.Len(), len(store.Categories()), len(store.Extensions()), len(store.Names()))
			return nil
		},
	}
}
