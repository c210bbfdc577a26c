// Command wolfdis is a source-level analysis tool for WolfVM assembly: a
// formatter, a linter, and a cross-reference generator, each exposed as a
// subcommand.
package main

import (
	"fmt"
	"os"

	"github.com/lookbusy1344/wolfvm/tools"
	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "wolfdis",
		Short:   "Format, lint, and cross-reference WolfVM assembly source",
		Version: fmt.Sprintf("%s (%s)", Version, Commit),
	}

	rootCmd.AddCommand(newFormatCmd(), newLintCmd(), newXrefCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func readSource(path string) (string, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is a user-supplied CLI argument, by design
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

func newFormatCmd() *cobra.Command {
	var style string
	var write bool

	cmd := &cobra.Command{
		Use:   "format <file>",
		Short: "Format assembly source into its canonical textual form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			source, err := readSource(path)
			if err != nil {
				return err
			}

			var formatStyle tools.FormatStyle
			switch style {
			case "compact":
				formatStyle = tools.FormatCompact
			case "expanded":
				formatStyle = tools.FormatExpanded
			case "default", "":
				formatStyle = tools.FormatDefault
			default:
				return fmt.Errorf("unknown --style %q, expected default, compact, or expanded", style)
			}

			formatted, err := tools.FormatStringWithStyle(source, path, formatStyle)
			if err != nil {
				return err
			}

			if write {
				return os.WriteFile(path, []byte(formatted), 0600)
			}
			fmt.Print(formatted)
			return nil
		},
	}

	cmd.Flags().StringVar(&style, "style", "default", "Formatting style: default, compact, or expanded")
	cmd.Flags().BoolVarP(&write, "write", "w", false, "Write the formatted result back to the file instead of stdout")
	return cmd
}

func newLintCmd() *cobra.Command {
	var strict bool
	var noUnused bool
	var noReach bool
	var noRegUse bool
	var noSuggest bool

	cmd := &cobra.Command{
		Use:   "lint <file>",
		Short: "Check assembly source for likely mistakes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			source, err := readSource(path)
			if err != nil {
				return err
			}

			opts := tools.DefaultLintOptions()
			opts.Strict = strict
			opts.CheckUnused = !noUnused
			opts.CheckReach = !noReach
			opts.CheckRegUse = !noRegUse
			opts.SuggestFixes = !noSuggest

			linter := tools.NewLinter(opts)
			issues := linter.Lint(source, path)

			errorCount, warningCount := 0, 0
			for _, issue := range issues {
				fmt.Fprintf(cmd.OutOrStdout(), "%s:%s\n", path, issue.String())
				switch issue.Level {
				case tools.LintError:
					errorCount++
				case tools.LintWarning:
					warningCount++
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n%d error(s), %d warning(s)\n", errorCount, warningCount)

			if errorCount > 0 || (strict && warningCount > 0) {
				return fmt.Errorf("lint failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Treat warnings as errors")
	cmd.Flags().BoolVar(&noUnused, "no-unused", false, "Disable the unused-label check")
	cmd.Flags().BoolVar(&noReach, "no-reach", false, "Disable the unreachable-code check")
	cmd.Flags().BoolVar(&noRegUse, "no-reguse", false, "Disable the register-usage check")
	cmd.Flags().BoolVar(&noSuggest, "no-suggest", false, "Disable 'did you mean' suggestions")
	return cmd
}

func newXrefCmd() *cobra.Command {
	var onlyUndefined bool
	var onlyUnused bool

	cmd := &cobra.Command{
		Use:   "xref <file>",
		Short: "Generate a symbol cross-reference report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			source, err := readSource(path)
			if err != nil {
				return err
			}

			gen := tools.NewXRefGenerator()
			symbols, err := gen.Generate(source, path)
			if err != nil {
				return err
			}

			switch {
			case onlyUndefined:
				for _, sym := range gen.GetUndefinedSymbols() {
					fmt.Fprintln(cmd.OutOrStdout(), sym.Name)
				}
			case onlyUnused:
				for _, sym := range gen.GetUnusedSymbols() {
					fmt.Fprintln(cmd.OutOrStdout(), sym.Name)
				}
			default:
				report := tools.NewXRefReport(symbols)
				fmt.Fprint(cmd.OutOrStdout(), report.String())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&onlyUndefined, "undefined", false, "List only symbols referenced but never defined")
	cmd.Flags().BoolVar(&onlyUnused, "unused", false, "List only symbols defined but never referenced")
	return cmd
}
