package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"rgehrsitz/acrex/internal/preprocessor"
	"rgehrsitz/acrex/internal/rules"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newRulesCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the active rules in evaluation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, rs, err := root.loadRules(cmd)
			if err != nil {
				return err
			}
			return printRules(cmd.OutOrStdout(), preprocessor.PrioritizeRules(rs))
		},
	}
}

func printRules(w io.Writer, ordered []*rules.Rule) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PRIORITY\tNAME\tCONDITIONS\tMODE\tFAN\tSETPOINT")
	for _, r := range ordered {
		conds := make([]string, len(r.Conditions))
		for i, c := range r.Conditions {
			conds[i] = c.String()
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			r.Priority, r.Name, strings.Join(conds, " AND "), r.Action.Mode, r.Action.FanSpeed, r.Action.SetpointString())
	}
	return tw.Flush()
}

func newValidateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [rules-file]",
		Short: "Validate a rule file and report rules that can never fire",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				root.rulesPath = args[0]
			}
			out := cmd.OutOrStdout()
			cfg, rs, err := root.loadRules(cmd)
			if err != nil {
				for _, p := range preprocessor.ValidationProblems(err) {
					fmt.Fprintf(out, "%s %s\n", color.RedString("error:"), p)
				}
				return err
			}

			shadows, err := preprocessor.FindShadowedRules(rs)
			if err != nil {
				return err
			}
			for _, s := range shadows {
				fmt.Fprintf(out, "%s rule %q (priority %d) is shadowed by %q and can never be selected\n",
					color.YellowString("warning:"), s.Rule, s.Priority, s.By)
			}

			source := cfg.Rules.File
			if source == "" {
				source = "built-in rules"
			}
			fmt.Fprintf(out, "%s %s: %d rules\n", color.GreenString("ok:"), source, len(rs))
			return nil
		},
	}
}
