package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/rtl-hier/internal/checks"
	"github.com/robert-at-pretension-io/rtl-hier/internal/facts"
	"github.com/robert-at-pretension-io/rtl-hier/internal/validator"
)

func newCheckCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "check <dir>",
		Short: "Run design checks; exits 1 when any error-severity violation is found",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			root := args[0]
			cfg, err := a.loadConfig(root)
			if err != nil {
				return err
			}
			h, err := a.assemble(ctx, root, cfg, nil)
			if err != nil {
				return err
			}

			v, err := validator.New()
			if err != nil {
				return err
			}
			tables := facts.BuildTables(h)
			if err := v.ValidateTables(tables); err != nil {
				return err
			}

			engine, err := checks.New(ctx, checks.WithConfig(cfg), checks.WithLogger(a.logger))
			if err != nil {
				return err
			}
			result, err := engine.Evaluate(ctx, tables, h.Report.RunID)
			if err != nil {
				return err
			}
			if err := v.ValidateResult(result); err != nil {
				return err
			}

			if asJSON {
				if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
					return err
				}
			} else {
				printResult(cmd.OutOrStdout(), result)
			}
			if result.HasErrors() {
				return &exitError{code: 1}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

func printResult(w io.Writer, r *checks.Result) {
	for _, v := range r.Violations {
		loc := v.File
		if v.Module != "" {
			loc = fmt.Sprintf("%s (%s)", v.File, v.Module)
		}
		fmt.Fprintf(w, "%s: %s [%s] %s\n", loc, v.Severity, v.Rule, v.Message)
	}
	fmt.Fprintf(w, "\n%d violations: %d errors, %d warnings, %d info\n",
		r.Summary.Total, r.Summary.Errors, r.Summary.Warnings, r.Summary.Info)
}
