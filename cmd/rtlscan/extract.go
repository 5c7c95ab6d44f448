package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/rtl-hier/internal/extractor"
)

func newExtractCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <file>",
		Short: "Extract the first module of one source file as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(filepath.Dir(args[0]))
			if err != nil {
				return err
			}
			ex := extractor.New(
				extractor.WithClockTokens(cfg.Extraction.ClockTokens...),
				extractor.WithResetTokens(cfg.Extraction.ResetTokens...),
			)
			mod, err := ex.ExtractFile(args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), mod)
		},
	}
}
