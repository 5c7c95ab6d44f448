package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/rtl-hier/internal/facts"
	"github.com/robert-at-pretension-io/rtl-hier/internal/validator"
)

func newFactsCmd(a *app) *cobra.Command {
	var output, deltaFrom, deltaOut string
	var only []string

	cmd := &cobra.Command{
		Use:   "facts <dir>",
		Short: "Emit the hierarchy as relational fact tables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (deltaFrom == "") != (deltaOut == "") {
				return fmt.Errorf("--delta-from and --delta-out must be used together")
			}
			root := args[0]
			cfg, err := a.loadConfig(root)
			if err != nil {
				return err
			}
			h, err := a.assemble(cmd.Context(), root, cfg, nil)
			if err != nil {
				return err
			}

			tables := facts.BuildTables(h)
			v, err := validator.New()
			if err != nil {
				return err
			}
			if err := v.ValidateTables(tables); err != nil {
				return err
			}
			if len(only) > 0 {
				tables = facts.FilterTablesByFiles(tables, fileSet(only))
			}

			if output != "" {
				if err := writeJSONFile(output, tables); err != nil {
					return fmt.Errorf("writing facts: %w", err)
				}
			} else if err := writeJSON(cmd.OutOrStdout(), tables); err != nil {
				return err
			}

			if deltaFrom != "" {
				prev, err := readTables(deltaFrom)
				if err != nil {
					return fmt.Errorf("reading delta-from: %w", err)
				}
				if err := writeJSONFile(deltaOut, facts.ComputeDelta(prev, tables)); err != nil {
					return fmt.Errorf("writing delta: %w", err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write facts JSON to file (default: stdout)")
	cmd.Flags().StringVar(&deltaFrom, "delta-from", "", "Previous facts JSON to compute a delta from")
	cmd.Flags().StringVar(&deltaOut, "delta-out", "", "Write delta JSON to file (requires --delta-from)")
	cmd.Flags().StringSliceVar(&only, "only", nil, "Keep only rows from these files")
	return cmd
}

func fileSet(paths []string) map[string]bool {
	set := make(map[string]bool, len(paths)*2)
	for _, p := range paths {
		set[p] = true
		if abs, err := filepath.Abs(p); err == nil {
			set[abs] = true
		}
	}
	return set
}

func readTables(path string) (facts.Tables, error) {
	f, err := os.Open(path)
	if err != nil {
		return facts.Tables{}, err
	}
	defer func() { _ = f.Close() }()

	var tables facts.Tables
	if err := json.NewDecoder(f).Decode(&tables); err != nil {
		return facts.Tables{}, err
	}
	return tables, nil
}
