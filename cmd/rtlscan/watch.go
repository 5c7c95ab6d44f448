package main

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/robert-at-pretension-io/rtl-hier/internal/assembler"
	"github.com/robert-at-pretension-io/rtl-hier/internal/facts"
	"github.com/robert-at-pretension-io/rtl-hier/internal/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Re-assemble on every source change and print the fact delta",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			root, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			cfg, err := a.loadConfig(root)
			if err != nil {
				return err
			}

			prev, err := a.assemble(ctx, root, cfg, nil)
			if err != nil {
				a.logger.Warn("initial assembly failed", zap.Error(err))
			}
			prevTables := facts.BuildTables(prev)

			w, err := watch.New(root, cfg, watch.WithDebounce(debounce), watch.WithLogger(a.logger))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Watching %s\n", root)

			return w.Run(ctx, func(paths []string) {
				next, err := a.assemble(ctx, root, cfg, nil)
				if err != nil {
					a.logger.Warn("re-assembly failed", zap.Error(err))
					return
				}
				tables := facts.BuildTables(next)
				delta := facts.ComputeDelta(prevTables, tables)
				if !delta.Empty() {
					if err := writeJSON(out, delta); err != nil {
						a.logger.Warn("writing delta", zap.Error(err))
					}
				}
				printImpact(out, prev, next, paths)
				prev, prevTables = next, tables
			})
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Quiet period before a change is processed")
	return cmd
}

// printImpact lists, for each module declared in a changed file, the
// modules that instantiate it directly or transitively.
func printImpact(w io.Writer, prev, next *assembler.Hierarchy, paths []string) {
	changed := map[string]bool{}
	for _, p := range paths {
		changed[p] = true
	}
	var mods []string
	for _, h := range []*assembler.Hierarchy{prev, next} {
		if h == nil {
			continue
		}
		for mod, file := range h.FileMapping {
			if changed[file] {
				mods = append(mods, mod)
			}
		}
	}
	if len(mods) == 0 {
		return
	}
	sort.Strings(mods)

	g := next.Graph()
	seen := map[string]bool{}
	affected := map[string]bool{}
	fmt.Fprintln(w, "Impact:")
	for _, mod := range mods {
		if seen[mod] {
			continue
		}
		seen[mod] = true
		if !g.HasNode(mod) {
			fmt.Fprintf(w, "  %s (removed)\n", mod)
			continue
		}
		report := g.Impact(mod)
		fmt.Fprint(w, report.String())
		for _, name := range report.Affected() {
			affected[name] = true
		}
	}
	if len(affected) > 0 {
		fmt.Fprintf(w, "Affected modules: %s\n", strings.Join(sortedKeys(affected), ", "))
	}
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
