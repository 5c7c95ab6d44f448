package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/rtl-hier/internal/assembler"
	"github.com/robert-at-pretension-io/rtl-hier/internal/config"
	"github.com/robert-at-pretension-io/rtl-hier/internal/extractor"
)

func newScanCmd(a *app) *cobra.Command {
	var asJSON bool
	var metricsFile string

	cmd := &cobra.Command{
		Use:   "scan <dir>",
		Short: "Assemble the design hierarchy under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := args[0]
			cfg, err := a.loadConfig(root)
			if err != nil {
				return err
			}

			var reg *prometheus.Registry
			var metrics *assembler.Metrics
			if metricsFile != "" {
				reg = prometheus.NewRegistry()
				metrics = assembler.NewMetrics(reg)
			}

			h, err := a.assemble(cmd.Context(), root, cfg, metrics)
			if reg != nil {
				if werr := prometheus.WriteToTextfile(metricsFile, reg); werr != nil {
					return fmt.Errorf("writing metrics: %w", werr)
				}
			}
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), h)
			}
			printSummary(cmd.OutOrStdout(), h)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the hierarchy as JSON")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics in text format to this file")
	return cmd
}

func (a *app) assemble(ctx context.Context, root string, cfg *config.Config, metrics *assembler.Metrics) (*assembler.Hierarchy, error) {
	opts := []assembler.Option{assembler.WithConfig(cfg), assembler.WithLogger(a.logger)}
	if metrics != nil {
		opts = append(opts, assembler.WithMetrics(metrics))
	}
	return assembler.New(opts...).Assemble(ctx, root)
}

func printSummary(w io.Writer, h *assembler.Hierarchy) {
	fmt.Fprintf(w, "Top module: %s (%s)\n", h.TopModule.Name, h.FileMapping[h.TopModule.Name])
	fmt.Fprintf(w, "Modules: %d  Files: %d  Skipped: %d\n\n", len(h.Submodules)+1, h.Report.Files, len(h.Report.Skipped))

	printTree(w, h)

	if len(h.ClockDomains) > 0 {
		fmt.Fprintln(w, "\nClock domains:")
		nets := make([]string, 0, len(h.ClockDomains))
		for net := range h.ClockDomains {
			nets = append(nets, net)
		}
		sort.Strings(nets)
		for _, net := range nets {
			fmt.Fprintf(w, "  %s: %s\n", net, strings.Join(h.ClockDomains[net], ", "))
		}
	}
	if len(h.Connections) > 0 {
		fmt.Fprintln(w, "\nCross-module connections:")
		for _, c := range h.Connections {
			fmt.Fprintf(w, "  %s.%s -> %s.%s\n", c.SrcModule, c.SrcPort, c.DstModule, c.DstPort)
		}
	}
	for _, s := range h.Report.Skipped {
		fmt.Fprintf(w, "skipped %s: %s\n", s.Path, s.Message)
	}
	for _, warning := range h.Report.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
}

// printTree prints the instance tree below the top module. A module
// already on the current path is printed once and not expanded.
func printTree(w io.Writer, h *assembler.Hierarchy) {
	onPath := map[string]bool{}
	var walk func(m *extractor.ModuleInfo, depth int)
	walk = func(m *extractor.ModuleInfo, depth int) {
		onPath[m.Name] = true
		defer delete(onPath, m.Name)
		for _, inst := range m.InstanceNames() {
			typ := m.Instances[inst]
			child, known := h.Module(typ)
			suffix := ""
			switch {
			case !known:
				suffix = " (external)"
			case onPath[typ]:
				suffix = " (cycle)"
			}
			fmt.Fprintf(w, "%s%s: %s%s\n", strings.Repeat("  ", depth), inst, typ, suffix)
			if known && !onPath[typ] {
				walk(child, depth+1)
			}
		}
	}
	fmt.Fprintln(w, h.TopModule.Name)
	walk(h.TopModule, 1)
}
