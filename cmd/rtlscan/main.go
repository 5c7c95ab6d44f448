// Command rtlscan extracts Verilog/SystemVerilog module interfaces and
// assembles them into a project-wide design hierarchy.
//
// Pipeline:
//  1. config selects the source units under a root
//  2. extractor pulls the first module out of each unit
//  3. assembler merges them, infers the top and derives connectivity
//  4. facts flattens the hierarchy into relational tables
//  5. validator checks tables and results against the CUE contract
//  6. checks evaluates the Rego rules over the tables
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/robert-at-pretension-io/rtl-hier/internal/config"
)

// exitError carries a process exit code without an error message.
type exitError struct{ code int }

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

type app struct {
	verbose    bool
	configPath string
	logger     *zap.Logger
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "rtlscan",
		Short:         "Extract module interfaces and assemble RTL design hierarchies",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.logger != nil {
				return nil
			}
			cfg := zap.NewProductionConfig()
			if a.verbose {
				cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			logger, err := cfg.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Configuration file (default: search rtlscan.yaml)")

	root.AddCommand(
		newScanCmd(a),
		newExtractCmd(a),
		newFactsCmd(a),
		newCheckCmd(a),
		newWatchCmd(a),
		newInitCmd(a),
	)
	return root
}

// loadConfig reads --config if given, otherwise searches from root. A
// failed search falls back to defaults.
func (a *app) loadConfig(root string) (*config.Config, error) {
	if a.configPath != "" {
		cfg, err := config.LoadFile(a.configPath)
		if err != nil {
			return nil, fmt.Errorf("loading config %s: %w", a.configPath, err)
		}
		return cfg, nil
	}
	cfg, err := config.Load(root)
	if err != nil {
		a.logger.Warn("could not load config, using defaults", zap.Error(err))
		return config.DefaultConfig(), nil
	}
	return cfg, nil
}

func writeJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func writeJSONFile(path string, data any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeJSON(f, data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(&app{}).ExecuteContext(ctx)
	stop()

	var exit *exitError
	switch {
	case err == nil:
	case errors.As(err, &exit):
		os.Exit(exit.code)
	default:
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
