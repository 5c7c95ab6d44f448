package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/robert-at-pretension-io/rtl-hier/internal/assembler"
	"github.com/robert-at-pretension-io/rtl-hier/internal/checks"
	"github.com/robert-at-pretension-io/rtl-hier/internal/extractor"
	"github.com/robert-at-pretension-io/rtl-hier/internal/facts"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&app{logger: zap.NewNop()})
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func project(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"top.v":  "module top(input clk, input rst);\n  core u_core(.clk(clk), .rst(rst));\n  vendor_pll u_pll(.ref_in(clk));\nendmodule\n",
		"core.v": "module core(input clk, input rst);\n  leaf u_leaf(.clk(clk));\nendmodule\n",
		"leaf.v": "module leaf(input clk); endmodule\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0o644))
	}
	return root
}

func TestScanSummary(t *testing.T) {
	out, err := run(t, "scan", project(t))
	require.NoError(t, err)
	assert.Contains(t, out, "Top module: top")
	assert.Contains(t, out, "  u_core: core\n    u_leaf: leaf\n")
	assert.Contains(t, out, "u_pll: vendor_pll (external)")
	assert.Contains(t, out, "clk: u_core, u_core.u_leaf")
}

func TestScanJSONAndMetrics(t *testing.T) {
	root := project(t)
	metrics := filepath.Join(t.TempDir(), "rtlscan.prom")

	out, err := run(t, "scan", "--json", "--metrics-file", metrics, root)
	require.NoError(t, err)

	var decoded struct {
		TopModule struct {
			Name string `json:"name"`
		} `json:"top_module"`
		ClockDomains map[string][]string `json:"clock_domains"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "top", decoded.TopModule.Name)
	assert.Equal(t, []string{"u_core", "u_core.u_leaf"}, decoded.ClockDomains["clk"])

	prom, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `rtlscan_assemblies_total{result="ok"} 1`)
}

func TestScanAmbiguous(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.v"), []byte("module a; endmodule"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.v"), []byte("module b; endmodule"), 0o644))

	_, err := run(t, "scan", root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a, b")
}

func TestExtract(t *testing.T) {
	root := project(t)
	out, err := run(t, "extract", filepath.Join(root, "core.v"))
	require.NoError(t, err)

	var mod extractor.ModuleInfo
	require.NoError(t, json.Unmarshal([]byte(out), &mod))
	assert.Equal(t, "core", mod.Name)
	assert.Equal(t, map[string]string{"u_leaf": "leaf"}, mod.Instances)
	assert.Equal(t, []string{"clk"}, mod.ClockCandidates)

	_, err = run(t, "extract", filepath.Join(root, "missing.v"))
	assert.True(t, errors.Is(err, extractor.ErrNotFound))
}

func TestFactsWithDelta(t *testing.T) {
	root := project(t)
	dir := t.TempDir()
	first := filepath.Join(dir, "first.json")
	delta := filepath.Join(dir, "delta.json")

	_, err := run(t, "facts", "-o", first, root)
	require.NoError(t, err)
	tables, err := readTables(first)
	require.NoError(t, err)
	assert.Equal(t, "top", tables.Top)
	assert.Len(t, tables.Modules, 3)

	require.NoError(t, os.WriteFile(filepath.Join(root, "leaf.v"), []byte("module leaf(input clk, input en); endmodule\n"), 0o644))
	_, err = run(t, "facts", "-o", filepath.Join(dir, "second.json"), "--delta-from", first, "--delta-out", delta, root)
	require.NoError(t, err)

	raw, err := os.ReadFile(delta)
	require.NoError(t, err)
	var d facts.Delta
	require.NoError(t, json.Unmarshal(raw, &d))
	require.Len(t, d.Added.Ports, 1)
	assert.Equal(t, "en", d.Added.Ports[0].Name)
	assert.Empty(t, d.Removed.Ports)

	_, err = run(t, "facts", "--delta-from", first, root)
	assert.Error(t, err)
}

func TestCheckExitCode(t *testing.T) {
	root := project(t)

	out, err := run(t, "check", "--json", root)
	require.NoError(t, err)
	var result checks.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Len(t, result.Violations, 1)
	assert.Equal(t, "unknown_module", result.Violations[0].Rule)

	cfgPath := filepath.Join(t.TempDir(), "strict.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("checks:\n  rules:\n    unknown_module: error\n"), 0o644))
	out, err = run(t, "check", "--config", cfgPath, root)
	var exit *exitError
	require.True(t, errors.As(err, &exit))
	assert.Equal(t, 1, exit.code)
	assert.Contains(t, out, "error [unknown_module]")
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rtlscan.yaml")

	out, err := run(t, "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Created "+path)

	_, err = run(t, "init", path)
	assert.Error(t, err)
	_, err = run(t, "init", "--force", path)
	assert.NoError(t, err)
}

func TestPrintImpact(t *testing.T) {
	root := project(t)
	leaf := filepath.Join(root, "leaf.v")

	prev, err := assembler.AssembleHierarchy(context.Background(), root)
	require.NoError(t, err)

	var out bytes.Buffer
	printImpact(&out, prev, prev, []string{leaf})
	assert.Equal(t, "Impact:\n  leaf\n    level 1 (1): core\n    level 2 (1): top\nAffected modules: core, top\n", out.String())

	require.NoError(t, os.Remove(leaf))
	next, err := assembler.AssembleHierarchy(context.Background(), root)
	require.NoError(t, err)

	out.Reset()
	printImpact(&out, prev, next, []string{leaf})
	assert.Equal(t, "Impact:\n  leaf (removed)\n", out.String())

	out.Reset()
	printImpact(&out, prev, next, []string{filepath.Join(root, "notes.txt")})
	assert.Empty(t, out.String())
}
