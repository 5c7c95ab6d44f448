package checks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-at-pretension-io/rtl-hier/internal/config"
	"github.com/robert-at-pretension-io/rtl-hier/internal/facts"
	"github.com/robert-at-pretension-io/rtl-hier/internal/validator"
)

func fixtureTables() facts.Tables {
	return facts.Tables{
		Top: "top",
		Files: []facts.FileRow{
			{Path: "top.v", Module: "top"},
			{Path: "leaf.v", Module: "leaf"},
		},
		Skipped: []facts.SkippedRow{
			{Path: "bad.v", Kind: "parse_error", Message: "no module declaration"},
		},
		Modules: []facts.ModuleRow{
			{Name: "top", File: "top.v", IsTop: true, PortStyle: "ansi"},
			{Name: "leaf", File: "leaf.v", PortStyle: "ansi"},
			{Name: "orphan", File: "orphan.v", PortStyle: "none"},
		},
		Ports: []facts.PortRow{
			{Module: "top", Name: "clk", Direction: "input", Width: "1", IsClock: true, File: "top.v"},
			{Module: "leaf", Name: "clk", Direction: "input", Width: "1", IsClock: true, File: "leaf.v"},
			{Module: "leaf", Name: "d", Direction: "input", Width: "1", Position: 1, File: "leaf.v"},
		},
		Instances: []facts.InstanceRow{
			{Parent: "top", Name: "u_ok", Module: "leaf", Confidence: "high", File: "top.v"},
			{Parent: "top", Name: "u_open", Module: "leaf", Confidence: "low", File: "top.v"},
			{Parent: "top", Name: "u_ip", Module: "vendor_pll", Confidence: "high", File: "top.v"},
		},
		Bindings: []facts.BindingRow{
			{Parent: "top", Instance: "u_ok", Port: "clk", Kind: "net", Value: "clk", File: "top.v"},
		},
		Connections: []facts.ConnectionRow{
			{SrcModule: "top", SrcPort: "clk", DstModule: "u_ok", DstPort: "clk", File: "top.v"},
			{SrcModule: "top", SrcPort: "clk", DstModule: "ghost", DstPort: "o", File: "top.v"},
		},
		Conflicts: []facts.ConflictRow{
			{Module: "leaf", Kept: "leaf.v", Dropped: "old/leaf.v"},
		},
	}
}

func rulesOf(r *Result) map[string]int {
	out := map[string]int{}
	for _, v := range r.Violations {
		out[v.Rule]++
	}
	return out
}

func TestBuiltinRules(t *testing.T) {
	ctx := context.Background()
	engine, err := New(ctx)
	require.NoError(t, err)

	result, err := engine.Evaluate(ctx, fixtureTables(), "run-1")
	require.NoError(t, err)

	assert.Equal(t, map[string]int{
		"unknown_module":          1,
		"low_confidence_instance": 1,
		"dangling_connection":     1,
		"unmapped_module":         1,
		"unbound_clock":           1,
		"module_conflict":         1,
		"skipped_file":            1,
	}, rulesOf(result))
	assert.Equal(t, "run-1", result.RunID)
	assert.Equal(t, "top", result.Top)
	assert.Equal(t, Summary{Total: 7, Warnings: 5, Info: 2}, result.Summary)
	assert.False(t, result.HasErrors())

	for _, v := range result.Violations {
		if v.Rule == "unbound_clock" {
			assert.Contains(t, v.Message, "u_open")
		}
	}
}

func TestSeverityOverrides(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultConfig()
	cfg.Checks.Rules["unknown_module"] = "error"
	cfg.Checks.Rules["skipped_file"] = "off"

	engine, err := New(ctx, WithConfig(cfg))
	require.NoError(t, err)
	result, err := engine.Evaluate(ctx, fixtureTables(), "")
	require.NoError(t, err)

	rules := rulesOf(result)
	assert.NotContains(t, rules, "skipped_file")
	assert.True(t, result.HasErrors())
	assert.Equal(t, 1, result.Summary.Errors)
	assert.Equal(t, 6, result.Summary.Total)
}

func TestCleanDesign(t *testing.T) {
	ctx := context.Background()
	engine, err := New(ctx)
	require.NoError(t, err)

	tables := facts.Tables{
		Top:     "top",
		Files:   []facts.FileRow{{Path: "top.v", Module: "top"}},
		Modules: []facts.ModuleRow{{Name: "top", File: "top.v", IsTop: true, PortStyle: "none"}},
	}
	result, err := engine.Evaluate(ctx, tables, "")
	require.NoError(t, err)
	assert.Empty(t, result.Violations)
	assert.NotNil(t, result.Violations)
}

func TestExtraModule(t *testing.T) {
	ctx := context.Background()
	custom := `package rtl.checks

import rego.v1

violations contains v if {
	some m in input.modules
	m.port_style == "non_ansi"
	v := {"rule": "legacy_ports", "severity": "info", "module": m.name, "file": m.file, "message": "non-ANSI port list"}
}
`
	engine, err := New(ctx, WithModule("custom.rego", custom))
	require.NoError(t, err)

	tables := facts.Tables{
		Top:     "old",
		Files:   []facts.FileRow{{Path: "old.v", Module: "old"}},
		Modules: []facts.ModuleRow{{Name: "old", File: "old.v", IsTop: true, PortStyle: "non_ansi"}},
	}
	result, err := engine.Evaluate(ctx, tables, "")
	require.NoError(t, err)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, "legacy_ports", result.Violations[0].Rule)
}

func TestBadModule(t *testing.T) {
	_, err := New(context.Background(), WithModule("broken.rego", "package rtl.checks\nviolations contains"))
	assert.Error(t, err)
}

func TestResultMatchesSchema(t *testing.T) {
	ctx := context.Background()
	engine, err := New(ctx)
	require.NoError(t, err)
	result, err := engine.Evaluate(ctx, fixtureTables(), "run-2")
	require.NoError(t, err)

	v, err := validator.New()
	require.NoError(t, err)
	assert.NoError(t, v.ValidateResult(result))
}
