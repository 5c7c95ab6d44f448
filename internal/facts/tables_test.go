package facts

import (
	"testing"

	"github.com/robert-at-pretension-io/rtl-hier/internal/assembler"
	"github.com/robert-at-pretension-io/rtl-hier/internal/extractor"
)

func mustExtract(t *testing.T, src, file string) *extractor.ModuleInfo {
	t.Helper()
	m, err := extractor.ExtractModule(src, file)
	if err != nil {
		t.Fatalf("extracting %s: %v", file, err)
	}
	return m
}

func sampleHierarchy(t *testing.T) *assembler.Hierarchy {
	t.Helper()
	top := mustExtract(t, `module top #(parameter W = 8) (input clk, output [W-1:0] q);
  fifo u_f(.clk(clk), .dout(q));
  fifo u_g(clk, );
  mystery u_x(.a(clk));
endmodule`, "top.v")
	fifo := mustExtract(t, "module fifo(input clk, output [7:0] dout, input valid, output ready, input [7:0] data); endmodule", "fifo.v")

	return &assembler.Hierarchy{
		TopModule:  top,
		Submodules: map[string]*extractor.ModuleInfo{"fifo": fifo},
		ClockDomains: map[string][]string{
			"clk": {"u_f", "u_g"},
		},
		InstanceConnections: []assembler.NetLink{{
			Parent: "top",
			Net:    "clk",
			From:   assembler.Endpoint{Module: "top", Port: "clk", Direction: extractor.Input},
			To:     assembler.Endpoint{Instance: "u_f", Module: "fifo", Port: "clk", Direction: extractor.Input},
		}},
		FileMapping: map[string]string{"top": "rtl/top.v", "fifo": "rtl/fifo.v"},
		Report: assembler.Report{
			Skipped:   []assembler.SkippedFile{{Path: "rtl/bad.v", Kind: extractor.KindParse, Message: "no module"}},
			Conflicts: []assembler.Conflict{{Module: "fifo", Kept: "rtl/fifo.v", Dropped: "rtl/old/fifo.v"}},
		},
	}
}

func TestBuildTablesPopulatesCoreRelations(t *testing.T) {
	tables := BuildTables(sampleHierarchy(t))

	if tables.Top != "top" {
		t.Fatalf("expected top 'top', got %q", tables.Top)
	}
	if len(tables.Files) != 2 || tables.Files[0].Path != "rtl/fifo.v" {
		t.Fatalf("expected 2 sorted file rows, got %+v", tables.Files)
	}
	if len(tables.Modules) != 2 || tables.Modules[0].Name != "fifo" || !tables.Modules[1].IsTop {
		t.Fatalf("unexpected module rows %+v", tables.Modules)
	}
	if len(tables.Ports) != 7 {
		t.Fatalf("expected 7 port rows, got %d", len(tables.Ports))
	}
	if len(tables.Parameters) != 1 || tables.Parameters[0].Value != "8" {
		t.Fatalf("expected parameter W=8, got %+v", tables.Parameters)
	}
	if len(tables.Instances) != 3 {
		t.Fatalf("expected 3 instance rows, got %+v", tables.Instances)
	}
	if len(tables.Skipped) != 1 || tables.Skipped[0].Kind != "parse_error" {
		t.Fatalf("expected one skipped row, got %+v", tables.Skipped)
	}
	if len(tables.Conflicts) != 1 {
		t.Fatalf("expected one conflict row, got %+v", tables.Conflicts)
	}
	if len(tables.NetLinks) != 1 || tables.NetLinks[0].File != "rtl/top.v" {
		t.Fatalf("expected one net link in rtl/top.v, got %+v", tables.NetLinks)
	}
	if len(tables.Protocols) != 1 || tables.Protocols[0].Protocol != "AXI" {
		t.Fatalf("expected AXI on fifo, got %+v", tables.Protocols)
	}
}

func TestBuildTablesResolvesPositionalBindings(t *testing.T) {
	tables := BuildTables(sampleHierarchy(t))

	var positional []BindingRow
	for _, b := range tables.Bindings {
		if b.Instance == "u_g" {
			positional = append(positional, b)
		}
	}
	if len(positional) != 1 {
		t.Fatalf("expected one positional binding for u_g, got %+v", positional)
	}
	if positional[0].Port != "clk" || !positional[0].Positional || positional[0].Value != "clk" {
		t.Fatalf("unexpected positional binding %+v", positional[0])
	}
}

func TestBuildTablesClockDomainModules(t *testing.T) {
	tables := BuildTables(sampleHierarchy(t))

	if len(tables.ClockDomains) != 2 {
		t.Fatalf("expected 2 clock domain rows, got %+v", tables.ClockDomains)
	}
	for _, row := range tables.ClockDomains {
		if row.Module != "fifo" || row.File != "rtl/fifo.v" {
			t.Fatalf("expected clock domain rows to resolve to fifo, got %+v", row)
		}
	}
}

func TestBuildTablesNilHierarchy(t *testing.T) {
	tables := BuildTables(nil)
	if tables.Files == nil || len(tables.Files) != 0 {
		t.Fatalf("expected empty non-nil tables, got %+v", tables)
	}
}
