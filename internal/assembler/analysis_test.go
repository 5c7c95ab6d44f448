package assembler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-at-pretension-io/rtl-hier/internal/extractor"
)

var clockProject = map[string]string{
	"top.v": `module top(input sys_clk, input rst);
  wire n;
  B u1(.clk(sys_clk), .rst(rst), .q(n));
  C u2(.clk(sys_clk), .d(n));
endmodule
`,
	"b.v": `module B(input clk, input rst, output q);
  wire gclk;
  D u_d(.clk(clk));
  D u_l(.clk(gclk));
endmodule
`,
	"c.v": "module C(input clk, input d); endmodule\n",
	"d.v": "module D(input clk); endmodule\n",
}

func TestClockDomainsFollowHierarchy(t *testing.T) {
	root := writeProject(t, clockProject)
	h, err := AssembleHierarchy(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, "top", h.TopModule.Name)
	assert.Equal(t, map[string][]string{
		"sys_clk": {"u1", "u1.u_d", "u2"},
		"u1.gclk": {"u1.u_l"},
	}, h.ClockDomains)
}

func TestClockDomainsPositionalBinding(t *testing.T) {
	root := writeProject(t, map[string]string{
		"top.v":  "module top(input clk_in); leaf u0(clk_in, 1'b0); endmodule",
		"leaf.v": "module leaf(input clk, input en); endmodule",
	})
	h, err := AssembleHierarchy(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"clk_in": {"u0"}}, h.ClockDomains)
}

func TestInstanceConnections(t *testing.T) {
	root := writeProject(t, clockProject)
	h, err := AssembleHierarchy(context.Background(), root)
	require.NoError(t, err)

	var onN []NetLink
	for _, l := range h.InstanceConnections {
		if l.Parent == "top" && l.Net == "n" {
			onN = append(onN, l)
		}
	}
	require.Len(t, onN, 1)
	assert.Equal(t, Endpoint{Instance: "u1", Module: "B", Port: "q", Direction: extractor.Output}, onN[0].From)
	assert.Equal(t, Endpoint{Instance: "u2", Module: "C", Port: "d", Direction: extractor.Input}, onN[0].To)

	// The parent's input drives both clock sinks.
	var fromBoundary []string
	for _, l := range h.InstanceConnections {
		if l.Parent == "top" && l.Net == "sys_clk" {
			assert.Equal(t, "", l.From.Instance)
			fromBoundary = append(fromBoundary, l.To.Instance+"."+l.To.Port)
		}
	}
	assert.Equal(t, []string{"u1.clk", "u2.clk"}, fromBoundary)

	// gclk has no driver inside B.
	for _, l := range h.InstanceConnections {
		assert.False(t, l.Parent == "B" && l.Net == "gclk", "unexpected link %+v", l)
	}
}

func TestInstanceConnectionsInout(t *testing.T) {
	modules := map[string]*extractor.ModuleInfo{}
	for name, src := range map[string]string{
		"top": "module top; pad p0(.io(bus)); pad p1(.io(bus)); endmodule",
		"pad": "module pad(inout io); endmodule",
	} {
		m, err := extractor.ExtractModule(src, name+".v")
		require.NoError(t, err)
		modules[m.Name] = m
	}

	links := instanceConnections(modules)
	require.Len(t, links, 1)
	assert.Equal(t, "p0", links[0].From.Instance)
	assert.Equal(t, "p1", links[0].To.Instance)
	assert.Equal(t, "bus", links[0].Net)
}

func TestCrossModuleConnections(t *testing.T) {
	root := writeProject(t, map[string]string{
		"top.v": `module top(input a, output y);
  sub u_core(.x(a));
  mon u_mon(.y(u_core.x), .a(a));
endmodule
`,
		"sub.v": "module sub(input x); endmodule",
		"mon.v": "module mon(input y, input a); endmodule",
	})
	h, err := AssembleHierarchy(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []PortConnection{{SrcModule: "top", SrcPort: "y", DstModule: "u_core", DstPort: "x"}}, h.Connections)

	a, _ := h.TopModule.Port("a")
	require.NotNil(t, a.ConnectedTo)
	assert.Equal(t, extractor.ConnNet, a.ConnectedTo.Kind)

	assert.Empty(t, h.Report.Warnings)
}

func TestCrossModuleConnectionsUnknownHead(t *testing.T) {
	root := writeProject(t, map[string]string{
		"top.v": `module top(input a, output y);
  mon u_mon(.y(ghost.q), .a(a));
endmodule
`,
		"mon.v": "module mon(input y, input a); endmodule",
	})
	h, err := AssembleHierarchy(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []PortConnection{{SrcModule: "top", SrcPort: "y", DstModule: "ghost", DstPort: "q"}}, h.Connections)
	require.Len(t, h.Report.Warnings, 1)
	assert.Contains(t, h.Report.Warnings[0], "neither a project module nor an instance of top")
}

func TestClockDomainsSkipUnreachableModules(t *testing.T) {
	root := writeProject(t, map[string]string{
		"top.v":  "module top(input clk); leaf u_l(.clk(clk)); endmodule",
		"leaf.v": "module leaf(input clk); endmodule",
		"a.v":    "module a(input clk); b u_b(.clk(clk)); endmodule",
		"b.v":    "module b(input clk); a u_a(.clk(clk)); endmodule",
	})
	h, err := AssembleHierarchy(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, "top", h.TopModule.Name)
	assert.Equal(t, map[string][]string{"clk": {"u_l"}}, h.ClockDomains)
	assert.Contains(t, h.Report.Warnings, "module a is instantiated only by b, outside top top; its instances have no clock domain")
	assert.Contains(t, h.Report.Warnings, "module b is instantiated only by a, outside top top; its instances have no clock domain")
}

func TestGraphFromHierarchy(t *testing.T) {
	root := writeProject(t, clockProject)
	h, err := AssembleHierarchy(context.Background(), root)
	require.NoError(t, err)

	g := h.Graph()
	assert.Equal(t, []string{"top"}, g.Roots())
	assert.Equal(t, []string{"B", "C"}, g.Children("top"))
	assert.Equal(t, [][]string{{"B"}, {"top"}}, g.Impact("D").Levels)
}
