package assembler

import (
	"sort"

	"github.com/robert-at-pretension-io/rtl-hier/internal/extractor"
	"github.com/robert-at-pretension-io/rtl-hier/internal/graph"
)

// Hierarchy is the assembled project-wide design graph.
type Hierarchy struct {
	TopModule  *extractor.ModuleInfo            `json:"top_module"`
	Submodules map[string]*extractor.ModuleInfo `json:"submodules"`
	// Connections are cross-module edges taken from dotted port hints,
	// ordered by source module name then port order.
	Connections []PortConnection `json:"connections"`
	// ClockDomains maps a resolved clock net to the hierarchical paths of
	// the instances whose clock ports it drives.
	ClockDomains map[string][]string `json:"clock_domains"`
	// InstanceConnections are driver-to-sink pairs between endpoints that
	// share a net inside one parent module.
	InstanceConnections []NetLink `json:"instance_connections"`
	// FileMapping maps each module name to the source it was extracted from.
	FileMapping map[string]string `json:"file_mapping"`
	Report      Report            `json:"report"`
}

// PortConnection is a (source module, source port, destination module,
// destination port) edge.
type PortConnection struct {
	SrcModule string `json:"src_module"`
	SrcPort   string `json:"src_port"`
	DstModule string `json:"dst_module"`
	DstPort   string `json:"dst_port"`
}

// Endpoint is one port on a net. An empty Instance means the parent
// module's own port.
type Endpoint struct {
	Instance  string              `json:"instance,omitempty"`
	Module    string              `json:"module"`
	Port      string              `json:"port"`
	Direction extractor.Direction `json:"direction"`
}

// NetLink joins a driving endpoint to a receiving endpoint on Net inside
// Parent.
type NetLink struct {
	Parent string   `json:"parent"`
	Net    string   `json:"net"`
	From   Endpoint `json:"from"`
	To     Endpoint `json:"to"`
}

// SkippedFile records a source unit that produced no module.
type SkippedFile struct {
	Path    string              `json:"path"`
	Kind    extractor.ErrorKind `json:"kind"`
	Message string              `json:"message"`
}

// Conflict records a module name declared by more than one source unit.
// The first unit in path order is kept.
type Conflict struct {
	Module  string `json:"module"`
	Kept    string `json:"kept"`
	Dropped string `json:"dropped"`
}

// Report carries the non-fatal findings of an assembly run.
type Report struct {
	RunID     string        `json:"run_id"`
	Files     int           `json:"files"`
	CacheHits int           `json:"cache_hits"`
	Skipped   []SkippedFile `json:"skipped"`
	Conflicts []Conflict    `json:"conflicts"`
	Cycles    [][]string    `json:"cycles"`
	Warnings  []string      `json:"warnings"`
}

// Module looks up a module by name, top included.
func (h *Hierarchy) Module(name string) (*extractor.ModuleInfo, bool) {
	if h.TopModule != nil && h.TopModule.Name == name {
		return h.TopModule, true
	}
	m, ok := h.Submodules[name]
	return m, ok
}

// Modules returns every module, top included, sorted by name.
func (h *Hierarchy) Modules() []*extractor.ModuleInfo {
	out := make([]*extractor.ModuleInfo, 0, len(h.Submodules)+1)
	if h.TopModule != nil {
		out = append(out, h.TopModule)
	}
	for _, m := range h.Submodules {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// moduleTable returns the name-keyed module table, top included.
func (h *Hierarchy) moduleTable() map[string]*extractor.ModuleInfo {
	table := make(map[string]*extractor.ModuleInfo, len(h.Submodules)+1)
	for name, m := range h.Submodules {
		table[name] = m
	}
	if h.TopModule != nil {
		table[h.TopModule.Name] = h.TopModule
	}
	return table
}

// Graph rebuilds the instantiation graph over project modules.
func (h *Hierarchy) Graph() *graph.Graph {
	return buildGraph(h.moduleTable())
}

// buildGraph adds one node per module and one edge per instantiation of
// another project module. Instances of unknown types add no edge.
func buildGraph(modules map[string]*extractor.ModuleInfo) *graph.Graph {
	g := graph.New()
	names := make([]string, 0, len(modules))
	for name := range modules {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		g.AddNode(name)
	}
	for _, name := range names {
		m := modules[name]
		for _, inst := range m.InstanceNames() {
			if child := m.Instances[inst]; modules[child] != nil {
				g.AddEdge(name, child)
			}
		}
	}
	return g
}
