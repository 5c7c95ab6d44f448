package facts

import (
	"sort"
	"strings"

	"github.com/robert-at-pretension-io/rtl-hier/internal/assembler"
	"github.com/robert-at-pretension-io/rtl-hier/internal/extractor"
)

// Tables is the relational fact model of an assembled hierarchy.
// Each slice is a relation (table) with flat rows.
type Tables struct {
	Top          string           `json:"top"`
	Files        []FileRow        `json:"files"`
	Skipped      []SkippedRow     `json:"skipped"`
	Modules      []ModuleRow      `json:"modules"`
	Ports        []PortRow        `json:"ports"`
	Parameters   []ParameterRow   `json:"parameters"`
	Instances    []InstanceRow    `json:"instances"`
	Bindings     []BindingRow     `json:"bindings"`
	Connections  []ConnectionRow  `json:"connections"`
	NetLinks     []NetLinkRow     `json:"net_links"`
	ClockDomains []ClockDomainRow `json:"clock_domains"`
	Conflicts    []ConflictRow    `json:"conflicts"`
	Protocols    []ProtocolRow    `json:"protocols"`
}

type FileRow struct {
	Path   string `json:"path"`
	Module string `json:"module"`
}

type SkippedRow struct {
	Path    string `json:"path"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type ModuleRow struct {
	Name      string `json:"name"`
	File      string `json:"file"`
	IsTop     bool   `json:"is_top"`
	PortStyle string `json:"port_style"`
}

type PortRow struct {
	Module    string `json:"module"`
	Name      string `json:"name"`
	Direction string `json:"direction"`
	Width     string `json:"width"`
	Position  int    `json:"position"`
	IsClock   bool   `json:"is_clock"`
	IsReset   bool   `json:"is_reset"`
	File      string `json:"file"`
}

type ParameterRow struct {
	Module string `json:"module"`
	Name   string `json:"name"`
	Value  string `json:"value"`
	File   string `json:"file"`
}

type InstanceRow struct {
	Parent     string `json:"parent"`
	Name       string `json:"name"`
	Module     string `json:"module"`
	Confidence string `json:"confidence"`
	File       string `json:"file"`
}

// BindingRow is one port connection of an instance. Positional
// connections are resolved to port names when the instantiated module is
// known, otherwise Port holds the slot index.
type BindingRow struct {
	Parent     string `json:"parent"`
	Instance   string `json:"instance"`
	Port       string `json:"port"`
	Kind       string `json:"kind"`
	Value      string `json:"value"`
	Positional bool   `json:"positional"`
	File       string `json:"file"`
}

type ConnectionRow struct {
	SrcModule string `json:"src_module"`
	SrcPort   string `json:"src_port"`
	DstModule string `json:"dst_module"`
	DstPort   string `json:"dst_port"`
	File      string `json:"file"`
}

type NetLinkRow struct {
	Parent       string `json:"parent"`
	Net          string `json:"net"`
	FromInstance string `json:"from_instance"`
	FromPort     string `json:"from_port"`
	ToInstance   string `json:"to_instance"`
	ToPort       string `json:"to_port"`
	File         string `json:"file"`
}

// ClockDomainRow places one instance path in a clock domain. Module is the
// module instantiated at Path and File is where it was declared.
type ClockDomainRow struct {
	Net    string `json:"net"`
	Path   string `json:"path"`
	Module string `json:"module"`
	File   string `json:"file"`
}

type ConflictRow struct {
	Module  string `json:"module"`
	Kept    string `json:"kept"`
	Dropped string `json:"dropped"`
}

type ProtocolRow struct {
	Module   string `json:"module"`
	Protocol string `json:"protocol"`
	File     string `json:"file"`
}

// BuildTables flattens a hierarchy into fact tables. Rows are ordered
// deterministically so snapshots can be diffed.
func BuildTables(h *assembler.Hierarchy) Tables {
	out := emptyTables()
	if h == nil || h.TopModule == nil {
		return out
	}
	out.Top = h.TopModule.Name
	modules := make(map[string]*extractor.ModuleInfo)
	for _, m := range h.Modules() {
		modules[m.Name] = m
	}

	for _, m := range h.Modules() {
		file := h.FileMapping[m.Name]
		out.Files = append(out.Files, FileRow{Path: file, Module: m.Name})
		out.Modules = append(out.Modules, ModuleRow{
			Name:      m.Name,
			File:      file,
			IsTop:     m.Name == out.Top,
			PortStyle: string(m.PortStyle),
		})

		for i, p := range m.Ports {
			out.Ports = append(out.Ports, PortRow{
				Module:    m.Name,
				Name:      p.Name,
				Direction: string(p.Direction),
				Width:     p.Width,
				Position:  i,
				IsClock:   p.IsClock,
				IsReset:   p.IsReset,
				File:      file,
			})
		}

		for _, name := range sortedKeys(m.Parameters) {
			out.Parameters = append(out.Parameters, ParameterRow{Module: m.Name, Name: name, Value: m.Parameters[name], File: file})
		}

		for _, inst := range m.InstanceNames() {
			conf := m.Confidence[inst]
			if conf == "" {
				conf = extractor.ConfidenceHigh
			}
			out.Instances = append(out.Instances, InstanceRow{
				Parent:     m.Name,
				Name:       inst,
				Module:     m.Instances[inst],
				Confidence: string(conf),
				File:       file,
			})
			out.Bindings = append(out.Bindings, bindingRows(m, inst, modules[m.Instances[inst]], file)...)
		}

		for _, proto := range m.Protocols() {
			out.Protocols = append(out.Protocols, ProtocolRow{Module: m.Name, Protocol: proto, File: file})
		}
	}

	for _, s := range h.Report.Skipped {
		out.Skipped = append(out.Skipped, SkippedRow{Path: s.Path, Kind: string(s.Kind), Message: s.Message})
	}
	for _, c := range h.Connections {
		out.Connections = append(out.Connections, ConnectionRow{
			SrcModule: c.SrcModule,
			SrcPort:   c.SrcPort,
			DstModule: c.DstModule,
			DstPort:   c.DstPort,
			File:      h.FileMapping[c.SrcModule],
		})
	}
	for _, l := range h.InstanceConnections {
		out.NetLinks = append(out.NetLinks, NetLinkRow{
			Parent:       l.Parent,
			Net:          l.Net,
			FromInstance: l.From.Instance,
			FromPort:     l.From.Port,
			ToInstance:   l.To.Instance,
			ToPort:       l.To.Port,
			File:         h.FileMapping[l.Parent],
		})
	}
	for _, net := range sortedKeys(h.ClockDomains) {
		for _, path := range h.ClockDomains[net] {
			mod := moduleAtPath(h.TopModule, modules, path)
			out.ClockDomains = append(out.ClockDomains, ClockDomainRow{
				Net:    net,
				Path:   path,
				Module: mod,
				File:   h.FileMapping[mod],
			})
		}
	}
	for _, c := range h.Report.Conflicts {
		out.Conflicts = append(out.Conflicts, ConflictRow{Module: c.Module, Kept: c.Kept, Dropped: c.Dropped})
	}

	sort.Slice(out.Files, func(i, j int) bool { return out.Files[i].Path < out.Files[j].Path })
	sort.Slice(out.Skipped, func(i, j int) bool { return out.Skipped[i].Path < out.Skipped[j].Path })
	return out
}

func bindingRows(parent *extractor.ModuleInfo, inst string, child *extractor.ModuleInfo, file string) []BindingRow {
	var rows []BindingRow
	named := parent.Bindings[inst]
	for _, port := range sortedKeys(named) {
		conn := named[port]
		rows = append(rows, BindingRow{
			Parent:   parent.Name,
			Instance: inst,
			Port:     port,
			Kind:     string(conn.Kind),
			Value:    conn.String(),
			File:     file,
		})
	}
	for i, conn := range parent.PositionalBindings[inst] {
		if conn.Kind == "" {
			continue
		}
		port := itoa(i)
		if child != nil && i < len(child.Ports) {
			port = child.Ports[i].Name
		}
		rows = append(rows, BindingRow{
			Parent:     parent.Name,
			Instance:   inst,
			Port:       port,
			Kind:       string(conn.Kind),
			Value:      conn.String(),
			Positional: true,
			File:       file,
		})
	}
	return rows
}

// moduleAtPath follows a dotted instance path down from top.
func moduleAtPath(top *extractor.ModuleInfo, modules map[string]*extractor.ModuleInfo, path string) string {
	cur := top
	name := ""
	for _, inst := range strings.Split(path, ".") {
		if cur == nil {
			return ""
		}
		name = cur.Instances[inst]
		cur = modules[name]
	}
	return name
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
