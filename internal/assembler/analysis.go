package assembler

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/robert-at-pretension-io/rtl-hier/internal/extractor"
)

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// crossModuleConnections collects every port whose connection hint is a
// dotted reference. Plain nets and expressions are not edges. The head of a
// hint names either a project module or an instance inside the source
// module; any other head is reported as a warning.
func crossModuleConnections(modules map[string]*extractor.ModuleInfo) ([]PortConnection, []string) {
	var conns []PortConnection
	var warnings []string
	for _, name := range sortedNames(modules) {
		src := modules[name]
		for _, p := range src.Ports {
			if p.ConnectedTo == nil || p.ConnectedTo.Kind != extractor.ConnCrossModule {
				continue
			}
			c := PortConnection{
				SrcModule: name,
				SrcPort:   p.Name,
				DstModule: p.ConnectedTo.Module,
				DstPort:   p.ConnectedTo.Port,
			}
			conns = append(conns, c)
			if _, ok := modules[c.DstModule]; ok {
				continue
			}
			if _, ok := src.Instances[c.DstModule]; ok {
				continue
			}
			warnings = append(warnings, fmt.Sprintf("connection %s.%s -> %s.%s names neither a project module nor an instance of %s",
				c.SrcModule, c.SrcPort, c.DstModule, c.DstPort, c.SrcModule))
		}
	}
	return conns, warnings
}

var errPathLimit = errors.New("instance path limit reached")

// clockDomains walks the instance tree from top and groups instance paths
// by the net driving each of their clock ports. A net that is a port of
// the enclosing module resolves to whatever drives that port one level up,
// so a clock threaded through the hierarchy keeps one name. Nets local to
// a non-top module are qualified with the module's instance path.
//
// Shared subtrees are expanded once per instance path, so the walk stops
// after limit paths and reports truncated. A done ctx aborts the walk and
// no partial result is returned.
func clockDomains(ctx context.Context, top *extractor.ModuleInfo, modules map[string]*extractor.ModuleInfo, limit int) (map[string][]string, bool, error) {
	domains := make(map[string][]string)
	onPath := map[string]bool{top.Name: true}
	visited := 0

	var walk func(mod *extractor.ModuleInfo, prefix string, portNets map[string]string) error
	walk = func(mod *extractor.ModuleInfo, prefix string, portNets map[string]string) error {
		for _, inst := range mod.InstanceNames() {
			child, ok := modules[mod.Instances[inst]]
			if !ok {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if visited >= limit {
				return errPathLimit
			}
			visited++

			path := joinPath(prefix, inst)
			bindings := mod.InstanceBindings(inst, child)
			childNets := make(map[string]string)

			for _, p := range child.Ports {
				net := ""
				if conn, ok := bindings[p.Name]; ok {
					net = resolveNet(conn, mod, prefix, portNets)
				}
				if net != "" {
					childNets[p.Name] = net
				}
				if !p.IsClock {
					continue
				}
				if net == "" && p.ConnectedTo != nil && p.ConnectedTo.Kind == extractor.ConnNet {
					net = p.ConnectedTo.Net
				}
				if net != "" {
					domains[net] = append(domains[net], path)
				}
			}

			if onPath[child.Name] {
				continue
			}
			onPath[child.Name] = true
			if err := walk(child, path, childNets); err != nil {
				return err
			}
			delete(onPath, child.Name)
		}
		return nil
	}

	err := walk(top, "", nil)
	truncated := errors.Is(err, errPathLimit)
	if err != nil && !truncated {
		return nil, false, fmt.Errorf("grouping clock domains: %w", err)
	}

	for net, paths := range domains {
		domains[net] = dedupeSorted(paths)
	}
	return domains, truncated, nil
}

// resolveNet names the net a connection refers to, as seen from the top.
// Expressions resolve to nothing.
func resolveNet(conn extractor.Connection, parent *extractor.ModuleInfo, prefix string, portNets map[string]string) string {
	switch conn.Kind {
	case extractor.ConnNet:
		if _, isPort := parent.Port(conn.Net); isPort {
			if prefix == "" {
				return conn.Net
			}
			if upper, ok := portNets[conn.Net]; ok {
				return upper
			}
		}
		return joinPath(prefix, conn.Net)
	case extractor.ConnCrossModule:
		return joinPath(prefix, conn.String())
	}
	return ""
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func dedupeSorted(in []string) []string {
	sort.Strings(in)
	out := in[:0]
	for i, s := range in {
		if i > 0 && s == in[i-1] {
			continue
		}
		out = append(out, s)
	}
	return out
}

// instanceConnections pairs drivers with sinks on every plain net inside
// every module. Drivers are instance outputs and the parent's own inputs;
// sinks are instance inputs and the parent's own outputs. Inout ports are
// both. Instances of unknown modules contribute no endpoints.
func instanceConnections(modules map[string]*extractor.ModuleInfo) []NetLink {
	var links []NetLink
	for _, parentName := range sortedNames(modules) {
		parent := modules[parentName]
		nets := make(map[string][]Endpoint)

		for _, p := range parent.Ports {
			nets[p.Name] = append(nets[p.Name], Endpoint{Module: parentName, Port: p.Name, Direction: p.Direction})
		}
		for _, inst := range parent.InstanceNames() {
			child, ok := modules[parent.Instances[inst]]
			if !ok {
				continue
			}
			bindings := parent.InstanceBindings(inst, child)
			for _, p := range child.Ports {
				conn, ok := bindings[p.Name]
				if !ok || conn.Kind != extractor.ConnNet {
					continue
				}
				nets[conn.Net] = append(nets[conn.Net], Endpoint{
					Instance:  inst,
					Module:    child.Name,
					Port:      p.Name,
					Direction: p.Direction,
				})
			}
		}

		for _, net := range sortedNames(nets) {
			eps := nets[net]
			for i, from := range eps {
				if !drives(from) {
					continue
				}
				for j, to := range eps {
					if i == j || !receives(to) {
						continue
					}
					if from.Instance == "" && to.Instance == "" {
						continue
					}
					// An inout pair is reported once.
					if drives(to) && receives(from) && j < i {
						continue
					}
					links = append(links, NetLink{Parent: parentName, Net: net, From: from, To: to})
				}
			}
		}
	}
	return links
}

func drives(e Endpoint) bool {
	if e.Direction == extractor.Inout {
		return true
	}
	if e.Instance == "" {
		return e.Direction == extractor.Input
	}
	return e.Direction == extractor.Output
}

func receives(e Endpoint) bool {
	if e.Direction == extractor.Inout {
		return true
	}
	if e.Instance == "" {
		return e.Direction == extractor.Output
	}
	return e.Direction == extractor.Input
}
