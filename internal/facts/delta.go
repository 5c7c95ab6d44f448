package facts

import "strconv"

// Delta captures added and removed fact rows between two snapshots.
type Delta struct {
	Added   Tables `json:"added"`
	Removed Tables `json:"removed"`
}

// Empty reports whether the delta carries no rows.
func (d Delta) Empty() bool {
	return d.Added.rowCount() == 0 && d.Removed.rowCount() == 0
}

// ComputeDelta computes row-level additions and removals between two snapshots.
func ComputeDelta(prev, next Tables) Delta {
	d := Delta{
		Added:   diffTables(prev, next),
		Removed: diffTables(next, prev),
	}
	if prev.Top != next.Top {
		d.Added.Top = next.Top
		d.Removed.Top = prev.Top
	}
	return d
}

func diffTables(from, to Tables) Tables {
	out := emptyTables()

	out.Files = diffRows(from.Files, to.Files, func(r FileRow) string {
		return r.Path + "|" + r.Module
	})
	out.Skipped = diffRows(from.Skipped, to.Skipped, func(r SkippedRow) string {
		return r.Path + "|" + r.Kind + "|" + r.Message
	})
	out.Modules = diffRows(from.Modules, to.Modules, func(r ModuleRow) string {
		return r.Name + "|" + r.File + "|" + boolKey(r.IsTop) + "|" + r.PortStyle
	})
	out.Ports = diffRows(from.Ports, to.Ports, func(r PortRow) string {
		return r.Module + "|" + r.Name + "|" + r.Direction + "|" + r.Width + "|" + itoa(r.Position) + "|" +
			boolKey(r.IsClock) + "|" + boolKey(r.IsReset) + "|" + r.File
	})
	out.Parameters = diffRows(from.Parameters, to.Parameters, func(r ParameterRow) string {
		return r.Module + "|" + r.Name + "|" + r.Value + "|" + r.File
	})
	out.Instances = diffRows(from.Instances, to.Instances, func(r InstanceRow) string {
		return r.Parent + "|" + r.Name + "|" + r.Module + "|" + r.Confidence + "|" + r.File
	})
	out.Bindings = diffRows(from.Bindings, to.Bindings, func(r BindingRow) string {
		return r.Parent + "|" + r.Instance + "|" + r.Port + "|" + r.Kind + "|" + r.Value + "|" + boolKey(r.Positional) + "|" + r.File
	})
	out.Connections = diffRows(from.Connections, to.Connections, func(r ConnectionRow) string {
		return r.SrcModule + "|" + r.SrcPort + "|" + r.DstModule + "|" + r.DstPort + "|" + r.File
	})
	out.NetLinks = diffRows(from.NetLinks, to.NetLinks, func(r NetLinkRow) string {
		return r.Parent + "|" + r.Net + "|" + r.FromInstance + "|" + r.FromPort + "|" + r.ToInstance + "|" + r.ToPort + "|" + r.File
	})
	out.ClockDomains = diffRows(from.ClockDomains, to.ClockDomains, func(r ClockDomainRow) string {
		return r.Net + "|" + r.Path + "|" + r.Module + "|" + r.File
	})
	out.Conflicts = diffRows(from.Conflicts, to.Conflicts, func(r ConflictRow) string {
		return r.Module + "|" + r.Kept + "|" + r.Dropped
	})
	out.Protocols = diffRows(from.Protocols, to.Protocols, func(r ProtocolRow) string {
		return r.Module + "|" + r.Protocol + "|" + r.File
	})

	return out
}

func emptyTables() Tables {
	return Tables{
		Files:        []FileRow{},
		Skipped:      []SkippedRow{},
		Modules:      []ModuleRow{},
		Ports:        []PortRow{},
		Parameters:   []ParameterRow{},
		Instances:    []InstanceRow{},
		Bindings:     []BindingRow{},
		Connections:  []ConnectionRow{},
		NetLinks:     []NetLinkRow{},
		ClockDomains: []ClockDomainRow{},
		Conflicts:    []ConflictRow{},
		Protocols:    []ProtocolRow{},
	}
}

func (t Tables) rowCount() int {
	n := len(t.Files) + len(t.Skipped) + len(t.Modules) + len(t.Ports) + len(t.Parameters) +
		len(t.Instances) + len(t.Bindings) + len(t.Connections) + len(t.NetLinks) +
		len(t.ClockDomains) + len(t.Conflicts) + len(t.Protocols)
	if t.Top != "" {
		n++
	}
	return n
}

func diffRows[T any](from, to []T, key func(T) string) []T {
	fromSet := make(map[string]struct{}, len(from))
	for _, row := range from {
		fromSet[key(row)] = struct{}{}
	}
	diff := []T{}
	for _, row := range to {
		if _, ok := fromSet[key(row)]; !ok {
			diff = append(diff, row)
		}
	}
	return diff
}

func boolKey(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func itoa(v int) string { return strconv.Itoa(v) }
