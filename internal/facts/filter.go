package facts

// FilterTablesByFiles returns a new Tables containing only rows whose file
// or path is present in the provided file set. Conflicts are kept when
// either side is in the set.
func FilterTablesByFiles(tables Tables, files map[string]bool) Tables {
	out := emptyTables()
	if len(files) == 0 {
		return out
	}
	out.Top = tables.Top

	out.Files = filterRows(tables.Files, files, func(r FileRow) string { return r.Path })
	out.Skipped = filterRows(tables.Skipped, files, func(r SkippedRow) string { return r.Path })
	out.Modules = filterRows(tables.Modules, files, func(r ModuleRow) string { return r.File })
	out.Ports = filterRows(tables.Ports, files, func(r PortRow) string { return r.File })
	out.Parameters = filterRows(tables.Parameters, files, func(r ParameterRow) string { return r.File })
	out.Instances = filterRows(tables.Instances, files, func(r InstanceRow) string { return r.File })
	out.Bindings = filterRows(tables.Bindings, files, func(r BindingRow) string { return r.File })
	out.Connections = filterRows(tables.Connections, files, func(r ConnectionRow) string { return r.File })
	out.NetLinks = filterRows(tables.NetLinks, files, func(r NetLinkRow) string { return r.File })
	out.ClockDomains = filterRows(tables.ClockDomains, files, func(r ClockDomainRow) string { return r.File })
	out.Protocols = filterRows(tables.Protocols, files, func(r ProtocolRow) string { return r.File })
	for _, row := range tables.Conflicts {
		if files[row.Kept] || files[row.Dropped] {
			out.Conflicts = append(out.Conflicts, row)
		}
	}

	return out
}

// FilterDeltaByFiles returns a new Delta containing only rows for the specified files.
func FilterDeltaByFiles(delta Delta, files map[string]bool) Delta {
	return Delta{
		Added:   FilterTablesByFiles(delta.Added, files),
		Removed: FilterTablesByFiles(delta.Removed, files),
	}
}

func filterRows[T any](rows []T, files map[string]bool, file func(T) string) []T {
	out := []T{}
	for _, row := range rows {
		if files[file(row)] {
			out = append(out, row)
		}
	}
	return out
}
