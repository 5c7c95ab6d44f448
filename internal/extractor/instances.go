package extractor

import "github.com/robert-at-pretension-io/rtl-hier/internal/lexer"

// collectInstances finds "Type [#(...)] name [dims] (...)" instantiations
// in items. One statement may declare several instances separated by
// commas. An instance whose closing parenthesis is not followed by ';' or
// ',' is recorded with low confidence.
func collectInstances(src string, items []lexer.Token, mod *ModuleInfo) {
	for i := 0; i < len(items); i++ {
		t := items[i]
		if !isPlainIdent(t) || !canStartInstance(items, i) {
			continue
		}

		j := i + 1
		if j < len(items) && items[j].IsPunct("#") {
			j++
			switch {
			case j < len(items) && items[j].IsPunct("("):
				c := lexer.MatchClose(items, j)
				if c < 0 {
					continue
				}
				j = c + 1
			case j < len(items) && (items[j].Kind == lexer.Number || items[j].Kind == lexer.Ident):
				j++
			default:
				continue
			}
		}

		if last := scanInstanceList(src, items, j, t.Text, mod); last >= 0 {
			i = last
		}
	}
}

// canStartInstance rejects identifiers that are member selections, package
// scopes, casts or macro arguments.
func canStartInstance(items []lexer.Token, i int) bool {
	if i+1 < len(items) && items[i+1].IsPunct("::") {
		return false
	}
	if i == 0 {
		return true
	}
	prev := items[i-1]
	return !(prev.IsPunct(".") || prev.IsPunct("::") || prev.IsPunct("'") || prev.IsPunct("#"))
}

// scanInstanceList records the instances of typeName starting at items[k]
// and returns the index of the last consumed token, or -1 if none matched.
func scanInstanceList(src string, items []lexer.Token, k int, typeName string, mod *ModuleInfo) int {
	last := -1
	for k < len(items) && isPlainIdent(items[k]) {
		name := items[k].Text
		m := k + 1
		for m < len(items) && items[m].IsPunct("[") {
			c := lexer.MatchClose(items, m)
			if c < 0 {
				return last
			}
			m = c + 1
		}
		if m >= len(items) || !items[m].IsPunct("(") {
			return last
		}
		c := lexer.MatchClose(items, m)
		if c < 0 {
			return last
		}

		conf := ConfidenceLow
		next := c + 1
		if next < len(items) && (items[next].IsPunct(";") || items[next].IsPunct(",")) {
			conf = ConfidenceHigh
		}
		mod.addInstance(name, typeName, conf)
		recordBindings(src, items[m+1:c], name, mod)

		if next < len(items) && items[next].IsPunct(",") {
			last = next
			k = next + 1
			continue
		}
		if conf == ConfidenceHigh {
			return next
		}
		return c
	}
	return last
}

func (m *ModuleInfo) addInstance(name, typeName string, conf Confidence) {
	m.Instances[name] = typeName
	if m.Confidence == nil {
		m.Confidence = make(map[string]Confidence)
	}
	m.Confidence[name] = conf
}

// recordBindings stores the named or positional connections in an
// instance's port list. ".*" and unnamed empty lists bind nothing.
func recordBindings(src string, list []lexer.Token, inst string, mod *ModuleInfo) {
	if len(list) == 0 {
		return
	}
	entries := lexer.SplitTopLevel(list, ",")
	if len(entries[0]) > 0 && entries[0][0].IsPunct(".") {
		named := make(map[string]Connection)
		for _, e := range entries {
			if len(e) < 2 || !e[0].IsPunct(".") || e[1].Kind != lexer.Ident {
				continue
			}
			port := e[1].Text
			if len(e) == 2 {
				// Implicit .name connection.
				named[port] = NetConnection(port)
				continue
			}
			if !e[2].IsPunct("(") {
				continue
			}
			c := lexer.MatchClose(e, 2)
			if c < 0 {
				continue
			}
			if conn := classifyConnection(src, e[3:c]); conn != nil {
				named[port] = *conn
			}
		}
		if len(named) > 0 {
			if mod.Bindings == nil {
				mod.Bindings = make(map[string]map[string]Connection)
			}
			mod.Bindings[inst] = named
		}
		return
	}

	positional := make([]Connection, len(entries))
	bound := false
	for i, e := range entries {
		if conn := classifyConnection(src, e); conn != nil {
			positional[i] = *conn
			bound = true
		}
	}
	if bound {
		if mod.PositionalBindings == nil {
			mod.PositionalBindings = make(map[string][]Connection)
		}
		mod.PositionalBindings[inst] = positional
	}
}

// annotateConnections sets ConnectedTo on the module's own ports from every
// ".port(expr)" in the body whose port name matches. The last match wins.
func annotateConnections(src string, body []lexer.Token, mod *ModuleInfo) {
	for i := 0; i+2 < len(body); i++ {
		if !body[i].IsPunct(".") || body[i+1].Kind != lexer.Ident || !body[i+2].IsPunct("(") {
			continue
		}
		if i > 0 {
			prev := body[i-1]
			if prev.Kind == lexer.Ident || prev.IsPunct(")") || prev.IsPunct("]") {
				continue
			}
		}
		idx := mod.portIndex(body[i+1].Text)
		if idx < 0 {
			continue
		}
		c := lexer.MatchClose(body, i+2)
		if c < 0 {
			continue
		}
		if conn := classifyConnection(src, body[i+3:c]); conn != nil {
			mod.Ports[idx].ConnectedTo = conn
		}
	}
}
