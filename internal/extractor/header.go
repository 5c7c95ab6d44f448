package extractor

import (
	"sort"

	"github.com/robert-at-pretension-io/rtl-hier/internal/lexer"
)

// header locates the parts of a module declaration within the token slice.
type header struct {
	name      string
	start     int           // index of the module keyword
	params    []lexer.Token // inside #( ... )
	ports     []lexer.Token // inside ( ... )
	bodyStart int           // first token after the header's ';'
	bodyEnd   int           // index of endmodule, or len(toks)
}

// findHeader returns the first well-formed module header. Candidates that
// do not parse are skipped.
func findHeader(toks []lexer.Token) (header, bool) {
	for i := range toks {
		if !isModuleKeyword(toks[i]) {
			continue
		}
		if h, ok := parseHeaderAt(toks, i); ok {
			return h, true
		}
	}
	return header{}, false
}

func parseHeaderAt(toks []lexer.Token, i int) (header, bool) {
	h := header{start: i}
	j := i + 1
	if j < len(toks) && (toks[j].IsIdent("automatic") || toks[j].IsIdent("static")) {
		j++
	}
	if j >= len(toks) || !isPlainIdent(toks[j]) {
		return header{}, false
	}
	h.name = toks[j].Text
	j++

	// Package imports between the name and the parameter list.
	for j < len(toks) && toks[j].IsIdent("import") {
		end := lexer.IndexTopLevel(toks, j, ";")
		if end < 0 {
			return header{}, false
		}
		j = end + 1
	}

	if j < len(toks) && toks[j].IsPunct("#") {
		j++
		if j >= len(toks) || !toks[j].IsPunct("(") {
			return header{}, false
		}
		c := lexer.MatchClose(toks, j)
		if c < 0 {
			return header{}, false
		}
		h.params = toks[j+1 : c]
		j = c + 1
	}

	if j < len(toks) && toks[j].IsPunct("(") {
		c := lexer.MatchClose(toks, j)
		if c < 0 {
			return header{}, false
		}
		h.ports = toks[j+1 : c]
		j = c + 1
	}

	if j >= len(toks) || !toks[j].IsPunct(";") {
		return header{}, false
	}
	h.bodyStart = j + 1
	h.bodyEnd = len(toks)
	for k := h.bodyStart; k < len(toks); k++ {
		if toks[k].IsIdent("endmodule") {
			h.bodyEnd = k
			break
		}
	}
	return h, true
}

// otherModules lists module names declared outside the extracted module's
// extent, in source order.
func otherModules(toks []lexer.Token, h header) []string {
	var names []string
	for i := 0; i+1 < len(toks); i++ {
		if i >= h.start && i < h.bodyEnd {
			continue
		}
		if !isModuleKeyword(toks[i]) {
			continue
		}
		j := i + 1
		if toks[j].IsIdent("automatic") || toks[j].IsIdent("static") {
			j++
		}
		if j < len(toks) && isPlainIdent(toks[j]) {
			names = append(names, toks[j].Text)
		}
	}
	return names
}

// skipSubroutines returns toks with function and task bodies removed.
// Import/export prototypes end at their semicolon.
func skipSubroutines(toks []lexer.Token) []lexer.Token {
	out := make([]lexer.Token, 0, len(toks))
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		var endWord string
		switch {
		case t.IsIdent("function"):
			endWord = "endfunction"
		case t.IsIdent("task"):
			endWord = "endtask"
		default:
			out = append(out, t)
			continue
		}

		if isPrototype(out) {
			semi := lexer.IndexTopLevel(toks, i, ";")
			if semi < 0 {
				return out
			}
			i = semi
			continue
		}

		end := -1
		for k := i + 1; k < len(toks); k++ {
			if toks[k].IsIdent(endWord) {
				end = k
				break
			}
		}
		if end < 0 {
			end = lexer.IndexTopLevel(toks, i, ";")
			if end < 0 {
				return out
			}
		}
		// Drop an optional ": label" after the end keyword.
		if end+2 < len(toks) && toks[end+1].IsPunct(":") && toks[end+2].Kind == lexer.Ident {
			end += 2
		}
		i = end
	}
	return out
}

// isPrototype reports whether the statement being built in out began with
// import, export, extern or pure.
func isPrototype(out []lexer.Token) bool {
	for k := len(out) - 1; k >= 0; k-- {
		t := out[k]
		if t.IsPunct(";") {
			return false
		}
		if t.IsIdent("import") || t.IsIdent("export") || t.IsIdent("extern") || t.IsIdent("pure") {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
