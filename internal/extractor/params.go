package extractor

import "github.com/robert-at-pretension-io/rtl-hier/internal/lexer"

// collectParameters records every "parameter NAME = value" in toks, which
// spans the module header and body. Comma-continued assignments belong to
// the same parameter declaration. localparam is not a parameter. A later
// declaration of the same name overwrites an earlier one.
func collectParameters(src string, toks []lexer.Token, params map[string]string) {
	for i := 0; i < len(toks); i++ {
		if !toks[i].IsIdent("parameter") {
			continue
		}
		j := i + 1
		for j < len(toks) {
			eq := assignmentAt(toks, j)
			if eq < 0 {
				break
			}
			d := parseDeclarator(src, toks[j:eq])
			end := valueEnd(toks, eq+1)
			if d.name != "" && end > eq+1 {
				params[d.name] = lexer.Text(src, toks[eq+1:end])
			}
			if end >= len(toks) || !toks[end].IsPunct(",") {
				j = end
				break
			}
			j = end + 1
		}
		i = j - 1
	}
}

// assignmentAt returns the index of the '=' that completes a
// "[type] [dims] name =" prefix starting at from, or -1.
func assignmentAt(toks []lexer.Token, from int) int {
	for i := from; i < len(toks); i++ {
		t := toks[i]
		switch {
		case t.IsPunct("="):
			if i == from {
				return -1
			}
			return i
		case t.IsPunct("["):
			c := lexer.MatchClose(toks, i)
			if c < 0 {
				return -1
			}
			i = c
		case t.IsPunct("::"):
		case t.Kind == lexer.Ident:
			if t.IsIdent("parameter") || t.IsIdent("localparam") || (reservedWords[t.Text] && !typeWords[t.Text]) {
				return -1
			}
		default:
			return -1
		}
	}
	return -1
}

// valueEnd returns the index of the ',', ';' or unmatched ')' that ends a
// parameter value starting at from.
func valueEnd(toks []lexer.Token, from int) int {
	depth := 0
	for i := from; i < len(toks); i++ {
		t := toks[i]
		switch {
		case lexer.IsOpen(t):
			depth++
		case t.IsPunct(")") || t.IsPunct("]") || t.IsPunct("}"):
			if depth == 0 {
				return i
			}
			depth--
		case depth == 0 && (t.IsPunct(",") || t.IsPunct(";")):
			return i
		}
	}
	return len(toks)
}
