package extractor

import (
	"strings"

	"github.com/robert-at-pretension-io/rtl-hier/internal/lexer"
)

// declarator is the parsed tail of a declaration after its direction.
type declarator struct {
	name    string
	width   string // packed dimensions before the name
	hasType bool   // an explicit data type or packed range was given
}

// parseDeclarator reads "[type] [packed dims] name [unpacked dims] [= init]".
// The name is the last plain identifier outside brackets before any '='.
func parseDeclarator(src string, toks []lexer.Token) declarator {
	var d declarator
	var packed []string
	nameIdx := -1
	var pendingDims []string

	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.IsPunct("=") {
			break
		}
		if lexer.IsOpen(t) {
			c := lexer.MatchClose(toks, i)
			if c < 0 {
				break
			}
			if t.IsPunct("[") {
				pendingDims = append(pendingDims, lexer.Text(src, toks[i:c+1]))
			}
			i = c
			continue
		}
		if t.Kind != lexer.Ident {
			continue
		}
		if typeWords[t.Text] {
			d.hasType = true
			continue
		}
		if i+1 < len(toks) && toks[i+1].IsPunct("::") {
			// Package qualifier of a user-defined type.
			d.hasType = true
			continue
		}
		if isReserved(t.Text) {
			continue
		}
		if nameIdx >= 0 {
			// The previous identifier was a user-defined type.
			d.hasType = true
		}
		nameIdx = i
		packed = append(packed, pendingDims...)
		pendingDims = nil
	}

	if nameIdx < 0 {
		return declarator{}
	}
	d.name = toks[nameIdx].Text
	d.width = strings.Join(packed, "")
	if d.width != "" {
		d.hasType = true
	}
	return d
}

// parseANSIPorts reads ports declared in the header list. Entries without
// their own direction inherit direction and, when they name no type, width
// from the previous entry. Interface ports and entries before the first
// direction are skipped. Duplicate names keep the first declaration.
func parseANSIPorts(src string, list []lexer.Token) ([]Port, error) {
	var ports []Port
	seen := make(map[string]bool)
	curDir := ""
	curWidth := ""

	for _, item := range lexer.SplitTopLevel(list, ",") {
		if len(item) == 0 {
			continue
		}
		explicit := isDirection(item[0])
		rest := item
		if explicit {
			curDir = item[0].Text
			rest = item[1:]
		} else if isInterfacePort(item) {
			curDir = ""
			continue
		}
		if curDir == "" {
			continue
		}

		d := parseDeclarator(src, rest)
		if d.name == "" {
			continue
		}
		width := d.width
		if !explicit && !d.hasType {
			width = curWidth
		}
		curWidth = width

		if seen[d.name] {
			continue
		}
		p, err := NewPort(d.name, curDir, width)
		if err != nil {
			return nil, err
		}
		seen[d.name] = true
		ports = append(ports, p)
	}
	return ports, nil
}

// isInterfacePort matches "iface.modport name", "interface name" and
// explicit ".name(expr)" entries.
func isInterfacePort(item []lexer.Token) bool {
	if item[0].IsPunct(".") || item[0].IsIdent("interface") {
		return true
	}
	return len(item) >= 3 && item[0].Kind == lexer.Ident && item[1].IsPunct(".") && item[2].Kind == lexer.Ident
}

// parseBodyPorts reads direction statements from the module body (function
// and task bodies already removed). Each name in a statement shares its
// direction and packed width. Duplicate names keep the first declaration.
func parseBodyPorts(src string, items []lexer.Token) ([]Port, error) {
	var ports []Port
	seen := make(map[string]bool)

	for i := 0; i < len(items); i++ {
		t := items[i]
		if lexer.IsOpen(t) {
			if c := lexer.MatchClose(items, i); c > 0 {
				i = c
			}
			continue
		}
		if !isDirection(t) || !atStatementStart(items, i) {
			continue
		}
		end := lexer.IndexTopLevel(items, i+1, ";")
		if end < 0 {
			end = len(items)
		}

		groups := lexer.SplitTopLevel(items[i+1:end], ",")
		width := ""
		for gi, g := range groups {
			d := parseDeclarator(src, g)
			if d.name == "" {
				continue
			}
			if gi == 0 || d.width != "" {
				width = d.width
			}
			if seen[d.name] {
				continue
			}
			p, err := NewPort(d.name, t.Text, width)
			if err != nil {
				return nil, err
			}
			seen[d.name] = true
			ports = append(ports, p)
		}
		i = end
	}
	return ports, nil
}

// atStatementStart reports whether items[i] begins a statement.
func atStatementStart(items []lexer.Token, i int) bool {
	if i == 0 {
		return true
	}
	prev := items[i-1]
	if prev.IsPunct(";") || prev.Kind == lexer.Directive {
		return true
	}
	return prev.IsIdent("begin") || prev.IsIdent("end")
}
