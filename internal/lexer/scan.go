package lexer

import "strings"

var closers = map[string]string{
	"(": ")",
	"[": "]",
	"{": "}",
}

// IsOpen reports whether the token opens a bracketed group.
func IsOpen(t Token) bool {
	if t.Kind != Punct {
		return false
	}
	_, ok := closers[t.Text]
	return ok
}

func isClose(t Token) bool {
	return t.Kind == Punct && (t.Text == ")" || t.Text == "]" || t.Text == "}")
}

// MatchClose returns the index of the token closing the group opened at
// toks[open], or -1 if the group is unbalanced. Mismatched closers inside
// the group are tolerated; only nesting depth is tracked.
func MatchClose(toks []Token, open int) int {
	if open < 0 || open >= len(toks) || !IsOpen(toks[open]) {
		return -1
	}
	depth := 0
	for i := open; i < len(toks); i++ {
		switch {
		case IsOpen(toks[i]):
			depth++
		case isClose(toks[i]):
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// SplitTopLevel splits toks at every sep punctuation that is not nested
// inside a bracketed group. Empty segments are preserved.
func SplitTopLevel(toks []Token, sep string) [][]Token {
	var parts [][]Token
	depth := 0
	start := 0
	for i, t := range toks {
		switch {
		case IsOpen(t):
			depth++
		case isClose(t):
			if depth > 0 {
				depth--
			}
		case depth == 0 && t.IsPunct(sep):
			parts = append(parts, toks[start:i])
			start = i + 1
		}
	}
	return append(parts, toks[start:])
}

// IndexTopLevel returns the index of the first sep punctuation at nesting
// depth zero at or after from, or -1.
func IndexTopLevel(toks []Token, from int, sep ...string) int {
	depth := 0
	for i := from; i < len(toks); i++ {
		t := toks[i]
		switch {
		case IsOpen(t):
			depth++
		case isClose(t):
			depth--
			if depth < 0 {
				return -1
			}
		case depth == 0 && t.Kind == Punct:
			for _, s := range sep {
				if t.Text == s {
					return i
				}
			}
		}
	}
	return -1
}

// Text returns the source text spanned by toks with runs of whitespace
// collapsed to a single space.
func Text(src string, toks []Token) string {
	if len(toks) == 0 {
		return ""
	}
	return CollapseSpace(src[toks[0].Pos:toks[len(toks)-1].End])
}

// CollapseSpace trims s and replaces every whitespace run with one space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
