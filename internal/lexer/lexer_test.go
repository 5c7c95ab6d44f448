package lexer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripComments(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"line comment", "a // b\nc", "a \nc"},
		{"block comment", "a /* b */ c", "a   c"},
		{"block keeps newlines", "a/*\n\n*/b", "a \n\nb"},
		{"string with slashes", `x = "// not a comment"; // gone`, `x = "// not a comment"; `},
		{"string with block opener", `$display("/*"); y`, `$display("/*"); y`},
		{"escaped quote in string", `"a\"//b" c`, `"a\"//b" c`},
		{"escaped identifier", `\bus//x  y`, `\bus//x  y`},
		{"unterminated block", "a /* never closed\nb", "a  \n"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripComments(tt.in))
		})
	}
}

func TestStripCommentsIdempotent(t *testing.T) {
	inputs := []string{
		"module m(input a); // c\n/* x\n y */ endmodule",
		`wire s = "/* keep */"; // drop`,
		"a/**/b",
		"/* a */ /* b */ // c",
	}
	for _, in := range inputs {
		once := StripComments(in)
		assert.Equal(t, once, StripComments(once), "input %q", in)
	}
}

func TestTokenizeKinds(t *testing.T) {
	toks := Tokenize("module m #(parameter W = 8'hFF) (input [W-1:0] a); $clog2(W) \"s\" `WIDTH pkg::t '1")

	var kinds []Kind
	var texts []string
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
		texts = append(texts, tok.Text)
	}

	assert.Contains(t, texts, "8'hFF")
	assert.Contains(t, texts, "$clog2")
	assert.Contains(t, texts, `"s"`)
	assert.Contains(t, texts, "`WIDTH")
	assert.Contains(t, texts, "::")
	assert.Contains(t, texts, "'1")
	assert.Equal(t, Ident, kinds[0])

	for _, tok := range toks {
		switch tok.Text {
		case "8'hFF", "'1":
			assert.Equal(t, Number, tok.Kind)
		case "$clog2":
			assert.Equal(t, SysIdent, tok.Kind)
		case "`WIDTH":
			assert.Equal(t, Directive, tok.Kind)
		}
	}
}

func TestTokenizeSkipsCommentsAndAttributes(t *testing.T) {
	toks := Tokenize("(* keep = 1 *) wire a; // c\n/* d */ always @(*) b")
	var texts []string
	for _, tok := range toks {
		texts = append(texts, tok.Text)
	}
	assert.Equal(t, []string{"wire", "a", ";", "always", "@", "(", "*", ")", "b"}, texts)
}

func TestTokenizeLineDirectives(t *testing.T) {
	src := "`define MAX(a,b) \\\n  ((a) > (b))\n`timescale 1ns/1ps\nmodule m;"
	toks := Tokenize(src)
	require.GreaterOrEqual(t, len(toks), 3)
	assert.Equal(t, Directive, toks[0].Kind)
	assert.True(t, strings.HasPrefix(toks[0].Text, "`define MAX"))
	assert.Contains(t, toks[0].Text, "((a) > (b))")
	assert.Equal(t, Directive, toks[1].Kind)
	assert.True(t, toks[2].IsIdent("module"))
	assert.Equal(t, 4, toks[2].Line)
}

func TestTokenizeEscapedIdentifier(t *testing.T) {
	toks := Tokenize(`\data[0]  , b`)
	require.Len(t, toks, 3)
	assert.Equal(t, Ident, toks[0].Kind)
	assert.Equal(t, `\data[0]`, toks[0].Text)
}

func TestMatchClose(t *testing.T) {
	toks := Tokenize("f(a, (b[1]), {c}) x")
	assert.Equal(t, len(toks)-2, MatchClose(toks, 1))
	assert.Equal(t, -1, MatchClose(toks, 0))

	unbalanced := Tokenize("(a, (b)")
	assert.Equal(t, -1, MatchClose(unbalanced, 0))
}

func TestSplitTopLevel(t *testing.T) {
	src := "a, f(b, c), [1, 2] d,"
	parts := SplitTopLevel(Tokenize(src), ",")
	require.Len(t, parts, 4)
	assert.Equal(t, "a", Text(src, parts[0]))
	assert.Equal(t, "f(b, c)", Text(src, parts[1]))
	assert.Equal(t, "[1, 2] d", Text(src, parts[2]))
	assert.Empty(t, parts[3])
}

func TestIndexTopLevel(t *testing.T) {
	toks := Tokenize("a = f(b, c), d; e")
	idx := IndexTopLevel(toks, 0, ",", ";")
	require.NotEqual(t, -1, idx)
	assert.Equal(t, ",", toks[idx].Text)
	assert.Equal(t, "d", toks[idx+1].Text)

	closing := Tokenize("x) y")
	assert.Equal(t, -1, IndexTopLevel(closing, 0, ";"))
}

func TestCollapseSpace(t *testing.T) {
	assert.Equal(t, "[W - 1 : 0]", CollapseSpace("  [W -\n 1\t: 0] "))
}
