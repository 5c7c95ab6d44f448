// Package lexer provides the text-scanning primitives shared by the module
// extractor: comment stripping, tokenization and balanced-delimiter scanning
// over Verilog/SystemVerilog source.
//
// The lexer is deliberately shallow. It knows enough about the language to
// never confuse a comment opener inside a string literal for a real comment,
// and to keep parentheses inside strings and attributes from unbalancing a
// scan, but it does not understand statements or expressions.
package lexer

import "strings"

// Kind classifies a token.
type Kind int

const (
	Ident     Kind = iota // identifiers, keywords and escaped identifiers
	SysIdent              // $display, $clog2
	Number                // 12, 8'hFF, 'b0, '1, 1.5
	String                // "text", quotes included
	Directive             // `define ..., `WIDTH
	Punct                 // single characters and "::"
)

func (k Kind) String() string {
	switch k {
	case Ident:
		return "ident"
	case SysIdent:
		return "sysident"
	case Number:
		return "number"
	case String:
		return "string"
	case Directive:
		return "directive"
	case Punct:
		return "punct"
	}
	return "unknown"
}

// Token is one lexical unit. Pos and End are byte offsets into the scanned
// source; Line is 1-based.
type Token struct {
	Kind Kind
	Text string
	Pos  int
	End  int
	Line int
}

// IsPunct reports whether the token is the punctuation p.
func (t Token) IsPunct(p string) bool {
	return t.Kind == Punct && t.Text == p
}

// IsIdent reports whether the token is the identifier name.
func (t Token) IsIdent(name string) bool {
	return t.Kind == Ident && t.Text == name
}

// lineDirectives consume the remainder of their line (honoring backslash
// continuations) because their arguments are not part of the design text.
var lineDirectives = map[string]bool{
	"define":              true,
	"undef":               true,
	"include":             true,
	"timescale":           true,
	"default_nettype":     true,
	"line":                true,
	"pragma":              true,
	"ifdef":               true,
	"ifndef":              true,
	"elsif":               true,
	"unconnected_drive":   true,
	"nounconnected_drive": true,
	"begin_keywords":      true,
}

type lexerState int

const (
	stateNormal lexerState = iota
	stateInString
	stateInLineComment
	stateInBlockComment
)

// StripComments removes // and /* */ comments in a single pass. Comment
// openers inside string literals and escaped identifiers are left alone.
// A block comment is replaced by one space plus the newlines it spanned so
// that token boundaries and line numbers survive. An unterminated block
// comment runs to the end of the input. Stripping is idempotent.
func StripComments(src string) string {
	var b strings.Builder
	b.Grow(len(src))

	state := stateNormal
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch state {
		case stateNormal:
			switch {
			case c == '"':
				state = stateInString
				b.WriteByte(c)
			case c == '\\':
				// Escaped identifier: copy through to the terminating whitespace.
				j := i
				for j < len(src) && !isSpace(src[j]) {
					j++
				}
				b.WriteString(src[i:j])
				i = j - 1
			case c == '/' && i+1 < len(src) && src[i+1] == '/':
				state = stateInLineComment
				i++
			case c == '/' && i+1 < len(src) && src[i+1] == '*':
				state = stateInBlockComment
				b.WriteByte(' ')
				i++
			default:
				b.WriteByte(c)
			}
		case stateInString:
			b.WriteByte(c)
			switch c {
			case '\\':
				if i+1 < len(src) {
					i++
					b.WriteByte(src[i])
				}
			case '"', '\n':
				state = stateNormal
			}
		case stateInLineComment:
			if c == '\n' {
				b.WriteByte(c)
				state = stateNormal
			}
		case stateInBlockComment:
			switch {
			case c == '\n':
				b.WriteByte(c)
			case c == '*' && i+1 < len(src) && src[i+1] == '/':
				state = stateNormal
				i++
			}
		}
	}
	return b.String()
}

// Lexer tokenizes Verilog/SystemVerilog source text.
type Lexer struct {
	source string
	pos    int
	line   int
}

// New returns a Lexer over src.
func New(src string) *Lexer {
	return &Lexer{source: src, line: 1}
}

// Tokenize returns every token in src. Comments and attribute instances
// ((* ... *)) are skipped.
func Tokenize(src string) []Token {
	l := New(src)
	tokens := make([]Token, 0, max(len(src)/5, 16))
	for {
		tok, ok := l.Next()
		if !ok {
			return tokens
		}
		tokens = append(tokens, tok)
	}
}

// Next returns the next token, or false at end of input.
func (l *Lexer) Next() (Token, bool) {
	for {
		l.skipWhitespace()
		c, ok := l.peek()
		if !ok {
			return Token{}, false
		}
		next, _ := l.peekAt(1)
		switch {
		case c == '/' && next == '/':
			l.skipLineComment()
			continue
		case c == '/' && next == '*':
			l.skipBlockComment()
			continue
		case c == '(' && next == '*':
			if after, ok := l.peekAt(2); ok && after != ')' {
				l.skipAttribute()
				continue
			}
		}
		return l.scan(), true
	}
}

func (l *Lexer) peek() (byte, bool) {
	if l.pos >= len(l.source) {
		return 0, false
	}
	return l.source[l.pos], true
}

func (l *Lexer) peekAt(offset int) (byte, bool) {
	idx := l.pos + offset
	if idx >= len(l.source) {
		return 0, false
	}
	return l.source[idx], true
}

func (l *Lexer) advance() byte {
	c := l.source[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
	}
	return c
}

func (l *Lexer) skipWhitespace() {
	for {
		c, ok := l.peek()
		if !ok || !isSpace(c) {
			return
		}
		l.advance()
	}
}

func (l *Lexer) skipLineComment() {
	for {
		c, ok := l.peek()
		if !ok || c == '\n' {
			return
		}
		l.advance()
	}
}

func (l *Lexer) skipBlockComment() {
	l.advance()
	l.advance()
	for {
		c, ok := l.peek()
		if !ok {
			return
		}
		if next, _ := l.peekAt(1); c == '*' && next == '/' {
			l.advance()
			l.advance()
			return
		}
		l.advance()
	}
}

func (l *Lexer) skipAttribute() {
	l.advance()
	l.advance()
	for {
		c, ok := l.peek()
		if !ok {
			return
		}
		if next, _ := l.peekAt(1); c == '*' && next == ')' {
			l.advance()
			l.advance()
			return
		}
		l.advance()
	}
}

func (l *Lexer) scan() Token {
	start := l.pos
	line := l.line
	c := l.advance()

	kind := Punct
	switch {
	case isIdentStart(c):
		kind = Ident
		l.consumeWhile(isIdentPart)
	case c == '\\':
		kind = Ident
		l.consumeWhile(func(b byte) bool { return !isSpace(b) })
	case c == '$':
		if n, ok := l.peek(); ok && isIdentStart(n) {
			kind = SysIdent
			l.consumeWhile(isIdentPart)
		}
	case isDigit(c):
		kind = Number
		l.scanNumber()
	case c == '\'':
		if n, ok := l.peek(); ok && (isBaseChar(n) || n == '0' || n == '1' || n == 'x' || n == 'X' || n == 'z' || n == 'Z') {
			kind = Number
			l.scanBased()
		}
	case c == '"':
		kind = String
		l.scanString()
	case c == '`':
		kind = Directive
		l.scanDirective()
	case c == ':':
		if n, ok := l.peek(); ok && n == ':' {
			l.advance()
		}
	}

	return Token{
		Kind: kind,
		Text: l.source[start:l.pos],
		Pos:  start,
		End:  l.pos,
		Line: line,
	}
}

func (l *Lexer) consumeWhile(pred func(byte) bool) {
	for {
		c, ok := l.peek()
		if !ok || !pred(c) {
			return
		}
		l.advance()
	}
}

func (l *Lexer) scanNumber() {
	l.consumeWhile(func(b byte) bool { return isDigit(b) || b == '_' })
	if c, ok := l.peek(); ok && c == '.' {
		if n, ok := l.peekAt(1); ok && isDigit(n) {
			l.advance()
			l.consumeWhile(func(b byte) bool { return isDigit(b) || b == '_' })
		}
	}
	if c, ok := l.peek(); ok && (c == 'e' || c == 'E') {
		if n, ok := l.peekAt(1); ok && (isDigit(n) || n == '-' || n == '+') {
			l.advance()
			l.advance()
			l.consumeWhile(isDigit)
		}
	}
	if c, ok := l.peek(); ok && c == '\'' {
		if n, ok := l.peekAt(1); ok && (isBaseChar(n) || n == 's' || n == 'S') {
			l.advance()
			l.scanBased()
		}
	}
}

// scanBased consumes the remainder of a based literal after the apostrophe.
func (l *Lexer) scanBased() {
	if c, ok := l.peek(); ok && (c == 's' || c == 'S') {
		l.advance()
	}
	if c, ok := l.peek(); ok && isBaseChar(c) {
		l.advance()
	}
	l.consumeWhile(func(b byte) bool {
		return isHexDigit(b) || b == '_' || b == 'x' || b == 'X' || b == 'z' || b == 'Z' || b == '?'
	})
}

func (l *Lexer) scanString() {
	for {
		c, ok := l.peek()
		if !ok || c == '\n' {
			return
		}
		l.advance()
		switch c {
		case '\\':
			if _, ok := l.peek(); ok {
				l.advance()
			}
		case '"':
			return
		}
	}
}

func (l *Lexer) scanDirective() {
	nameStart := l.pos
	l.consumeWhile(isIdentPart)
	if !lineDirectives[l.source[nameStart:l.pos]] {
		return
	}
	for {
		c, ok := l.peek()
		if !ok {
			return
		}
		if c == '\\' {
			if n, ok := l.peekAt(1); ok && (n == '\n' || n == '\r') {
				l.advance()
				l.advance()
				if n == '\r' {
					if nn, ok := l.peek(); ok && nn == '\n' {
						l.advance()
					}
				}
				continue
			}
		}
		if c == '\n' {
			return
		}
		l.advance()
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == '\v'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c) || c == '$'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isBaseChar(c byte) bool {
	switch c {
	case 'b', 'B', 'o', 'O', 'd', 'D', 'h', 'H':
		return true
	}
	return false
}
