package extractor

import "github.com/robert-at-pretension-io/rtl-hier/internal/lexer"

func wordSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// directionWords start a port declaration. ref is recognized so that it
// can be rejected by ParseDirection.
var directionWords = wordSet("input", "output", "inout", "ref")

// typeWords are net types, data types and qualifiers that may precede a
// declared name.
var typeWords = wordSet(
	"wire", "reg", "logic", "bit", "byte", "shortint", "int", "longint",
	"integer", "time", "real", "shortreal", "realtime", "string", "chandle",
	"event", "tri", "tri0", "tri1", "triand", "trior", "trireg", "wand",
	"wor", "uwire", "supply0", "supply1", "signed", "unsigned", "var",
	"const", "static", "automatic", "type", "interconnect",
)

// gatePrimitives are built-in gate and switch instantiations.
var gatePrimitives = wordSet(
	"and", "nand", "or", "nor", "xor", "xnor", "buf", "not",
	"bufif0", "bufif1", "notif0", "notif1", "pullup", "pulldown",
	"nmos", "pmos", "rnmos", "rpmos", "cmos", "rcmos",
	"tran", "rtran", "tranif0", "tranif1", "rtranif0", "rtranif1",
)

// reservedWords may never be an instantiated module type or instance name.
var reservedWords = wordSet(
	"always", "always_comb", "always_ff", "always_latch", "assign", "assert",
	"assume", "begin", "bind", "case", "casex", "casez", "class", "clocking",
	"config", "constraint", "cover", "covergroup", "deassign", "default",
	"defparam", "disable", "do", "else", "end", "endcase", "endclass",
	"endclocking", "endconfig", "endfunction", "endgenerate", "endgroup",
	"endinterface", "endmodule", "endpackage", "endprimitive", "endprogram",
	"endproperty", "endsequence", "endspecify", "endtable", "endtask", "enum",
	"export", "extern", "final", "for", "force", "foreach", "forever", "fork",
	"function", "generate", "genvar", "if", "iff", "import", "initial",
	"inside", "interface", "join", "join_any", "join_none", "localparam",
	"macromodule", "modport", "module", "negedge", "new", "null", "package",
	"packed", "parameter", "posedge", "primitive", "priority", "program",
	"property", "release", "repeat", "return", "sequence", "specify",
	"specparam", "struct", "super", "table", "task", "this", "typedef",
	"union", "unique", "unique0", "void", "wait", "while", "with",
	"edge", "or", "and", "not", "break", "continue", "let", "checker",
	"endchecker", "randcase", "randsequence", "virtual", "pure", "local",
	"protected", "rand", "randc", "timeunit", "timeprecision", "input",
	"output", "inout", "ref",
)

func isReserved(word string) bool {
	return reservedWords[word] || typeWords[word] || gatePrimitives[word]
}

func isDirection(t lexer.Token) bool {
	return t.Kind == lexer.Ident && directionWords[t.Text]
}

func isModuleKeyword(t lexer.Token) bool {
	return t.IsIdent("module") || t.IsIdent("macromodule")
}

// isPlainIdent reports whether t can name a user object.
func isPlainIdent(t lexer.Token) bool {
	return t.Kind == lexer.Ident && !isReserved(t.Text)
}
