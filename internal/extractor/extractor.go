// Package extractor turns one Verilog/SystemVerilog source unit into a
// ModuleInfo: the first module's name, ports, parameters, child instances
// and port connections. Extraction is best-effort text scanning, not
// elaboration.
package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/robert-at-pretension-io/rtl-hier/internal/lexer"
)

// Version changes whenever extraction output changes shape or meaning.
// Cached results carrying another version are discarded.
const Version = "3"

// Default clock and reset vocabularies, matched case-insensitively as
// substrings of port names.
var (
	DefaultClockTokens = []string{"clk", "clock"}
	DefaultResetTokens = []string{"rst", "reset"}
)

// Extractor extracts module information from source text. It holds no
// mutable state and is safe for concurrent use.
type Extractor struct {
	clockTokens []string
	resetTokens []string
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithClockTokens replaces the clock vocabulary.
func WithClockTokens(tokens ...string) Option {
	return func(e *Extractor) {
		if len(tokens) > 0 {
			e.clockTokens = lowerAll(tokens)
		}
	}
}

// WithResetTokens replaces the reset vocabulary.
func WithResetTokens(tokens ...string) Option {
	return func(e *Extractor) {
		if len(tokens) > 0 {
			e.resetTokens = lowerAll(tokens)
		}
	}
}

// New creates a new Extractor
func New(opts ...Option) *Extractor {
	e := &Extractor{
		clockTokens: DefaultClockTokens,
		resetTokens: DefaultResetTokens,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultExtractor = New()

// ExtractModule extracts the first module in source using the default
// vocabularies.
func ExtractModule(source, sourceID string) (*ModuleInfo, error) {
	return defaultExtractor.Extract(source, sourceID)
}

// ExtractFile reads and extracts path using the default vocabularies.
func ExtractFile(path string) (*ModuleInfo, error) {
	return defaultExtractor.ExtractFile(path)
}

// ExtractFile reads path, decodes it and extracts its first module. The
// path is used as the source identifier.
func (e *Extractor) ExtractFile(path string) (*ModuleInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		msg := "reading source"
		if errors.Is(err, fs.ErrNotExist) {
			msg = "source unit does not exist"
		}
		return nil, &ExtractionError{Kind: KindNotFound, Source: path, Msg: msg, Err: err}
	}
	src, err := DecodeSource(data)
	if err != nil {
		return nil, &ExtractionError{Kind: KindParse, Source: path, Msg: "decoding source", Err: err}
	}
	return e.Extract(src, path)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeSource decodes data as UTF-8, falling back to ISO-8859-1 when the
// bytes are not valid UTF-8. A leading byte-order mark is dropped.
func DecodeSource(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), nil
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Extract parses source text and extracts the first module declared in it.
func (e *Extractor) Extract(source, sourceID string) (*ModuleInfo, error) {
	clean := lexer.StripComments(source)
	toks := lexer.Tokenize(clean)

	hdr, ok := findHeader(toks)
	if !ok {
		return nil, &ExtractionError{Kind: KindParse, Source: sourceID, Msg: "no module declaration found"}
	}

	mod := &ModuleInfo{
		Name:       hdr.name,
		Source:     sourceID,
		Parameters: make(map[string]string),
		Instances:  make(map[string]string),
	}

	body := toks[hdr.bodyStart:hdr.bodyEnd]
	items := skipSubroutines(body)

	ports, err := parseANSIPorts(clean, hdr.ports)
	if err == nil && len(ports) == 0 {
		ports, err = parseBodyPorts(clean, items)
		if len(ports) > 0 {
			mod.PortStyle = PortStyleNonANSI
		}
	} else if len(ports) > 0 {
		mod.PortStyle = PortStyleANSI
	}
	if err != nil {
		var ee *ExtractionError
		if errors.As(err, &ee) {
			ee.Source = sourceID
			return nil, ee
		}
		return nil, &ExtractionError{Kind: KindValidation, Source: sourceID, Err: err}
	}
	if mod.PortStyle == "" {
		mod.PortStyle = PortStyleNone
	}
	mod.Ports = ports

	collectParameters(clean, toks[hdr.start:hdr.bodyEnd], mod.Parameters)
	collectInstances(clean, items, mod)
	annotateConnections(clean, body, mod)
	e.classifyPorts(mod)
	mod.OtherModules = otherModules(toks, hdr)

	return mod, nil
}

func (e *Extractor) classifyPorts(mod *ModuleInfo) {
	mod.ClockCandidates = []string{}
	mod.ResetCandidates = []string{}
	for i := range mod.Ports {
		p := &mod.Ports[i]
		lower := strings.ToLower(p.Name)
		if containsAny(lower, e.clockTokens) {
			p.IsClock = true
			mod.ClockCandidates = append(mod.ClockCandidates, p.Name)
		}
		if containsAny(lower, e.resetTokens) {
			p.IsReset = true
			mod.ResetCandidates = append(mod.ResetCandidates, p.Name)
		}
	}
}

// Describe renders a short human-readable summary of mod.
func Describe(mod *ModuleInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "module %s (%s)\n", mod.Name, mod.Source)
	for _, p := range mod.Ports {
		fmt.Fprintf(&b, "  %-6s %-12s %s", p.Direction, p.Width, p.Name)
		if p.ConnectedTo != nil {
			fmt.Fprintf(&b, " -> %s", p.ConnectedTo)
		}
		b.WriteByte('\n')
	}
	for _, name := range sortedKeys(mod.Parameters) {
		fmt.Fprintf(&b, "  parameter %s = %s\n", name, mod.Parameters[name])
	}
	for _, name := range mod.InstanceNames() {
		fmt.Fprintf(&b, "  %s %s\n", mod.Instances[name], name)
	}
	return b.String()
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if t != "" && strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(s))
	}
	return out
}
