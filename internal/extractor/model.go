package extractor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/robert-at-pretension-io/rtl-hier/internal/lexer"
)

// Direction is the declared direction of a module port.
type Direction string

const (
	Input  Direction = "input"
	Output Direction = "output"
	Inout  Direction = "inout"
)

// ParseDirection accepts exactly the lowercase keywords input, output and
// inout.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Input, Output, Inout:
		return Direction(s), nil
	}
	return "", fmt.Errorf("invalid port direction %q", s)
}

// ConnectionKind tags what a port connection refers to.
type ConnectionKind string

const (
	// ConnNet is a plain net name in the enclosing module's scope.
	ConnNet ConnectionKind = "net"
	// ConnCrossModule is a dotted reference such as u_core.data_out.
	ConnCrossModule ConnectionKind = "cross_module"
	// ConnExpr is any other expression (literal, concatenation, slice).
	ConnExpr ConnectionKind = "expr"
)

// Connection describes the right-hand side of a named port connection.
type Connection struct {
	Kind   ConnectionKind `json:"kind"`
	Net    string         `json:"net,omitempty"`
	Module string         `json:"module,omitempty"`
	Port   string         `json:"port,omitempty"`
	Expr   string         `json:"expr,omitempty"`
}

// NetConnection returns a connection to a plain net.
func NetConnection(net string) Connection {
	return Connection{Kind: ConnNet, Net: net}
}

// CrossModuleConnection returns a connection to port of module.
func CrossModuleConnection(module, port string) Connection {
	return Connection{Kind: ConnCrossModule, Module: module, Port: port}
}

// ExprConnection returns a connection to an arbitrary expression.
func ExprConnection(expr string) Connection {
	return Connection{Kind: ConnExpr, Expr: expr}
}

func (c Connection) String() string {
	switch c.Kind {
	case ConnNet:
		return c.Net
	case ConnCrossModule:
		return c.Module + "." + c.Port
	case ConnExpr:
		return c.Expr
	}
	return ""
}

// classifyConnection builds a Connection from the tokens inside .port( ... ).
// It returns nil for an empty connection.
func classifyConnection(src string, toks []lexer.Token) *Connection {
	if len(toks) == 0 {
		return nil
	}
	if len(toks) == 1 && toks[0].Kind == lexer.Ident {
		c := NetConnection(toks[0].Text)
		return &c
	}
	if len(toks) >= 3 && len(toks)%2 == 1 && isDottedPath(toks) {
		last := len(toks) - 1
		c := CrossModuleConnection(lexer.Text(src, toks[:last-1]), toks[last].Text)
		return &c
	}
	c := ExprConnection(lexer.Text(src, toks))
	return &c
}

func isDottedPath(toks []lexer.Token) bool {
	for i, t := range toks {
		if i%2 == 0 {
			if t.Kind != lexer.Ident {
				return false
			}
		} else if !t.IsPunct(".") {
			return false
		}
	}
	return true
}

// Port is one port of a module.
type Port struct {
	Name        string      `json:"name"`
	Direction   Direction   `json:"direction"`
	Width       string      `json:"width"`
	ConnectedTo *Connection `json:"connected_to,omitempty"`
	IsClock     bool        `json:"is_clock,omitempty"`
	IsReset     bool        `json:"is_reset,omitempty"`
}

// NewPort validates direction and normalizes width.
func NewPort(name, direction, width string) (Port, error) {
	dir, err := ParseDirection(direction)
	if err != nil {
		return Port{}, &ExtractionError{Kind: KindValidation, Msg: fmt.Sprintf("port %s: %v", name, err)}
	}
	return Port{Name: name, Direction: dir, Width: NormalizeWidth(width)}, nil
}

// NormalizeWidth maps the empty string and "1" to "1", keeps bracketed
// ranges with whitespace collapsed and wraps anything else in brackets.
func NormalizeWidth(width string) string {
	w := lexer.CollapseSpace(width)
	switch {
	case w == "" || w == "1":
		return "1"
	case strings.HasPrefix(w, "["):
		return w
	}
	return "[" + w + "]"
}

// PortStyle records how a module declared its ports.
type PortStyle string

const (
	PortStyleANSI    PortStyle = "ansi"
	PortStyleNonANSI PortStyle = "non_ansi"
	PortStyleNone    PortStyle = "none"
)

// Confidence grades how cleanly an instantiation was recognized.
type Confidence string

const (
	ConfidenceHigh Confidence = "high"
	ConfidenceLow  Confidence = "low"
)

// ModuleInfo is everything extracted from one module declaration.
type ModuleInfo struct {
	Name       string            `json:"name"`
	Source     string            `json:"source"`
	Ports      []Port            `json:"ports"`
	Parameters map[string]string `json:"parameters"`
	// Instances maps instance name to instantiated module type.
	Instances map[string]string `json:"instances"`
	// Bindings holds named connections per instance: instance -> port -> connection.
	Bindings map[string]map[string]Connection `json:"bindings,omitempty"`
	// PositionalBindings holds ordered connections per instance. A zero
	// Connection marks an empty slot.
	PositionalBindings map[string][]Connection `json:"positional_bindings,omitempty"`
	Confidence         map[string]Confidence   `json:"confidence,omitempty"`
	ClockCandidates    []string                `json:"clock_candidates"`
	ResetCandidates    []string                `json:"reset_candidates"`
	PortStyle          PortStyle               `json:"port_style"`
	// OtherModules names further module declarations in the same source
	// unit. They are not extracted.
	OtherModules []string `json:"other_modules,omitempty"`
}

func (m *ModuleInfo) portsWithDirection(dir Direction) []Port {
	var out []Port
	for _, p := range m.Ports {
		if p.Direction == dir {
			out = append(out, p)
		}
	}
	return out
}

// InputPorts returns input ports in declaration order.
func (m *ModuleInfo) InputPorts() []Port { return m.portsWithDirection(Input) }

// OutputPorts returns output ports in declaration order.
func (m *ModuleInfo) OutputPorts() []Port { return m.portsWithDirection(Output) }

// InoutPorts returns inout ports in declaration order.
func (m *ModuleInfo) InoutPorts() []Port { return m.portsWithDirection(Inout) }

// Port looks up a port by name.
func (m *ModuleInfo) Port(name string) (Port, bool) {
	if i := m.portIndex(name); i >= 0 {
		return m.Ports[i], true
	}
	return Port{}, false
}

func (m *ModuleInfo) portIndex(name string) int {
	for i := range m.Ports {
		if m.Ports[i].Name == name {
			return i
		}
	}
	return -1
}

// InstanceNames returns instance names sorted.
func (m *ModuleInfo) InstanceNames() []string {
	names := make([]string, 0, len(m.Instances))
	for name := range m.Instances {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// InstanceBindings merges the named and positional connections of inst,
// resolving positional slots against child's port order. child may be nil,
// in which case only named connections are returned.
func (m *ModuleInfo) InstanceBindings(inst string, child *ModuleInfo) map[string]Connection {
	out := make(map[string]Connection, len(m.Bindings[inst]))
	for port, conn := range m.Bindings[inst] {
		out[port] = conn
	}
	if child == nil {
		return out
	}
	for i, conn := range m.PositionalBindings[inst] {
		if i >= len(child.Ports) || conn.Kind == "" {
			continue
		}
		out[child.Ports[i].Name] = conn
	}
	return out
}

// protocolSignals lists the port-name fragments that together identify a
// bus interface.
var protocolSignals = map[string][]string{
	"AXI":      {"valid", "ready", "data"},
	"APB":      {"psel", "penable", "pwrite"},
	"Wishbone": {"cyc", "stb", "ack"},
}

// Protocols returns the bus protocols whose signal set appears in the port
// names, sorted.
func (m *ModuleInfo) Protocols() []string {
	var found []string
	for proto, signals := range protocolSignals {
		if m.hasAllSignals(signals) {
			found = append(found, proto)
		}
	}
	sort.Strings(found)
	return found
}

func (m *ModuleInfo) hasAllSignals(signals []string) bool {
	for _, sig := range signals {
		matched := false
		for _, p := range m.Ports {
			if strings.Contains(strings.ToLower(p.Name), sig) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}
