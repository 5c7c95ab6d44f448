package assembler

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels for errors.Is matching on *HierarchyError.
var (
	ErrRootNotFound = errors.New("project root not found")
	ErrNoModules    = errors.New("no extractable modules")
	ErrNoTopLevel   = errors.New("no top-level module found")
	ErrAmbiguousTop = errors.New("ambiguous top-level module")
	ErrConflict     = errors.New("conflicting module definitions")
)

// HierarchyError is a project-level failure. No partial hierarchy
// accompanies it.
type HierarchyError struct {
	Err        error
	Root       string
	Msg        string
	Candidates []string
	Cycles     [][]string
}

func (e *HierarchyError) Error() string {
	var b strings.Builder
	b.WriteString(e.Err.Error())
	if e.Root != "" {
		fmt.Fprintf(&b, " in %s", e.Root)
	}
	if e.Msg != "" {
		fmt.Fprintf(&b, ": %s", e.Msg)
	}
	if len(e.Candidates) > 0 {
		fmt.Fprintf(&b, " (candidates: %s)", strings.Join(e.Candidates, ", "))
	}
	for _, c := range e.Cycles {
		fmt.Fprintf(&b, " (cycle: %s)", strings.Join(c, " -> "))
	}
	return b.String()
}

func (e *HierarchyError) Unwrap() error { return e.Err }
