package capability

import (
	"strings"
	"unicode"

	"github.com/wippyai/archive-runtime/errors"
	"github.com/wippyai/archive-runtime/native"
)

// Func enables one capability on a native stream object.
type Func func(a *native.Archive) native.Status

// Capability pairs a configuration name with its enabling function.
type Capability struct {
	Enable Func
	Name   string
}

// Table is a static, ordered name table for one domain.
type Table struct {
	// Domain names the configuration field, e.g. "format" or "compression".
	Domain string
	// Op is reported as the failing operation.
	Op      string
	Entries []Capability
}

// Lookup returns the enabling function registered under name.
// Matching is exact and the first entry wins.
func (t *Table) Lookup(name string) (Func, bool) {
	for _, c := range t.Entries {
		if c.Name == name {
			return c.Enable, true
		}
	}
	return nil, false
}

// Names lists the table's names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.Entries))
	for i, c := range t.Entries {
		names[i] = c.Name
	}
	return names
}

// Tokenize splits a capability list on runs of characters that are neither
// letters, digits nor underscores. Empty input yields no tokens.
func Tokenize(list string) []string {
	return strings.FieldsFunc(list, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}

// Enable enables every capability named in list, in order, and returns how
// many were enabled. It stops at the first unknown name or native failure;
// capabilities enabled before that point stay enabled.
func Enable(a *native.Archive, t *Table, list string) (int, error) {
	n := 0
	for _, tok := range Tokenize(list) {
		fn, ok := t.Lookup(tok)
		if !ok {
			return n, errors.UnknownCapability(t.Domain, t.Op, tok)
		}
		if st := fn(a); st != native.StatusOK {
			return n, errors.New(errors.PhaseCapability, errors.KindNativeLibrary).
				Op(t.Op).
				Path(t.Domain).
				Value(tok).
				Detail("%s", diagnostic(a, st)).
				Build()
		}
		n++
	}
	return n, nil
}

func diagnostic(a *native.Archive, st native.Status) string {
	if msg := a.ErrorString(); msg != "" {
		return msg
	}
	return "status " + st.String()
}
