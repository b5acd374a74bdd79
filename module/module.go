package module

import (
	"strconv"

	"github.com/wippyai/archive-runtime/archive"
	"github.com/wippyai/archive-runtime/config"
	"github.com/wippyai/archive-runtime/native"
)

// library is the standard archive namespace.
type library struct{}

func (library) Register() map[string]any {
	return map[string]any{
		"version":          Version,
		"read":             Read,
		"write":            Write,
		"entry":            NewEntry,
		"_read_ref_count":  archive.ReadRefCount,
		"_write_ref_count": archive.WriteRefCount,
		"_entry_ref_count": archive.EntryRefCount,
	}
}

// Open returns a registry holding the standard archive namespace.
func Open() *Registry {
	r := NewRegistry()
	if err := r.RegisterMethods(library{}); err != nil {
		// Every entry above is a function.
		panic(err)
	}
	return r
}

// Version returns the numeric components of the native engine version.
func Version() []int {
	return ParseVersion(native.VersionString())
}

// ParseVersion extracts every run of decimal digits in s, in order.
func ParseVersion(s string) []int {
	var parts []int
	for i := 0; i < len(s); {
		if !isDigit(s[i]) {
			i++
			continue
		}
		j := i
		for j < len(s) && isDigit(s[j]) {
			j++
		}
		if n, err := strconv.Atoi(s[i:j]); err == nil {
			parts = append(parts, n)
		}
		i = j
	}
	return parts
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// Read opens a read session from a host record.
func Read(rec config.Record) (*archive.ReadSession, error) {
	cfg, err := config.DecodeRead(rec)
	if err != nil {
		return nil, err
	}
	return archive.Read(cfg)
}

// Write opens a write session from a host record.
func Write(rec config.Record) (*archive.WriteSession, error) {
	cfg, err := config.DecodeWrite(rec)
	if err != nil {
		return nil, err
	}
	return archive.Write(cfg)
}

// NewEntry creates an entry, optionally initialised from a host record.
func NewEntry(rec config.Record) (*archive.Entry, error) {
	var fields config.EntryFields
	if rec != nil {
		var err error
		if fields, err = config.DecodeEntry(rec); err != nil {
			return nil, err
		}
	}
	e := archive.NewEntry()
	if err := fields.Apply(e); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}
