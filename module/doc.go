// Package module exposes the archive binding as a namespace of host
// callable functions.
//
// Open returns the standard namespace: version, read, write, entry and the
// lifetime counters. A host installs it into its own table and dispatches
// by name:
//
//	ns := module.Table{}
//	module.Open().Install(ns)
//
//	out, err := module.Open().Call("read", map[string]any{
//	    "reader": readerFn,
//	    "format": "all",
//	})
//
// Registry.Call converts arguments by reflection and returns a trailing
// error result as the call's error.
package module
