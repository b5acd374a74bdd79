// Package archive exposes native archive streams as host-owned sessions.
//
// A ReadSession pulls input from a host ReaderFunc through the native read
// callback; a WriteSession hands output blocks to a write callback that is
// not implemented yet. Native callbacks only receive the native handle, so
// each session registers itself in a weak registry keyed by that handle and
// the callbacks look it up there. A callback that finds no session reports
// an errors.ErrInternal failure instead of touching freed state.
//
// Every Read, Write and NewEntry increments a process-wide counter that is
// decremented when the object is destroyed, either by Close or by a
// runtime cleanup after the object becomes unreachable.
package archive
