// Package registry maps native handle identities back to the host wrappers
// that own them, without keeping either side alive.
//
// Native callbacks receive only the handle they were registered with. A
// Weak registry resolves that handle to the wrapper that owns it:
//
//	sessions := registry.New[native.Archive, Session]()
//	sessions.Register(handle, s)
//
//	// inside a callback
//	s, ok := sessions.Lookup(handle)
//
// Keys and values are held through weak pointers. When a value is
// collected its entry is pruned by a runtime cleanup; a generation tag
// keeps a late prune from removing a newer registration for the same key.
//
// All methods are safe for concurrent use.
package registry
