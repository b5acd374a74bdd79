// Package capability maps format and filter names to the native functions
// that enable them.
//
// A configuration string such as "tar, cpio" or "gzip xz" is split into
// tokens and each token is enabled in order:
//
//	n, err := capability.Enable(a, capability.ReadFormats, "tar cpio")
//
// An unknown name fails with a configuration error after the names before
// it were enabled. A known name the engine cannot provide fails with a
// native library error carrying the engine's diagnostic.
package capability
