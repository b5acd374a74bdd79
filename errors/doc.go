// Package errors provides structured error types for the archive binding.
//
// Errors are categorized by Phase (where in a session's lifecycle the error
// occurred) and Kind (error category). The kinds form the binding's taxonomy:
//
//	configuration   malformed or missing host configuration
//	native_library  the native engine returned a non-OK status
//	invalid_state   operation on a closed session
//	internal        registry miss inside a native callback (lifetime bug)
//	unimplemented   an explicitly unimplemented extension point
//	host            a host-supplied callable failed outside a native call
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseConstruct, errors.KindConfiguration).
//		Path("skip_file", "dev").
//		Detail("skip_file.dev member must be a number").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.UnknownCapability("format", "archive_read_support_format", "bogus")
//	err := errors.Native(errors.PhaseHeader, "archive_read_next_header", diag)
//
// The Err* sentinels carry no Phase and match any error of the same Kind:
//
//	if errors.Is(err, errors.ErrConfiguration) { ... }
package errors
