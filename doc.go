// Package archiveruntime binds a libarchive-style streaming archive engine
// to an embedding host such as a scripting runtime.
//
// The host supplies configuration tables and callables; the binding turns
// them into native read and write sessions, forwards the engine's callbacks
// back to the host, and ties every native handle's lifetime to the host
// object that owns it.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	archiveruntime/      Root package (documentation only)
//	├── archive/         Read/write sessions, entries and the callback bridge
//	├── native/          Pure Go streaming engine with a C-style status API
//	├── capability/      Name-to-enabler dispatch tables for formats and filters
//	├── registry/        Weak handle registry mapping native handles to sessions
//	├── config/          Host record decoding and CLI profile loading
//	├── module/          Host function registry and the archive namespace
//	├── errors/          Structured error types for debugging
//	└── cmd/archive/     Command-line tool: list, cat, extract, browse
//
// # Quick Start
//
// Read an archive from any io.Reader:
//
//	s, err := archive.Read(archive.ReadConfig{
//	    Reader:      archive.ReaderFrom(f, 0),
//	    Format:      "all",
//	    Compression: "all",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	for e, err := range s.Headers() {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(e.Pathname())
//	}
//
// Or install the namespace into a host table and drive it dynamically:
//
//	ns := module.Table{}
//	module.Open().Install(ns)
//
// # Formats and Filters
//
// Readers recognise tar (ustar, pax, GNU), cpio (odc, newc) and empty
// archives behind gzip, bzip2, xz, lzma, zstd and lz4 filters, stacked in
// any order. Writers produce pax, ustar, GNU tar and both cpio variants
// through gzip, xz, lzma, zstd and lz4. Names the engine knows but does not
// implement (zip, 7zip, rar, shar, ...) are accepted by the capability
// tables and fail with a native "not supported" diagnostic.
//
// # Lifetimes
//
// Sessions and entries are released by Close, or by a runtime cleanup once
// the owning object is unreachable. The process-wide counters
// ReadRefCount, WriteRefCount and EntryRefCount expose how many are alive.
//
// # Thread Safety
//
// The handle registry and the counters are safe for concurrent use. A
// session and its entries are NOT thread-safe and should be used by a
// single goroutine.
package archiveruntime
