// Package native is a streaming archive engine with a C-style API.
//
// Primitives return a Status and leave a diagnostic in the archive's error
// channel (ErrorString, Errno). Input and output move through client
// callbacks, which receive the Archive and an opaque client value.
//
// # Reading
//
//	a := native.NewRead()
//	a.SupportFormatAll()
//	a.SupportFilterAll()
//	a.OpenRead(client, nil, readFn, closeFn)
//	for a.NextHeader(e) == native.StatusOK {
//	    data, offset, st := a.ReadDataBlock()
//	    ...
//	}
//	a.Free()
//
// Filters are detected at open by bidding on the first bytes of input and
// may be stacked. The format is detected by the first NextHeader.
//
// # Writing
//
// Writers select one format and any number of filters, then emit output in
// blocks of BytesPerBlock, padding the last block to a multiple of
// BytesInLastBlock.
//
// Names the engine recognises but does not implement fail with a
// "not supported" diagnostic.
package native
