package native

import "fmt"

// Version of the engine as reported by VersionString.
const Version = "3.7.4"

// Direction tells whether an archive handle reads or writes.
type Direction uint8

const (
	DirectionRead Direction = iota + 1
	DirectionWrite
)

func (d Direction) String() string {
	switch d {
	case DirectionRead:
		return "read"
	case DirectionWrite:
		return "write"
	default:
		return "unknown"
	}
}

type state uint8

const (
	stateNew state = iota
	stateHeader
	stateData
	stateEOF
	stateClosed
	stateFatal
)

func (s state) String() string {
	switch s {
	case stateNew:
		return "new"
	case stateHeader:
		return "header"
	case stateData:
		return "data"
	case stateEOF:
		return "eof"
	case stateClosed:
		return "closed"
	case stateFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// OpenCallback is invoked once by Open before any data moves.
type OpenCallback func(a *Archive, client any) Status

// ReadCallback supplies the next block of input. An empty block with a
// non-negative status means end of input. A negative status aborts the
// stream; the callback should record a diagnostic with SetError first.
// The returned slice is read by reference until the next call.
type ReadCallback func(a *Archive, client any) ([]byte, Status)

// WriteCallback consumes one block of output and returns the number of
// bytes accepted.
type WriteCallback func(a *Archive, client any, p []byte) (int, Status)

// CloseCallback is invoked once when the stream is closed.
type CloseCallback func(a *Archive, client any) Status

// Archive is an opaque stream handle. Its identity is what callbacks receive;
// callers must not copy it.
type Archive struct {
	client    any
	r         *readState
	w         *writeState
	errString string
	errno     int
	direction Direction
	state     state
	freed     bool
}

// NewRead allocates a read handle.
func NewRead() *Archive {
	return &Archive{
		direction: DirectionRead,
		r:         &readState{},
	}
}

// NewWrite allocates a write handle.
func NewWrite() *Archive {
	return &Archive{
		direction: DirectionWrite,
		w:         newWriteState(),
	}
}

// Direction reports whether the handle reads or writes.
func (a *Archive) Direction() Direction {
	return a.direction
}

// Freed reports whether Free has released the handle.
func (a *Archive) Freed() bool {
	return a.freed
}

// Free closes the stream if needed and releases the handle.
// Calling Free more than once is a no-op.
func (a *Archive) Free() Status {
	if a.freed {
		return StatusOK
	}
	st := StatusOK
	if a.state != stateClosed {
		st = a.Close()
	}
	a.freed = true
	a.client = nil
	a.r = nil
	a.w = nil
	return st
}

// Close closes the stream, invoking the close callback once.
// Calling Close more than once is a no-op.
func (a *Archive) Close() Status {
	if a.freed {
		return a.misuse("archive_close")
	}
	if a.state == stateClosed {
		return StatusOK
	}
	switch a.direction {
	case DirectionRead:
		return a.closeRead()
	case DirectionWrite:
		return a.closeWrite()
	}
	return StatusFatal
}

// check validates the handle before a primitive runs.
func (a *Archive) check(dir Direction, fn string, allowed ...state) Status {
	if a.freed || a.direction != dir {
		return a.misuse(fn)
	}
	if a.state == stateFatal {
		return StatusFatal
	}
	for _, s := range allowed {
		if a.state == s {
			return StatusOK
		}
	}
	a.SetError(ErrnoProgrammer,
		"INTERNAL ERROR: Function '%s' invoked with archive structure in state '%s'", fn, a.state)
	return StatusFatal
}

func (a *Archive) misuse(fn string) Status {
	a.SetError(ErrnoProgrammer, "INTERNAL ERROR: Function '%s' invoked with invalid archive handle.", fn)
	return StatusFatal
}

// worst returns the more severe of two statuses.
func worst(a, b Status) Status {
	if b < a {
		return b
	}
	return a
}

// VersionString returns the engine identification, e.g. "archive-native 3.7.4".
func VersionString() string {
	return "archive-native " + Version
}

// VersionDetails lists the engine version together with its codec backends.
func VersionDetails() string {
	return fmt.Sprintf("%s klauspost-compress/1.18 lz4/4.1 xz/0.5 bzip2/stdlib tar/stdlib", VersionString())
}
