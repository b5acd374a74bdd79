package archive

import "sync/atomic"

// State is the lifecycle state of a session.
type State uint8

const (
	StateOpen State = iota + 1
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "constructing"
	}
}

// Live object counters, for lifetime debugging only.
var (
	readCount  atomic.Int64
	writeCount atomic.Int64
	entryCount atomic.Int64
)

// ReadRefCount reports how many read sessions are constructed and not yet destroyed.
func ReadRefCount() int64 { return readCount.Load() }

// WriteRefCount reports how many write sessions are constructed and not yet destroyed.
func WriteRefCount() int64 { return writeCount.Load() }

// EntryRefCount reports how many entry wrappers hold a live native record.
func EntryRefCount() int64 { return entryCount.Load() }
