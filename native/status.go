package native

import (
	"errors"
	"fmt"
)

// Status is the result code returned by every engine primitive.
type Status int

const (
	StatusEOF    Status = 1
	StatusOK     Status = 0
	StatusRetry  Status = -10
	StatusWarn   Status = -20
	StatusFailed Status = -25
	StatusFatal  Status = -30
)

func (s Status) String() string {
	switch s {
	case StatusEOF:
		return "EOF"
	case StatusOK:
		return "OK"
	case StatusRetry:
		return "RETRY"
	case StatusWarn:
		return "WARN"
	case StatusFailed:
		return "FAILED"
	case StatusFatal:
		return "FATAL"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Errno values reported through the error channel.
const (
	ErrnoMisc       = -1
	ErrnoIO         = 5
	ErrnoProgrammer = 22
	ErrnoFileFormat = 84
)

// errAborted is returned through the io plumbing when a client callback
// signalled abort. The callback has already populated the error channel.
var errAborted = errors.New("client callback aborted")

// ErrorString returns the diagnostic recorded by the last failing primitive.
func (a *Archive) ErrorString() string {
	return a.errString
}

// Errno returns the errno recorded by the last failing primitive.
func (a *Archive) Errno() int {
	return a.errno
}

// SetError records a diagnostic on the archive's error channel.
// Client callbacks use it before returning an abort status.
func (a *Archive) SetError(errno int, format string, args ...any) {
	a.errno = errno
	if len(args) > 0 {
		a.errString = fmt.Sprintf(format, args...)
	} else {
		a.errString = format
	}
}

// ClearError resets the error channel.
func (a *Archive) ClearError() {
	a.errno = 0
	a.errString = ""
}

// fail records err on the error channel unless a client callback already did,
// and moves the archive to the fatal state.
func (a *Archive) fail(errno int, err error) Status {
	if !errors.Is(err, errAborted) {
		a.SetError(errno, "%s", err.Error())
	} else if a.errString == "" {
		a.SetError(ErrnoMisc, "client callback aborted")
	}
	a.state = stateFatal
	return StatusFatal
}
