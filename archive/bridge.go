package archive

import (
	"fmt"
	"io"

	"github.com/wippyai/archive-runtime/errors"
	"github.com/wippyai/archive-runtime/native"
	"github.com/wippyai/archive-runtime/registry"
)

// Process-wide maps from native handles to their session wrappers. Native
// callbacks receive only the handle and resolve the wrapper here.
var (
	readSessions  = registry.New[native.Archive, ReadSession]()
	writeSessions = registry.New[native.Archive, WriteSession]()
)

// bridgeContext is the opaque client value handed to the native engine. It
// must never point at a wrapper: the wrapper is always resolved through the
// registry so an orphaned callback cannot resurrect it.
type bridgeContext struct {
	fault error
}

// record stores err for the session and copies its text into the native
// error channel.
func (c *bridgeContext) record(a *native.Archive, err error) native.Status {
	c.fault = err
	a.SetError(native.ErrnoMisc, "%s", err.Error())
	return native.StatusFatal
}

// take returns and clears the last recorded fault.
func (c *bridgeContext) take() error {
	err := c.fault
	c.fault = nil
	return err
}

func contextOf(client any) *bridgeContext {
	if c, ok := client.(*bridgeContext); ok {
		return c
	}
	return &bridgeContext{}
}

func orphaned(direction string) error {
	return errors.New(errors.PhaseCallback, errors.KindInternal).
		Op(direction + " callback").
		Detail("no session is registered for the archive handle").
		Build()
}

// teardownError attributes a failure during implicit destroy to the
// teardown phase, keeping the original kind.
func teardownError(err error, what string) error {
	kind, ok := errors.KindOf(err)
	if !ok {
		kind = errors.KindHost
	}
	return errors.Wrap(errors.PhaseTeardown, kind, err, what+" teardown failed")
}

// readCallback serves input to the native reader from the session's reader.
func readCallback(a *native.Archive, client any) ([]byte, native.Status) {
	ctx := contextOf(client)
	s, ok := readSessions.Lookup(a)
	if !ok {
		return nil, ctx.record(a, orphaned("read"))
	}
	b, err := s.callReader(false)
	if err != nil {
		return nil, ctx.record(a, err)
	}
	// The native reader consumes b in place until the next callback.
	s.env.block = b
	return b, native.StatusOK
}

// readCloseCallback runs inside the native close.
func readCloseCallback(a *native.Archive, client any) native.Status {
	if _, ok := readSessions.Lookup(a); !ok {
		return contextOf(client).record(a, orphaned("read close"))
	}
	return native.StatusOK
}

// writeCallback and writeCloseCallback are the output side of the bridge.
// Delivering output bytes to the host is not implemented: every invocation
// resolves its session and then fails with an Unimplemented error.
func writeCallback(a *native.Archive, client any, _ []byte) (int, native.Status) {
	ctx := contextOf(client)
	if _, ok := writeSessions.Lookup(a); !ok {
		return 0, ctx.record(a, orphaned("write"))
	}
	return 0, ctx.record(a, errors.Unimplemented(errors.PhaseCallback, "write callback"))
}

func writeCloseCallback(a *native.Archive, client any) native.Status {
	ctx := contextOf(client)
	if _, ok := writeSessions.Lookup(a); !ok {
		return ctx.record(a, orphaned("write close"))
	}
	return ctx.record(a, errors.Unimplemented(errors.PhaseCallback, "write close callback"))
}

// statusError converts a non-OK native status into the binding's error,
// preferring what the bridge recorded while the native call was running.
func statusError(a *native.Archive, ctx *bridgeContext, phase errors.Phase, op string) error {
	fault := ctx.take()
	if k, ok := errors.KindOf(fault); ok && k == errors.KindInternal {
		return fault
	}
	err := errors.Native(phase, op, a.ErrorString())
	err.Cause = fault
	return err
}

// invoke runs a host callable and turns a panic into an error.
func invoke[T any](what string, fn func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", what, r)
		}
	}()
	v, err = fn()
	if err == io.EOF {
		err = nil
	}
	return v, err
}
