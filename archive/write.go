package archive

import (
	"runtime"

	"go.uber.org/zap"

	"github.com/wippyai/archive-runtime/capability"
	"github.com/wippyai/archive-runtime/errors"
	"github.com/wippyai/archive-runtime/native"
)

// FileID identifies a file by device and inode.
type FileID struct {
	Dev uint64
	Ino uint64
}

// WriteConfig configures a write session. Nil pointer fields keep the
// native defaults.
type WriteConfig struct {
	BytesPerBlock    *int
	BytesInLastBlock *int
	// SkipFile names the archive file itself so it is never added to itself.
	SkipFile *FileID
	// Format names the output format, e.g. "pax" or "cpio_newc". Required.
	Format string
	// Compression lists output filters, applied in order.
	Compression string
	Options     string
}

type writeEnv struct {
	archive *native.Archive
	ctx     *bridgeContext
	state   State
}

// WriteSession produces an archive through the native writer.
//
// Output delivery to the host is not implemented yet: the native engine
// buffers output into blocks, and the first block it hands over (at the
// latest when the session closes) fails with an error wrapping
// errors.ErrUnimplemented.
type WriteSession struct {
	env     *writeEnv
	cleanup runtime.Cleanup
}

// Write opens a write session. Any failure releases the native stream before
// returning.
func Write(cfg WriteConfig) (*WriteSession, error) {
	a := native.NewWrite()
	env := &writeEnv{archive: a, ctx: &bridgeContext{}, state: StateOpen}
	s := &WriteSession{env: env}
	writeSessions.Register(a, s)

	fail := func(err error) (*WriteSession, error) {
		abortWrite(s)
		return nil, err
	}
	nativeErr := func(op string) (*WriteSession, error) {
		return fail(errors.Native(errors.PhaseConstruct, op, a.ErrorString()))
	}

	if cfg.BytesPerBlock != nil {
		if st := a.SetBytesPerBlock(*cfg.BytesPerBlock); st != native.StatusOK {
			return nativeErr("archive_write_set_bytes_per_block")
		}
	}
	if cfg.BytesInLastBlock != nil {
		if st := a.SetBytesInLastBlock(*cfg.BytesInLastBlock); st != native.StatusOK {
			return nativeErr("archive_write_set_bytes_in_last_block")
		}
	}
	if cfg.SkipFile != nil {
		if st := a.SetSkipFile(cfg.SkipFile.Dev, cfg.SkipFile.Ino); st != native.StatusOK {
			return nativeErr("archive_write_set_skip_file")
		}
	}

	n, err := capability.Enable(a, capability.WriteFormats, cfg.Format)
	if err != nil {
		return fail(err)
	}
	if n == 0 {
		return fail(errors.Configuration([]string{"format"}, "a format must be given"))
	}
	if _, err := capability.Enable(a, capability.WriteFilters, cfg.Compression); err != nil {
		return fail(err)
	}
	if cfg.Options != "" {
		if st := a.SetOptions(cfg.Options); st != native.StatusOK {
			return nativeErr("archive_write_set_options")
		}
	}
	if st := a.OpenWrite(env.ctx, nil, writeCallback, writeCloseCallback); st != native.StatusOK {
		return fail(statusError(a, env.ctx, errors.PhaseConstruct, "archive_write_open"))
	}

	writeCount.Add(1)
	s.cleanup = runtime.AddCleanup(s, finalizeWrite, env)
	Logger().Debug("write session opened",
		zap.String("format", a.WriteFormatName()),
		zap.Strings("filters", a.WriteFilterNames()))
	return s, nil
}

// abortWrite releases a session whose construction failed, freeing the
// stream before the wrapper leaves the registry.
func abortWrite(s *WriteSession) {
	env := s.env
	env.archive.Free()
	writeSessions.Deregister(env.archive)
	env.state = StateClosed
}

// State reports whether the session is open or closed.
func (s *WriteSession) State() State {
	return s.env.state
}

// FormatName reports the selected output format.
func (s *WriteSession) FormatName() string {
	if s.env.state == StateClosed {
		return ""
	}
	return s.env.archive.WriteFormatName()
}

// WriteHeader starts a new member described by e.
func (s *WriteSession) WriteHeader(e *Entry) error {
	env := s.env
	if env.state == StateClosed {
		return errors.InvalidState(errors.PhaseHeader, "write_header")
	}
	if e == nil || e.Closed() {
		return errors.New(errors.PhaseHeader, errors.KindConfiguration).
			Op("write_header").
			Detail("entry is nil or closed").
			Build()
	}
	if st := env.archive.WriteHeader(e.raw); st != native.StatusOK {
		return statusError(env.archive, env.ctx, errors.PhaseHeader, "archive_write_header")
	}
	return nil
}

// WriteData appends payload to the current member. Bytes beyond the size
// declared in the header are dropped, and n reports only what was accepted.
func (s *WriteSession) WriteData(p []byte) (int, error) {
	env := s.env
	if env.state == StateClosed {
		return 0, errors.InvalidState(errors.PhaseData, "write_data")
	}
	n, st := env.archive.WriteData(p)
	if st != native.StatusOK {
		return n, statusError(env.archive, env.ctx, errors.PhaseData, "archive_write_data")
	}
	return n, nil
}

// Close flushes and releases the session. It is safe to call more than once;
// only the first call does any work, and native resources are released even
// when it returns an error.
func (s *WriteSession) Close() error {
	s.cleanup.Stop()
	return closeWrite(s)
}

func closeWrite(s *WriteSession) error {
	env := s.env
	if env.state == StateClosed {
		return nil
	}
	env.state = StateClosed
	a := env.archive

	if _, ok := writeSessions.Lookup(a); !ok {
		writeSessions.Register(a, s)
	}

	var closeErr error
	if st := a.Close(); st != native.StatusOK {
		closeErr = statusError(a, env.ctx, errors.PhaseClose, "archive_write_close")
	}

	writeSessions.Deregister(a)
	a.Free()
	writeCount.Add(-1)
	return closeErr
}

func finalizeWrite(env *writeEnv) {
	if env.state == StateClosed {
		return
	}
	if err := closeWrite(&WriteSession{env: env}); err != nil {
		Logger().Debug("implicit write session teardown", zap.Error(teardownError(err, "write session")))
	}
}
