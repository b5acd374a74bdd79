package archive

import (
	"io"
	"iter"
	"runtime"

	"go.uber.org/zap"

	"github.com/wippyai/archive-runtime/capability"
	"github.com/wippyai/archive-runtime/errors"
	"github.com/wippyai/archive-runtime/native"
)

const defaultReadSize = 64 * 1024

// ReaderFunc produces archive input. It returns the next block of bytes, or
// an empty block (or io.EOF) at the end of input. The block must stay
// unchanged until the next call.
//
// When the session closes the reader is called exactly once more with
// closing set, so it can release its own resources; its return value is
// then ignored except for the error.
type ReaderFunc func(s *ReadSession, closing bool) ([]byte, error)

// ReadConfig configures a read session.
type ReadConfig struct {
	Reader ReaderFunc
	// Format lists the archive formats to recognise, e.g. "tar cpio" or "all".
	Format string
	// Compression lists the decompression filters to recognise.
	Compression string
	// Options is passed to the native engine verbatim.
	Options string
}

// Block is one chunk of entry payload at a byte offset within the entry.
type Block struct {
	Data   []byte
	Offset int64
}

// readEnv holds everything a read session's teardown needs. It never refers
// to the ReadSession wrapper, so the wrapper can be collected while the
// environment stays reachable from the cleanup.
type readEnv struct {
	archive *native.Archive
	ctx     *bridgeContext
	reader  ReaderFunc
	entry   *Entry
	block   []byte
	state   State
}

// ReadSession streams entries out of an archive produced by a ReaderFunc.
// A session is not safe for concurrent use.
type ReadSession struct {
	env     *readEnv
	cleanup runtime.Cleanup
}

// Read opens a read session. The reader is validated before anything is
// allocated; any later failure releases the native stream before returning.
func Read(cfg ReadConfig) (*ReadSession, error) {
	if cfg.Reader == nil {
		return nil, errors.Configuration([]string{"reader"}, "reader must be a function")
	}

	a := native.NewRead()
	env := &readEnv{
		archive: a,
		ctx:     &bridgeContext{},
		reader:  cfg.Reader,
		state:   StateOpen,
	}
	s := &ReadSession{env: env}
	readSessions.Register(a, s)

	fail := func(err error) (*ReadSession, error) {
		abortRead(s)
		return nil, err
	}

	n, err := capability.Enable(a, capability.ReadFormats, cfg.Format)
	if err != nil {
		return fail(err)
	}
	if n == 0 {
		return fail(errors.Configuration([]string{"format"}, "at least one format must be given"))
	}
	if _, err := capability.Enable(a, capability.ReadFilters, cfg.Compression); err != nil {
		return fail(err)
	}
	if cfg.Options != "" {
		if st := a.SetOptions(cfg.Options); st != native.StatusOK {
			return fail(errors.Native(errors.PhaseConstruct, "archive_read_set_options", a.ErrorString()))
		}
	}
	if st := a.OpenRead(env.ctx, nil, readCallback, readCloseCallback); st != native.StatusOK {
		return fail(statusError(a, env.ctx, errors.PhaseConstruct, "archive_read_open"))
	}

	readCount.Add(1)
	s.cleanup = runtime.AddCleanup(s, finalizeRead, env)
	Logger().Debug("read session opened",
		zap.String("format", cfg.Format),
		zap.Strings("filters", a.FilterNames()))
	return s, nil
}

// abortRead releases a session whose construction failed. The stream is
// freed while the wrapper is still registered, since freeing a bound stream
// runs the close callback.
func abortRead(s *ReadSession) {
	env := s.env
	env.archive.Free()
	readSessions.Deregister(env.archive)
	env.reader = nil
	env.state = StateClosed
}

// ReaderFrom adapts an io.Reader into a ReaderFunc that reads up to size
// bytes per call. If r is also an io.Closer it is closed when the session
// closes.
func ReaderFrom(r io.Reader, size int) ReaderFunc {
	if size <= 0 {
		size = defaultReadSize
	}
	buf := make([]byte, size)
	return func(_ *ReadSession, closing bool) ([]byte, error) {
		if closing {
			if c, ok := r.(io.Closer); ok {
				return nil, c.Close()
			}
			return nil, nil
		}
		for {
			n, err := r.Read(buf)
			if n > 0 {
				return buf[:n], nil
			}
			if err != nil {
				return nil, err
			}
		}
	}
}

// State reports whether the session is open or closed.
func (s *ReadSession) State() State {
	return s.env.state
}

// FormatName reports the archive format detected by the first NextHeader.
func (s *ReadSession) FormatName() string {
	if s.env.state == StateClosed {
		return ""
	}
	return s.env.archive.FormatName()
}

// FilterNames reports the decompression filters detected at open, outermost first.
func (s *ReadSession) FilterNames() []string {
	if s.env.state == StateClosed {
		return nil
	}
	return s.env.archive.FilterNames()
}

func (s *ReadSession) callReader(closing bool) ([]byte, error) {
	reader := s.env.reader
	if reader == nil {
		return nil, nil
	}
	return invoke("reader", func() ([]byte, error) {
		return reader(s, closing)
	})
}

// NextHeader advances to the next entry. It returns io.EOF once the archive
// is exhausted, and keeps returning io.EOF on later calls.
//
// The returned Entry is owned by the session and is the same object on every
// call; its content is overwritten by the next NextHeader.
// Close frees it. A session collected without Close leaves it to be freed
// when the entry itself becomes unreachable.
func (s *ReadSession) NextHeader() (*Entry, error) {
	env := s.env
	if env.state == StateClosed {
		return nil, errors.InvalidState(errors.PhaseHeader, "next_header")
	}
	if env.entry == nil || env.entry.raw.Freed() {
		env.entry = newEntry(native.NewEntry())
	}
	switch env.archive.NextHeader(env.entry.raw) {
	case native.StatusOK:
		return env.entry, nil
	case native.StatusEOF:
		return nil, io.EOF
	default:
		return nil, statusError(env.archive, env.ctx, errors.PhaseHeader, "archive_read_next_header")
	}
}

// Headers returns a single-pass sequence over the remaining entries. The
// sequence ends at the end of the archive or after yielding an error.
func (s *ReadSession) Headers() iter.Seq2[*Entry, error] {
	return func(yield func(*Entry, error) bool) {
		for {
			e, err := s.NextHeader()
			if err == io.EOF {
				return
			}
			if !yield(e, err) || err != nil {
				return
			}
		}
	}
}

// Data returns the next payload block of the current entry. It returns
// io.EOF at the end of the entry. Block.Data is only valid until the next
// call to Data or NextHeader.
func (s *ReadSession) Data() (Block, error) {
	env := s.env
	if env.state == StateClosed {
		return Block{}, errors.InvalidState(errors.PhaseData, "data")
	}
	b, off, st := env.archive.ReadDataBlock()
	switch st {
	case native.StatusOK:
		return Block{Data: b, Offset: off}, nil
	case native.StatusEOF:
		return Block{}, io.EOF
	default:
		return Block{}, statusError(env.archive, env.ctx, errors.PhaseData, "archive_read_data_block")
	}
}

// WriteTo copies the rest of the current entry's payload to w, zero-filling
// any gap between blocks.
func (s *ReadSession) WriteTo(w io.Writer) (int64, error) {
	var pos int64
	for {
		blk, err := s.Data()
		if err == io.EOF {
			return pos, nil
		}
		if err != nil {
			return pos, err
		}
		if gap := blk.Offset - pos; gap > 0 {
			n, err := io.CopyN(w, zeros{}, gap)
			pos += n
			if err != nil {
				return pos, err
			}
		}
		n, err := w.Write(blk.Data)
		pos += int64(n)
		if err != nil {
			return pos, err
		}
	}
}

type zeros struct{}

func (zeros) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

// Close closes the session. It is safe to call more than once; only the
// first call does any work.
//
// When both the native close and the final reader notification fail, the
// close error is returned and the notification error is logged.
func (s *ReadSession) Close() error {
	s.cleanup.Stop()
	return closeRead(s)
}

func closeRead(s *ReadSession) error {
	env := s.env
	if env.state == StateClosed {
		return nil
	}
	env.state = StateClosed
	a := env.archive

	// The native close may call back into the bridge, which must be able to
	// resolve this wrapper.
	if _, ok := readSessions.Lookup(a); !ok {
		readSessions.Register(a, s)
	}

	var closeErr, notifyErr error
	if st := a.Close(); st != native.StatusOK {
		closeErr = statusError(a, env.ctx, errors.PhaseClose, "archive_read_close")
	}
	if env.reader != nil {
		if _, err := s.callReader(true); err != nil {
			notifyErr = errors.Wrap(errors.PhaseClose, errors.KindHost, err, "reader close notification failed")
		}
	}

	readSessions.Deregister(a)
	a.Free()
	if env.entry != nil {
		env.entry.Close()
		env.entry = nil
	}
	env.block = nil
	env.reader = nil
	readCount.Add(-1)

	if closeErr != nil {
		if notifyErr != nil {
			Logger().Warn("reader close notification failed after close error", zap.Error(notifyErr))
		}
		return closeErr
	}
	return notifyErr
}

// finalizeRead tears down a session whose wrapper was collected without
// Close. It runs on a fresh wrapper over the same environment.
func finalizeRead(env *readEnv) {
	if env.state == StateClosed {
		return
	}
	// The caller may still hold the cached entry. It is freed by its own
	// cleanup once unreachable.
	env.entry = nil
	if err := closeRead(&ReadSession{env: env}); err != nil {
		Logger().Warn("implicit read session teardown failed", zap.Error(teardownError(err, "read session")))
	}
}
