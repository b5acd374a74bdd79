package native

import (
	"errors"
	"io"
)

const defaultBytesPerBlock = 10240

type writeState struct {
	open             OpenCallback
	write            WriteCallback
	close            CloseCallback
	format           *writeFormat
	out              *blockWriter
	fw               formatWriter
	filters          []*writeFilter
	chain            []io.WriteCloser
	levels           map[string]int
	bytesPerBlock    int
	bytesInLastBlock int
	skipDev          uint64
	skipIno          uint64
	skipSet          bool
	gzipTimestamp    bool
}

func newWriteState() *writeState {
	return &writeState{
		bytesPerBlock:    defaultBytesPerBlock,
		bytesInLastBlock: -1,
		levels:           make(map[string]int),
		gzipTimestamp:    true,
	}
}

// SetBytesPerBlock sets the output block size. Zero disables blocking.
func (a *Archive) SetBytesPerBlock(n int) Status {
	if st := a.check(DirectionWrite, "archive_write_set_bytes_per_block", stateNew); st != StatusOK {
		return st
	}
	if n < 0 {
		a.SetError(ErrnoProgrammer, "Invalid block size %d", n)
		return StatusFatal
	}
	a.w.bytesPerBlock = n
	return StatusOK
}

// BytesPerBlock reports the configured output block size.
func (a *Archive) BytesPerBlock() int {
	if a.w == nil {
		return 0
	}
	return a.w.bytesPerBlock
}

// SetBytesInLastBlock sets the multiple the final block is padded to.
// Zero or negative means the full block size.
func (a *Archive) SetBytesInLastBlock(n int) Status {
	if st := a.check(DirectionWrite, "archive_write_set_bytes_in_last_block", stateNew); st != StatusOK {
		return st
	}
	a.w.bytesInLastBlock = n
	return StatusOK
}

// BytesInLastBlock reports the configured final block padding multiple.
func (a *Archive) BytesInLastBlock() int {
	if a.w == nil {
		return 0
	}
	return a.w.bytesInLastBlock
}

// SetSkipFile names the file identity of the archive being written, so that
// a header describing the archive itself is refused.
func (a *Archive) SetSkipFile(dev, ino uint64) Status {
	if st := a.check(DirectionWrite, "archive_write_set_skip_file", stateNew, stateHeader, stateData); st != StatusOK {
		return st
	}
	a.w.skipDev, a.w.skipIno, a.w.skipSet = dev, ino, true
	return StatusOK
}

// OpenWrite binds the write handle to client callbacks. No output is
// produced until a header is written or the stream is closed.
func (a *Archive) OpenWrite(client any, open OpenCallback, write WriteCallback, close CloseCallback) Status {
	if st := a.check(DirectionWrite, "archive_write_open", stateNew); st != StatusOK {
		return st
	}
	if write == nil {
		a.SetError(ErrnoProgrammer, "No write callback is registered")
		a.state = stateFatal
		return StatusFatal
	}
	w := a.w
	a.client = client
	w.open, w.write, w.close = open, write, close

	if open != nil {
		if st := open(a, client); st < StatusOK {
			if a.errString == "" {
				a.SetError(ErrnoMisc, "open callback failed")
			}
			a.state = stateFatal
			return StatusFatal
		}
	}

	last := w.bytesInLastBlock
	if last <= 0 {
		last = w.bytesPerBlock
	}
	w.out = &blockWriter{a: a, size: w.bytesPerBlock, last: last}

	// The first filter listed is applied to the archive data first.
	var dst io.Writer = w.out
	chain := make([]io.WriteCloser, len(w.filters))
	for i := len(w.filters) - 1; i >= 0; i-- {
		fw, err := w.filters[i].open(dst, w)
		if err != nil {
			return a.fail(ErrnoMisc, err)
		}
		chain[i] = fw
		dst = fw
	}
	w.chain = chain

	if w.format != nil {
		w.fw = w.format.open(dst)
	}
	a.state = stateHeader
	return StatusOK
}

// WriteHeader starts a new entry.
func (a *Archive) WriteHeader(e *Entry) Status {
	if st := a.check(DirectionWrite, "archive_write_header", stateHeader, stateData); st != StatusOK {
		return st
	}
	w := a.w
	if e == nil || e.freed {
		a.SetError(ErrnoProgrammer, "archive_write_header: invalid entry")
		return StatusFatal
	}
	if w.fw == nil {
		a.SetError(ErrnoProgrammer, "Format must be set before you can write to an archive.")
		return StatusFatal
	}
	if w.skipSet && e.InoIsSet() && e.Dev() == w.skipDev && e.Ino() == w.skipIno {
		a.SetError(0, "Can't add archive to itself")
		return StatusFailed
	}
	if err := w.fw.writeHeader(e); err != nil {
		if errors.Is(err, errAborted) {
			return a.fail(ErrnoIO, err)
		}
		a.SetError(ErrnoMisc, "%s", err.Error())
		return StatusFailed
	}
	a.state = stateData
	return StatusOK
}

// WriteData appends payload bytes to the current entry and returns how many
// were accepted.
func (a *Archive) WriteData(p []byte) (int, Status) {
	if st := a.check(DirectionWrite, "archive_write_data", stateData); st != StatusOK {
		return 0, st
	}
	n, err := a.w.fw.write(p)
	if err != nil {
		if errors.Is(err, errAborted) {
			return n, a.fail(ErrnoIO, err)
		}
		a.SetError(ErrnoMisc, "%s", err.Error())
		return n, StatusFailed
	}
	return n, StatusOK
}

func (a *Archive) closeWrite() Status {
	w := a.w
	opened := a.state != stateNew
	fatal := a.state == stateFatal
	a.state = stateClosed
	if !opened {
		return StatusOK
	}

	st := StatusOK
	if !fatal {
		st = a.flushWrite()
		a.state = stateClosed
	}
	if w.close != nil {
		st = worst(st, w.close(a, a.client))
	}
	return st
}

func (a *Archive) flushWrite() Status {
	w := a.w
	var err error
	if w.fw != nil {
		err = w.fw.close()
	}
	for i := 0; i < len(w.chain) && err == nil; i++ {
		err = w.chain[i].Close()
	}
	if err == nil {
		err = w.out.flush()
	}
	if err != nil {
		a.fail(ErrnoIO, err)
		return StatusFatal
	}
	return StatusOK
}

// blockWriter groups output into fixed-size blocks before handing it to the
// client write callback.
type blockWriter struct {
	a     *Archive
	buf   []byte
	size  int
	last  int
	total int64
}

func (b *blockWriter) Write(p []byte) (int, error) {
	if b.size == 0 {
		if err := b.emit(p); err != nil {
			return 0, err
		}
		return len(p), nil
	}
	b.buf = append(b.buf, p...)
	for len(b.buf) >= b.size {
		if err := b.emit(b.buf[:b.size]); err != nil {
			return 0, err
		}
		b.buf = b.buf[b.size:]
	}
	if cap(b.buf) > 4*b.size && len(b.buf) < b.size {
		b.buf = append([]byte(nil), b.buf...)
	}
	return len(p), nil
}

// flush emits the final partial block padded to a multiple of last.
func (b *blockWriter) flush() error {
	if len(b.buf) == 0 {
		return nil
	}
	n := len(b.buf)
	if b.last > 0 {
		n = (n + b.last - 1) / b.last * b.last
	}
	if b.size > 0 && n > b.size {
		n = b.size
	}
	block := make([]byte, n)
	copy(block, b.buf)
	b.buf = nil
	return b.emit(block)
}

func (b *blockWriter) emit(p []byte) error {
	w := b.a.w
	for len(p) > 0 {
		n, st := w.write(b.a, b.a.client, p)
		if st < StatusOK {
			if b.a.errString == "" {
				b.a.SetError(ErrnoIO, "write callback failed with status %s", st)
			}
			return errAborted
		}
		if n <= 0 {
			b.a.SetError(ErrnoIO, "write callback accepted no data")
			return errAborted
		}
		b.total += int64(n)
		p = p[n:]
	}
	return nil
}

// BytesWritten reports how many bytes have been handed to the write callback.
func (a *Archive) BytesWritten() int64 {
	if a.w == nil || a.w.out == nil {
		return 0
	}
	return a.w.out.total
}
