package native

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

const (
	readBufferSize  = 64 * 1024
	dataBlockSize   = 64 * 1024
	maxFilterLayers = 8
)

type readState struct {
	open        OpenCallback
	read        ReadCallback
	close       CloseCallback
	src         *source
	in          *bufio.Reader
	format      formatReader
	entryData   io.Reader
	pendingErr  error
	formats     []*formatBidder
	filters     []*filterBidder
	active      []io.Closer
	activeNames []string
	block       []byte
	formatName  string
	offset      int64
	dataEOF     bool
}

// source adapts the client read callback into an io.Reader. The block the
// callback returns is consumed in place, so it must stay valid until the
// next callback invocation.
type source struct {
	a    *Archive
	read ReadCallback
	buf  []byte
	err  error
	eof  bool
}

func (s *source) Read(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	for len(s.buf) == 0 {
		if s.eof {
			return 0, io.EOF
		}
		b, st := s.read(s.a, s.a.client)
		if st < StatusOK {
			if s.a.errString == "" {
				s.a.SetError(ErrnoMisc, "read callback aborted with status %s", st)
			}
			s.err = errAborted
			return 0, s.err
		}
		if len(b) == 0 || st == StatusEOF {
			s.eof = true
			if len(b) == 0 {
				return 0, io.EOF
			}
		}
		s.buf = b
	}
	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	return n, nil
}

func (r *readState) hasFormat(name string) bool {
	for _, f := range r.formats {
		if f.name == name {
			return true
		}
	}
	return false
}

func (r *readState) hasFilter(name string) bool {
	for _, f := range r.filters {
		if f.name == name {
			return true
		}
	}
	return false
}

func (a *Archive) supportFormat(fn string, bidders ...*formatBidder) Status {
	if st := a.check(DirectionRead, fn, stateNew); st != StatusOK {
		return st
	}
	for _, b := range bidders {
		if !a.r.hasFormat(b.name) {
			a.r.formats = append(a.r.formats, b)
		}
	}
	return StatusOK
}

func (a *Archive) supportFilter(fn string, bidders ...*filterBidder) Status {
	if st := a.check(DirectionRead, fn, stateNew); st != StatusOK {
		return st
	}
	for _, b := range bidders {
		if !a.r.hasFilter(b.name) {
			a.r.filters = append(a.r.filters, b)
		}
	}
	return StatusOK
}

func (a *Archive) unsupported(dir Direction, fn, kind, name string) Status {
	if st := a.check(dir, fn, stateNew); st != StatusOK {
		return st
	}
	a.SetError(ErrnoMisc, "%s not supported by this build: %s", kind, name)
	return StatusFailed
}

// Read format support.

func (a *Archive) SupportFormatAll() Status {
	return a.supportFormat("archive_read_support_format_all", tarBidder, cpioBidder, emptyBidder)
}
func (a *Archive) SupportFormatTar() Status {
	return a.supportFormat("archive_read_support_format_tar", tarBidder)
}
func (a *Archive) SupportFormatGnutar() Status {
	return a.supportFormat("archive_read_support_format_gnutar", tarBidder)
}
func (a *Archive) SupportFormatCpio() Status {
	return a.supportFormat("archive_read_support_format_cpio", cpioBidder)
}
func (a *Archive) SupportFormatEmpty() Status {
	return a.supportFormat("archive_read_support_format_empty", emptyBidder)
}
func (a *Archive) SupportFormatRaw() Status {
	return a.supportFormat("archive_read_support_format_raw", rawBidder)
}
func (a *Archive) SupportFormatAr() Status {
	return a.unsupported(DirectionRead, "archive_read_support_format_ar", "format", "ar")
}
func (a *Archive) SupportFormatISO9660() Status {
	return a.unsupported(DirectionRead, "archive_read_support_format_iso9660", "format", "iso9660")
}
func (a *Archive) SupportFormatMtree() Status {
	return a.unsupported(DirectionRead, "archive_read_support_format_mtree", "format", "mtree")
}
func (a *Archive) SupportFormatZip() Status {
	return a.unsupported(DirectionRead, "archive_read_support_format_zip", "format", "zip")
}
func (a *Archive) SupportFormat7zip() Status {
	return a.unsupported(DirectionRead, "archive_read_support_format_7zip", "format", "7zip")
}
func (a *Archive) SupportFormatRar() Status {
	return a.unsupported(DirectionRead, "archive_read_support_format_rar", "format", "rar")
}
func (a *Archive) SupportFormatXar() Status {
	return a.unsupported(DirectionRead, "archive_read_support_format_xar", "format", "xar")
}
func (a *Archive) SupportFormatCab() Status {
	return a.unsupported(DirectionRead, "archive_read_support_format_cab", "format", "cab")
}
func (a *Archive) SupportFormatLha() Status {
	return a.unsupported(DirectionRead, "archive_read_support_format_lha", "format", "lha")
}
func (a *Archive) SupportFormatWarc() Status {
	return a.unsupported(DirectionRead, "archive_read_support_format_warc", "format", "warc")
}

// Read filter support.

func (a *Archive) SupportFilterAll() Status {
	return a.supportFilter("archive_read_support_filter_all",
		gzipBidder, bzip2Bidder, xzBidder, lzmaBidder, zstdBidder, lz4Bidder)
}
func (a *Archive) SupportFilterNone() Status {
	return a.check(DirectionRead, "archive_read_support_filter_none", stateNew)
}
func (a *Archive) SupportFilterGzip() Status {
	return a.supportFilter("archive_read_support_filter_gzip", gzipBidder)
}
func (a *Archive) SupportFilterBzip2() Status {
	return a.supportFilter("archive_read_support_filter_bzip2", bzip2Bidder)
}
func (a *Archive) SupportFilterXz() Status {
	return a.supportFilter("archive_read_support_filter_xz", xzBidder)
}
func (a *Archive) SupportFilterLzma() Status {
	return a.supportFilter("archive_read_support_filter_lzma", lzmaBidder)
}
func (a *Archive) SupportFilterZstd() Status {
	return a.supportFilter("archive_read_support_filter_zstd", zstdBidder)
}
func (a *Archive) SupportFilterLz4() Status {
	return a.supportFilter("archive_read_support_filter_lz4", lz4Bidder)
}
func (a *Archive) SupportFilterCompress() Status {
	return a.unsupported(DirectionRead, "archive_read_support_filter_compress", "filter", "compress")
}
func (a *Archive) SupportFilterLzip() Status {
	return a.unsupported(DirectionRead, "archive_read_support_filter_lzip", "filter", "lzip")
}
func (a *Archive) SupportFilterUu() Status {
	return a.unsupported(DirectionRead, "archive_read_support_filter_uu", "filter", "uu")
}
func (a *Archive) SupportFilterRpm() Status {
	return a.unsupported(DirectionRead, "archive_read_support_filter_rpm", "filter", "rpm")
}

// FormatName returns the name of the format chosen by bidding, or "" before
// the first header.
func (a *Archive) FormatName() string {
	if a.r == nil {
		return ""
	}
	return a.r.formatName
}

// FilterNames returns the decompression filters detected at Open, outermost first.
func (a *Archive) FilterNames() []string {
	if a.r == nil {
		return nil
	}
	return append([]string(nil), a.r.activeNames...)
}

// OpenRead binds the read handle to client callbacks and detects the
// compression filters. Filter detection pulls input through read, so the
// caller must be ready to serve callbacks before calling OpenRead.
func (a *Archive) OpenRead(client any, open OpenCallback, read ReadCallback, close CloseCallback) Status {
	if st := a.check(DirectionRead, "archive_read_open", stateNew); st != StatusOK {
		return st
	}
	if read == nil {
		a.SetError(ErrnoProgrammer, "No reader function provided to archive_read_open")
		a.state = stateFatal
		return StatusFatal
	}
	if len(a.r.formats) == 0 {
		a.SetError(ErrnoProgrammer, "No formats registered")
		a.state = stateFatal
		return StatusFatal
	}

	a.client = client
	a.r.open, a.r.read, a.r.close = open, read, close

	if open != nil {
		if st := open(a, client); st < StatusOK {
			if a.errString == "" {
				a.SetError(ErrnoMisc, "open callback failed")
			}
			a.state = stateFatal
			return StatusFatal
		}
	}

	a.r.src = &source{a: a, read: read}
	in := bufio.NewReaderSize(a.r.src, readBufferSize)

	for layer := 0; layer < maxFilterLayers; layer++ {
		head, err := peek(in, filterPeekSize)
		if err != nil {
			return a.fail(ErrnoIO, err)
		}
		var chosen *filterBidder
		for _, f := range a.r.filters {
			if f.bid(head) {
				chosen = f
				break
			}
		}
		if chosen == nil {
			break
		}
		rc, err := chosen.open(in)
		if err != nil {
			return a.fail(ErrnoFileFormat, fmt.Errorf("%s: %w", chosen.name, err))
		}
		a.r.active = append(a.r.active, rc)
		a.r.activeNames = append(a.r.activeNames, chosen.name)
		in = bufio.NewReaderSize(rc, readBufferSize)
	}

	a.r.in = in
	a.r.block = make([]byte, dataBlockSize)
	a.state = stateHeader
	return StatusOK
}

// peek returns up to n buffered bytes; a short stream is not an error.
func peek(in *bufio.Reader, n int) ([]byte, error) {
	b, err := in.Peek(n)
	if err != nil && err != io.EOF && !errors.Is(err, bufio.ErrBufferFull) {
		return b, err
	}
	return b, nil
}

// NextHeader populates e from the next stream record. It returns StatusEOF
// at the end of the archive, and keeps returning it on later calls.
func (a *Archive) NextHeader(e *Entry) Status {
	if st := a.check(DirectionRead, "archive_read_next_header", stateHeader, stateData, stateEOF); st != StatusOK {
		return st
	}
	if a.state == stateEOF {
		return StatusEOF
	}
	if e == nil || e.freed {
		a.SetError(ErrnoProgrammer, "archive_read_next_header: invalid entry")
		return StatusFatal
	}
	r := a.r
	if r.format == nil {
		f, err := a.chooseFormat()
		if err != nil {
			return a.fail(ErrnoFileFormat, err)
		}
		r.format = f
	}

	e.Clear()
	data, err := r.format.next(e)
	if err == io.EOF {
		r.entryData = nil
		a.state = stateEOF
		return StatusEOF
	}
	if err != nil {
		return a.fail(ErrnoFileFormat, err)
	}
	r.entryData = data
	r.offset = 0
	r.dataEOF = false
	r.pendingErr = nil
	a.state = stateData
	return StatusOK
}

func (a *Archive) chooseFormat() (formatReader, error) {
	r := a.r
	head, err := peek(r.in, formatPeekSize)
	if err != nil {
		return nil, err
	}
	var (
		best    *formatBidder
		bestBid int
	)
	for _, f := range r.formats {
		if bid := f.bid(head); bid > bestBid {
			best, bestBid = f, bid
		}
	}
	if best == nil {
		return nil, errors.New("Unrecognized archive format")
	}
	r.formatName = best.name
	return best.open(r.in), nil
}

// ReadDataBlock returns the next block of the current entry's payload and the
// offset of that block within the entry. It returns StatusEOF once the entry
// is exhausted. The block is only valid until the next call.
func (a *Archive) ReadDataBlock() ([]byte, int64, Status) {
	if st := a.check(DirectionRead, "archive_read_data_block", stateData, stateEOF); st != StatusOK {
		return nil, 0, st
	}
	r := a.r
	if a.state == stateEOF || r.entryData == nil || r.dataEOF {
		return nil, r.offset, StatusEOF
	}
	if r.pendingErr != nil {
		return nil, r.offset, a.fail(ErrnoIO, r.pendingErr)
	}

	n := 0
	var err error
	for n < len(r.block) && err == nil {
		var m int
		m, err = r.entryData.Read(r.block[n:])
		n += m
	}
	if err == io.EOF {
		r.dataEOF = true
	} else if err != nil {
		if n == 0 {
			return nil, r.offset, a.fail(ErrnoIO, err)
		}
		r.pendingErr = err
	}
	if n == 0 {
		return nil, r.offset, StatusEOF
	}
	off := r.offset
	r.offset += int64(n)
	return r.block[:n], off, StatusOK
}

func (a *Archive) closeRead() Status {
	r := a.r
	st := StatusOK
	opened := a.state != stateNew
	for i := len(r.active) - 1; i >= 0; i-- {
		if err := r.active[i].Close(); err != nil && st == StatusOK {
			a.SetError(ErrnoIO, "%s: %v", r.activeNames[i], err)
			st = StatusWarn
		}
	}
	r.active = nil
	r.entryData = nil
	r.format = nil
	r.in = nil
	r.src = nil
	a.state = stateClosed
	if opened && r.close != nil {
		st = worst(st, r.close(a, a.client))
	}
	return st
}
