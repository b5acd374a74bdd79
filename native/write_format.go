package native

import (
	"archive/tar"
	"fmt"
	"io"
	"time"
)

type formatWriter interface {
	writeHeader(e *Entry) error
	write(p []byte) (int, error)
	close() error
}

type writeFormat struct {
	open func(w io.Writer) formatWriter
	// name is reported by WriteFormatName; module is the option namespace.
	name   string
	module string
}

func tarFormat(name, module string, f tar.Format) *writeFormat {
	return &writeFormat{
		name:   name,
		module: module,
		open: func(w io.Writer) formatWriter {
			return &tarWriter{tw: tar.NewWriter(w), format: f}
		},
	}
}

func cpioFormat(name string, newc bool) *writeFormat {
	return &writeFormat{
		name:   name,
		module: "cpio",
		open: func(w io.Writer) formatWriter {
			return &cpioWriter{w: w, newc: newc}
		},
	}
}

var (
	paxFormat           = tarFormat("pax", "pax", tar.FormatPAX)
	paxRestrictedFormat = tarFormat("pax_restricted", "pax", tar.FormatUnknown)
	ustarFormat         = tarFormat("ustar", "ustar", tar.FormatUSTAR)
	gnutarFormat        = tarFormat("gnutar", "gnutar", tar.FormatGNU)
	odcFormat           = cpioFormat("cpio", false)
	newcFormat          = cpioFormat("cpio_newc", true)
)

func (a *Archive) setFormat(fn string, f *writeFormat) Status {
	if st := a.check(DirectionWrite, fn, stateNew); st != StatusOK {
		return st
	}
	a.w.format = f
	return StatusOK
}

// WriteFormatName returns the selected output format, or "" if none is set.
func (a *Archive) WriteFormatName() string {
	if a.w == nil || a.w.format == nil {
		return ""
	}
	return a.w.format.name
}

// Write format selection. The last call wins.

func (a *Archive) SetFormatPax() Status {
	return a.setFormat("archive_write_set_format_pax", paxFormat)
}
func (a *Archive) SetFormatPaxRestricted() Status {
	return a.setFormat("archive_write_set_format_pax_restricted", paxRestrictedFormat)
}
func (a *Archive) SetFormatUstar() Status {
	return a.setFormat("archive_write_set_format_ustar", ustarFormat)
}
func (a *Archive) SetFormatGnutar() Status {
	return a.setFormat("archive_write_set_format_gnutar", gnutarFormat)
}
func (a *Archive) SetFormatCpio() Status {
	return a.setFormat("archive_write_set_format_cpio", odcFormat)
}
func (a *Archive) SetFormatCpioNewc() Status {
	return a.setFormat("archive_write_set_format_cpio_newc", newcFormat)
}
func (a *Archive) SetFormatArBsd() Status {
	return a.unsupported(DirectionWrite, "archive_write_set_format_ar_bsd", "format", "ar_bsd")
}
func (a *Archive) SetFormatArSvr4() Status {
	return a.unsupported(DirectionWrite, "archive_write_set_format_ar_svr4", "format", "ar_svr4")
}
func (a *Archive) SetFormatMtree() Status {
	return a.unsupported(DirectionWrite, "archive_write_set_format_mtree", "format", "mtree")
}
func (a *Archive) SetFormatShar() Status {
	return a.unsupported(DirectionWrite, "archive_write_set_format_shar", "format", "shar")
}
func (a *Archive) SetFormatSharDump() Status {
	return a.unsupported(DirectionWrite, "archive_write_set_format_shar_dump", "format", "shar_dump")
}

// tarWriter truncates payload writes at the declared entry size and
// zero-fills short entries, so a caller can never desynchronise the stream.
type tarWriter struct {
	tw        *tar.Writer
	remaining int64
	format    tar.Format
}

func (t *tarWriter) writeHeader(e *Entry) error {
	if err := t.finishEntry(); err != nil {
		return err
	}
	hdr := t.header(e)
	if err := t.tw.WriteHeader(hdr); err != nil {
		return err
	}
	t.remaining = hdr.Size
	return nil
}

func (t *tarWriter) header(e *Entry) *tar.Header {
	hdr := &tar.Header{
		Name:    e.Pathname(),
		Mode:    int64(e.Perm()),
		Uid:     int(e.Uid()),
		Gid:     int(e.Gid()),
		Uname:   e.Uname(),
		Gname:   e.Gname(),
		ModTime: e.Mtime(),
		Format:  t.format,
	}
	if hdr.ModTime.IsZero() {
		hdr.ModTime = time.Unix(0, 0)
	}
	if t.format == tar.FormatPAX || t.format == tar.FormatGNU {
		hdr.AccessTime = e.Atime()
		hdr.ChangeTime = e.Ctime()
	}

	switch {
	case e.Hardlink() != "":
		hdr.Typeflag = tar.TypeLink
		hdr.Linkname = e.Hardlink()
	case e.Filetype() == TypeSymlink:
		hdr.Typeflag = tar.TypeSymlink
		hdr.Linkname = e.Symlink()
	case e.Filetype() == TypeDir:
		hdr.Typeflag = tar.TypeDir
	case e.Filetype() == TypeChar:
		hdr.Typeflag = tar.TypeChar
		hdr.Devmajor, hdr.Devminor = int64(e.RdevMajor()), int64(e.RdevMinor())
	case e.Filetype() == TypeBlock:
		hdr.Typeflag = tar.TypeBlock
		hdr.Devmajor, hdr.Devminor = int64(e.RdevMajor()), int64(e.RdevMinor())
	case e.Filetype() == TypeFIFO:
		hdr.Typeflag = tar.TypeFifo
	default:
		hdr.Typeflag = tar.TypeReg
		hdr.Size = e.Size()
	}
	return hdr
}

func (t *tarWriter) write(p []byte) (int, error) {
	if int64(len(p)) > t.remaining {
		p = p[:t.remaining]
	}
	n, err := t.tw.Write(p)
	t.remaining -= int64(n)
	return n, err
}

func (t *tarWriter) finishEntry() error {
	if t.remaining == 0 {
		return nil
	}
	n, err := t.tw.Write(make([]byte, t.remaining))
	t.remaining -= int64(n)
	if err != nil {
		return fmt.Errorf("padding entry: %w", err)
	}
	return nil
}

func (t *tarWriter) close() error {
	if err := t.finishEntry(); err != nil {
		return err
	}
	return t.tw.Close()
}
