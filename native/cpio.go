package native

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

const (
	cpioNewcMagic = "070701"
	cpioCRCMagic  = "070702"
	cpioOdcMagic  = "070707"
	cpioTrailer   = "TRAILER!!!"

	cpioNewcHeaderSize = 110
	cpioOdcHeaderSize  = 76
)

var errTruncatedCpio = errors.New("Truncated cpio header")

type cpioReader struct {
	in   *bufio.Reader
	data *io.LimitedReader
	pad  int64
	done bool
}

func (c *cpioReader) next(e *Entry) (io.Reader, error) {
	if c.done {
		return nil, io.EOF
	}
	if c.data != nil {
		if _, err := io.CopyN(io.Discard, c.in, c.data.N+c.pad); err != nil {
			return nil, cpioErr(err)
		}
		c.data = nil
	}

	magic, err := c.in.Peek(6)
	if err != nil {
		return nil, cpioErr(err)
	}

	var size, pad int64
	switch string(magic) {
	case cpioNewcMagic, cpioCRCMagic:
		size, pad, err = c.readNewc(e)
	case cpioOdcMagic:
		size, err = c.readOdc(e)
	default:
		return nil, fmt.Errorf("Missing cpio header magic: %q", magic)
	}
	if err != nil {
		return nil, err
	}

	if e.Pathname() == cpioTrailer {
		c.done = true
		e.Clear()
		return nil, io.EOF
	}

	if e.Filetype() == TypeSymlink {
		target := make([]byte, size)
		if _, err := io.ReadFull(c.in, target); err != nil {
			return nil, cpioErr(err)
		}
		if _, err := io.CopyN(io.Discard, c.in, pad); err != nil {
			return nil, cpioErr(err)
		}
		e.SetSymlink(string(target))
		e.SetSize(0)
		c.data = &io.LimitedReader{R: c.in, N: 0}
		c.pad = 0
		return c.data, nil
	}

	e.SetSize(size)
	c.data = &io.LimitedReader{R: c.in, N: size}
	c.pad = pad
	return c.data, nil
}

func (c *cpioReader) readNewc(e *Entry) (size, pad int64, err error) {
	hdr := make([]byte, cpioNewcHeaderSize)
	if _, err := io.ReadFull(c.in, hdr); err != nil {
		return 0, 0, cpioErr(err)
	}
	field := func(i int) (uint64, error) {
		off := 6 + i*8
		return strconv.ParseUint(string(hdr[off:off+8]), 16, 64)
	}
	var v [13]uint64
	for i := range v {
		if v[i], err = field(i); err != nil {
			return 0, 0, fmt.Errorf("Malformed cpio header field %d: %w", i, err)
		}
	}
	ino, mode, uid, gid, nlink, mtime, filesize := v[0], v[1], v[2], v[3], v[4], v[5], v[6]
	devMajor, devMinor, rdevMajor, rdevMinor, namesize := v[7], v[8], v[9], v[10], v[11]

	name := make([]byte, namesize)
	if _, err := io.ReadFull(c.in, name); err != nil {
		return 0, 0, cpioErr(err)
	}
	// header + name is padded to a multiple of four
	if _, err := io.CopyN(io.Discard, c.in, int64(align4(cpioNewcHeaderSize+int(namesize)))); err != nil {
		return 0, 0, cpioErr(err)
	}

	e.SetPathname(strings.TrimRight(string(name), "\x00"))
	e.SetIno(ino)
	e.SetMode(uint32(mode))
	e.SetUid(int64(uid))
	e.SetGid(int64(gid))
	e.SetNlink(uint32(nlink))
	e.SetMtime(time.Unix(int64(mtime), 0))
	e.SetDev(Makedev(uint32(devMajor), uint32(devMinor)))
	e.SetRdev(Makedev(uint32(rdevMajor), uint32(rdevMinor)))
	return int64(filesize), int64(align4(int(filesize))), nil
}

func (c *cpioReader) readOdc(e *Entry) (int64, error) {
	hdr := make([]byte, cpioOdcHeaderSize)
	if _, err := io.ReadFull(c.in, hdr); err != nil {
		return 0, cpioErr(err)
	}
	widths := []int{6, 6, 6, 6, 6, 6, 6, 11, 6, 11}
	var v [10]uint64
	off := 6
	for i, w := range widths {
		n, err := strconv.ParseUint(string(hdr[off:off+w]), 8, 64)
		if err != nil {
			return 0, fmt.Errorf("Malformed cpio header field %d: %w", i, err)
		}
		v[i] = n
		off += w
	}
	dev, ino, mode, uid, gid, nlink, rdev, mtime, namesize, filesize :=
		v[0], v[1], v[2], v[3], v[4], v[5], v[6], v[7], v[8], v[9]

	name := make([]byte, namesize)
	if _, err := io.ReadFull(c.in, name); err != nil {
		return 0, cpioErr(err)
	}

	e.SetPathname(strings.TrimRight(string(name), "\x00"))
	e.SetDev(dev)
	e.SetIno(ino)
	e.SetMode(uint32(mode))
	e.SetUid(int64(uid))
	e.SetGid(int64(gid))
	e.SetNlink(uint32(nlink))
	e.SetRdev(rdev)
	e.SetMtime(time.Unix(int64(mtime), 0))
	return int64(filesize), nil
}

func cpioErr(err error) error {
	if errors.Is(err, errAborted) {
		return err
	}
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return errTruncatedCpio
	}
	return err
}

func unixTime(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

// align4 returns the padding needed to round n up to a multiple of four.
func align4(n int) int {
	return (4 - n%4) % 4
}

// cpioWriter emits newc or odc records.
type cpioWriter struct {
	w         io.Writer
	remaining int64
	pad       int
	nextIno   uint64
	newc      bool
}

func (c *cpioWriter) writeHeader(e *Entry) error {
	if err := c.finishEntry(); err != nil {
		return err
	}
	ino := e.Ino()
	if !e.InoIsSet() {
		c.nextIno++
		ino = c.nextIno
	}
	var (
		body []byte
		size int64
	)
	switch e.Filetype() {
	case TypeSymlink:
		body = []byte(e.Symlink())
		size = int64(len(body))
	case TypeRegular:
		if e.Hardlink() == "" {
			size = e.Size()
		}
	}
	nlink := e.Nlink()
	if nlink == 0 {
		nlink = 1
	}
	name := e.Pathname() + "\x00"

	var hdr string
	if c.newc {
		if size > 0xffffffff {
			return fmt.Errorf("File is too large for cpio format: %s", e.Pathname())
		}
		hdr = fmt.Sprintf("%s%08x%08x%08x%08x%08x%08x%08x%08x%08x%08x%08x%08x%08x",
			cpioNewcMagic, ino&0xffffffff, e.Mode(), e.Uid(), e.Gid(), nlink,
			unixTime(e.Mtime())&0xffffffff, size,
			Major(e.Dev()), Minor(e.Dev()), e.RdevMajor(), e.RdevMinor(), len(name), 0)
		hdr += name + strings.Repeat("\x00", align4(len(hdr)+len(name)))
	} else {
		if size > 0o77777777777 {
			return fmt.Errorf("File is too large for cpio format: %s", e.Pathname())
		}
		hdr = fmt.Sprintf("%s%06o%06o%06o%06o%06o%06o%06o%011o%06o%011o",
			cpioOdcMagic, e.Dev()&0o777777, ino&0o777777, e.Mode()&0o777777,
			e.Uid()&0o777777, e.Gid()&0o777777, nlink&0o777777, e.Rdev()&0o777777,
			unixTime(e.Mtime())&0o77777777777, len(name), size)
		hdr += name
	}
	if _, err := io.WriteString(c.w, hdr); err != nil {
		return err
	}

	if body != nil {
		if _, err := c.w.Write(body); err != nil {
			return err
		}
		c.remaining = 0
		c.pad = c.padding(size)
		return c.finishEntry()
	}
	c.remaining = size
	c.pad = c.padding(size)
	return nil
}

func (c *cpioWriter) padding(size int64) int {
	if !c.newc {
		return 0
	}
	return align4(int(size % 4))
}

func (c *cpioWriter) write(p []byte) (int, error) {
	if int64(len(p)) > c.remaining {
		p = p[:c.remaining]
	}
	n, err := c.w.Write(p)
	c.remaining -= int64(n)
	return n, err
}

// finishEntry zero-fills whatever the caller did not write and emits padding.
func (c *cpioWriter) finishEntry() error {
	fill := c.remaining + int64(c.pad)
	c.remaining, c.pad = 0, 0
	if fill == 0 {
		return nil
	}
	_, err := c.w.Write(make([]byte, fill))
	return err
}

func (c *cpioWriter) close() error {
	if err := c.finishEntry(); err != nil {
		return err
	}
	trailer := NewEntry()
	trailer.SetPathname(cpioTrailer)
	trailer.SetIno(0)
	trailer.SetNlink(1)
	return c.writeHeader(trailer)
}
