package native

import (
	"archive/tar"
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const formatPeekSize = 512

type formatReader interface {
	// next fills e and returns a reader over the entry's payload, or io.EOF
	// at the end of the archive.
	next(e *Entry) (io.Reader, error)
}

type formatBidder struct {
	bid  func(head []byte) int
	open func(in *bufio.Reader) formatReader
	name string
}

var tarBidder = &formatBidder{
	name: "tar",
	bid:  tarBid,
	open: func(in *bufio.Reader) formatReader {
		return &tarReader{tr: tar.NewReader(in)}
	},
}

var cpioBidder = &formatBidder{
	name: "cpio",
	bid: func(head []byte) int {
		if len(head) < 6 {
			return 0
		}
		switch string(head[:6]) {
		case cpioNewcMagic, cpioCRCMagic, cpioOdcMagic:
			return 48
		}
		return 0
	},
	open: func(in *bufio.Reader) formatReader {
		return &cpioReader{in: in}
	},
}

var emptyBidder = &formatBidder{
	name: "empty",
	bid: func(head []byte) int {
		if len(head) == 0 {
			return 1
		}
		return 0
	},
	open: func(*bufio.Reader) formatReader {
		return emptyReader{}
	},
}

var rawBidder = &formatBidder{
	name: "raw",
	bid: func(head []byte) int {
		if len(head) > 0 {
			return 1
		}
		return 0
	},
	open: func(in *bufio.Reader) formatReader {
		return &rawReader{in: in}
	},
}

func tarBid(head []byte) int {
	if len(head) < 512 {
		return 0
	}
	if bytes.Count(head[:512], []byte{0}) == 512 {
		// End-of-archive marker: an empty tar archive.
		return 10
	}
	if !tarChecksumOK(head[:512]) {
		return 0
	}
	if string(head[257:262]) == "ustar" {
		return 56
	}
	return 48
}

func tarChecksumOK(block []byte) bool {
	field := strings.Trim(string(block[148:156]), " \x00")
	want, err := strconv.ParseInt(field, 8, 64)
	if err != nil {
		return false
	}
	var unsigned, signed int64
	for i, c := range block {
		if i >= 148 && i < 156 {
			c = ' '
		}
		unsigned += int64(c)
		signed += int64(int8(c))
	}
	return want == unsigned || want == signed
}

type tarReader struct {
	tr *tar.Reader
}

func (t *tarReader) next(e *Entry) (io.Reader, error) {
	hdr, err := t.tr.Next()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		if errors.Is(err, errAborted) {
			return nil, err
		}
		return nil, fmt.Errorf("Damaged tar archive: %w", err)
	}
	entryFromTar(e, hdr)
	return t.tr, nil
}

func entryFromTar(e *Entry, hdr *tar.Header) {
	e.SetPathname(hdr.Name)
	e.SetPerm(uint32(hdr.Mode) & 0o7777)
	e.SetUid(int64(hdr.Uid))
	e.SetGid(int64(hdr.Gid))
	e.SetUname(hdr.Uname)
	e.SetGname(hdr.Gname)
	e.SetMtime(hdr.ModTime)
	e.SetAtime(hdr.AccessTime)
	e.SetCtime(hdr.ChangeTime)
	e.SetNlink(1)

	switch hdr.Typeflag {
	case tar.TypeLink:
		e.SetFiletype(TypeRegular)
		e.SetHardlink(hdr.Linkname)
		e.SetSize(0)
	case tar.TypeSymlink:
		e.SetFiletype(TypeSymlink)
		e.SetSymlink(hdr.Linkname)
		e.SetSize(0)
	case tar.TypeChar:
		e.SetFiletype(TypeChar)
		e.SetRdev(Makedev(uint32(hdr.Devmajor), uint32(hdr.Devminor)))
	case tar.TypeBlock:
		e.SetFiletype(TypeBlock)
		e.SetRdev(Makedev(uint32(hdr.Devmajor), uint32(hdr.Devminor)))
	case tar.TypeDir:
		e.SetFiletype(TypeDir)
		e.SetSize(0)
	case tar.TypeFifo:
		e.SetFiletype(TypeFIFO)
	default:
		e.SetFiletype(TypeRegular)
		e.SetSize(hdr.Size)
	}
}

type emptyReader struct{}

func (emptyReader) next(*Entry) (io.Reader, error) {
	return nil, io.EOF
}

// rawReader exposes the whole (decompressed) stream as a single entry.
type rawReader struct {
	in   *bufio.Reader
	done bool
}

func (r *rawReader) next(e *Entry) (io.Reader, error) {
	if r.done {
		return nil, io.EOF
	}
	r.done = true
	e.SetPathname("data")
	e.SetFiletype(TypeRegular)
	e.SetPerm(0o644)
	e.SetNlink(1)
	return r.in, nil
}
