package native

import (
	"bytes"
	"compress/bzip2"
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
)

const filterPeekSize = 16

type filterBidder struct {
	bid  func(head []byte) bool
	open func(r io.Reader) (io.ReadCloser, error)
	name string
}

var (
	gzipMagic = []byte{0x1f, 0x8b, 0x08}
	xzMagic   = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

var gzipBidder = &filterBidder{
	name: "gzip",
	bid:  func(head []byte) bool { return bytes.HasPrefix(head, gzipMagic) },
	open: func(r io.Reader) (io.ReadCloser, error) {
		return gzip.NewReader(r)
	},
}

var bzip2Bidder = &filterBidder{
	name: "bzip2",
	bid: func(head []byte) bool {
		return len(head) >= 4 && head[0] == 'B' && head[1] == 'Z' && head[2] == 'h' &&
			head[3] >= '1' && head[3] <= '9'
	},
	open: func(r io.Reader) (io.ReadCloser, error) {
		return io.NopCloser(bzip2.NewReader(r)), nil
	},
}

var xzBidder = &filterBidder{
	name: "xz",
	bid:  func(head []byte) bool { return bytes.HasPrefix(head, xzMagic) },
	open: func(r io.Reader) (io.ReadCloser, error) {
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(xr), nil
	},
}

var lzmaBidder = &filterBidder{
	name: "lzma",
	bid:  lzmaBid,
	open: func(r io.Reader) (io.ReadCloser, error) {
		lr, err := lzma.NewReader(r)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(lr), nil
	},
}

var zstdBidder = &filterBidder{
	name: "zstd",
	bid:  func(head []byte) bool { return bytes.HasPrefix(head, zstdMagic) },
	open: func(r io.Reader) (io.ReadCloser, error) {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	},
}

var lz4Bidder = &filterBidder{
	name: "lz4",
	bid:  func(head []byte) bool { return bytes.HasPrefix(head, lz4Magic) },
	open: func(r io.Reader) (io.ReadCloser, error) {
		return io.NopCloser(lz4.NewReader(r)), nil
	},
}

// lzmaBid recognises the classic .lzma header: a properties byte, a
// dictionary size that is 2^n or 2^n+2^(n-1), and an uncompressed size that
// is either unknown (all ones) or plausible.
func lzmaBid(head []byte) bool {
	if len(head) < 13 {
		return false
	}
	if head[0] >= 9*5*5 {
		return false
	}
	dict := binary.LittleEndian.Uint32(head[1:5])
	if dict < 1<<12 {
		return false
	}
	ok := false
	for n := uint(12); n < 32; n++ {
		if dict == 1<<n || dict == 1<<n+1<<(n-1) {
			ok = true
			break
		}
	}
	if !ok {
		return false
	}
	size := binary.LittleEndian.Uint64(head[5:13])
	return size == ^uint64(0) || size < 1<<48
}
