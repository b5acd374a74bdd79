package native

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sink struct {
	blocks [][]byte
	buf    bytes.Buffer
	closed int
}

func (s *sink) write(_ *Archive, _ any, p []byte) (int, Status) {
	s.blocks = append(s.blocks, append([]byte(nil), p...))
	s.buf.Write(p)
	return len(p), StatusOK
}

func (s *sink) close(*Archive, any) Status {
	s.closed++
	return StatusOK
}

type fileSpec struct {
	name string
	body string
}

// buildArchive writes files through a write handle configured by setup.
func buildArchive(t *testing.T, setup func(a *Archive), files ...fileSpec) *sink {
	t.Helper()
	a := NewWrite()
	setup(a)
	s := &sink{}
	require.Equal(t, StatusOK, a.OpenWrite(nil, nil, s.write, s.close), a.ErrorString())
	for _, f := range files {
		e := NewEntry()
		e.SetPathname(f.name)
		e.SetFiletype(TypeRegular)
		e.SetPerm(0o644)
		e.SetSize(int64(len(f.body)))
		e.SetMtime(time.Unix(1700000000, 0))
		require.Equal(t, StatusOK, a.WriteHeader(e), "WriteHeader(%s): %s", f.name, a.ErrorString())

		n, st := a.WriteData([]byte(f.body))
		require.Equal(t, StatusOK, st, "WriteData(%s): %s", f.name, a.ErrorString())
		require.Equal(t, len(f.body), n)
	}
	require.Equal(t, StatusOK, a.Free(), a.ErrorString())
	require.Equal(t, 1, s.closed, "close callback runs once")
	return s
}

// chunkSource serves data in fixed-size pieces.
type chunkSource struct {
	data  []byte
	chunk int
	calls int
}

func (c *chunkSource) read(*Archive, any) ([]byte, Status) {
	c.calls++
	n := min(c.chunk, len(c.data))
	b := c.data[:n]
	c.data = c.data[n:]
	return b, StatusOK
}

func openReader(t *testing.T, data []byte, setup func(a *Archive)) *Archive {
	t.Helper()
	a := NewRead()
	setup(a)
	src := &chunkSource{data: data, chunk: 1000}
	require.Equal(t, StatusOK, a.OpenRead(nil, nil, src.read, nil), a.ErrorString())
	return a
}

func readAll(t *testing.T, a *Archive) map[string]string {
	t.Helper()
	out := make(map[string]string)
	e := NewEntry()
	for {
		st := a.NextHeader(e)
		if st == StatusEOF {
			break
		}
		require.Equal(t, StatusOK, st, "NextHeader: %s", a.ErrorString())

		var body bytes.Buffer
		for {
			b, off, st := a.ReadDataBlock()
			if st == StatusEOF {
				break
			}
			require.Equal(t, StatusOK, st, "ReadDataBlock: %s", a.ErrorString())
			require.Equal(t, int64(body.Len()), off, "block offset")
			body.Write(b)
		}
		out[e.Pathname()] = body.String()
	}
	return out
}

func supportAll(a *Archive) {
	a.SupportFormatAll()
	a.SupportFilterAll()
}

func TestRoundTripFormatsAndFilters(t *testing.T) {
	big := strings.Repeat("0123456789abcdef", 9000)
	files := []fileSpec{{"a.txt", "hello"}, {"dir/b.bin", big}, {"empty", ""}}

	formats := map[string]func(*Archive) Status{
		"pax":            (*Archive).SetFormatPax,
		"pax_restricted": (*Archive).SetFormatPaxRestricted,
		"ustar":          (*Archive).SetFormatUstar,
		"gnutar":         (*Archive).SetFormatGnutar,
		"odc":            (*Archive).SetFormatCpio,
		"newc":           (*Archive).SetFormatCpioNewc,
	}
	filters := map[string]func(*Archive) Status{
		"none": (*Archive).AddFilterNone,
		"gzip": (*Archive).AddFilterGzip,
		"zstd": (*Archive).AddFilterZstd,
		"lz4":  (*Archive).AddFilterLz4,
		"xz":   (*Archive).AddFilterXz,
		"lzma": (*Archive).AddFilterLzma,
	}

	for fname, setFormat := range formats {
		for cname, addFilter := range filters {
			t.Run(fname+"/"+cname, func(t *testing.T) {
				s := buildArchive(t, func(a *Archive) {
					setFormat(a)
					addFilter(a)
				}, files...)

				a := openReader(t, s.buf.Bytes(), supportAll)
				defer a.Free()

				got := readAll(t, a)
				assert.Len(t, got, len(files))
				for _, f := range files {
					assert.Equal(t, len(f.body), len(got[f.name]), "%s: body length", f.name)
					assert.True(t, got[f.name] == f.body, "%s: body mismatch", f.name)
				}
				if cname != "none" {
					assert.Equal(t, []string{cname}, a.FilterNames())
				}
			})
		}
	}
}

func TestStackedFilters(t *testing.T) {
	s := buildArchive(t, func(a *Archive) {
		a.SetFormatPax()
		a.AddFilterGzip()
		a.AddFilterXz()
	}, fileSpec{"x", "stacked"})

	a := openReader(t, s.buf.Bytes(), supportAll)
	got := readAll(t, a)
	assert.Equal(t, "stacked", got["x"])
	// gzip was applied first, so xz is the outermost layer.
	assert.Equal(t, []string{"xz", "gzip"}, a.FilterNames())
}

func TestBlocking(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		s := buildArchive(t, func(a *Archive) { a.SetFormatUstar() }, fileSpec{"f", "x"})
		for _, b := range s.blocks {
			assert.Len(t, b, defaultBytesPerBlock)
		}
	})

	t.Run("last block padding", func(t *testing.T) {
		s := buildArchive(t, func(a *Archive) {
			a.SetFormatUstar()
			a.SetBytesInLastBlock(1)
		}, fileSpec{"f", "x"})
		// header + one data block + two end blocks
		assert.Equal(t, 4*512, s.buf.Len())
	})

	t.Run("unblocked", func(t *testing.T) {
		s := buildArchive(t, func(a *Archive) {
			a.SetFormatCpioNewc()
			a.SetBytesPerBlock(0)
		}, fileSpec{"f", "abc"})
		assert.Zero(t, s.buf.Len()%4, "newc pads to 4 bytes")
		assert.Less(t, s.buf.Len(), defaultBytesPerBlock)
	})
}

func TestHeaderWithoutFormat(t *testing.T) {
	a := NewWrite()
	s := &sink{}
	require.Equal(t, StatusOK, a.OpenWrite(nil, nil, s.write, nil))

	e := NewEntry()
	e.SetPathname("x")
	assert.Equal(t, StatusFatal, a.WriteHeader(e))
	assert.Contains(t, a.ErrorString(), "Format must be set")
}

func TestSkipFile(t *testing.T) {
	a := NewWrite()
	a.SetFormatPax()
	a.SetSkipFile(7, 42)
	s := &sink{}
	a.OpenWrite(nil, nil, s.write, nil)
	defer a.Free()

	e := NewEntry()
	e.SetPathname("self.tar")
	e.SetFiletype(TypeRegular)
	e.SetDev(7)
	e.SetIno(42)
	assert.Equal(t, StatusFailed, a.WriteHeader(e))
	assert.Equal(t, "Can't add archive to itself", a.ErrorString())

	e.SetIno(43)
	assert.Equal(t, StatusOK, a.WriteHeader(e), a.ErrorString())
}

func TestWriteCallbackAbort(t *testing.T) {
	a := NewWrite()
	a.SetFormatPax()
	a.SetBytesPerBlock(0)
	fail := func(a *Archive, _ any, _ []byte) (int, Status) {
		a.SetError(ErrnoIO, "disk full")
		return 0, StatusFatal
	}
	a.OpenWrite(nil, nil, fail, nil)

	e := NewEntry()
	e.SetPathname("x")
	e.SetFiletype(TypeRegular)
	assert.Equal(t, StatusFatal, a.WriteHeader(e))
	assert.Equal(t, "disk full", a.ErrorString())
}

func TestUnsupportedCapabilities(t *testing.T) {
	r := NewRead()
	assert.Equal(t, StatusFailed, r.SupportFormatZip())
	assert.Contains(t, r.ErrorString(), "not supported by this build: zip")

	w := NewWrite()
	assert.Equal(t, StatusFailed, w.AddFilterBzip2())
	assert.Equal(t, StatusFailed, w.SetFormatShar())
}

func TestDirectionMisuse(t *testing.T) {
	r := NewRead()
	assert.Equal(t, StatusFatal, r.SetFormatPax())
	assert.Contains(t, r.ErrorString(), "invalid archive handle")
}

func TestOpenReadRequiresFormat(t *testing.T) {
	a := NewRead()
	src := &chunkSource{chunk: 10}
	assert.Equal(t, StatusFatal, a.OpenRead(nil, nil, src.read, nil))
}

func TestEOFIsSticky(t *testing.T) {
	s := buildArchive(t, func(a *Archive) { a.SetFormatPax() }, fileSpec{"only", "1"})
	a := openReader(t, s.buf.Bytes(), supportAll)
	readAll(t, a)

	e := NewEntry()
	for i := 0; i < 3; i++ {
		assert.Equal(t, StatusEOF, a.NextHeader(e), "NextHeader after end")
	}
	_, _, st := a.ReadDataBlock()
	assert.Equal(t, StatusEOF, st, "ReadDataBlock after end")
}

func TestEmptyAndRawFormats(t *testing.T) {
	a := openReader(t, nil, func(a *Archive) { a.SupportFormatEmpty() })
	assert.Equal(t, StatusEOF, a.NextHeader(NewEntry()))
	assert.Equal(t, "empty", a.FormatName())

	a = openReader(t, []byte("just bytes"), func(a *Archive) { a.SupportFormatRaw() })
	got := readAll(t, a)
	assert.Equal(t, "just bytes", got["data"])
}

func TestGarbageIsRejected(t *testing.T) {
	a := openReader(t, bytes.Repeat([]byte("garbage!"), 100), supportAll)
	assert.Equal(t, StatusFatal, a.NextHeader(NewEntry()))
	assert.Equal(t, "Unrecognized archive format", a.ErrorString())
}

func TestReadCallbackAbort(t *testing.T) {
	a := NewRead()
	a.SupportFormatAll()
	read := func(a *Archive, _ any) ([]byte, Status) {
		a.SetError(ErrnoIO, "boom")
		return nil, StatusFatal
	}
	assert.Equal(t, StatusFatal, a.OpenRead(nil, nil, read, nil))
	assert.Equal(t, "boom", a.ErrorString())
}

func TestCloseAndFreeIdempotent(t *testing.T) {
	a := NewRead()
	a.SupportFormatAll()
	closes := 0
	src := &chunkSource{chunk: 10}
	a.OpenRead(nil, nil, src.read, func(*Archive, any) Status { closes++; return StatusOK })
	for i := 0; i < 3; i++ {
		a.Close()
	}
	a.Free()
	a.Free()

	assert.Equal(t, 1, closes, "close callback runs once")
	assert.True(t, a.Freed())
	assert.Equal(t, StatusFatal, a.Close(), "Close after Free")
}

func TestSetOptions(t *testing.T) {
	tests := []struct {
		name  string
		opts  string
		setup func(a *Archive)
		want  Status
		msg   string
	}{
		{"gzip level", "gzip:compression-level=9", func(a *Archive) { a.SetFormatPax(); a.AddFilterGzip() }, StatusOK, ""},
		{"unqualified level", "compression-level=3", func(a *Archive) { a.SetFormatPax(); a.AddFilterZstd() }, StatusOK, ""},
		{"timestamp off", "!timestamp", func(a *Archive) { a.SetFormatPax(); a.AddFilterGzip() }, StatusOK, ""},
		{"hdrcharset", "pax:hdrcharset=UTF-8", func(a *Archive) { a.SetFormatPaxRestricted() }, StatusOK, ""},
		{"unknown option", "bogus", func(a *Archive) { a.SetFormatPax() }, StatusFailed, "Undefined option: `bogus'"},
		{"unknown module", "gzip:compression-level=1", func(a *Archive) { a.SetFormatPax() }, StatusFailed, "Unknown module name: `gzip'"},
		{"qualified unknown", "pax:bogus", func(a *Archive) { a.SetFormatPax() }, StatusFailed, "Undefined option: `pax:bogus'"},
		{"out of range", "lz4:compression-level=12", func(a *Archive) { a.SetFormatPax(); a.AddFilterLz4() }, StatusFailed, "Illegal value"},
		{"bad charset", "hdrcharset=latin1", func(a *Archive) { a.SetFormatUstar() }, StatusFailed, "Illegal value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewWrite()
			tt.setup(a)
			require.Equal(t, tt.want, a.SetOptions(tt.opts), a.ErrorString())
			if tt.msg != "" {
				assert.Contains(t, a.ErrorString(), tt.msg)
			}
		})
	}
}

func TestLeveledFiltersStillRoundTrip(t *testing.T) {
	for _, opt := range []string{"gzip:compression-level=1", "xz:compression-level=0", "lz4:compression-level=9", "zstd:compression-level=19"} {
		t.Run(opt, func(t *testing.T) {
			mod, _, _ := strings.Cut(opt, ":")
			s := buildArchive(t, func(a *Archive) {
				a.SetFormatPax()
				switch mod {
				case "gzip":
					a.AddFilterGzip()
				case "xz":
					a.AddFilterXz()
				case "lz4":
					a.AddFilterLz4()
				case "zstd":
					a.AddFilterZstd()
				}
				require.Equal(t, StatusOK, a.SetOptions(opt), a.ErrorString())
			}, fileSpec{"f", strings.Repeat("level ", 500)})

			got := readAll(t, openReader(t, s.buf.Bytes(), supportAll))
			assert.Equal(t, strings.Repeat("level ", 500), got["f"])
		})
	}
}
