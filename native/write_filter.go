package native

import (
	"io"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
)

type writeFilter struct {
	open func(dst io.Writer, w *writeState) (io.WriteCloser, error)
	name string
}

// xzDictCaps maps compression levels 0-9 to dictionary sizes, following the
// xz presets.
var xzDictCaps = [10]int{
	256 << 10, 1 << 20, 2 << 20, 4 << 20, 4 << 20,
	8 << 20, 8 << 20, 16 << 20, 32 << 20, 64 << 20,
}

var lz4Levels = [9]lz4.CompressionLevel{
	lz4.Level1, lz4.Level2, lz4.Level3, lz4.Level4, lz4.Level5,
	lz4.Level6, lz4.Level7, lz4.Level8, lz4.Level9,
}

var gzipFilter = &writeFilter{
	name: "gzip",
	open: func(dst io.Writer, w *writeState) (io.WriteCloser, error) {
		level := gzip.DefaultCompression
		if l, ok := w.levels["gzip"]; ok {
			level = l
		}
		gw, err := gzip.NewWriterLevel(dst, level)
		if err != nil {
			return nil, err
		}
		if w.gzipTimestamp {
			gw.ModTime = time.Now()
		}
		return gw, nil
	},
}

var zstdFilter = &writeFilter{
	name: "zstd",
	open: func(dst io.Writer, w *writeState) (io.WriteCloser, error) {
		level := zstd.SpeedDefault
		if l, ok := w.levels["zstd"]; ok {
			level = zstd.EncoderLevelFromZstd(l)
		}
		return zstd.NewWriter(dst, zstd.WithEncoderLevel(level))
	},
}

var lz4Filter = &writeFilter{
	name: "lz4",
	open: func(dst io.Writer, w *writeState) (io.WriteCloser, error) {
		zw := lz4.NewWriter(dst)
		if l, ok := w.levels["lz4"]; ok {
			if err := zw.Apply(lz4.CompressionLevelOption(lz4Levels[l-1])); err != nil {
				return nil, err
			}
		}
		return zw, nil
	},
}

var xzFilter = &writeFilter{
	name: "xz",
	open: func(dst io.Writer, w *writeState) (io.WriteCloser, error) {
		if l, ok := w.levels["xz"]; ok {
			return xz.WriterConfig{DictCap: xzDictCaps[l]}.NewWriter(dst)
		}
		return xz.NewWriter(dst)
	},
}

var lzmaFilter = &writeFilter{
	name: "lzma",
	open: func(dst io.Writer, w *writeState) (io.WriteCloser, error) {
		if l, ok := w.levels["lzma"]; ok {
			return lzma.WriterConfig{DictCap: xzDictCaps[l]}.NewWriter(dst)
		}
		return lzma.NewWriter(dst)
	},
}

func (a *Archive) addFilter(fn string, f *writeFilter) Status {
	if st := a.check(DirectionWrite, fn, stateNew); st != StatusOK {
		return st
	}
	for _, have := range a.w.filters {
		if have.name == f.name {
			return StatusOK
		}
	}
	a.w.filters = append(a.w.filters, f)
	return StatusOK
}

// WriteFilterNames lists the output filters in the order they were added.
func (a *Archive) WriteFilterNames() []string {
	if a.w == nil {
		return nil
	}
	names := make([]string, 0, len(a.w.filters))
	for _, f := range a.w.filters {
		names = append(names, f.name)
	}
	return names
}

func (a *Archive) hasWriteFilter(name string) bool {
	for _, f := range a.w.filters {
		if f.name == name {
			return true
		}
	}
	return false
}

// Write filter selection. Filters stack in call order.

func (a *Archive) AddFilterNone() Status {
	return a.check(DirectionWrite, "archive_write_add_filter_none", stateNew)
}
func (a *Archive) AddFilterGzip() Status {
	return a.addFilter("archive_write_add_filter_gzip", gzipFilter)
}
func (a *Archive) AddFilterZstd() Status {
	return a.addFilter("archive_write_add_filter_zstd", zstdFilter)
}
func (a *Archive) AddFilterLz4() Status {
	return a.addFilter("archive_write_add_filter_lz4", lz4Filter)
}
func (a *Archive) AddFilterXz() Status {
	return a.addFilter("archive_write_add_filter_xz", xzFilter)
}
func (a *Archive) AddFilterLzma() Status {
	return a.addFilter("archive_write_add_filter_lzma", lzmaFilter)
}
func (a *Archive) AddFilterBzip2() Status {
	return a.unsupported(DirectionWrite, "archive_write_add_filter_bzip2", "filter", "bzip2")
}
func (a *Archive) AddFilterCompress() Status {
	return a.unsupported(DirectionWrite, "archive_write_add_filter_compress", "filter", "compress")
}
