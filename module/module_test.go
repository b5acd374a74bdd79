package module

import (
	"archive/tar"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/archive-runtime/archive"
	"github.com/wippyai/archive-runtime/config"
	"github.com/wippyai/archive-runtime/errors"
	"github.com/wippyai/archive-runtime/native"
)

func TestOpen_Namespace(t *testing.T) {
	ns := Table{}
	Open().Install(ns)

	for _, name := range []string{
		"version", "read", "write", "entry",
		"_read_ref_count", "_write_ref_count", "_entry_ref_count",
	} {
		assert.Contains(t, ns, name)
	}
	assert.Len(t, ns, 7)
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in   string
		want []int
	}{
		{"libarchive 3.7.4", []int{3, 7, 4}},
		{"archive-native 2.8.3dev", []int{2, 8, 3}},
		{"1.2", []int{1, 2}},
		{"no digits", nil},
		{"", nil},
		{"v10..20-x30", []int{10, 20, 30}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseVersion(tt.in), "ParseVersion(%q)", tt.in)
	}
}

func TestVersion(t *testing.T) {
	out, err := Open().Call("version")
	require.NoError(t, err)

	got := out[0].([]int)
	assert.Equal(t, ParseVersion(native.Version), got)
	assert.Len(t, got, 3)
}

func TestOpen_ReadThroughCall(t *testing.T) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	body := []byte("payload")
	require.NoError(t, tw.WriteHeader(&tar.Header{Typeflag: tar.TypeReg, Name: "f", Mode: 0o600, Size: int64(len(body))}))
	_, err := tw.Write(body)
	require.NoError(t, err)
	require.NoError(t, tw.Close())

	r := Open()
	before := archive.ReadRefCount()

	out, err := r.Call("read", map[string]any{
		"reader": bytes.NewReader(buf.Bytes()),
		"format": "tar",
	})
	require.NoError(t, err)
	s := out[0].(*archive.ReadSession)

	count, err := r.Call("_read_ref_count")
	require.NoError(t, err)
	assert.Equal(t, before+1, count[0])

	e, err := s.NextHeader()
	require.NoError(t, err)
	assert.Equal(t, "f", e.Pathname())

	_, err = s.NextHeader()
	assert.Equal(t, io.EOF, err)

	require.NoError(t, s.Close())
	assert.Equal(t, before, archive.ReadRefCount())
}

func TestOpen_ReadRejectsBadRecord(t *testing.T) {
	_, err := Open().Call("read", config.Record{"format": "tar"})
	assert.ErrorIs(t, err, errors.ErrConfiguration)
}

func TestOpen_Write(t *testing.T) {
	r := Open()
	before := archive.WriteRefCount()

	out, err := r.Call("write", config.Record{"format": "cpio_newc"})
	require.NoError(t, err)
	s := out[0].(*archive.WriteSession)
	assert.Equal(t, before+1, archive.WriteRefCount())
	assert.ErrorIs(t, s.Close(), errors.ErrUnimplemented)

	_, err = r.Call("write", config.Record{"format": "pax", "skip_file": 1})
	assert.ErrorIs(t, err, errors.ErrConfiguration)
}

func TestOpen_Entry(t *testing.T) {
	r := Open()
	before := archive.EntryRefCount()

	out, err := r.Call("entry", nil)
	require.NoError(t, err)
	blank := out[0].(*archive.Entry)
	assert.Empty(t, blank.Pathname())

	out, err = r.Call("entry", map[string]any{"pathname": "a/b", "filetype": "fifo"})
	require.NoError(t, err)
	e := out[0].(*archive.Entry)
	assert.Equal(t, "a/b", e.Pathname())
	assert.Equal(t, archive.TypeFIFO, e.Filetype())

	count, err := r.Call("_entry_ref_count")
	require.NoError(t, err)
	assert.Equal(t, before+2, count[0])
	blank.Close()
	e.Close()

	_, err = r.Call("entry", map[string]any{"filetype": "door"})
	assert.ErrorIs(t, err, errors.ErrConfiguration)
	assert.Equal(t, before, archive.EntryRefCount())
}
