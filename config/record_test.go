package config

import (
	"archive/tar"
	"bytes"
	"io"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/archive-runtime/archive"
	"github.com/wippyai/archive-runtime/errors"
)

func tarball(t *testing.T, name, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	require.NoError(t, tw.WriteHeader(&tar.Header{Typeflag: tar.TypeReg, Name: name, Mode: 0o644, Size: int64(len(body))}))
	_, err := tw.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

func readFirst(t *testing.T, cfg archive.ReadConfig) (string, string) {
	t.Helper()
	s, err := archive.Read(cfg)
	require.NoError(t, err)
	defer s.Close()

	e, err := s.NextHeader()
	require.NoError(t, err)
	var body bytes.Buffer
	_, err = s.WriteTo(&body)
	require.NoError(t, err)
	return e.Pathname(), body.String()
}

func TestDecodeReadReaderKinds(t *testing.T) {
	data := tarball(t, "greeting", "hello")

	served := false
	generator := func() ([]byte, error) {
		if served {
			return nil, io.EOF
		}
		served = true
		return data, nil
	}

	readers := map[string]any{
		"io.Reader": bytes.NewReader(data),
		"generator": generator,
		"session func": func(_ *archive.ReadSession, closing bool) ([]byte, error) {
			if closing {
				return nil, nil
			}
			return data, nil
		},
		"ReaderFunc": archive.ReaderFrom(bytes.NewReader(data), 7),
	}

	for name, reader := range readers {
		t.Run(name, func(t *testing.T) {
			cfg, err := DecodeRead(Record{"reader": reader, "format": "tar"})
			require.NoError(t, err)
			assert.Equal(t, "tar", cfg.Format)
			assert.Empty(t, cfg.Compression)

			path, body := readFirst(t, cfg)
			assert.Equal(t, "greeting", path)
			assert.Equal(t, "hello", body)
		})
	}
}

func TestDecodeReadRejectsBadReader(t *testing.T) {
	_, err := DecodeRead(Record{"format": "tar"})
	require.ErrorIs(t, err, errors.ErrConfiguration)
	assert.Contains(t, err.Error(), "reader must be a function")

	_, err = DecodeRead(Record{"reader": "stdin", "format": "tar"})
	require.ErrorIs(t, err, errors.ErrConfiguration)
	assert.Contains(t, err.Error(), "got string")

	var e *errors.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, []string{"reader"}, e.Path)
}

func TestDecodeReadFields(t *testing.T) {
	cfg, err := DecodeRead(Record{
		"reader":      bytes.NewReader(nil),
		"format":      "tar cpio",
		"compression": "gzip,xz",
		"options":     "tar:hdrcharset=UTF-8",
		"unknown":     true,
	})
	require.NoError(t, err)
	assert.Equal(t, "tar cpio", cfg.Format)
	assert.Equal(t, "gzip,xz", cfg.Compression)
	assert.Equal(t, "tar:hdrcharset=UTF-8", cfg.Options)
	assert.NotNil(t, cfg.Reader)
}

func TestDecodeReadFormat(t *testing.T) {
	_, err := DecodeRead(Record{"reader": bytes.NewReader(nil)})
	require.ErrorIs(t, err, errors.ErrConfiguration)
	assert.Contains(t, err.Error(), "'required' tag")

	_, err = DecodeRead(Record{"reader": bytes.NewReader(nil), "format": 123})
	require.ErrorIs(t, err, errors.ErrConfiguration)
	assert.Contains(t, err.Error(), "format")
}

func TestDecodeWrite(t *testing.T) {
	cfg, err := DecodeWrite(Record{
		"bytes_per_block":     512,
		"bytes_in_last_block": 1.0,
		"skip_file":           map[string]any{"dev": 3, "ino": 99.0},
		"format":              "pax",
		"compression":         "gzip",
		"options":             "gzip:compression-level=9",
	})
	require.NoError(t, err)

	require.NotNil(t, cfg.BytesPerBlock)
	assert.Equal(t, 512, *cfg.BytesPerBlock)
	require.NotNil(t, cfg.BytesInLastBlock)
	assert.Equal(t, 1, *cfg.BytesInLastBlock)
	assert.Equal(t, &archive.FileID{Dev: 3, Ino: 99}, cfg.SkipFile)
	assert.Equal(t, "pax", cfg.Format)
	assert.Equal(t, "gzip", cfg.Compression)

	s, err := archive.Write(cfg)
	require.NoError(t, err)
	assert.Equal(t, "pax", s.FormatName())
	require.ErrorIs(t, s.Close(), errors.ErrUnimplemented)
}

func TestDecodeWriteDefaults(t *testing.T) {
	cfg, err := DecodeWrite(Record{"format": "ustar"})
	require.NoError(t, err)
	assert.Nil(t, cfg.BytesPerBlock)
	assert.Nil(t, cfg.BytesInLastBlock)
	assert.Nil(t, cfg.SkipFile)

	cfg, err = DecodeWrite(Record{"format": "ustar", "skip_file": archive.FileID{Dev: 1, Ino: 2}})
	require.NoError(t, err)
	assert.Equal(t, &archive.FileID{Dev: 1, Ino: 2}, cfg.SkipFile)
}

func TestDecodeWriteSkipFileMessages(t *testing.T) {
	tests := []struct {
		name string
		skip any
		want string
	}{
		{"not a table", "self.tar", "skip_file member must be a table object"},
		{"dev missing", map[string]any{"ino": 1}, "skip_file.dev member must be a number"},
		{"dev not a number", map[string]any{"dev": "x", "ino": 1}, "skip_file.dev member must be a number"},
		{"ino not a number", map[string]any{"dev": 1, "ino": true}, "skip_file.ino member must be a number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeWrite(Record{"format": "pax", "skip_file": tt.skip})
			require.ErrorIs(t, err, errors.ErrConfiguration)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDecodeWriteRejectsWrongTypes(t *testing.T) {
	_, err := DecodeWrite(Record{"format": "pax", "bytes_per_block": "large"})
	require.ErrorIs(t, err, errors.ErrConfiguration)
	assert.Contains(t, err.Error(), "bytes_per_block")

	_, err = DecodeWrite(Record{"compression": "gzip"})
	require.ErrorIs(t, err, errors.ErrConfiguration)
	assert.Contains(t, err.Error(), "format")
}

func TestUnixTimeHook(t *testing.T) {
	tests := []struct {
		in   any
		want time.Time
	}{
		{int64(10), time.Unix(10, 0)},
		{uint32(7), time.Unix(7, 0)},
		{1.5, time.Unix(1, 500000000)},
	}
	for _, tt := range tests {
		out, err := unixTimeHook(reflect.TypeOf(tt.in), timeType, tt.in)
		require.NoError(t, err)
		assert.True(t, tt.want.Equal(out.(time.Time)), "%v", tt.in)
	}

	out, err := unixTimeHook(reflect.TypeOf("x"), timeType, "x")
	require.NoError(t, err)
	assert.Equal(t, "x", out)
}
