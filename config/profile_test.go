package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/archive-runtime/archive"
	"github.com/wippyai/archive-runtime/errors"
)

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadProfileFile(t *testing.T) {
	path := writeProfile(t, `
format: "tar cpio"
compression: gzip
options: "tar:hdrcharset=UTF-8"
read_size: 4096
output: JSON
logging:
  level: DEBUG
`)
	p, err := LoadProfile(path)
	require.NoError(t, err)

	assert.Equal(t, "tar cpio", p.Format)
	assert.Equal(t, "gzip", p.Compression)
	assert.Equal(t, "tar:hdrcharset=UTF-8", p.Options)
	assert.Equal(t, 4096, p.ReadSize)
	assert.Equal(t, "json", p.Output)
	assert.Equal(t, "debug", p.Logging.Level)
	assert.Equal(t, "console", p.Logging.Format)
}

func TestLoadProfileDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	p, err := LoadProfile("")
	require.NoError(t, err)
	assert.Equal(t, "all", p.Format)
	assert.Equal(t, "all", p.Compression)
	assert.Equal(t, 64*1024, p.ReadSize)
	assert.Equal(t, "text", p.Output)
	assert.Equal(t, "warn", p.Logging.Level)
}

func TestLoadProfileDefaultLocation(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "archive-runtime"), 0o755))
	require.NoError(t, os.WriteFile(DefaultProfilePath(), []byte("output: cbor\n"), 0o644))

	p, err := LoadProfile("")
	require.NoError(t, err)
	assert.Equal(t, "cbor", p.Output)
}

func TestLoadProfileEnvOverrides(t *testing.T) {
	path := writeProfile(t, "output: json\n")
	t.Setenv("ARCHIVE_OUTPUT", "yaml")
	t.Setenv("ARCHIVE_LOGGING_LEVEL", "error")
	t.Setenv("ARCHIVE_READ_SIZE", "512")

	p, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, "yaml", p.Output)
	assert.Equal(t, "error", p.Logging.Level)
	assert.Equal(t, 512, p.ReadSize)
}

func TestLoadProfileValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad output", "output: xml\n", "output"},
		{"bad level", "logging:\n  level: loud\n", "level"},
		{"zero read size", "read_size: 0\n", "read_size"},
		{"empty format", "format: \"\"\n", "format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadProfile(writeProfile(t, tt.content))
			require.ErrorIs(t, err, errors.ErrConfiguration)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadProfileMissingExplicitFile(t *testing.T) {
	_, err := LoadProfile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.ErrorIs(t, err, errors.ErrConfiguration)
}

func TestProfileReadConfig(t *testing.T) {
	p := &Profile{Format: "tar", Compression: "none", Options: "x"}
	reader := archive.ReaderFrom(bytes.NewReader(nil), 0)

	cfg := p.ReadConfig(reader)
	assert.Equal(t, "tar", cfg.Format)
	assert.Equal(t, "none", cfg.Compression)
	assert.Equal(t, "x", cfg.Options)
	assert.NotNil(t, cfg.Reader)
}
