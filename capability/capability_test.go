package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/archive-runtime/errors"
	"github.com/wippyai/archive-runtime/native"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"   ", nil},
		{"tar", []string{"tar"}},
		{"tar,cpio", []string{"tar", "cpio"}},
		{" tar ; cpio|gzip ", []string{"tar", "cpio", "gzip"}},
		{"pax_restricted", []string{"pax_restricted"}},
		{"7zip--zip", []string{"7zip", "zip"}},
	}
	for _, tt := range tests {
		got := Tokenize(tt.in)
		if len(tt.want) == 0 {
			assert.Empty(t, got, "Tokenize(%q)", tt.in)
			continue
		}
		assert.Equal(t, tt.want, got, "Tokenize(%q)", tt.in)
	}
}

// recorder builds a table whose enabling functions log their invocation.
func recorder(names ...string) (*Table, *[]string) {
	var calls []string
	t := &Table{Domain: "format", Op: "enable_*"}
	for _, n := range names {
		t.Entries = append(t.Entries, Capability{
			Name: n,
			Enable: func(*native.Archive) native.Status {
				calls = append(calls, n)
				return native.StatusOK
			},
		})
	}
	return t, &calls
}

func TestEnablePartialThenUnknown(t *testing.T) {
	table, calls := recorder("tar", "cpio", "zip")
	n, err := Enable(native.NewRead(), table, "tar cpio bogus zip")

	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"tar", "cpio"}, *calls)
	require.ErrorIs(t, err, errors.ErrConfiguration)

	var e *errors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "bogus", e.Value)
	assert.Contains(t, err.Error(), "No such format 'bogus'")
}

func TestEnableEmptyList(t *testing.T) {
	table, calls := recorder("tar")
	n, err := Enable(native.NewRead(), table, " , ")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, *calls)
}

func TestEnableNativeFailure(t *testing.T) {
	a := native.NewRead()
	n, err := Enable(a, ReadFormats, "tar,zip")
	assert.Equal(t, 1, n)
	require.ErrorIs(t, err, errors.ErrNativeLibrary)
	assert.Contains(t, err.Error(), "not supported by this build: zip")
}

func TestEnableReal(t *testing.T) {
	a := native.NewRead()
	n, err := Enable(a, ReadFormats, "all")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = Enable(a, ReadFilters, "gzip xz zstd")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	w := native.NewWrite()
	n, err = Enable(w, WriteFormats, "posix")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "pax", w.WriteFormatName())

	n, err = Enable(w, WriteFilters, "gzip lz4")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"gzip", "lz4"}, w.WriteFilterNames())
}

func TestTablesAreUnique(t *testing.T) {
	for _, table := range []*Table{ReadFormats, ReadFilters, WriteFormats, WriteFilters} {
		seen := make(map[string]bool)
		for _, name := range table.Names() {
			assert.False(t, seen[name], "%s table: duplicate name %q", table.Op, name)
			seen[name] = true

			fn, ok := table.Lookup(name)
			assert.True(t, ok, "%s table: Lookup(%q)", table.Op, name)
			assert.NotNil(t, fn, "%s table: Lookup(%q)", table.Op, name)
		}
	}
}
