package archive

import (
	"bytes"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wippyai/archive-runtime/capability"
	"github.com/wippyai/archive-runtime/native"
)

type member struct {
	name string
	body string
}

// makeArchive produces archive bytes with the native writer.
func makeArchive(t *testing.T, format, compression string, members ...member) []byte {
	t.Helper()
	a := native.NewWrite()
	_, err := capability.Enable(a, capability.WriteFormats, format)
	require.NoError(t, err)
	_, err = capability.Enable(a, capability.WriteFilters, compression)
	require.NoError(t, err)

	var out bytes.Buffer
	write := func(_ *native.Archive, _ any, p []byte) (int, native.Status) {
		out.Write(p)
		return len(p), native.StatusOK
	}
	require.Equal(t, native.StatusOK, a.OpenWrite(nil, nil, write, nil))

	for _, m := range members {
		e := native.NewEntry()
		e.SetPathname(m.name)
		e.SetFiletype(native.TypeRegular)
		e.SetPerm(0o600)
		e.SetSize(int64(len(m.body)))
		e.SetMtime(time.Unix(1600000000, 0))
		require.Equal(t, native.StatusOK, a.WriteHeader(e), a.ErrorString())
		n, st := a.WriteData([]byte(m.body))
		require.Equal(t, native.StatusOK, st, a.ErrorString())
		require.Equal(t, len(m.body), n)
	}
	require.Equal(t, native.StatusOK, a.Free(), a.ErrorString())
	return out.Bytes()
}

// sliceReader serves data in chunks and records every invocation.
type sliceReader struct {
	data     []byte
	chunk    int
	calls    int
	closings atomic.Int32
	closeErr error
}

func (r *sliceReader) fn() ReaderFunc {
	return func(_ *ReadSession, closing bool) ([]byte, error) {
		if closing {
			r.closings.Add(1)
			return nil, r.closeErr
		}
		r.calls++
		n := min(r.chunk, len(r.data))
		b := r.data[:n]
		r.data = r.data[n:]
		return b, nil
	}
}

func newSliceReader(data []byte) *sliceReader {
	return &sliceReader{data: data, chunk: 4096}
}
