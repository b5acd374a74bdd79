package module

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/archive-runtime/errors"
)

type greeter struct {
	prefix string
}

func (g greeter) SayHello(name string) string { return g.prefix + name }
func (g greeter) ReadHTTPURL() string        { return "url" }

func TestRegistry_RegisterRejectsNonFunc(t *testing.T) {
	r := NewRegistry()

	err := r.Register("x", 42)
	require.ErrorIs(t, err, errors.ErrConfiguration)
	assert.Contains(t, err.Error(), "handler must be a function")

	var nilFunc func()
	assert.Error(t, r.Register("nil", nilFunc), "nil function")
	assert.Error(t, r.Register("", func() {}), "empty name")
	assert.Empty(t, r.Names())
}

func TestRegistry_RegisterMethods(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterMethods(greeter{prefix: "hi "}))

	assert.Equal(t, []string{"read_httpurl", "say_hello"}, r.Names())

	out, err := r.Call("say_hello", "bob")
	require.NoError(t, err)
	assert.Equal(t, "hi bob", out[0])
}

func TestRegistry_Install(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("one", func() int { return 1 }))
	require.NoError(t, r.Register("two", func() int { return 2 }))

	ns := Table{}
	r.Install(ns)
	require.Len(t, ns, 2)

	fn, ok := ns["two"].(func() int)
	require.True(t, ok, "two not installed as a func: %#v", ns["two"])
	assert.Equal(t, 2, fn())
}

func TestRegistry_CallConversions(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("add", func(a int64, b uint8) int64 { return a + int64(b) }))
	require.NoError(t, r.Register("sum", func(xs ...int) int {
		total := 0
		for _, x := range xs {
			total += x
		}
		return total
	}))
	require.NoError(t, r.Register("ptr", func(p *int) bool { return p == nil }))

	out, err := r.Call("add", 2.0, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(5), out[0])

	out, err = r.Call("sum", 1, 2.0, uint(3))
	require.NoError(t, err)
	assert.Equal(t, 6, out[0])

	out, err = r.Call("sum")
	require.NoError(t, err)
	assert.Equal(t, 0, out[0])

	out, err = r.Call("ptr", nil)
	require.NoError(t, err)
	assert.Equal(t, true, out[0])
}

func TestRegistry_CallErrors(t *testing.T) {
	r := NewRegistry()
	cause := stderrors.New("nope")
	require.NoError(t, r.Register("fail", func() (string, error) { return "", cause }))
	require.NoError(t, r.Register("ok", func() (string, error) { return "fine", nil }))
	require.NoError(t, r.Register("boom", func() { panic("kaboom") }))
	require.NoError(t, r.Register("one", func(s string) string { return s }))

	_, err := r.Call("fail")
	assert.ErrorIs(t, err, cause)

	out, err := r.Call("ok")
	require.NoError(t, err)
	assert.Equal(t, []any{"fine"}, out)

	_, err = r.Call("boom")
	require.ErrorIs(t, err, errors.ErrHost)
	assert.Contains(t, err.Error(), "kaboom")

	_, err = r.Call("missing")
	assert.ErrorIs(t, err, errors.ErrConfiguration)

	_, err = r.Call("one")
	require.ErrorIs(t, err, errors.ErrConfiguration)
	assert.Contains(t, err.Error(), "expected 1 arguments")

	_, err = r.Call("one", 5)
	require.ErrorIs(t, err, errors.ErrConfiguration)
	assert.Contains(t, err.Error(), "arg1")
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"Read":          "read",
		"ReadRefCount":  "read_ref_count",
		"ReadHTTPURL":   "read_httpurl",
		"ReadHTTPUrl":   "read_http_url",
		"HTTPServer":    "http_server",
		"ID":            "id",
		"":              "",
		"alreadySnake2": "already_snake2",
	}
	for in, want := range tests {
		assert.Equal(t, want, toSnakeCase(in), "toSnakeCase(%q)", in)
	}
}
