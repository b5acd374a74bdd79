package registry

import (
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type handle struct{ id int }

type wrapper struct {
	name string
	pad  [16]byte
}

// eventually runs GC cycles until cond holds or the deadline passes.
func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		runtime.GC()
		return cond()
	}, 5*time.Second, 5*time.Millisecond, "condition not met after repeated GC")
}

func TestRegisterLookup(t *testing.T) {
	r := New[handle, wrapper]()
	h := &handle{id: 1}
	w := &wrapper{name: "one"}
	r.Register(h, w)

	got, ok := r.Lookup(h)
	require.True(t, ok)
	assert.Same(t, w, got)

	other := &handle{id: 1}
	_, ok = r.Lookup(other)
	assert.False(t, ok, "lookup must match by identity, not value")
	runtime.KeepAlive(w)
}

func TestRegisterReplaces(t *testing.T) {
	r := New[handle, wrapper]()
	h := &handle{}
	w1 := &wrapper{name: "first"}
	w2 := &wrapper{name: "second"}
	r.Register(h, w1)
	r.Register(h, w2)

	got, _ := r.Lookup(h)
	assert.Same(t, w2, got)
	assert.Equal(t, 1, r.Len())
	runtime.KeepAlive(w1)
	runtime.KeepAlive(w2)
}

func TestDeregister(t *testing.T) {
	r := New[handle, wrapper]()
	h := &handle{}
	w := &wrapper{}
	r.Register(h, w)
	r.Deregister(h)
	_, ok := r.Lookup(h)
	assert.False(t, ok, "lookup after deregister succeeded")
	r.Deregister(h)
	r.Deregister(nil)
	runtime.KeepAlive(w)
}

func TestNilArguments(t *testing.T) {
	r := New[handle, wrapper]()
	r.Register(nil, &wrapper{})
	r.Register(&handle{}, nil)
	assert.Zero(t, r.Len())
	_, ok := r.Lookup(nil)
	assert.False(t, ok, "Lookup(nil) succeeded")
}

func TestDoesNotRetainValue(t *testing.T) {
	r := New[handle, wrapper]()
	h := &handle{}
	func() {
		r.Register(h, &wrapper{name: "temporary"})
	}()

	eventually(t, func() bool {
		_, ok := r.Lookup(h)
		return !ok && r.Len() == 0
	})
	runtime.KeepAlive(h)
}

func TestStalePruneKeepsNewerRegistration(t *testing.T) {
	r := New[handle, wrapper]()
	h := &handle{}
	func() {
		r.Register(h, &wrapper{name: "old"})
	}()
	current := &wrapper{name: "current"}
	r.Register(h, current)

	// Give the old value's cleanup every chance to run.
	for i := 0; i < 5; i++ {
		runtime.GC()
		time.Sleep(2 * time.Millisecond)
	}
	got, ok := r.Lookup(h)
	require.True(t, ok, "newer registration was pruned")
	assert.Same(t, current, got)
	runtime.KeepAlive(current)
}

func TestConcurrentAccess(t *testing.T) {
	r := New[handle, wrapper]()
	handles := make([]*handle, 32)
	wrappers := make([]*wrapper, 32)
	for i := range handles {
		handles[i] = &handle{id: i}
		wrappers[i] = &wrapper{}
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				k := (g*31 + i) % len(handles)
				switch i % 3 {
				case 0:
					r.Register(handles[k], wrappers[k])
				case 1:
					if v, ok := r.Lookup(handles[k]); ok {
						assert.Same(t, wrappers[k], v, "handle %d resolved to the wrong wrapper", k)
					}
				case 2:
					r.Deregister(handles[k])
				}
			}
		}(g)
	}
	wg.Wait()
	runtime.KeepAlive(wrappers)
}
