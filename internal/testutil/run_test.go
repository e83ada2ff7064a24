package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedRunGenerator_ReturnsSameToken(t *testing.T) {
	gen := NewFixedRunGenerator("test-run-123")

	assert.Equal(t, "test-run-123", gen.Generate())
	assert.Equal(t, "test-run-123", gen.Generate())
}

func TestFixedRunGenerator_EmptyTokenDefault(t *testing.T) {
	gen := NewFixedRunGenerator("")
	assert.Equal(t, DefaultRunToken, gen.Generate())
}

func TestFixedRunGenerator_ThreadSafe(t *testing.T) {
	gen := NewFixedRunGenerator("thread-safe-token")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, "thread-safe-token", gen.Generate())
			}
		}()
	}
	wg.Wait()
}

func TestNewEngine(t *testing.T) {
	e := NewEngine(t)

	obj, err := e.Object().Construct()
	require.NoError(t, err)
	v, err := obj.Send("inspect")
	require.NoError(t, err)
	assert.Equal(t, "#<Object:1>", v)
}
