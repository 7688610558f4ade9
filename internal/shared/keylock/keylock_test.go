package keylock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLockSerializesSameKey(t *testing.T) {
	m := New()
	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := m.Lock("k")
			counter++
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, counter)
	assert.Zero(t, m.Len())
}

func TestDifferentKeysDoNotBlock(t *testing.T) {
	m := New()
	a := m.Lock("a")
	b := m.Lock("b")
	assert.Equal(t, 2, m.Len())
	a()
	b()
	assert.Zero(t, m.Len())
}
