package memory_test

import (
	"sync"
	"testing"

	"github.com/stepflow/stepflow/internal/memory"
	"github.com/stretchr/testify/assert"
)

func TestMemoryGetSet(t *testing.T) {
	m := memory.New(1)
	assert.Equal(t, 1, m.Get())
	m.Set(2)
	assert.Equal(t, 2, m.Get())
}

func TestMemoryUpdateIsAtomic(t *testing.T) {
	m := memory.New(0)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Update(func(n int) int { return n + 1 })
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, m.Get())
}

func TestRelayProjectsMemory(t *testing.T) {
	m := memory.New("hello")
	r := m.Relay()

	assert.Equal(t, "hello", r.Get())
	r.Set("world")
	assert.Equal(t, "world", m.Get())
}

func TestReadOnlyRelayDiscardsWrites(t *testing.T) {
	m := memory.New(5)
	r := memory.ReadOnly(m.Relay())

	r.Set(10)
	assert.Equal(t, 5, r.Get())
	assert.Equal(t, 5, m.Get())
}

func TestConstRelay(t *testing.T) {
	r := memory.Const(42)
	assert.Equal(t, 42, r.Get())
	r.Set(100)
	assert.Equal(t, 42, r.Get())
}

func TestMapRelayProjectsField(t *testing.T) {
	type pair struct {
		A, B int
	}
	m := memory.New(pair{A: 1, B: 2})
	r := m.Relay()

	aView := memory.Map(r,
		func(p pair) int { return p.A },
		func(p pair, a int) pair { p.A = a; return p },
	)

	assert.Equal(t, 1, aView.Get())
	aView.Set(99)
	assert.Equal(t, pair{A: 99, B: 2}, m.Get())
}

func TestAppendInsertRemove(t *testing.T) {
	m := memory.New([]int{1, 2, 3})
	r := m.Relay()

	memory.Append(r, 4)
	assert.Equal(t, []int{1, 2, 3, 4}, r.Get())

	memory.Insert(r, 0, 0)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, r.Get())

	memory.Remove(r, 2)
	assert.Equal(t, []int{0, 1, 3, 4}, r.Get())
}

func TestIncrement(t *testing.T) {
	m := memory.New(10)
	r := m.Relay()

	memory.Increment(r, 5)
	assert.Equal(t, 15, r.Get())
}
