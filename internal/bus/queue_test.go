package bus

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tickpipe/pkg/exception"
)

func TestDropNewestCountsOverflow(t *testing.T) {
	const capacity, burst = 8, 50
	q := NewQueue[int](capacity, OverflowDropNewest)

	dropped := 0
	for i := 0; i < burst; i++ {
		if _, err := q.Push(i); err == exception.ErrQueueFull {
			dropped++
		} else {
			require.NoError(t, err)
		}
	}
	require.Equal(t, burst-capacity, dropped)
	require.Equal(t, capacity, q.Len())

	for i := 0; i < capacity; i++ {
		v, ok := q.TryPop()
		require.True(t, ok)
		require.Equal(t, i, v)
	}
	_, ok := q.TryPop()
	require.False(t, ok)
}

func TestDropOldestKeepsNewest(t *testing.T) {
	q := NewQueue[int](3, OverflowDropOldest)
	evictions := 0
	for i := 0; i < 10; i++ {
		evicted, err := q.Push(i)
		require.NoError(t, err)
		if evicted {
			evictions++
		}
	}
	require.Equal(t, 7, evictions)
	for _, want := range []int{7, 8, 9} {
		v, ok := q.Pop()
		require.True(t, ok)
		require.Equal(t, want, v)
	}
}

func TestCloseDrainsBufferedItems(t *testing.T) {
	q := NewQueue[string](4, OverflowDropNewest)
	_, _ = q.Push("a")
	_, _ = q.Push("b")
	q.Close()

	_, err := q.Push("c")
	require.ErrorIs(t, err, exception.ErrQueueClosed)

	v, ok := q.Pop()
	require.True(t, ok)
	require.Equal(t, "a", v)
	v, ok = q.Pop()
	require.True(t, ok)
	require.Equal(t, "b", v)
	_, ok = q.Pop()
	require.False(t, ok)
}

func TestBlockPolicyWaitsForSpace(t *testing.T) {
	q := NewQueue[int](1, OverflowBlock)
	_, err := q.Push(1)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := q.Push(2)
		done <- err
	}()

	select {
	case <-done:
		t.Fatalf("push should block while full")
	case <-time.After(20 * time.Millisecond):
	}

	v, ok := q.Pop()
	require.True(t, ok)
	require.Equal(t, 1, v)
	require.NoError(t, <-done)

	v, ok = q.Pop()
	require.True(t, ok)
	require.Equal(t, 2, v)
}

func TestCloseWakesBlockedPop(t *testing.T) {
	q := NewQueue[int](1, OverflowBlock)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, ok := q.Pop()
		if ok {
			t.Errorf("pop on empty closed queue returned an item")
		}
	}()
	time.Sleep(10 * time.Millisecond)
	q.Close()
	wg.Wait()
}

func TestParseOverflowPolicy(t *testing.T) {
	p, ok := ParseOverflowPolicy("")
	require.True(t, ok)
	require.Equal(t, OverflowDropNewest, p)
	p, ok = ParseOverflowPolicy("Drop_Oldest")
	require.True(t, ok)
	require.Equal(t, OverflowDropOldest, p)
	_, ok = ParseOverflowPolicy("spill")
	require.False(t, ok)
}
