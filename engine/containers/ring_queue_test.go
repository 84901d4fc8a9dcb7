package containers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingQueue_FIFO(t *testing.T) {
	q := NewRingQueue[uint32](3)
	require.True(t, q.IsEmpty())

	require.NoError(t, q.Enqueue(1))
	require.NoError(t, q.Enqueue(2))
	require.NoError(t, q.Enqueue(3))
	assert.True(t, q.IsFull())
	assert.ErrorIs(t, q.Enqueue(4), ErrQueueFull)

	v, err := q.Peek()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), v)

	for _, want := range []uint32{1, 2, 3} {
		got, err := q.Dequeue()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err = q.Dequeue()
	assert.ErrorIs(t, err, ErrQueueEmpty)
}

func TestRingQueue_WrapAround(t *testing.T) {
	q := NewRingQueue[int](2)
	require.NoError(t, q.Enqueue(1))
	require.NoError(t, q.Enqueue(2))
	_, _ = q.Dequeue()
	require.NoError(t, q.Enqueue(3))
	assert.Equal(t, 2, q.Len())

	a, _ := q.Dequeue()
	b, _ := q.Dequeue()
	assert.Equal(t, []int{2, 3}, []int{a, b})
}

func TestRingQueue_ZeroSize(t *testing.T) {
	q := NewRingQueue[int](0)
	assert.ErrorIs(t, q.Enqueue(1), ErrQueueFull)
	_, err := q.Peek()
	assert.ErrorIs(t, err, ErrQueueEmpty)
}
