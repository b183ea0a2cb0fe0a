package pubsub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_FanOut(t *testing.T) {
	h := NewHub[int]()
	a, cancelA := h.Subscribe(4)
	b, cancelB := h.Subscribe(4)
	defer cancelA()
	defer cancelB()

	h.Publish(1)
	h.Publish(2)

	assert.Equal(t, 1, <-a)
	assert.Equal(t, 2, <-a)
	assert.Equal(t, 1, <-b)
	assert.Equal(t, 2, <-b)
	assert.Equal(t, 2, h.Len())
}

func TestHub_SlowSubscriberKeepsLatest(t *testing.T) {
	h := NewHub[int]()
	ch, cancel := h.Subscribe(1)
	defer cancel()

	for i := 1; i <= 5; i++ {
		h.Publish(i)
	}

	require.Len(t, ch, 1)
	assert.Equal(t, 5, <-ch)
	assert.Equal(t, uint64(4), h.Dropped())
}

func TestHub_CancelClosesChannel(t *testing.T) {
	h := NewHub[string]()
	ch, cancel := h.Subscribe(1)

	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, h.Len())

	h.Publish("after cancel")
}

func TestHub_Close(t *testing.T) {
	h := NewHub[int]()
	ch, cancel := h.Subscribe(1)
	h.Close()

	_, ok := <-ch
	assert.False(t, ok)
	cancel()

	late, _ := h.Subscribe(1)
	_, ok = <-late
	assert.False(t, ok, "subscribing after close yields a closed channel")
}
