package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishDelivers(t *testing.T) {
	b := newBus()
	ch, unsub := b.subscribe(4)
	defer unsub()

	b.publish(Log{SessionID: "s1", Message: "line one"})
	select {
	case got := <-ch:
		assert.Equal(t, "line one", got.Message)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published log")
	}
}

func TestBus_SlowSubscriberDoesNotBlock(t *testing.T) {
	b := newBus()
	ch, unsub := b.subscribe(1)
	defer unsub()

	b.publish(Log{Message: "first"})
	b.publish(Log{Message: "second"})

	require.Len(t, ch, 1)
}

func TestBus_UnsubscribeClosesChannel(t *testing.T) {
	b := newBus()
	ch, unsub := b.subscribe(1)
	unsub()

	_, ok := <-ch
	assert.False(t, ok)
}

func TestBus_CloseAllClosesEverySubscriber(t *testing.T) {
	b := newBus()
	ch1, _ := b.subscribe(1)
	ch2, _ := b.subscribe(1)

	b.closeAll()

	_, ok1 := <-ch1
	_, ok2 := <-ch2
	assert.False(t, ok1)
	assert.False(t, ok2)
}
