package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriberReceivesPublishedEvent(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	b.Publish(&Event{Type: EventTxnCommitted, TxnID: "txn-1"})

	select {
	case ev := <-sub:
		assert.Equal(t, EventTxnCommitted, ev.Type)
		assert.Equal(t, "txn-1", ev.TxnID)
		assert.False(t, ev.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	b.Unsubscribe(sub)
	require.Equal(t, 0, b.SubscriberCount())

	_, ok := <-sub
	assert.False(t, ok, "channel should be closed after unsubscribe")
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	for i := 0; i < 1000; i++ {
		b.Publish(&Event{Type: EventTxnConflict})
	}

	// Draining should still find events buffered, but Publish above must
	// have returned promptly rather than blocking on the full subscriber.
	assert.Eventually(t, func() bool {
		select {
		case <-sub:
			return true
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}
