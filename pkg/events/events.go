// Package events provides a fan-out notification bus for transaction
// lifecycle events, adapted from the cluster event broker pattern: a
// buffered ingress channel feeding per-subscriber buffered channels, with
// slow subscribers dropped rather than blocking the publisher.
package events

import (
	"sync"
	"time"
)

// EventType identifies a point in a transaction's lifecycle.
type EventType string

const (
	EventTxnRouted        EventType = "txn.routed"
	EventTxnCommitted     EventType = "txn.committed"
	EventTxnAborted       EventType = "txn.aborted"
	EventTxnConflict      EventType = "txn.conflict"
	EventTxnFallback      EventType = "txn.fallback_to_consensus"
	EventCrossShardPrepared EventType = "cross_shard.prepared"
	EventCrossShardCommitted EventType = "cross_shard.committed"
	EventCrossShardAborted  EventType = "cross_shard.aborted"
	EventHotKeyDetected   EventType = "hot_key.detected"
)

// Event is one lifecycle notification.
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	TxnID     string
	ShardID   uint16
	Message   string
	Metadata  map[string]string
}

// Subscriber is a channel that receives events.
type Subscriber chan *Event

// Broker fans Publish calls out to every live Subscriber. A full
// subscriber buffer drops the event for that subscriber rather than
// blocking the rest of the system; hot-path callers must never be made
// to wait on a slow observer.
type Broker struct {
	subscribers map[Subscriber]bool
	mu          sync.RWMutex
	eventCh     chan *Event
	stopCh      chan struct{}
}

// NewBroker constructs a Broker with its ingress channel unstarted.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan *Event, 256),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's distribution loop.
func (b *Broker) Start() {
	go b.run()
}

// Stop ends the distribution loop. Subsequent Publish calls are dropped.
func (b *Broker) Stop() {
	close(b.stopCh)
}

// Subscribe registers a new listener with a 64-event buffer.
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 64)
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes and closes a listener's channel.
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subscribers, sub)
	close(sub)
}

// Publish enqueues event for distribution, stamping Timestamp if unset.
// Non-blocking with respect to subscribers; only blocks if the ingress
// channel itself is saturated.
func (b *Broker) Publish(event *Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case b.eventCh <- event:
	case <-b.stopCh:
	}
}

func (b *Broker) run() {
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- event:
		default:
		}
	}
}

// SubscriberCount reports the number of active listeners.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
