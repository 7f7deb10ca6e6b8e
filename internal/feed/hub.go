// Package feed implements an in-process hub that broadcasts booking activity
// (created, rescheduled, cancelled) to live subscribers such as the admin
// dashboard's event stream.
package feed

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/courtside/court-booking/internal/models"
)

// TopicAll receives every event. Per-court topics are the court id string.
const TopicAll = "all"

// Event types published by the booking handlers.
const (
	EventBookingCreated     = "booking.created"
	EventBookingRescheduled = "booking.rescheduled"
	EventBookingCancelled   = "booking.cancelled"
)

// Event is one unit of booking activity.
type Event struct {
	Type    string         `json:"type"`
	Booking models.Booking `json:"booking"`
	At      time.Time      `json:"at"`
}

// Subscriber is one live listener. The hub writes to Send; the listener drains it.
type Subscriber struct {
	Topic string
	Send  chan []byte
}

type message struct {
	topic string
	data  []byte
}

// Hub keeps subscribers grouped by topic. All map writes happen on the Run goroutine;
// registration and publishing go through channels.
type Hub struct {
	// subscribers maps a topic ("all" or a court id) to the set of live listeners on it.
	// The inner map is used as a set: the bool is always true.
	subscribers map[string]map[*Subscriber]bool
	mu          sync.RWMutex

	// broadcast is buffered so publishers never wait on the Run loop.
	// register and unregister are unbuffered: the caller waits until Run has handled them.
	broadcast  chan message
	register   chan *Subscriber
	unregister chan *Subscriber
	// done is closed when Run exits, which unblocks any pending Subscribe/Unsubscribe.
	done chan struct{}

	dropped atomic.Int64
	log     zerolog.Logger
}

// NewHub creates a Hub. Call Run in its own goroutine before subscribing.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		subscribers: make(map[string]map[*Subscriber]bool),
		broadcast:   make(chan message, 256),
		register:    make(chan *Subscriber),
		unregister:  make(chan *Subscriber),
		done:        make(chan struct{}),
		log:         log.With().Str("component", "feed").Logger(),
	}
}

// Run processes registrations and broadcasts until ctx is cancelled. On the way out it
// delivers whatever was already queued, then closes every subscriber's Send channel.
func (h *Hub) Run(ctx context.Context) {
	defer h.closeAll()

	// This loop is the only place that changes the subscriber map.
	// select waits until one of the channels is ready and runs that case.
	for {
		select {
		case <-ctx.Done():
			h.drain()
			h.log.Info().Int64("dropped", h.Dropped()).Msg("booking feed stopped")
			return

		case sub := <-h.register:
			h.mu.Lock()
			if h.subscribers[sub.Topic] == nil {
				h.subscribers[sub.Topic] = make(map[*Subscriber]bool)
			}
			h.subscribers[sub.Topic][sub] = true
			h.mu.Unlock()

		case sub := <-h.unregister:
			h.mu.Lock()
			h.remove(sub)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// deliver hands msg to every subscriber of its topic.
func (h *Hub) deliver(msg message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subscribers[msg.topic] {
		// A non-blocking send: if this subscriber's buffer is full, the default case runs.
		select {
		case sub.Send <- msg.data:
		default:
			// Slow subscriber: drop it instead of stalling everyone else.
			h.log.Warn().Str("topic", sub.Topic).Msg("dropping slow feed subscriber")
			h.remove(sub)
		}
	}
}

// drain delivers the messages still sitting in the broadcast queue.
func (h *Hub) drain() {
	for {
		select {
		case msg := <-h.broadcast:
			h.deliver(msg)
		default:
			return
		}
	}
}

// remove must be called with mu held.
func (h *Hub) remove(sub *Subscriber) {
	subs, ok := h.subscribers[sub.Topic]
	if !ok || !subs[sub] {
		return
	}
	delete(subs, sub)
	close(sub.Send)
	if len(subs) == 0 {
		delete(h.subscribers, sub.Topic)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, subs := range h.subscribers {
		for sub := range subs {
			close(sub.Send)
		}
	}
	h.subscribers = make(map[string]map[*Subscriber]bool)
	close(h.done)
}

// Subscribe registers a listener on topic. It returns nil once the hub has stopped.
func (h *Hub) Subscribe(topic string) *Subscriber {
	sub := &Subscriber{Topic: topic, Send: make(chan []byte, 16)}
	select {
	case h.register <- sub:
		return sub
	case <-h.done:
		return nil
	}
}

// Unsubscribe removes sub. It is safe to call after the hub dropped or stopped it.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	select {
	case h.unregister <- sub:
	case <-h.done:
	}
}

// Publish queues data for every subscriber of topic. It never blocks the caller:
// when the queue is full the message is dropped and counted.
func (h *Hub) Publish(topic string, data []byte) {
	select {
	case h.broadcast <- message{topic: topic, data: data}:
	default:
		h.dropped.Add(1)
	}
}

// PublishEvent sends e to TopicAll and to the topic of the booking's court.
func (h *Hub) PublishEvent(e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		h.log.Error().Err(err).Str("type", e.Type).Msg("encode feed event")
		return
	}
	h.Publish(TopicAll, data)
	if e.Booking.CourtID != uuid.Nil {
		h.Publish(e.Booking.CourtID.String(), data)
	}
}

// Dropped returns how many messages were discarded because the queue was full.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// SubscriberCount returns the number of live subscribers on topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[topic])
}
