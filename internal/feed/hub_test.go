package feed_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/courtside/court-booking/internal/feed"
	"github.com/courtside/court-booking/internal/models"
)

func startHub(t *testing.T) (*feed.Hub, context.CancelFunc) {
	t.Helper()
	hub := feed.NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

func receive(t *testing.T, sub *feed.Subscriber) []byte {
	t.Helper()
	select {
	case data, ok := <-sub.Send:
		if !ok {
			t.Fatal("subscriber channel closed")
		}
		return data
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestPublishEventReachesAllAndCourtTopics(t *testing.T) {
	hub, _ := startHub(t)

	courtID := uuid.New()
	all := hub.Subscribe(feed.TopicAll)
	court := hub.Subscribe(courtID.String())
	other := hub.Subscribe(uuid.NewString())

	hub.PublishEvent(feed.Event{
		Type:    feed.EventBookingCreated,
		Booking: models.Booking{ID: uuid.New(), CourtID: courtID},
		At:      time.Now(),
	})

	for _, sub := range []*feed.Subscriber{all, court} {
		var e feed.Event
		if err := json.Unmarshal(receive(t, sub), &e); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if e.Type != feed.EventBookingCreated || e.Booking.CourtID != courtID {
			t.Errorf("event = %+v", e)
		}
	}

	select {
	case data := <-other.Send:
		t.Errorf("unrelated topic received %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	hub, _ := startHub(t)

	sub := hub.Subscribe(feed.TopicAll)
	hub.Unsubscribe(sub)

	select {
	case _, ok := <-sub.Send:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
	// A second unsubscribe is a no-op.
	hub.Unsubscribe(sub)
}

func TestStopClosesSubscribers(t *testing.T) {
	hub, cancel := startHub(t)

	sub := hub.Subscribe(feed.TopicAll)
	cancel()

	select {
	case _, ok := <-sub.Send:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after stop")
	}

	// Once stopped, Subscribe and Unsubscribe return instead of blocking.
	deadline := time.After(time.Second)
	done := make(chan struct{})
	go func() {
		if s := hub.Subscribe(feed.TopicAll); s != nil {
			t.Error("Subscribe after stop returned a subscriber")
		}
		hub.Unsubscribe(sub)
		close(done)
	}()
	select {
	case <-done:
	case <-deadline:
		t.Fatal("Subscribe/Unsubscribe blocked after stop")
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	// No Run goroutine: the queue fills and further messages are dropped.
	hub := feed.NewHub(zerolog.Nop())
	done := make(chan struct{})
	go func() {
		for i := 0; i < 300; i++ {
			hub.Publish(feed.TopicAll, []byte("x"))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked")
	}
	if hub.Dropped() != 300-256 {
		t.Errorf("Dropped() = %d, want %d", hub.Dropped(), 300-256)
	}
}

// waitForSubscribers polls until topic has want subscribers. Subscribe returns as soon as
// Run has received the subscriber, slightly before the map is updated.
func waitForSubscribers(t *testing.T, hub *feed.Hub, topic string, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for hub.SubscriberCount(topic) != want {
		if time.Now().After(deadline) {
			t.Fatalf("SubscriberCount(%q) = %d, want %d", topic, hub.SubscriberCount(topic), want)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSubscriberCount(t *testing.T) {
	hub, _ := startHub(t)
	courtID := uuid.NewString()

	a := hub.Subscribe(courtID)
	b := hub.Subscribe(courtID)
	hub.Subscribe(feed.TopicAll)

	tests := []struct {
		topic string
		want  int
	}{
		{topic: courtID, want: 2},
		{topic: feed.TopicAll, want: 1},
		{topic: uuid.NewString(), want: 0},
	}
	for _, tt := range tests {
		waitForSubscribers(t, hub, tt.topic, tt.want)
	}

	hub.Unsubscribe(a)
	waitForSubscribers(t, hub, courtID, 1)
	hub.Unsubscribe(b)
	waitForSubscribers(t, hub, courtID, 0)
}

func TestStopDeliversQueuedMessages(t *testing.T) {
	hub, cancel := startHub(t)
	sub := hub.Subscribe(feed.TopicAll)

	hub.Publish(feed.TopicAll, []byte("first"))
	hub.Publish(feed.TopicAll, []byte("second"))
	cancel()

	var got []string
	for data := range sub.Send {
		got = append(got, string(data))
	}
	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Errorf("received %q, want [first second]", got)
	}
}

func TestPublishEventLogsEncodeFailure(t *testing.T) {
	var logs bytes.Buffer
	hub := feed.NewHub(zerolog.New(&logs))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	sub := hub.Subscribe(feed.TopicAll)
	// time.Time cannot encode years past 9999 as JSON.
	hub.PublishEvent(feed.Event{Type: feed.EventBookingCreated, At: time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC)})

	if !strings.Contains(logs.String(), "encode feed event") {
		t.Errorf("logs = %q, want an encode error", logs.String())
	}
	select {
	case data := <-sub.Send:
		t.Errorf("unencodable event delivered: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}
