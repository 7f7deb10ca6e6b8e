package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/courtside/court-booking/internal/feed"
	"github.com/courtside/court-booking/internal/handlers"
	"github.com/courtside/court-booking/internal/middleware"
	"github.com/courtside/court-booking/internal/models"
)

const bookingFramePrefix = "event: booking\ndata: "

// call sends one request from a helper goroutine, where t.Fatal is off limits.
func call(e *testEnv, method, path string, body any, want int) ([]byte, error) {
	resp, err := e.app.Test(newRequest(e.t, method, path, body), -1)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != want {
		return nil, fmt.Errorf("%s %s: status %d, want %d (body %s)", method, path, resp.StatusCode, want, out)
	}
	return out, nil
}

// streamDuring opens the admin booking stream at path and, once it is subscribed to
// topic, runs act. It then stops the hub, which ends the stream, and returns the
// events it carried in order.
func streamDuring(t *testing.T, e *testEnv, hub *feed.Hub, stop context.CancelFunc, path, topic string, act func() error) (string, []feed.Event) {
	t.Helper()

	errc := make(chan error, 1)
	go func() {
		defer stop()
		deadline := time.Now().Add(2 * time.Second)
		for hub.SubscriberCount(topic) == 0 {
			if time.Now().After(deadline) {
				errc <- errors.New("stream never subscribed")
				return
			}
			time.Sleep(time.Millisecond)
		}
		errc <- act()
	}()

	req := newRequest(t, http.MethodGet, path, nil)
	req.Header.Set(middleware.RoleHeader, "admin")
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	if err := <-errc; err != nil {
		t.Fatal(err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", resp.StatusCode, raw)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}

	var events []feed.Event
	for _, frame := range strings.Split(string(raw), "\n\n") {
		data, ok := strings.CutPrefix(frame, bookingFramePrefix)
		if !ok {
			continue
		}
		var ev feed.Event
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			t.Fatalf("decode frame %q: %v", frame, err)
		}
		events = append(events, ev)
	}
	return string(raw), events
}

func TestBookingStreamDeliversEvents(t *testing.T) {
	tests := []struct {
		name string
		// filtered narrows the stream to the second court.
		filtered bool
		want     []string
	}{
		{
			name: "all courts",
			want: []string{
				feed.EventBookingCreated + " court 1",
				feed.EventBookingCreated + " court 2",
				feed.EventBookingRescheduled + " court 1",
				feed.EventBookingCancelled + " court 1",
			},
		},
		{
			name:     "one court",
			filtered: true,
			want:     []string{feed.EventBookingCreated + " court 2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := feed.NewHub(zerolog.Nop())
			ctx, cancel := context.WithCancel(context.Background())
			t.Cleanup(cancel)
			go hub.Run(ctx)

			e := newEnvWithFeed(t, hub)
			user := e.seedUser("player@example.com", models.UserRoleUser)
			sport := e.seedSport("Tennis")
			first, firstSlots := e.seedCourt(sport.ID, 1, 100)
			second, secondSlots := e.seedCourt(sport.ID, 2, 100)
			courtNames := map[string]string{first.ID.String(): "court 1", second.ID.String(): "court 2"}

			path, topic := "/api/admin/bookings/stream", feed.TopicAll
			if tt.filtered {
				path += "?court_id=" + second.ID.String()
				topic = second.ID.String()
			}

			act := func() error {
				body, err := call(e, http.MethodPost, "/api/user/book/"+first.ID.String(), handlers.CreateBookingRequest{
					BookingDate: tomorrow,
					UserID:      user.ID.String(),
					TimeSlotID:  firstSlots[0].ID.String(),
				}, http.StatusCreated)
				if err != nil {
					return err
				}
				var booking models.Booking
				if err := json.Unmarshal(body, &booking); err != nil {
					return err
				}

				if _, err := call(e, http.MethodPost, "/api/user/book/"+second.ID.String(), handlers.CreateBookingRequest{
					BookingDate: tomorrow,
					UserID:      user.ID.String(),
					TimeSlotID:  secondSlots[0].ID.String(),
				}, http.StatusCreated); err != nil {
					return err
				}

				bookingPath := "/api/user/bookings/" + booking.ID.String()
				if _, err := call(e, http.MethodPatch, bookingPath, handlers.RescheduleBookingRequest{
					BookingDate: nextWeek,
					TimeSlotID:  firstSlots[1].ID.String(),
				}, http.StatusOK); err != nil {
					return err
				}
				_, err = call(e, http.MethodDelete, bookingPath, nil, http.StatusOK)
				return err
			}

			raw, events := streamDuring(t, e, hub, cancel, path, topic, act)

			if !strings.HasPrefix(raw, ": connected\n\n") {
				t.Errorf("stream does not open with the connected comment: %q", raw)
			}
			got := make([]string, 0, len(events))
			for _, ev := range events {
				got = append(got, ev.Type+" "+courtNames[ev.Booking.CourtID.String()])
				if !ev.At.Equal(now) {
					t.Errorf("event at %v, want %v", ev.At, now)
				}
			}
			if strings.Join(got, ", ") != strings.Join(tt.want, ", ") {
				t.Errorf("events = %q, want %q", got, tt.want)
			}
		})
	}
}
