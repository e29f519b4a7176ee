package notify

import (
	"context"
	"sync"
)

// Subjects published by the engine. Delivery beyond the notifier (push,
// email) is a transport concern outside the engine.
const (
	SubjectRoomCreated   = "room.created"
	SubjectRoomJoined    = "room.joined"
	SubjectRoomKicked    = "room.kicked"
	SubjectRoomInvited   = "room.invited"
	SubjectRoomStarted   = "room.started"
	SubjectRoomClosed    = "room.closed"
	SubjectRoomExpired   = "room.expired"
	SubjectSurveyCreated = "survey.created"
	SubjectReputation    = "reputation.updated"
)

// Notifier is the side-effect callback surface the engine raises events
// through instead of touching any UI or transport directly.
type Notifier interface {
	Publish(ctx context.Context, subject string, payload interface{}) error
}

// Noop discards all events.
type Noop struct{}

func (Noop) Publish(context.Context, string, interface{}) error {
	return nil
}

// Event is one recorded notification.
type Event struct {
	Subject string
	Payload interface{}
}

// Recorder captures events for assertions in tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(_ context.Context, subject string, payload interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, Event{Subject: subject, Payload: payload})
	return nil
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// BySubject returns recorded events with the given subject.
func (r *Recorder) BySubject(subject string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Event
	for _, e := range r.events {
		if e.Subject == subject {
			out = append(out, e)
		}
	}
	return out
}
