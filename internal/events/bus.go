// Package events provides a small in-process publish/subscribe bus used
// to broadcast command results and task-creation outcomes.
package events

import (
	"sync"
	"time"
)

// Event names published by the service layer. Keep list sorted A-Z.
const (
	ConversationContinued = "conversation_continued"
	ConversationStarted   = "conversation_started"
	ConversationStatus    = "conversation_status"
	DateValidated         = "date_validated"
	ProjectCreated        = "project_created"
	ProjectsFound         = "projects_found"
	ProjectsRefreshed     = "projects_refreshed"
	TaskCreated           = "task_created"
	VoiceInputParsed      = "voice_input_parsed"
)

// Event is a named payload published on the bus.
type Event struct {
	Name    string
	Payload any
	At      time.Time
}

// Bus fans events out to subscribers. Publishing never blocks: a
// subscriber that falls behind loses events rather than stalling the
// publisher.
type Bus struct {
	mu   sync.Mutex
	subs map[string][]chan Event
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]chan Event)}
}

// Subscribe registers interest in events with the given name. An empty
// name subscribes to all events. The returned channel is buffered;
// callers should drain it promptly.
func (b *Bus) Subscribe(name string) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, 16)
	b.subs[name] = append(b.subs[name], ch)
	return ch
}

// Publish delivers the event to subscribers of its name and to
// subscribers of all events.
func (b *Bus) Publish(name string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ev := Event{Name: name, Payload: payload, At: time.Now()}
	for _, ch := range b.subs[name] {
		select {
		case ch <- ev:
		default:
		}
	}
	if name != "" {
		for _, ch := range b.subs[""] {
			select {
			case ch <- ev:
			default:
			}
		}
	}
}
