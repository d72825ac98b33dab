package events

// Event represents a structured state change emitted by the router. The
// attribute map is the canonical wire form consumed by the audit store,
// metrics, and log subscribers.
type Event interface {
	EventType() string
	Attributes() map[string]string
}

// Emitter broadcasts events to downstream subscribers (audit store, metrics,
// structured logs).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events. It
// is the default for components that expose events optionally.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// MultiEmitter fans a single event out to every configured subscriber.
type MultiEmitter struct {
	subscribers []Emitter
}

// NewMultiEmitter constructs a fan-out emitter. Nil subscribers are skipped.
func NewMultiEmitter(subs ...Emitter) *MultiEmitter {
	m := &MultiEmitter{}
	for _, sub := range subs {
		if sub != nil {
			m.subscribers = append(m.subscribers, sub)
		}
	}
	return m
}

// Emit implements the Emitter interface.
func (m *MultiEmitter) Emit(ev Event) {
	if m == nil || ev == nil {
		return
	}
	for _, sub := range m.subscribers {
		sub.Emit(ev)
	}
}
