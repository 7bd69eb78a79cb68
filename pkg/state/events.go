package state

import "github.com/notedcloud/noted/pkg/models"

// EventKind says what changed.
type EventKind int

const (
	EventInitialized EventKind = iota
	EventPageCreated
	EventPageUpdated
	EventPageDeleted
	EventPublishState
	EventCurrentPage
	EventSettings
	EventReset
)

func (k EventKind) String() string {
	switch k {
	case EventInitialized:
		return "initialized"
	case EventPageCreated:
		return "page_created"
	case EventPageUpdated:
		return "page_updated"
	case EventPageDeleted:
		return "page_deleted"
	case EventPublishState:
		return "publish_state"
	case EventCurrentPage:
		return "current_page"
	case EventSettings:
		return "settings"
	case EventReset:
		return "reset"
	}
	return "unknown"
}

// Event is delivered to subscribers after a change is applied in memory.
type Event struct {
	Kind   EventKind
	PageID models.PageID
	// State is set for EventPublishState.
	State models.PublishState
}

// Subscribe registers fn for every future event and returns a function that
// removes it. fn runs synchronously on the goroutine that made the change and
// must not call back into the Manager's mutating methods.
func (m *Manager) Subscribe(fn func(Event)) (cancel func()) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		delete(m.subs, id)
	}
}

func (m *Manager) emit(ev Event) {
	m.subMu.Lock()
	subs := make([]func(Event), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.subMu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}
