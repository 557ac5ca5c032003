// Package events carries domain events ("template:saved" and friends) from
// the operations layer to whoever is listening.
package events

import (
	"sync"

	"github.com/ziadkadry99/prompted/internal/model"
)

// Event is one domain event. Template or Folder is set depending on Type;
// ID is always set.
type Event struct {
	Type     string
	ID       int64
	Template *model.Template
	Folder   *model.Folder
}

// Handler receives events.
type Handler func(Event)

// Bus delivers events synchronously to its handlers in registration order.
type Bus struct {
	mu       sync.Mutex
	nextID   int
	handlers []registration
}

type registration struct {
	id int
	fn Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(fn Handler) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers = append(b.handlers, registration{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, h := range b.handlers {
				if h.id == id {
					b.handlers = append(b.handlers[:i:i], b.handlers[i+1:]...)
					return
				}
			}
		})
	}
}

// Emit delivers ev to every handler. A nil bus drops the event.
func (b *Bus) Emit(ev Event) {
	if b == nil {
		return
	}
	b.mu.Lock()
	hs := append([]registration(nil), b.handlers...)
	b.mu.Unlock()

	for _, h := range hs {
		h.fn(ev)
	}
}

// TemplateSaved builds a template:saved event.
func TemplateSaved(t model.Template) Event {
	return Event{Type: model.EventTemplateSaved, ID: t.ID, Template: &t}
}

// TemplateDeleted builds a template:deleted event.
func TemplateDeleted(id int64) Event {
	return Event{Type: model.EventTemplateDeleted, ID: id}
}

// TemplateFavorited builds a template:favorited event.
func TemplateFavorited(t model.Template) Event {
	return Event{Type: model.EventTemplateFavorited, ID: t.ID, Template: &t}
}

// FolderSaved builds a folder:saved event.
func FolderSaved(f model.Folder) Event {
	return Event{Type: model.EventFolderSaved, ID: f.ID, Folder: &f}
}

// FolderDeleted builds a folder:deleted event.
func FolderDeleted(id int64) Event {
	return Event{Type: model.EventFolderDeleted, ID: id}
}
