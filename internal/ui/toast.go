package ui

import (
	"sync"
	"time"

	"github.com/ziadkadry99/prompted/internal/apperr"
	"github.com/ziadkadry99/prompted/internal/events"
	"github.com/ziadkadry99/prompted/internal/model"
)

const maxToasts = 3

// Toast is a transient notification shown in the status region.
type Toast struct {
	Level apperr.Level
	Text  string
	At    time.Time
}

// toasts is the notification surface. It is fed from operation goroutines
// and read on the update loop.
type toasts struct {
	mu       sync.Mutex
	items    []Toast
	ttl      time.Duration
	now      func() time.Time
	onChange func()
}

// Notify implements apperr.Notifier.
func (t *toasts) Notify(level apperr.Level, text string) {
	t.mu.Lock()
	t.items = append(t.items, Toast{Level: level, Text: text, At: t.now()})
	if len(t.items) > maxToasts {
		t.items = t.items[len(t.items)-maxToasts:]
	}
	t.mu.Unlock()
	if t.onChange != nil {
		t.onChange()
	}
}

// List returns the live toasts, oldest first.
func (t *toasts) List() []Toast {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Toast(nil), t.items...)
}

// prune drops expired toasts and reports whether any were dropped.
func (t *toasts) prune() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-t.ttl)
	kept := t.items[:0]
	for _, it := range t.items {
		if it.At.After(cutoff) {
			kept = append(kept, it)
		}
	}
	dropped := len(kept) != len(t.items)
	t.items = kept
	return dropped
}

// successText is the confirmation shown for a domain event.
func successText(ev events.Event) string {
	switch ev.Type {
	case model.EventTemplateSaved:
		return "Template saved"
	case model.EventTemplateDeleted:
		return "Template deleted"
	case model.EventTemplateFavorited:
		if ev.Template != nil && ev.Template.IsFavorite {
			return "Added to favorites"
		}
		return "Removed from favorites"
	case model.EventFolderSaved:
		return "Folder saved"
	case model.EventFolderDeleted:
		return "Folder deleted"
	}
	return ""
}
