// Package search answers substring and token queries over the templates held
// in the state store, without a network round trip.
//
// The index is rebuilt wholesale whenever the template collection changes.
// Queries are a linear scan; that is fine for the low thousands of templates
// an editor holds.
package search

import (
	"strings"
	"sync"

	"github.com/ziadkadry99/prompted/internal/model"
	"github.com/ziadkadry99/prompted/internal/state"
)

type entry struct {
	template      model.Template
	title         string
	content       string
	titleTokens   map[string]struct{}
	contentTokens map[string]struct{}
}

// Index is an in-memory search index. It is safe for concurrent use.
type Index struct {
	mu      sync.RWMutex
	entries []entry
}

// New returns an empty index.
func New() *Index {
	return &Index{}
}

// Build replaces the whole index with templates, keeping their order.
func (x *Index) Build(templates []model.Template) {
	entries := make([]entry, 0, len(templates))
	for _, t := range templates {
		title := strings.ToLower(t.Title)
		content := strings.ToLower(t.Content)
		entries = append(entries, entry{
			template:      t,
			title:         title,
			content:       content,
			titleTokens:   tokenize(title),
			contentTokens: tokenize(content),
		})
	}

	x.mu.Lock()
	x.entries = entries
	x.mu.Unlock()
}

// Search returns every template whose title or content contains query,
// case-insensitively, in indexing order. The empty query matches everything.
func (x *Index) Search(query string) []model.Template {
	q := strings.ToLower(query)

	x.mu.RLock()
	defer x.mu.RUnlock()

	var out []model.Template
	for _, e := range x.entries {
		if strings.Contains(e.title, q) || strings.Contains(e.content, q) {
			out = append(out, e.template)
		}
	}
	return out
}

// SearchToken returns the templates that contain token as a whole
// whitespace-separated word in their title or content.
func (x *Index) SearchToken(token string) []model.Template {
	tok := strings.ToLower(strings.TrimSpace(token))
	if tok == "" {
		return nil
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	var out []model.Template
	for _, e := range x.entries {
		_, inTitle := e.titleTokens[tok]
		_, inContent := e.contentTokens[tok]
		if inTitle || inContent {
			out = append(out, e.template)
		}
	}
	return out
}

// Query answers what a user typed into the search box. A query wrapped in
// double quotes matches whole words only; anything else is a substring
// search.
func (x *Index) Query(q string) []model.Template {
	q = strings.TrimSpace(q)
	if len(q) >= 2 && strings.HasPrefix(q, `"`) && strings.HasSuffix(q, `"`) {
		return x.SearchToken(q[1 : len(q)-1])
	}
	return x.Search(q)
}

// Clear empties the index. Searches return nothing until the next Build.
func (x *Index) Clear() {
	x.mu.Lock()
	x.entries = nil
	x.mu.Unlock()
}

// Len returns the number of indexed templates.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// Attach builds the index from the store's templates and rebuilds it on
// every change. The returned function detaches it.
func (x *Index) Attach(s *state.Store) (detach func()) {
	x.Build(s.Templates.Get())
	return s.Templates.Subscribe(func(_, _ []model.Template) {
		x.Build(s.Templates.Get())
	})
}

func tokenize(s string) map[string]struct{} {
	fields := strings.Fields(s)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
