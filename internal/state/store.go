// Package state is the client's single source of truth: templates, folders
// and UI flags, each held in a typed field that notifies subscribers when it
// changes.
//
// The set of fields is fixed. Equality is by reference: scalars compare with
// ==, pointers by address and slices by backing array and length. The domain
// helpers always build a fresh slice, so every real mutation notifies, while
// handing the same slice back to a setter is a no-op.
package state

import (
	"sync"

	"go.uber.org/zap"

	"github.com/ziadkadry99/prompted/internal/model"
)

// Tab is the top-level view.
type Tab string

const (
	TabEditor  Tab = "editor"
	TabManager Tab = "manager"
)

// Theme is the colour scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Toggle returns the other theme.
func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// Action is a bit set of in-flight network actions; a set bit disables the
// control that triggers it.
type Action uint8

const (
	ActionSave Action = 1 << iota
	ActionDelete
	ActionLoad
	ActionExport
	ActionFavorite
	ActionFolder
)

// Has reports whether every bit of b is set in a.
func (a Action) Has(b Action) bool { return a&b == b }

// Store holds the client state.
type Store struct {
	mu      sync.RWMutex
	deliver sync.Mutex // held from a value swap until its subscribers return
	logger  *zap.Logger

	Templates       *Field[[]model.Template]
	Folders         *Field[[]model.Folder]
	CurrentTemplate *Field[*model.Template]

	Tab              *Field[Tab]
	FolderFilter     *Field[int64] // 0 means all folders
	SidebarCollapsed *Field[bool]
	Theme            *Field[Theme]
	Query            *Field[string]
	Loading          *Field[bool]
	Busy             *Field[Action]
}

// Options seeds the persisted UI preferences.
type Options struct {
	Theme            Theme
	SidebarCollapsed bool
}

// New creates a store with tab=editor and the given preferences.
func New(logger *zap.Logger, opts Options) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("state")
	if opts.Theme == "" {
		opts.Theme = ThemeLight
	}

	s := &Store{logger: logger}
	s.Templates = newField("templates", &s.mu, &s.deliver, logger, sameSlice[model.Template], nil)
	s.Folders = newField("folders", &s.mu, &s.deliver, logger, sameSlice[model.Folder], nil)
	s.CurrentTemplate = newField("current_template", &s.mu, &s.deliver, logger, sameValue[*model.Template], nil)
	s.Tab = newField("tab", &s.mu, &s.deliver, logger, sameValue[Tab], TabEditor)
	s.FolderFilter = newField("folder_filter", &s.mu, &s.deliver, logger, sameValue[int64], 0)
	s.SidebarCollapsed = newField("sidebar_collapsed", &s.mu, &s.deliver, logger, sameValue[bool], opts.SidebarCollapsed)
	s.Theme = newField("theme", &s.mu, &s.deliver, logger, sameValue[Theme], opts.Theme)
	s.Query = newField("query", &s.mu, &s.deliver, logger, sameValue[string], "")
	s.Loading = newField("loading", &s.mu, &s.deliver, logger, sameValue[bool], false)
	s.Busy = newField("busy", &s.mu, &s.deliver, logger, sameValue[Action], 0)
	return s
}

// SetTemplates replaces the collection. The store takes ownership of list;
// duplicate ids keep the last occurrence in the first occurrence's position.
func (s *Store) SetTemplates(list []model.Template) bool {
	changed := s.Templates.update(func(cur []model.Template) ([]model.Template, bool) {
		if sameSlice(cur, list) {
			return cur, false
		}
		return dedupeTemplates(list), true
	})
	if changed {
		s.logger.Debug("templates replaced", zap.Int("count", len(s.Templates.Get())))
		s.syncCurrent()
	}
	return changed
}

// AddTemplate inserts t, or replaces the entry with the same id in place.
func (s *Store) AddTemplate(t model.Template) {
	s.Templates.update(func(cur []model.Template) ([]model.Template, bool) {
		next := make([]model.Template, 0, len(cur)+1)
		replaced := false
		for _, existing := range cur {
			if existing.ID == t.ID {
				next = append(next, t)
				replaced = true
				continue
			}
			next = append(next, existing)
		}
		if !replaced {
			next = append(next, t)
		}
		return next, true
	})
	s.syncCurrent()
}

// UpdateTemplate applies patch to the template with id. It reports whether the
// template was found. The id itself never changes.
func (s *Store) UpdateTemplate(id int64, patch model.TemplatePatch) bool {
	found := false
	s.Templates.update(func(cur []model.Template) ([]model.Template, bool) {
		next := make([]model.Template, len(cur))
		copy(next, cur)
		for i := range next {
			if next[i].ID == id {
				patch.Apply(&next[i])
				next[i].ID = id
				found = true
				break
			}
		}
		return next, found
	})
	if found {
		s.syncCurrent()
	}
	return found
}

// RemoveTemplate drops the template with id and reports whether it existed.
func (s *Store) RemoveTemplate(id int64) bool {
	found := false
	s.Templates.update(func(cur []model.Template) ([]model.Template, bool) {
		next := make([]model.Template, 0, len(cur))
		for _, t := range cur {
			if t.ID == id {
				found = true
				continue
			}
			next = append(next, t)
		}
		return next, found
	})
	if found {
		s.syncCurrent()
	}
	return found
}

// SetFolderTemplates makes list the templates filed under folder id: its
// entries are inserted or replaced in place, and local templates filed there
// that list lacks are dropped. Subscribers see one change.
func (s *Store) SetFolderTemplates(id int64, list []model.Template) {
	changed := s.Templates.update(func(cur []model.Template) ([]model.Template, bool) {
		fresh := make(map[int64]model.Template, len(list))
		for _, t := range list {
			fresh[t.ID] = t
		}
		next := make([]model.Template, 0, len(cur)+len(list))
		for _, t := range cur {
			if f, ok := fresh[t.ID]; ok {
				next = append(next, f)
				delete(fresh, t.ID)
				continue
			}
			if t.InFolder(id) {
				continue
			}
			next = append(next, t)
		}
		for _, t := range list {
			if _, ok := fresh[t.ID]; ok {
				next = append(next, t)
				delete(fresh, t.ID)
			}
		}
		return next, true
	})
	if changed {
		s.syncCurrent()
	}
}

// Template returns a copy of the template with id.
func (s *Store) Template(id int64) (model.Template, bool) {
	for _, t := range s.Templates.Get() {
		if t.ID == id {
			return t, true
		}
	}
	return model.Template{}, false
}

// SetCurrentTemplate selects the template being edited; nil starts a new one.
func (s *Store) SetCurrentTemplate(t *model.Template) bool {
	if t != nil {
		cp := *t
		t = &cp
	}
	return s.CurrentTemplate.Set(t)
}

// syncCurrent keeps the current template pointing at the collection's copy:
// refreshed when it changed and cleared when it was removed.
func (s *Store) syncCurrent() {
	cur := s.CurrentTemplate.Get()
	if cur == nil || cur.ID == 0 {
		return
	}
	t, ok := s.Template(cur.ID)
	if !ok {
		s.CurrentTemplate.Set(nil)
		return
	}
	if t != *cur {
		s.CurrentTemplate.Set(&t)
	}
}

// SetFolders replaces the folder list. The store takes ownership of list.
func (s *Store) SetFolders(list []model.Folder) bool {
	return s.Folders.Set(list)
}

// AddFolder inserts f, or replaces the folder with the same id in place.
func (s *Store) AddFolder(f model.Folder) {
	s.Folders.update(func(cur []model.Folder) ([]model.Folder, bool) {
		next := make([]model.Folder, 0, len(cur)+1)
		replaced := false
		for _, existing := range cur {
			if existing.ID == f.ID {
				next = append(next, f)
				replaced = true
				continue
			}
			next = append(next, existing)
		}
		if !replaced {
			next = append(next, f)
		}
		return next, true
	})
}

// UpdateFolder applies fn to the folder with id and reports whether it was found.
func (s *Store) UpdateFolder(id int64, fn func(*model.Folder)) bool {
	found := false
	s.Folders.update(func(cur []model.Folder) ([]model.Folder, bool) {
		next := make([]model.Folder, len(cur))
		copy(next, cur)
		for i := range next {
			if next[i].ID == id {
				fn(&next[i])
				next[i].ID = id
				found = true
				break
			}
		}
		return next, found
	})
	return found
}

// RemoveFolder drops the folder with id. Templates filed under it are moved
// to the root locally, mirroring the server's behaviour, and a folder filter
// pointing at it is reset. The templates move first, in one change, so
// folder subscribers never see templates filed under a missing folder.
func (s *Store) RemoveFolder(id int64) bool {
	if _, ok := s.Folder(id); !ok {
		return false
	}

	moved := s.Templates.update(func(cur []model.Template) ([]model.Template, bool) {
		next := make([]model.Template, len(cur))
		copy(next, cur)
		changed := false
		for i := range next {
			if next[i].InFolder(id) {
				next[i].FolderID = nil
				next[i].FolderName = ""
				changed = true
			}
		}
		return next, changed
	})
	if moved {
		s.syncCurrent()
	}

	found := false
	s.Folders.update(func(cur []model.Folder) ([]model.Folder, bool) {
		next := make([]model.Folder, 0, len(cur))
		for _, f := range cur {
			if f.ID == id {
				found = true
				continue
			}
			if f.ParentID != nil && *f.ParentID == id {
				f.ParentID = nil
			}
			next = append(next, f)
		}
		return next, found
	})
	if s.FolderFilter.Get() == id {
		s.FolderFilter.Set(0)
	}
	return found
}

// Folder returns a copy of the folder with id.
func (s *Store) Folder(id int64) (model.Folder, bool) {
	for _, f := range s.Folders.Get() {
		if f.ID == id {
			return f, true
		}
	}
	return model.Folder{}, false
}

// SetTab switches the top-level view.
func (s *Store) SetTab(t Tab) bool { return s.Tab.Set(t) }

// SetTheme changes the colour scheme.
func (s *Store) SetTheme(t Theme) bool { return s.Theme.Set(t) }

// SetSidebarCollapsed shows or hides the sidebar.
func (s *Store) SetSidebarCollapsed(v bool) bool { return s.SidebarCollapsed.Set(v) }

// SetQuery records the search box contents.
func (s *Store) SetQuery(q string) bool { return s.Query.Set(q) }

// SetFolderFilter restricts the manager list to one folder; 0 clears it.
func (s *Store) SetFolderFilter(id int64) bool { return s.FolderFilter.Set(id) }

// SetLoading flags a collection load in progress.
func (s *Store) SetLoading(v bool) bool { return s.Loading.Set(v) }

// MarkBusy sets the bits of a. It reports false when any of them were
// already set, which callers treat as "already running".
func (s *Store) MarkBusy(a Action) bool {
	ok := false
	s.Busy.update(func(cur Action) (Action, bool) {
		if cur&a != 0 {
			return cur, false
		}
		ok = true
		return cur | a, true
	})
	return ok
}

// ClearBusy clears the bits of a.
func (s *Store) ClearBusy(a Action) {
	s.Busy.update(func(cur Action) (Action, bool) {
		return cur &^ a, true
	})
}

// IsBusy reports whether any bit of a is set.
func (s *Store) IsBusy(a Action) bool { return s.Busy.Get()&a != 0 }

func dedupeTemplates(list []model.Template) []model.Template {
	index := make(map[int64]int, len(list))
	dup := false
	for i, t := range list {
		if _, ok := index[t.ID]; ok {
			dup = true
			break
		}
		index[t.ID] = i
	}
	if !dup {
		return list
	}

	out := make([]model.Template, 0, len(list))
	pos := make(map[int64]int, len(list))
	for _, t := range list {
		if i, ok := pos[t.ID]; ok {
			out[i] = t
			continue
		}
		pos[t.ID] = len(out)
		out = append(out, t)
	}
	return out
}
