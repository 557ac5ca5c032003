package ui

import (
	"unicode/utf8"

	"github.com/ziadkadry99/prompted/internal/model"
	"github.com/ziadkadry99/prompted/internal/state"
)

// Region is a separately rendered part of the screen. A store change
// re-renders only the regions that show the changed field.
type Region int

const (
	RegionTabs Region = iota
	RegionSidebar
	RegionList
	RegionEditor
	RegionPreview
	RegionStatus
	regionCount
)

var regionNames = [regionCount]string{"tabs", "sidebar", "list", "editor", "preview", "status"}

func (r Region) String() string {
	if r < 0 || r >= regionCount {
		return "unknown"
	}
	return regionNames[r]
}

// Mode is the second axis of the view state.
type Mode int

const (
	ModeNormal Mode = iota
	ModeSearching
)

func (m Mode) String() string {
	if m == ModeSearching {
		return "searching"
	}
	return "normal"
}

// ViewState is the current view: {editing, managing} x {normal, searching}.
type ViewState struct {
	Tab  state.Tab
	Mode Mode
}

// searchingFor reports whether q is long enough to switch the list to
// search results.
func searchingFor(q string, minLen int) bool {
	return utf8.RuneCountInString(q) >= minLen
}

// subscribe maps every store field onto the regions that display it.
func (m *Model) subscribe() {
	st := m.store
	minLen := m.opts.MinQueryLength
	m.unsubscribe = append(m.unsubscribe,
		st.Templates.Subscribe(func(_, _ []model.Template) {
			m.markDirty(RegionSidebar, RegionList, RegionStatus)
		}),
		st.Folders.Subscribe(func(_, _ []model.Folder) {
			m.markDirty(RegionSidebar, RegionList)
		}),
		st.CurrentTemplate.Subscribe(func(_, _ *model.Template) {
			m.markDirty(RegionEditor, RegionPreview)
		}),
		st.Tab.Subscribe(func(_, _ state.Tab) {
			m.markDirty(RegionTabs, RegionList, RegionEditor, RegionPreview)
		}),
		st.FolderFilter.Subscribe(func(_, _ int64) {
			m.markDirty(RegionSidebar, RegionList)
		}),
		st.SidebarCollapsed.Subscribe(func(_, _ bool) {
			m.markDirty(RegionSidebar)
		}),
		st.Theme.Subscribe(func(_, _ state.Theme) {
			m.markDirty(allRegions()...)
		}),
		st.Query.Subscribe(func(old, next string) {
			// Queries below the threshold show the plain list either way.
			if searchingFor(old, minLen) || searchingFor(next, minLen) {
				m.markDirty(RegionTabs, RegionList, RegionStatus)
			}
		}),
		st.Loading.Subscribe(func(_, _ bool) {
			m.markDirty(RegionList, RegionStatus)
		}),
		st.Busy.Subscribe(func(_, _ state.Action) {
			m.markDirty(RegionStatus)
		}),
	)
}

func allRegions() []Region {
	out := make([]Region, regionCount)
	for i := range out {
		out[i] = Region(i)
	}
	return out
}

func (m *Model) markDirty(regions ...Region) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range regions {
		m.dirty[r] = true
	}
}

// flush renders every dirty region. It only runs on the update loop.
func (m *Model) flush() {
	m.mu.Lock()
	dirty := m.dirty
	m.dirty = [regionCount]bool{}
	m.mu.Unlock()

	for r, d := range dirty {
		if d {
			m.renders[r]++
			m.cache[r] = m.render(Region(r))
		}
	}
}

// RenderCount returns how many times r has been rendered.
func (m *Model) RenderCount(r Region) int { return m.renders[r] }
