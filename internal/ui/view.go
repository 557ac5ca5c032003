package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/ziadkadry99/prompted/internal/apperr"
	"github.com/ziadkadry99/prompted/internal/export"
	"github.com/ziadkadry99/prompted/internal/model"
	"github.com/ziadkadry99/prompted/internal/state"
)

const sidebarWidth = 24

type styles struct {
	theme     state.Theme
	tab       lipgloss.Style
	activeTab lipgloss.Style
	tabBar    lipgloss.Style
	pane      lipgloss.Style
	active    lipgloss.Style
	label     lipgloss.Style
	selected  lipgloss.Style
	muted     lipgloss.Style
	favorite  lipgloss.Style
	toast     map[apperr.Level]lipgloss.Style
}

func newStyles(theme state.Theme) styles {
	accent, border, dim := lipgloss.Color("212"), lipgloss.Color("63"), lipgloss.Color("241")
	if theme == state.ThemeLight {
		accent, border, dim = lipgloss.Color("125"), lipgloss.Color("25"), lipgloss.Color("246")
	}
	pane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dim).
		Padding(0, 1)
	return styles{
		theme: theme,
		tab: lipgloss.NewStyle().
			Padding(0, 2).
			Foreground(dim),
		activeTab: lipgloss.NewStyle().
			Padding(0, 2).
			Foreground(accent).
			Bold(true).
			Underline(true),
		tabBar: lipgloss.NewStyle().
			BorderBottom(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(border),
		pane:   pane,
		active: pane.BorderForeground(accent),
		label: lipgloss.NewStyle().
			Width(12).
			Foreground(accent),
		selected: lipgloss.NewStyle().
			Foreground(accent).
			Bold(true),
		muted:    lipgloss.NewStyle().Foreground(dim),
		favorite: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		toast: map[apperr.Level]lipgloss.Style{
			apperr.LevelInfo:    lipgloss.NewStyle().Foreground(border),
			apperr.LevelSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
			apperr.LevelWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
			apperr.LevelError:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		},
	}
}

// render draws one region from current state. It runs on the update loop.
func (m *Model) render(r Region) string {
	if theme := m.store.Theme.Get(); theme != m.styles.theme {
		m.styles = newStyles(theme)
	}
	switch r {
	case RegionTabs:
		return m.renderTabs()
	case RegionSidebar:
		return m.renderSidebar()
	case RegionList:
		return m.renderList()
	case RegionEditor:
		m.syncEditor()
		return m.renderEditor()
	case RegionPreview:
		m.syncEditor()
		return m.renderPreview()
	case RegionStatus:
		return m.renderStatus()
	}
	return ""
}

// compose lays the cached regions out for the active tab.
func (m *Model) compose() string {
	sidebar := ""
	if !m.store.SidebarCollapsed.Get() {
		sidebar = m.styles.pane.Width(sidebarWidth).Render(m.cache[RegionSidebar])
	}

	var body string
	if m.store.Tab.Get() == state.TabEditor {
		w := m.mainWidth() / 2
		editor := m.paneFor(focusRegion(m.focus) == RegionEditor).Width(w).Render(m.cache[RegionEditor])
		preview := m.styles.pane.Width(w).Render(m.cache[RegionPreview])
		body = lipgloss.JoinHorizontal(lipgloss.Top, sidebar, editor, preview)
	} else {
		list := m.paneFor(m.focus == focusList).Width(m.mainWidth()).Render(m.cache[RegionList])
		body = lipgloss.JoinHorizontal(lipgloss.Top, sidebar, list)
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.cache[RegionTabs], body, m.cache[RegionStatus])
}

func (m *Model) paneFor(active bool) lipgloss.Style {
	if active {
		return m.styles.active
	}
	return m.styles.pane
}

func (m *Model) mainWidth() int {
	w := m.width - 4
	if !m.store.SidebarCollapsed.Get() {
		w -= sidebarWidth + 4
	}
	if w < 20 {
		w = 20
	}
	return w
}

func (m *Model) resize() {
	w := m.mainWidth()/2 - 4
	if w < 10 {
		w = 10
	}
	m.title.Width = w - 12
	m.desc.Width = w - 12
	m.content.SetWidth(w)
	h := m.height - 14
	if h < 3 {
		h = 3
	}
	m.content.SetHeight(h)
	m.search.Width = 30
	m.help.Width = m.width
}

func (m *Model) renderTabs() string {
	var tabs []string
	for _, t := range []struct {
		tab   state.Tab
		label string
	}{{state.TabEditor, "Editor"}, {state.TabManager, "Templates"}} {
		style := m.styles.tab
		if t.tab == m.store.Tab.Get() {
			style = m.styles.activeTab
		}
		tabs = append(tabs, style.Render(t.label))
	}
	tabs = append(tabs, "  "+m.search.View())
	if m.searching() {
		tabs = append(tabs, m.styles.muted.Render(fmt.Sprintf("  %d results", len(m.index.Query(m.store.Query.Get())))))
	}
	return m.styles.tabBar.Render(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
}

// sortedFolders orders folders by their full path.
func sortedFolders(folders []model.Folder) []model.Folder {
	out := append([]model.Folder(nil), folders...)
	paths := make(map[int64]string, len(out))
	for _, f := range out {
		paths[f.ID] = model.FolderPath(folders, f.ID)
	}
	sort.SliceStable(out, func(i, j int) bool { return paths[out[i].ID] < paths[out[j].ID] })
	return out
}

func (m *Model) renderSidebar() string {
	folders := m.store.Folders.Get()
	filter := m.store.FolderFilter.Get()

	var sb strings.Builder
	line := func(active bool, text string) {
		if active {
			sb.WriteString(m.styles.selected.Render("▸ " + text))
		} else {
			sb.WriteString("  " + text)
		}
		sb.WriteByte('\n')
	}
	line(filter == 0, fmt.Sprintf("All templates (%d)", len(m.store.Templates.Get())))
	for _, f := range sortedFolders(folders) {
		depth := strings.Count(model.FolderPath(folders, f.ID), "/")
		line(f.ID == filter, fmt.Sprintf("%s%s (%d)", strings.Repeat("  ", depth), f.Name, f.TemplatesCount))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (m *Model) renderList() string {
	if m.store.Loading.Get() && len(m.store.Templates.Get()) == 0 {
		return m.styles.muted.Render("Loading templates…")
	}
	list := m.visible()
	if len(list) == 0 {
		if m.searching() {
			return m.styles.muted.Render(fmt.Sprintf("No templates match %q", m.store.Query.Get()))
		}
		return m.styles.muted.Render("No templates yet. Press ctrl+n to write one.")
	}

	var sb strings.Builder
	for i, t := range list {
		star := "  "
		if t.IsFavorite {
			star = m.styles.favorite.Render("★ ")
		}
		title := t.Title
		if i == m.selected {
			title = m.styles.selected.Render("> " + title)
		} else {
			title = "  " + title
		}
		meta := fmt.Sprintf("%d chars", t.ContentLength)
		if t.FolderName != "" {
			meta = t.FolderName + " · " + meta
		}
		sb.WriteString(star + title + "  " + m.styles.muted.Render(meta) + "\n")
		if t.Description != "" {
			sb.WriteString("    " + m.styles.muted.Render(t.Description) + "\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (m *Model) renderEditor() string {
	heading := "New template"
	if m.editingID != 0 {
		heading = fmt.Sprintf("Template #%d", m.editingID)
	}
	if m.edited {
		heading += " *"
	}
	return strings.Join([]string{
		m.styles.selected.Render(heading),
		m.styles.label.Render("Title") + m.title.View(),
		m.styles.label.Render("Description") + m.desc.View(),
		"",
		m.content.View(),
	}, "\n")
}

// renderPreview renders the editor content as markdown. A renderer failure
// falls back to the raw text and is recorded silently.
func (m *Model) renderPreview() string {
	content := m.content.Value()
	if strings.TrimSpace(content) == "" {
		return m.styles.muted.Render("Nothing to preview")
	}
	stats := export.Stats(content)
	footer := m.styles.muted.Render(fmt.Sprintf("%d words · %d lines", stats.Words, stats.TotalLines))

	r, err := m.previewRenderer()
	if err == nil {
		var out string
		if out, err = r.Render(content); err == nil {
			return strings.TrimRight(out, "\n") + "\n" + footer
		}
	}
	m.errs.Handle(apperr.UI(apperr.CodeRender, err.Error()).With("region", RegionPreview.String()), false)
	return content + "\n" + footer
}

func (m *Model) previewRenderer() (*glamour.TermRenderer, error) {
	style := "dark"
	if m.store.Theme.Get() == state.ThemeLight {
		style = "light"
	}
	wrap := m.mainWidth()/2 - 4
	if wrap < 20 {
		wrap = 20
	}
	k := fmt.Sprintf("%s/%d", style, wrap)
	if m.preview != nil && m.previewKey == k {
		return m.preview, nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return nil, err
	}
	m.preview, m.previewKey = r, k
	return r, nil
}

func (m *Model) renderStatus() string {
	var lines []string
	if m.focus == focusPrompt {
		label := "New folder: "
		switch m.promptKind {
		case promptRenameFolder:
			label = "Rename folder: "
		case promptMoveFolder:
			label = "Move folder to (path, empty for root): "
		}
		lines = append(lines, m.styles.selected.Render(label)+m.prompt.View())
	}
	for _, t := range m.toasts.List() {
		lines = append(lines, m.styles.toast[t.Level].Render(t.Text))
	}
	if busy := busyLabel(m.store.Busy.Get()); busy != "" {
		lines = append(lines, m.styles.muted.Render(busy))
	}
	lines = append(lines, m.help.View(keys))
	return strings.Join(lines, "\n")
}

func busyLabel(a state.Action) string {
	var parts []string
	for _, b := range []struct {
		action state.Action
		label  string
	}{
		{state.ActionSave, "saving"},
		{state.ActionDelete, "deleting"},
		{state.ActionLoad, "loading"},
		{state.ActionExport, "exporting"},
		{state.ActionFavorite, "updating favorite"},
		{state.ActionFolder, "updating folders"},
	} {
		if a.Has(b.action) {
			parts = append(parts, b.label)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, ", ") + "…"
}
