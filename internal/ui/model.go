// Package ui is the terminal front end. It turns key presses into
// operations, and store changes into re-renders of exactly the screen
// regions that show the changed data.
//
// Everything visual happens on bubbletea's update loop, one message at a
// time. Operations run as commands on other goroutines; their store
// mutations only mark regions dirty, and the loop renders dirty regions
// after each message.
package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"

	"github.com/ziadkadry99/prompted/internal/apperr"
	"github.com/ziadkadry99/prompted/internal/events"
	"github.com/ziadkadry99/prompted/internal/export"
	"github.com/ziadkadry99/prompted/internal/model"
	"github.com/ziadkadry99/prompted/internal/ops"
	"github.com/ziadkadry99/prompted/internal/search"
	"github.com/ziadkadry99/prompted/internal/state"
)

// WatchFunc streams server change events to fn until ctx ends.
type WatchFunc func(ctx context.Context, fn func(model.Event)) error

// Options tunes the coordinator.
type Options struct {
	Debounce       time.Duration // search input debounce
	MinQueryLength int           // runes needed before the list shows search results
	ToastTTL       time.Duration
	ReconnectDelay time.Duration // wait between event stream reconnects
	ExportDir      string
	ExportFormats  []export.Format
}

func (o *Options) setDefaults() {
	if o.Debounce < 0 {
		o.Debounce = 0
	}
	if o.MinQueryLength <= 0 {
		o.MinQueryLength = 2
	}
	if o.ToastTTL <= 0 {
		o.ToastTTL = 4 * time.Second
	}
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = 3 * time.Second
	}
	if o.ExportDir == "" {
		o.ExportDir = "."
	}
}

// Deps are the collaborators the coordinator drives.
type Deps struct {
	Ops    *ops.Service
	Index  *search.Index
	Errors *apperr.Handler
	Bus    *events.Bus
	Watch  WatchFunc // optional
	Logger *zap.Logger
}

type focus int

const (
	focusList focus = iota
	focusSearch
	focusTitle
	focusDesc
	focusContent
	focusPrompt
)

type promptKind int

const (
	promptNewFolder promptKind = iota
	promptRenameFolder
	promptMoveFolder
)

type cardAction int

const (
	cardOpen cardAction = iota
	cardFavorite
	cardDelete
	cardDuplicate
	cardMove
)

// Messages.
type (
	searchTickMsg struct {
		gen   int
		query string
	}
	opDoneMsg struct {
		action state.Action
		err    error
		then   func() tea.Cmd
	}
	remoteMsg    struct{ ev model.Event }
	refreshedMsg struct{ err error }
	toastTickMsg struct{}
)

// Model is the bubbletea model for the editor.
type Model struct {
	ops    *ops.Service
	store  *state.Store
	index  *search.Index
	errs   *apperr.Handler
	watch  WatchFunc
	logger *zap.Logger
	opts   Options

	ctx    context.Context
	cancel context.CancelFunc
	remote chan model.Event

	mu          sync.Mutex
	dirty       [regionCount]bool
	renders     [regionCount]int
	cache       [regionCount]string
	unsubscribe []func()
	toasts      *toasts

	focus      focus
	search     textinput.Model
	title      textinput.Model
	desc       textinput.Model
	content    textarea.Model
	prompt     textinput.Model
	promptKind promptKind
	help       help.Model

	selected  int
	searchGen int

	// Editor bookkeeping: which store entry the fields were loaded from and
	// whether the user has typed since.
	editorSrc *model.Template
	editingID int64
	edited    bool

	refreshing     bool
	refreshPending bool

	width, height int
	styles        styles
	preview       *glamour.TermRenderer
	previewKey    string
}

// New builds the coordinator and subscribes it to the store.
func New(d Deps, opts Options) *Model {
	opts.setDefaults()
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	m := &Model{
		ops:    d.Ops,
		store:  d.Ops.Store(),
		index:  d.Index,
		errs:   d.Errors,
		watch:  d.Watch,
		logger: logger.Named("ui"),
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
		remote: make(chan model.Event, 16),
		help:   help.New(),
		width:  100,
		height: 30,
	}
	if m.index == nil {
		m.index = search.New()
	}
	if m.errs == nil {
		m.errs = apperr.NewHandler(logger, nil)
	}
	m.unsubscribe = append(m.unsubscribe, m.index.Attach(m.store))

	m.toasts = &toasts{ttl: opts.ToastTTL, now: time.Now, onChange: func() { m.markDirty(RegionStatus) }}
	m.errs.SetNotifier(m.toasts)
	if d.Bus != nil {
		m.unsubscribe = append(m.unsubscribe, d.Bus.Subscribe(func(ev events.Event) {
			if text := successText(ev); text != "" {
				m.toasts.Notify(apperr.LevelSuccess, text)
			}
		}))
	}

	m.search = newInput("Search templates…", 0)
	m.title = newInput("Title", model.MaxTitleLength)
	m.desc = newInput("Description (optional)", model.MaxDescriptionLength)
	m.prompt = newInput("", model.MaxFolderNameLength)
	m.content = textarea.New()
	m.content.Placeholder = "Write your template in markdown…"
	m.content.CharLimit = 0
	m.content.ShowLineNumbers = false
	m.content.Cursor.SetMode(cursor.CursorStatic)

	m.styles = newStyles(m.store.Theme.Get())
	m.resize()
	m.subscribe()
	m.markDirty(allRegions()...)
	m.flush()
	return m
}

func newInput(placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Cursor.SetMode(cursor.CursorStatic)
	return ti
}

// Close stops background work and detaches from the store.
func (m *Model) Close() {
	m.cancel()
	for _, fn := range m.unsubscribe {
		fn()
	}
	m.unsubscribe = nil
}

// Init loads the collections and starts the event stream listener.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.reload(), m.toastTick()}
	if m.watch != nil {
		m.errs.Go("event stream", m.watchLoop)
		cmds = append(cmds, m.listenRemote())
	}
	return m.guarded(tea.Batch(cmds...))
}

// Update handles one message, then renders whatever it left dirty. A panic
// is recorded by the error handler and the program keeps running.
func (m *Model) Update(msg tea.Msg) (next tea.Model, cmd tea.Cmd) {
	defer func() {
		if r := recover(); r != nil {
			m.errs.Recovered("update", r)
			next, cmd = m, nil
		}
	}()
	cmd = m.update(msg)
	m.flush()
	return m, m.guarded(cmd)
}

// guarded wraps cmd so a panic while it runs is recorded by the error
// handler instead of ending the program. Batches are wrapped member by
// member since bubbletea runs them separately.
func (m *Model) guarded(cmd tea.Cmd) tea.Cmd {
	if cmd == nil {
		return nil
	}
	return func() (msg tea.Msg) {
		defer m.errs.Recover("command")
		msg = cmd()
		if batch, ok := msg.(tea.BatchMsg); ok {
			wrapped := make(tea.BatchMsg, 0, len(batch))
			for _, c := range batch {
				wrapped = append(wrapped, m.guarded(c))
			}
			msg = wrapped
		}
		return msg
	}
}

func (m *Model) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		m.markDirty(allRegions()...)
		return nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case searchTickMsg:
		if msg.gen != m.searchGen {
			return nil // superseded by a later keystroke
		}
		m.selected = 0
		m.store.SetQuery(msg.query)
		return nil

	case opDoneMsg:
		m.store.ClearBusy(msg.action)
		if msg.err == nil && msg.then != nil {
			return msg.then()
		}
		return nil

	case remoteMsg:
		m.logger.Debug("remote change", zap.String("type", msg.ev.Type), zap.Int64("id", msg.ev.ID))
		return tea.Batch(m.listenRemote(), m.refresh())

	case refreshedMsg:
		m.refreshing = false
		if m.refreshPending {
			m.refreshPending = false
			return m.refresh()
		}
		return nil

	case toastTickMsg:
		if m.toasts.prune() {
			m.markDirty(RegionStatus)
		}
		return m.toastTick()
	}
	return nil
}

// View implements tea.Model. A panic while composing falls back to the
// status region so the error toast still shows.
func (m *Model) View() (out string) {
	defer func() {
		if r := recover(); r != nil {
			m.errs.Recovered("view", r)
			out = m.cache[RegionStatus]
		}
	}()
	return m.compose()
}

// ViewState returns the current tab and mode.
func (m *Model) ViewState() ViewState {
	mode := ModeNormal
	if m.searching() {
		mode = ModeSearching
	}
	return ViewState{Tab: m.store.Tab.Get(), Mode: mode}
}

func (m *Model) searching() bool {
	return searchingFor(m.store.Query.Get(), m.opts.MinQueryLength)
}

// SwitchTab makes t the active tab. Switching to the active tab does
// nothing.
func (m *Model) SwitchTab(t state.Tab) {
	if !m.store.SetTab(t) {
		return
	}
	if t == state.TabEditor {
		m.setFocus(focusTitle)
	} else {
		m.setFocus(focusList)
	}
}

func (m *Model) otherTab() state.Tab {
	if m.store.Tab.Get() == state.TabEditor {
		return state.TabManager
	}
	return state.TabEditor
}

func focusRegion(f focus) Region {
	switch f {
	case focusSearch:
		return RegionTabs
	case focusTitle, focusDesc, focusContent:
		return RegionEditor
	case focusPrompt:
		return RegionStatus
	}
	return RegionList
}

func (m *Model) setFocus(f focus) {
	if f == m.focus {
		return
	}
	m.markDirty(focusRegion(m.focus), focusRegion(f))
	m.search.Blur()
	m.title.Blur()
	m.desc.Blur()
	m.content.Blur()
	m.prompt.Blur()
	switch f {
	case focusSearch:
		m.search.Focus()
	case focusTitle:
		m.title.Focus()
	case focusDesc:
		m.desc.Focus()
	case focusContent:
		m.content.Focus()
	case focusPrompt:
		m.prompt.Focus()
	}
	m.focus = f
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	// Global shortcuts first, whatever has focus.
	switch {
	case key.Matches(msg, keys.Quit):
		m.Close()
		return tea.Quit
	case key.Matches(msg, keys.Save):
		return m.save()
	case key.Matches(msg, keys.New):
		m.newTemplate()
		return nil
	case key.Matches(msg, keys.Search):
		m.setFocus(focusSearch)
		return nil
	case key.Matches(msg, keys.Escape):
		m.escape()
		return nil
	case key.Matches(msg, keys.Theme):
		m.store.SetTheme(m.store.Theme.Get().Toggle())
		return nil
	case key.Matches(msg, keys.Sidebar):
		m.store.SetSidebarCollapsed(!m.store.SidebarCollapsed.Get())
		return nil
	case key.Matches(msg, keys.Export):
		return m.exportAll()
	case key.Matches(msg, keys.Refresh):
		return m.reload()
	case key.Matches(msg, keys.SwitchTab):
		m.SwitchTab(m.otherTab())
		return nil
	}

	switch m.focus {
	case focusSearch:
		return m.updateSearch(msg)
	case focusPrompt:
		return m.updatePrompt(msg)
	case focusTitle, focusDesc, focusContent:
		return m.updateEditor(msg)
	}
	return m.updateList(msg)
}

// escape closes an open prompt, otherwise clears the search and restores
// the plain list from store data.
func (m *Model) escape() {
	if m.focus == focusPrompt {
		m.prompt.SetValue("")
		m.setFocus(focusList)
		return
	}
	if m.search.Value() != "" || m.store.Query.Get() != "" {
		m.search.SetValue("")
		m.searchGen++
		m.selected = 0
		m.store.SetQuery("")
		m.markDirty(RegionTabs, RegionList)
	}
	m.setFocus(focusList)
}

func (m *Model) updateSearch(msg tea.KeyMsg) tea.Cmd {
	if msg.Type == tea.KeyEnter {
		m.setFocus(focusList)
		return nil
	}
	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.markDirty(RegionTabs)

	q := m.search.Value()
	if q == before {
		return cmd
	}
	m.searchGen++
	gen := m.searchGen
	tick := tea.Tick(m.opts.Debounce, func(time.Time) tea.Msg {
		return searchTickMsg{gen: gen, query: q}
	})
	return tea.Batch(cmd, tick)
}

func (m *Model) updateEditor(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, keys.NextField) || (msg.Type == tea.KeyEnter && m.focus != focusContent) {
		next := map[focus]focus{focusTitle: focusDesc, focusDesc: focusContent, focusContent: focusTitle}
		m.setFocus(next[m.focus])
		return nil
	}

	var cmd tea.Cmd
	switch m.focus {
	case focusTitle:
		before := m.title.Value()
		m.title, cmd = m.title.Update(msg)
		m.edited = m.edited || m.title.Value() != before
	case focusDesc:
		before := m.desc.Value()
		m.desc, cmd = m.desc.Update(msg)
		m.edited = m.edited || m.desc.Value() != before
	case focusContent:
		before := m.content.Value()
		m.content, cmd = m.content.Update(msg)
		if m.content.Value() != before {
			m.edited = true
			m.markDirty(RegionPreview)
		}
	}
	m.markDirty(RegionEditor)
	return cmd
}

func (m *Model) updatePrompt(msg tea.KeyMsg) tea.Cmd {
	if msg.Type == tea.KeyEnter {
		return m.submitPrompt()
	}
	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	m.markDirty(RegionStatus)
	return cmd
}

func (m *Model) updateList(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Close):
		m.Close()
		return tea.Quit
	case key.Matches(msg, keys.Up):
		m.moveSelection(-1)
	case key.Matches(msg, keys.Down):
		m.moveSelection(1)
	case key.Matches(msg, keys.Open):
		return m.cardAction(cardOpen)
	case key.Matches(msg, keys.Favorite):
		return m.cardAction(cardFavorite)
	case key.Matches(msg, keys.Delete):
		return m.cardAction(cardDelete)
	case key.Matches(msg, keys.Duplicate):
		return m.cardAction(cardDuplicate)
	case key.Matches(msg, keys.Move):
		return m.cardAction(cardMove)
	case key.Matches(msg, keys.PrevFolder):
		return m.cycleFolder(-1)
	case key.Matches(msg, keys.NextFolder):
		return m.cycleFolder(1)
	case key.Matches(msg, keys.NewFolder):
		m.openPrompt(promptNewFolder, "")
	case key.Matches(msg, keys.Rename):
		if f, ok := m.store.Folder(m.store.FolderFilter.Get()); ok {
			m.openPrompt(promptRenameFolder, f.Name)
		}
	case key.Matches(msg, keys.MoveFolder):
		if f, ok := m.store.Folder(m.store.FolderFilter.Get()); ok {
			parent := ""
			if f.ParentID != nil {
				parent = model.FolderPath(m.store.Folders.Get(), *f.ParentID)
			}
			m.openPrompt(promptMoveFolder, parent)
		}
	case key.Matches(msg, keys.DelFolder):
		return m.deleteFolder()
	}
	return nil
}

// visible is the list region's content: search results while searching,
// otherwise the collection narrowed by the folder filter.
func (m *Model) visible() []model.Template {
	var list []model.Template
	if m.searching() {
		list = m.index.Query(m.store.Query.Get())
	} else {
		list = m.store.Templates.Get()
	}
	filter := m.store.FolderFilter.Get()
	if filter == 0 {
		return list
	}
	out := make([]model.Template, 0, len(list))
	for _, t := range list {
		if t.InFolder(filter) {
			out = append(out, t)
		}
	}
	return out
}

func (m *Model) selectedTemplate() (model.Template, bool) {
	list := m.visible()
	if len(list) == 0 {
		return model.Template{}, false
	}
	if m.selected >= len(list) {
		m.selected = len(list) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
	return list[m.selected], true
}

func (m *Model) moveSelection(delta int) {
	n := len(m.visible())
	if n == 0 {
		return
	}
	next := m.selected + delta
	if next < 0 || next >= n {
		return
	}
	m.selected = next
	m.markDirty(RegionList)
}

// run starts an operation under busy flag a. A second invocation while the
// first is in flight is ignored. The flag is cleared when the operation
// finishes, whatever the outcome; then runs on the loop after a success.
func (m *Model) run(a state.Action, fn func(ctx context.Context) error, then func() tea.Cmd) tea.Cmd {
	if !m.store.MarkBusy(a) {
		return nil
	}
	ctx := m.ctx
	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				msg = opDoneMsg{action: a, err: m.errs.Recovered("operation", r)}
			}
		}()
		return opDoneMsg{action: a, err: fn(ctx), then: then}
	}
}

// cardAction is the single handler for actions on a list card. The card
// is identified by the selected template's id.
func (m *Model) cardAction(a cardAction) tea.Cmd {
	t, ok := m.selectedTemplate()
	if !ok {
		return nil
	}
	id := t.ID
	switch a {
	case cardOpen:
		return m.run(state.ActionLoad, func(ctx context.Context) error {
			_, err := m.ops.Load(ctx, id)
			return err
		}, func() tea.Cmd {
			m.SwitchTab(state.TabEditor)
			return nil
		})
	case cardFavorite:
		value := !t.IsFavorite
		return m.run(state.ActionFavorite, func(ctx context.Context) error {
			_, err := m.ops.ToggleFavorite(ctx, id, value)
			return err
		}, nil)
	case cardDelete:
		return m.run(state.ActionDelete, func(ctx context.Context) error {
			return m.ops.Delete(ctx, id)
		}, nil)
	case cardDuplicate:
		return m.run(state.ActionSave, func(ctx context.Context) error {
			_, err := m.ops.Duplicate(ctx, id)
			return err
		}, nil)
	case cardMove:
		folder := m.store.FolderFilter.Get()
		return m.run(state.ActionSave, func(ctx context.Context) error {
			_, err := m.ops.MoveTemplate(ctx, id, folder)
			return err
		}, nil)
	}
	return nil
}

func (m *Model) newTemplate() {
	m.SwitchTab(state.TabEditor)
	m.store.SetCurrentTemplate(nil)
	m.loadEditor(nil)
	m.editorSrc = nil
	m.markDirty(RegionEditor, RegionPreview)
	m.setFocus(focusTitle)
}

// save writes the editor fields: a new template when nothing is loaded,
// otherwise an update of the loaded one.
func (m *Model) save() tea.Cmd {
	id := m.editingID
	in := model.TemplateInput{
		Title:       m.title.Value(),
		Content:     m.content.Value(),
		Description: m.desc.Value(),
	}
	if id == 0 {
		in.FolderID = model.ID(m.store.FolderFilter.Get())
	}

	var saved *model.Template
	return m.run(state.ActionSave, func(ctx context.Context) error {
		t, err := m.ops.Save(ctx, id, in)
		saved = t
		return err
	}, func() tea.Cmd {
		m.edited = false
		m.editingID = saved.ID
		m.store.SetCurrentTemplate(saved)
		return nil
	})
}

// syncEditor loads the current template into the editor fields when it
// changed underneath them. Unsaved typing in the same template is kept.
func (m *Model) syncEditor() {
	cur := m.store.CurrentTemplate.Get()
	if cur == m.editorSrc {
		return
	}
	m.editorSrc = cur
	if cur == nil || cur.ID != m.editingID || !m.edited {
		m.loadEditor(cur)
	}
}

func (m *Model) loadEditor(t *model.Template) {
	m.edited = false
	if t == nil {
		m.editingID = 0
		m.title.SetValue("")
		m.desc.SetValue("")
		m.content.SetValue("")
		return
	}
	m.editingID = t.ID
	m.title.SetValue(t.Title)
	m.desc.SetValue(t.Description)
	m.content.SetValue(t.Content)
}

// folderOrder is the filter cycle: all templates, then every folder by path.
func (m *Model) folderOrder() []int64 {
	folders := m.store.Folders.Get()
	ids := []int64{0}
	for _, f := range sortedFolders(folders) {
		ids = append(ids, f.ID)
	}
	return ids
}

// cycleFolder moves the filter along the folder order and refreshes the
// newly selected folder's templates from the server.
func (m *Model) cycleFolder(delta int) tea.Cmd {
	ids := m.folderOrder()
	cur := m.store.FolderFilter.Get()
	pos := 0
	for i, id := range ids {
		if id == cur {
			pos = i
		}
	}
	pos = (pos + delta + len(ids)) % len(ids)
	m.selected = 0
	id := ids[pos]
	if !m.store.SetFolderFilter(id) || id == 0 {
		return nil
	}
	return m.run(state.ActionLoad, func(ctx context.Context) error {
		_, err := m.ops.FolderTemplates(ctx, id)
		return err
	}, nil)
}

// folderByPath resolves a slash-separated folder path typed by the user.
// The empty path is the root.
func (m *Model) folderByPath(p string) (int64, bool) {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return 0, true
	}
	folders := m.store.Folders.Get()
	for _, f := range folders {
		if strings.EqualFold(model.FolderPath(folders, f.ID), p) {
			return f.ID, true
		}
	}
	return 0, false
}

func (m *Model) openPrompt(kind promptKind, value string) {
	m.promptKind = kind
	m.prompt.SetValue(value)
	m.prompt.CursorEnd()
	m.setFocus(focusPrompt)
	m.markDirty(RegionStatus)
}

func (m *Model) submitPrompt() tea.Cmd {
	name := m.prompt.Value()
	kind := m.promptKind
	folder := m.store.FolderFilter.Get()
	m.prompt.SetValue("")
	m.setFocus(focusList)

	if kind == promptMoveFolder {
		parent, ok := m.folderByPath(name)
		if !ok {
			m.errs.Handle(apperr.Validation(apperr.CodeInvalid, "parent",
				fmt.Sprintf("no folder at %q", name)).With("action", "Move folder"), false)
			return nil
		}
		return m.run(state.ActionFolder, func(ctx context.Context) error {
			_, err := m.ops.MoveFolder(ctx, folder, parent)
			return err
		}, nil)
	}

	return m.run(state.ActionFolder, func(ctx context.Context) error {
		var err error
		if kind == promptRenameFolder {
			_, err = m.ops.RenameFolder(ctx, folder, name)
		} else {
			_, err = m.ops.CreateFolder(ctx, name, folder)
		}
		return err
	}, nil)
}

func (m *Model) deleteFolder() tea.Cmd {
	id := m.store.FolderFilter.Get()
	if id == 0 {
		return nil
	}
	return m.run(state.ActionFolder, func(ctx context.Context) error {
		return m.ops.DeleteFolder(ctx, id)
	}, func() tea.Cmd {
		m.store.SetFolderFilter(0)
		return nil
	})
}

// reload fetches templates and folders, reporting failures.
func (m *Model) reload() tea.Cmd {
	return m.run(state.ActionLoad, func(ctx context.Context) error {
		if _, err := m.ops.LoadAll(ctx, model.ListOptions{}); err != nil {
			return err
		}
		return m.ops.LoadFolders(ctx)
	}, nil)
}

// refresh reloads silently after a remote change. Changes arriving while a
// refresh runs collapse into one follow-up refresh.
func (m *Model) refresh() tea.Cmd {
	if m.refreshing {
		m.refreshPending = true
		return nil
	}
	m.refreshing = true
	ctx := m.ctx
	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				msg = refreshedMsg{err: m.errs.Recovered("refresh", r)}
			}
		}()
		return refreshedMsg{err: m.ops.Refresh(ctx)}
	}
}

func (m *Model) exportAll() tea.Cmd {
	var path string
	return m.run(state.ActionExport, func(ctx context.Context) error {
		p, err := m.writeExport(ctx)
		path = p
		return err
	}, func() tea.Cmd {
		m.toasts.Notify(apperr.LevelSuccess, "Exported to "+path)
		return nil
	})
}

func (m *Model) writeExport(ctx context.Context) (string, error) {
	name := filepath.Join(m.opts.ExportDir, export.ArchiveName(time.Now()))
	f, err := os.Create(name)
	if err != nil {
		return "", m.errs.Handle(apperr.Classify(err).With("action", "Export"), false)
	}
	_, err = m.ops.ExportAll(ctx, f, export.Options{Formats: m.opts.ExportFormats})
	if cerr := f.Close(); err == nil && cerr != nil {
		err = m.errs.Handle(apperr.Classify(cerr).With("action", "Export"), false)
	}
	if err != nil {
		os.Remove(name)
		return "", err
	}
	return name, nil
}

// watchLoop keeps the event stream connected until the model closes.
func (m *Model) watchLoop() error {
	for {
		err := m.watch(m.ctx, func(ev model.Event) {
			select {
			case m.remote <- ev:
			case <-m.ctx.Done():
			}
		})
		if m.ctx.Err() != nil {
			return nil
		}
		m.logger.Debug("event stream ended, reconnecting", zap.Error(err))
		select {
		case <-m.ctx.Done():
			return nil
		case <-time.After(m.opts.ReconnectDelay):
		}
	}
}

func (m *Model) listenRemote() tea.Cmd {
	ch, done := m.remote, m.ctx.Done()
	return func() tea.Msg {
		select {
		case ev := <-ch:
			return remoteMsg{ev: ev}
		case <-done:
			return nil
		}
	}
}

func (m *Model) toastTick() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return toastTickMsg{} })
}
