package ui

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ziadkadry99/prompted/internal/apperr"
	"github.com/ziadkadry99/prompted/internal/db"
	"github.com/ziadkadry99/prompted/internal/events"
	"github.com/ziadkadry99/prompted/internal/gateway"
	"github.com/ziadkadry99/prompted/internal/logging"
	"github.com/ziadkadry99/prompted/internal/model"
	"github.com/ziadkadry99/prompted/internal/ops"
	"github.com/ziadkadry99/prompted/internal/server"
	"github.com/ziadkadry99/prompted/internal/state"
)

type harness struct {
	m   *Model
	ops *ops.Service
	ts  *httptest.Server
}

func setupTestModel(t *testing.T) *harness {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	srv := server.New(server.Config{}, database, logging.Nop())
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	gw := gateway.New(gateway.Config{BaseURL: ts.URL, Timeout: 5 * time.Second}, logging.Nop())
	st := state.New(nil, state.Options{Theme: state.ThemeDark})
	errs := apperr.NewHandler(nil, nil)
	bus := events.NewBus()
	svc := ops.New(gw, st, errs, bus, nil)

	m := New(Deps{Ops: svc, Errors: errs, Bus: bus}, Options{MinQueryLength: 2})
	t.Cleanup(m.Close)
	return &harness{m: m, ops: svc, ts: ts}
}

func (h *harness) create(t *testing.T, title, content string) model.Template {
	t.Helper()
	tmpl, err := h.ops.Create(context.Background(), model.TemplateInput{Title: title, Content: content})
	if err != nil {
		t.Fatalf("Create(%q): %v", title, err)
	}
	h.m.flush()
	return *tmpl
}

// drive runs cmd and feeds its message back through Update until the chain
// ends. Only use it for operation commands; timers would block.
func drive(m *Model, cmd tea.Cmd) {
	for cmd != nil {
		msg := cmd()
		if msg == nil {
			return
		}
		_, cmd = m.Update(msg)
	}
}

func press(m *Model, k tea.KeyType) tea.Cmd {
	_, cmd := m.Update(tea.KeyMsg{Type: k})
	return cmd
}

func typeRunes(m *Model, s string) {
	for _, r := range s {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

// runSearch types q into the search box and delivers the debounce tick.
func runSearch(m *Model, q string) {
	press(m, tea.KeyCtrlF)
	typeRunes(m, q)
	m.Update(searchTickMsg{gen: m.searchGen, query: m.search.Value()})
}

func toastTexts(m *Model) string {
	var parts []string
	for _, t := range m.toasts.List() {
		parts = append(parts, t.Text)
	}
	return strings.Join(parts, " | ")
}

func TestNewRendersEveryRegionOnce(t *testing.T) {
	h := setupTestModel(t)
	for _, r := range allRegions() {
		if got := h.m.RenderCount(r); got != 1 {
			t.Errorf("%s rendered %d times, want 1", r, got)
		}
	}
	if vs := h.m.ViewState(); vs.Tab != state.TabEditor || vs.Mode != ModeNormal {
		t.Errorf("initial view state = %+v", vs)
	}
}

func TestSwitchTabIsIdempotent(t *testing.T) {
	h := setupTestModel(t)
	m := h.m

	press(m, tea.KeyTab)
	if m.ViewState().Tab != state.TabManager {
		t.Fatalf("tab = %s, want manager", m.ViewState().Tab)
	}
	tabs, list := m.RenderCount(RegionTabs), m.RenderCount(RegionList)

	m.SwitchTab(state.TabManager)
	m.flush()
	if m.RenderCount(RegionTabs) != tabs || m.RenderCount(RegionList) != list {
		t.Errorf("switching to the active tab re-rendered: tabs %d->%d list %d->%d",
			tabs, m.RenderCount(RegionTabs), list, m.RenderCount(RegionList))
	}
}

func TestRefreshLoadsTemplates(t *testing.T) {
	h := setupTestModel(t)
	if _, err := h.ops.Create(context.Background(), model.TemplateInput{Title: "Alpha", Content: "a"}); err != nil {
		t.Fatal(err)
	}
	h.ops.Store().SetTemplates(nil)

	drive(h.m, press(h.m, tea.KeyCtrlR))
	if got := len(h.m.store.Templates.Get()); got != 1 {
		t.Fatalf("templates after reload = %d, want 1", got)
	}
	if h.m.store.Busy.Get() != 0 {
		t.Errorf("busy = %v after reload", h.m.store.Busy.Get())
	}
}

func TestSearchBelowThresholdKeepsList(t *testing.T) {
	h := setupTestModel(t)
	h.create(t, "Alpha", "first")
	h.create(t, "Beta", "second")
	m := h.m
	press(m, tea.KeyTab)
	press(m, tea.KeyCtrlF)
	before := m.RenderCount(RegionList)

	typeRunes(m, "a")
	m.Update(searchTickMsg{gen: m.searchGen, query: m.search.Value()})
	if m.store.Query.Get() != "a" {
		t.Fatalf("query = %q", m.store.Query.Get())
	}
	if m.RenderCount(RegionList) != before {
		t.Error("one-rune query re-rendered the list")
	}
	if m.ViewState().Mode != ModeNormal {
		t.Error("one-rune query entered search mode")
	}
	if got := len(m.visible()); got != 2 {
		t.Errorf("visible = %d, want the full list", got)
	}

	typeRunes(m, "l")
	m.Update(searchTickMsg{gen: m.searchGen, query: m.search.Value()})
	if m.RenderCount(RegionList) != before+1 {
		t.Errorf("list renders = %d, want %d", m.RenderCount(RegionList), before+1)
	}
	if m.ViewState().Mode != ModeSearching {
		t.Error("two-rune query did not enter search mode")
	}
	got := m.visible()
	if len(got) != 1 || got[0].Title != "Alpha" {
		t.Errorf("results = %+v, want Alpha only", got)
	}
}

func TestStaleSearchTickIsDropped(t *testing.T) {
	h := setupTestModel(t)
	m := h.m
	press(m, tea.KeyCtrlF)
	typeRunes(m, "al")
	stale := m.searchGen - 1

	m.Update(searchTickMsg{gen: stale, query: "a"})
	if q := m.store.Query.Get(); q != "" {
		t.Errorf("stale tick applied query %q", q)
	}
	m.Update(searchTickMsg{gen: m.searchGen, query: "al"})
	if q := m.store.Query.Get(); q != "al" {
		t.Errorf("query = %q, want al", q)
	}
}

func TestEscapeRestoresList(t *testing.T) {
	h := setupTestModel(t)
	h.create(t, "Alpha", "first")
	h.create(t, "Beta", "second")
	m := h.m

	runSearch(m, "beta")
	if len(m.visible()) != 1 {
		t.Fatalf("search should narrow the list, got %d", len(m.visible()))
	}
	press(m, tea.KeyEsc)
	if m.store.Query.Get() != "" || m.search.Value() != "" {
		t.Errorf("escape left query %q / input %q", m.store.Query.Get(), m.search.Value())
	}
	if m.ViewState().Mode != ModeNormal {
		t.Error("escape did not leave search mode")
	}
	if len(m.visible()) != 2 {
		t.Errorf("visible = %d, want 2", len(m.visible()))
	}
	if m.focus != focusList {
		t.Errorf("focus = %d, want list", m.focus)
	}
}

func TestCardActionsTargetSelectedTemplate(t *testing.T) {
	h := setupTestModel(t)
	first := h.create(t, "First", "one")
	second := h.create(t, "Second", "two")
	m := h.m
	press(m, tea.KeyTab)

	press(m, tea.KeyDown)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("f")})
	drive(m, cmd)

	// The favorite key must have reached the second card only.
	got2, _ := m.store.Template(second.ID)
	got1, _ := m.store.Template(first.ID)
	if !got2.IsFavorite || got1.IsFavorite {
		t.Fatalf("favorites: first=%v second=%v", got1.IsFavorite, got2.IsFavorite)
	}
}

func TestDeleteRemovesSelected(t *testing.T) {
	h := setupTestModel(t)
	keep := h.create(t, "Keep", "one")
	gone := h.create(t, "Gone", "two")
	m := h.m
	press(m, tea.KeyTab)
	press(m, tea.KeyDown)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	drive(m, cmd)

	if _, ok := m.store.Template(gone.ID); ok {
		t.Error("selected template still loaded")
	}
	if _, ok := m.store.Template(keep.ID); !ok {
		t.Error("other template was removed")
	}
	if !strings.Contains(toastTexts(m), "Template deleted") {
		t.Errorf("toasts = %q", toastTexts(m))
	}
}

func TestDuplicateAddsCopy(t *testing.T) {
	h := setupTestModel(t)
	h.create(t, "Original", "body")
	m := h.m
	press(m, tea.KeyTab)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	drive(m, cmd)

	list := m.store.Templates.Get()
	if len(list) != 2 || list[1].Title != "Original (Copy)" {
		t.Errorf("templates = %+v", list)
	}
}

func TestFailedActionClearsBusyAndNamesAction(t *testing.T) {
	h := setupTestModel(t)
	h.create(t, "Alpha", "a")
	m := h.m
	press(m, tea.KeyTab)
	h.ts.Close()

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("f")})
	if !m.store.IsBusy(state.ActionFavorite) {
		t.Fatal("favorite should be busy while in flight")
	}
	// A second press while in flight is ignored.
	_, again := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("f")})
	if again != nil {
		t.Error("second favorite started while the first was in flight")
	}

	drive(m, cmd)
	if m.store.Busy.Get() != 0 {
		t.Errorf("busy = %v after failure", m.store.Busy.Get())
	}
	if !strings.Contains(toastTexts(m), "Favorite failed") {
		t.Errorf("toasts = %q, want the failed action named", toastTexts(m))
	}
	if tmpl, _ := m.store.Template(m.store.Templates.Get()[0].ID); tmpl.IsFavorite {
		t.Error("failed favorite changed local state")
	}
}

func TestSaveCreatesThenUpdates(t *testing.T) {
	h := setupTestModel(t)
	m := h.m

	press(m, tea.KeyCtrlN)
	if m.focus != focusTitle {
		t.Fatalf("focus = %d, want title", m.focus)
	}
	typeRunes(m, "Standup")
	m.setFocus(focusContent)
	typeRunes(m, "What did you do?")
	if !m.edited {
		t.Fatal("typing should mark the editor edited")
	}

	drive(m, press(m, tea.KeyCtrlS))
	list := m.store.Templates.Get()
	if len(list) != 1 || list[0].Title != "Standup" || list[0].Content != "What did you do?" {
		t.Fatalf("templates = %+v", list)
	}
	id := list[0].ID
	if m.editingID != id || m.edited {
		t.Errorf("editor: id=%d edited=%v, want id=%d clean", m.editingID, m.edited, id)
	}
	if !strings.Contains(toastTexts(m), "Template saved") {
		t.Errorf("toasts = %q", toastTexts(m))
	}

	m.setFocus(focusTitle)
	m.title.CursorEnd()
	typeRunes(m, "!")
	drive(m, press(m, tea.KeyCtrlS))
	list = m.store.Templates.Get()
	if len(list) != 1 || list[0].ID != id || list[0].Title != "Standup!" {
		t.Errorf("second save should update in place, got %+v", list)
	}
}

func TestSaveValidationWarns(t *testing.T) {
	h := setupTestModel(t)
	m := h.m
	press(m, tea.KeyCtrlN)

	drive(m, press(m, tea.KeyCtrlS))
	if len(m.store.Templates.Get()) != 0 {
		t.Error("empty template was saved")
	}
	if m.store.Busy.Get() != 0 {
		t.Error("busy flag left set")
	}
	toasts := m.toasts.List()
	if len(toasts) != 1 || toasts[0].Level != apperr.LevelWarning {
		t.Errorf("toasts = %+v, want one warning", toasts)
	}
}

func TestOpenLoadsEditor(t *testing.T) {
	h := setupTestModel(t)
	tmpl := h.create(t, "Review", "# Checklist")
	m := h.m
	press(m, tea.KeyTab)

	drive(m, press(m, tea.KeyEnter))
	if m.ViewState().Tab != state.TabEditor {
		t.Fatal("open should switch to the editor")
	}
	if m.editingID != tmpl.ID || m.title.Value() != "Review" || m.content.Value() != "# Checklist" {
		t.Errorf("editor fields: id=%d title=%q content=%q", m.editingID, m.title.Value(), m.content.Value())
	}
	if !strings.Contains(m.cache[RegionPreview], "Checklist") {
		t.Errorf("preview = %q", m.cache[RegionPreview])
	}
}

func TestThemeToggleRerendersEverything(t *testing.T) {
	h := setupTestModel(t)
	m := h.m
	var before [regionCount]int
	for _, r := range allRegions() {
		before[r] = m.RenderCount(r)
	}

	press(m, tea.KeyCtrlT)
	if m.store.Theme.Get() != state.ThemeLight {
		t.Fatalf("theme = %s", m.store.Theme.Get())
	}
	for _, r := range allRegions() {
		if m.RenderCount(r) != before[r]+1 {
			t.Errorf("%s renders = %d, want %d", r, m.RenderCount(r), before[r]+1)
		}
	}
}

func TestSidebarToggleOnlyTouchesSidebar(t *testing.T) {
	h := setupTestModel(t)
	m := h.m
	list, sidebar := m.RenderCount(RegionList), m.RenderCount(RegionSidebar)

	press(m, tea.KeyCtrlB)
	if !m.store.SidebarCollapsed.Get() {
		t.Fatal("sidebar not collapsed")
	}
	if m.RenderCount(RegionSidebar) != sidebar+1 || m.RenderCount(RegionList) != list {
		t.Errorf("sidebar %d->%d list %d->%d", sidebar, m.RenderCount(RegionSidebar), list, m.RenderCount(RegionList))
	}
}

func TestFolderPromptCreatesFolder(t *testing.T) {
	h := setupTestModel(t)
	m := h.m
	press(m, tea.KeyTab)

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("N")})
	if m.focus != focusPrompt {
		t.Fatalf("focus = %d, want prompt", m.focus)
	}
	typeRunes(m, "Work")
	drive(m, press(m, tea.KeyEnter))

	folders := m.store.Folders.Get()
	if len(folders) != 1 || folders[0].Name != "Work" {
		t.Fatalf("folders = %+v", folders)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("]")})
	if m.store.FolderFilter.Get() != folders[0].ID {
		t.Errorf("folder filter = %d, want %d", m.store.FolderFilter.Get(), folders[0].ID)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("]")})
	if m.store.FolderFilter.Get() != 0 {
		t.Errorf("cycling past the last folder should return to all, got %d", m.store.FolderFilter.Get())
	}
}

func TestRemoteChangesCoalesceRefreshes(t *testing.T) {
	h := setupTestModel(t)
	m := h.m

	_, first := m.Update(remoteMsg{ev: model.Event{Type: model.EventTemplateSaved, ID: 1}})
	if first == nil || !m.refreshing {
		t.Fatal("first remote change should start a refresh")
	}
	m.Update(remoteMsg{ev: model.Event{Type: model.EventTemplateSaved, ID: 2}})
	m.Update(remoteMsg{ev: model.Event{Type: model.EventTemplateDeleted, ID: 2}})
	if !m.refreshPending {
		t.Fatal("changes during a refresh should queue one follow-up")
	}

	_, follow := m.Update(refreshedMsg{})
	if follow == nil || m.refreshPending {
		t.Fatal("finished refresh should start exactly one follow-up")
	}
	_, done := m.Update(refreshedMsg{})
	if done != nil || m.refreshing {
		t.Error("refresh chain should end")
	}
}

func TestPanicsAreRecordedNotFatal(t *testing.T) {
	h := setupTestModel(t)
	m := h.m

	store := m.store
	m.store = nil
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlT})
	m.View()
	m.store = store

	if next != m || cmd != nil {
		t.Errorf("Update after a panic = (%v, %v), want the model and no command", next, cmd != nil)
	}
	s := m.errs.Stats(2, 0)
	if s.ByCode[apperr.CodeInvariant] != 2 {
		t.Fatalf("recorded %d invariant errors, want 2 (update and view)", s.ByCode[apperr.CodeInvariant])
	}
	if !strings.Contains(toastTexts(m), "Something went wrong") {
		t.Errorf("toasts = %q, want the failure shown", toastTexts(m))
	}
}

func TestPanickingCommandIsRecorded(t *testing.T) {
	h := setupTestModel(t)
	m := h.m
	boom := func() tea.Msg { panic("boom") }
	fine := func() tea.Msg { return toastTickMsg{} }

	if msg := m.guarded(boom)(); msg != nil {
		t.Errorf("panicking command produced %T", msg)
	}
	batch, ok := m.guarded(tea.Batch(fine, boom))().(tea.BatchMsg)
	if !ok || len(batch) != 2 {
		t.Fatalf("batch not preserved: %v", batch)
	}
	if _, ok := batch[0]().(toastTickMsg); !ok {
		t.Error("healthy batch member lost its message")
	}
	batch[1]()

	s := m.errs.Stats(1, 0)
	if s.ByCode[apperr.CodeInvariant] != 2 {
		t.Fatalf("recorded %d invariant errors, want 2", s.ByCode[apperr.CodeInvariant])
	}
	if !strings.Contains(s.Recent[0].Message, "panic in command") {
		t.Errorf("message = %q", s.Recent[0].Message)
	}
}

func TestCyclingIntoFolderLoadsItsTemplates(t *testing.T) {
	h := setupTestModel(t)
	ctx := context.Background()
	work, err := h.ops.CreateFolder(ctx, "Work", 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.ops.Create(ctx, model.TemplateInput{Title: "Plan", Content: "p", FolderID: model.ID(work.ID)}); err != nil {
		t.Fatal(err)
	}
	h.ops.Store().SetTemplates(nil)
	m := h.m
	press(m, tea.KeyTab)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("]")})
	if m.store.FolderFilter.Get() != work.ID {
		t.Fatalf("folder filter = %d, want %d", m.store.FolderFilter.Get(), work.ID)
	}
	drive(m, cmd)

	got := m.visible()
	if len(got) != 1 || got[0].Title != "Plan" {
		t.Errorf("visible = %+v, want the folder's template", got)
	}
	if m.store.Busy.Get() != 0 {
		t.Errorf("busy = %v after folder load", m.store.Busy.Get())
	}
}

func TestMoveFolderPrompt(t *testing.T) {
	h := setupTestModel(t)
	ctx := context.Background()
	work, err := h.ops.CreateFolder(ctx, "Work", 0)
	if err != nil {
		t.Fatal(err)
	}
	drafts, err := h.ops.CreateFolder(ctx, "Drafts", 0)
	if err != nil {
		t.Fatal(err)
	}
	m := h.m
	press(m, tea.KeyTab)
	movePrompt := func(filter int64, dest string) tea.Cmd {
		m.store.SetFolderFilter(filter)
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("M")})
		if m.focus != focusPrompt || m.promptKind != promptMoveFolder {
			t.Fatalf("focus = %d kind = %d, want the move prompt", m.focus, m.promptKind)
		}
		m.prompt.SetValue("")
		typeRunes(m, dest)
		return press(m, tea.KeyEnter)
	}

	drive(m, movePrompt(drafts.ID, "work"))
	if f, _ := m.store.Folder(drafts.ID); f.ParentID == nil || *f.ParentID != work.ID {
		t.Fatalf("Drafts parent = %v, want %d", f.ParentID, work.ID)
	}

	drive(m, movePrompt(work.ID, "Work/Drafts"))
	if f, _ := m.store.Folder(work.ID); f.ParentID != nil {
		t.Errorf("Work moved under its own child: parent %d", *f.ParentID)
	}
	if !strings.Contains(toastTexts(m), "Move folder failed") {
		t.Errorf("toasts = %q, want the refused move named", toastTexts(m))
	}

	if cmd := movePrompt(work.ID, "Nowhere"); cmd != nil {
		t.Error("unknown destination should not start a request")
	}
	toasts := m.toasts.List()
	if last := toasts[len(toasts)-1]; last.Level != apperr.LevelWarning || !strings.Contains(last.Text, "Move folder failed") {
		t.Errorf("last toast = %+v", last)
	}
}

func TestQuotedSearchMatchesWholeWords(t *testing.T) {
	h := setupTestModel(t)
	h.create(t, "Java notes", "x")
	h.create(t, "JavaScript tips", "y")

	runSearch(h.m, `"java"`)
	got := h.m.visible()
	if len(got) != 1 || got[0].Title != "Java notes" {
		t.Errorf("visible = %+v, want Java notes only", got)
	}
}

func TestToastsExpire(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ts := &toasts{ttl: time.Second, now: func() time.Time { return now }}
	for i := 0; i < maxToasts+1; i++ {
		ts.Notify(apperr.LevelInfo, "n")
	}
	if len(ts.List()) != maxToasts {
		t.Errorf("toasts = %d, want %d", len(ts.List()), maxToasts)
	}
	if ts.prune() {
		t.Error("fresh toasts pruned")
	}
	now = now.Add(2 * time.Second)
	if !ts.prune() || len(ts.List()) != 0 {
		t.Errorf("expired toasts kept: %d", len(ts.List()))
	}
}

func TestSuccessText(t *testing.T) {
	fav := model.Template{ID: 1, IsFavorite: true}
	tests := []struct {
		ev   events.Event
		want string
	}{
		{events.TemplateSaved(model.Template{ID: 1}), "Template saved"},
		{events.TemplateFavorited(fav), "Added to favorites"},
		{events.TemplateFavorited(model.Template{ID: 1}), "Removed from favorites"},
		{events.FolderDeleted(3), "Folder deleted"},
	}
	for _, tt := range tests {
		if got := successText(tt.ev); got != tt.want {
			t.Errorf("successText(%s) = %q, want %q", tt.ev.Type, got, tt.want)
		}
	}
}
