package state

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ziadkadry99/prompted/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(nil, Options{})
}

func ids(list []model.Template) []int64 {
	out := make([]int64, 0, len(list))
	for _, t := range list {
		out = append(out, t.ID)
	}
	return out
}

func TestSetTemplatesSameSliceNotifiesOnce(t *testing.T) {
	s := newTestStore(t)
	calls := 0
	s.Templates.Subscribe(func(_, _ []model.Template) { calls++ })

	list := []model.Template{{ID: 1, Title: "a"}, {ID: 2, Title: "b"}}
	s.SetTemplates(list)
	s.SetTemplates(list)

	if calls != 1 {
		t.Errorf("subscriber fired %d times, want 1", calls)
	}
}

func TestSetTemplatesEqualContentNewSliceNotifies(t *testing.T) {
	s := newTestStore(t)
	calls := 0
	s.Templates.Subscribe(func(_, _ []model.Template) { calls++ })

	s.SetTemplates([]model.Template{{ID: 1}})
	s.SetTemplates([]model.Template{{ID: 1}})

	if calls != 2 {
		t.Errorf("reference equality: distinct slices should both notify, got %d", calls)
	}
}

func TestSubscribersRunInRegistrationOrder(t *testing.T) {
	s := newTestStore(t)
	var order []string
	s.Tab.Subscribe(func(_, _ Tab) { order = append(order, "first") })
	s.Tab.Subscribe(func(_, _ Tab) { order = append(order, "second") })
	s.Tab.Subscribe(func(_, _ Tab) { order = append(order, "third") })

	s.SetTab(TabManager)

	if diff := cmp.Diff([]string{"first", "second", "third"}, order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestSubscriberSeesCompletedMutation(t *testing.T) {
	s := newTestStore(t)
	s.SetTemplates([]model.Template{{ID: 1}, {ID: 2}})

	var seen []int64
	s.Templates.Subscribe(func(_, next []model.Template) {
		// Reading back through the store must observe the new collection.
		seen = ids(s.Templates.Get())
		if len(next) != len(seen) {
			t.Errorf("callback value and store disagree: %d vs %d", len(next), len(seen))
		}
	})

	s.RemoveTemplate(1)
	if diff := cmp.Diff([]int64{2}, seen); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestUnsubscribe(t *testing.T) {
	s := newTestStore(t)
	calls := 0
	unsub := s.Query.Subscribe(func(_, _ string) { calls++ })

	s.SetQuery("a")
	unsub()
	unsub()
	s.SetQuery("ab")

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if s.Query.Subscribers() != 0 {
		t.Errorf("Subscribers = %d, want 0", s.Query.Subscribers())
	}
}

func TestSetSameScalarIsNoop(t *testing.T) {
	s := newTestStore(t)
	calls := 0
	s.Tab.Subscribe(func(_, _ Tab) { calls++ })

	if s.SetTab(TabEditor) {
		t.Error("setting the current tab should report no change")
	}
	if calls != 0 {
		t.Errorf("calls = %d, want 0", calls)
	}
}

func TestPanickingSubscriberDoesNotStopOthers(t *testing.T) {
	s := newTestStore(t)
	reached := false
	s.Loading.Subscribe(func(_, _ bool) { panic("boom") })
	s.Loading.Subscribe(func(_, _ bool) { reached = true })

	s.SetLoading(true)

	if !reached {
		t.Error("second subscriber was not called")
	}
}

func TestAddTemplateKeepsIDsUnique(t *testing.T) {
	s := newTestStore(t)
	s.AddTemplate(model.Template{ID: 1, Title: "one"})
	s.AddTemplate(model.Template{ID: 2, Title: "two"})
	s.AddTemplate(model.Template{ID: 1, Title: "one again"})

	list := s.Templates.Get()
	if diff := cmp.Diff([]int64{1, 2}, ids(list)); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
	if list[0].Title != "one again" {
		t.Errorf("Title = %q, want replacement in place", list[0].Title)
	}
}

func TestSetTemplatesDedupes(t *testing.T) {
	s := newTestStore(t)
	s.SetTemplates([]model.Template{{ID: 1, Title: "a"}, {ID: 2}, {ID: 1, Title: "b"}})

	list := s.Templates.Get()
	if diff := cmp.Diff([]int64{1, 2}, ids(list)); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
	if list[0].Title != "b" {
		t.Errorf("Title = %q, want last occurrence", list[0].Title)
	}
}

func TestUpdateTemplateNeverChangesID(t *testing.T) {
	s := newTestStore(t)
	s.SetTemplates([]model.Template{{ID: 5, Title: "x"}})

	if !s.UpdateTemplate(5, model.TemplatePatch{Title: model.String("y")}) {
		t.Fatal("expected template to be found")
	}
	got, ok := s.Template(5)
	if !ok || got.Title != "y" || got.ID != 5 {
		t.Errorf("got %+v", got)
	}

	if s.UpdateTemplate(99, model.TemplatePatch{Title: model.String("z")}) {
		t.Error("updating an unknown id should report false")
	}
}

func TestUpdateTemplateDoesNotMutatePreviousSnapshot(t *testing.T) {
	s := newTestStore(t)
	s.SetTemplates([]model.Template{{ID: 1, Title: "before"}})
	before := s.Templates.Get()

	s.UpdateTemplate(1, model.TemplatePatch{Title: model.String("after")})

	if before[0].Title != "before" {
		t.Errorf("old snapshot mutated: %q", before[0].Title)
	}
}

func TestCurrentTemplateFollowsCollection(t *testing.T) {
	s := newTestStore(t)
	s.SetTemplates([]model.Template{{ID: 1, Title: "a"}})
	tmpl, _ := s.Template(1)
	s.SetCurrentTemplate(&tmpl)

	s.UpdateTemplate(1, model.TemplatePatch{IsFavorite: model.Bool(true)})
	if cur := s.CurrentTemplate.Get(); cur == nil || !cur.IsFavorite {
		t.Fatalf("current template not refreshed: %+v", cur)
	}

	s.RemoveTemplate(1)
	if cur := s.CurrentTemplate.Get(); cur != nil {
		t.Errorf("current template should be cleared after removal, got %+v", cur)
	}
}

func TestRemoveFolderReparentsAndResetsFilter(t *testing.T) {
	s := newTestStore(t)
	s.SetFolders([]model.Folder{
		{ID: 1, Name: "Root"},
		{ID: 2, Name: "Child", ParentID: model.ID(1)},
	})
	s.SetTemplates([]model.Template{{ID: 10, FolderID: model.ID(1)}})
	s.SetFolderFilter(1)

	if !s.RemoveFolder(1) {
		t.Fatal("expected folder to be removed")
	}

	child, _ := s.Folder(2)
	if child.ParentID != nil {
		t.Errorf("child ParentID = %v, want nil", *child.ParentID)
	}
	tmpl, _ := s.Template(10)
	if tmpl.FolderID != nil {
		t.Errorf("template FolderID = %v, want nil", *tmpl.FolderID)
	}
	if s.FolderFilter.Get() != 0 {
		t.Errorf("FolderFilter = %d, want 0", s.FolderFilter.Get())
	}
}

func TestBusyFlags(t *testing.T) {
	s := newTestStore(t)

	if !s.MarkBusy(ActionSave) {
		t.Fatal("first MarkBusy should succeed")
	}
	if s.MarkBusy(ActionSave) {
		t.Error("second MarkBusy for the same action should fail")
	}
	if !s.MarkBusy(ActionDelete) {
		t.Error("independent action should not be blocked")
	}

	s.ClearBusy(ActionSave)
	if s.IsBusy(ActionSave) {
		t.Error("save still busy after ClearBusy")
	}
	if !s.IsBusy(ActionDelete) {
		t.Error("delete should remain busy")
	}
}

func TestDefaults(t *testing.T) {
	s := New(nil, Options{Theme: ThemeDark, SidebarCollapsed: true})
	if s.Tab.Get() != TabEditor {
		t.Errorf("Tab = %s, want editor", s.Tab.Get())
	}
	if s.Theme.Get() != ThemeDark {
		t.Errorf("Theme = %s, want dark", s.Theme.Get())
	}
	if !s.SidebarCollapsed.Get() {
		t.Error("SidebarCollapsed should come from options")
	}
	if ThemeLight.Toggle() != ThemeDark || ThemeDark.Toggle() != ThemeLight {
		t.Error("Toggle is not symmetric")
	}
}

func TestNotificationsFollowMutationOrder(t *testing.T) {
	s := newTestStore(t)

	var (
		mu     sync.Mutex
		prev   = -1
		broken []string
	)
	s.Templates.Subscribe(func(old, next []model.Template) {
		mu.Lock()
		defer mu.Unlock()
		// Each delivery must pick up where the previous one left off.
		if prev >= 0 && len(old) != prev {
			broken = append(broken, "old value skipped a delivery")
		}
		if len(next) != len(old)+1 {
			broken = append(broken, "delivery out of order")
		}
		prev = len(next)
	})

	var wg sync.WaitGroup
	for i := 1; i <= 32; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			s.AddTemplate(model.Template{ID: id})
		}(int64(i))
	}
	wg.Wait()

	if len(broken) > 0 {
		t.Fatalf("%d ordering violations, first: %s", len(broken), broken[0])
	}
	if prev != 32 {
		t.Errorf("last delivered length = %d, want 32", prev)
	}
}

func TestRemoveFolderMovesTemplatesInOneChange(t *testing.T) {
	s := newTestStore(t)
	s.SetFolders([]model.Folder{{ID: 1, Name: "Work"}})
	s.SetTemplates([]model.Template{
		{ID: 10, FolderID: model.ID(1), FolderName: "Work"},
		{ID: 11, FolderID: model.ID(1), FolderName: "Work"},
		{ID: 12},
	})

	templateChanges := 0
	s.Templates.Subscribe(func(_, _ []model.Template) { templateChanges++ })
	var filedUnderGone int
	s.Folders.Subscribe(func(_, _ []model.Folder) {
		for _, tmpl := range s.Templates.Get() {
			if tmpl.InFolder(1) {
				filedUnderGone++
			}
		}
	})

	if !s.RemoveFolder(1) {
		t.Fatal("expected folder to be removed")
	}
	if templateChanges != 1 {
		t.Errorf("template notifications = %d, want 1", templateChanges)
	}
	if filedUnderGone != 0 {
		t.Errorf("folder subscribers saw %d templates in the removed folder", filedUnderGone)
	}
	if tmpl, _ := s.Template(10); tmpl.FolderName != "" {
		t.Errorf("FolderName = %q, want empty", tmpl.FolderName)
	}
	if s.RemoveFolder(1) {
		t.Error("removing a missing folder should report false")
	}
}
