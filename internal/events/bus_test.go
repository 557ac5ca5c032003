package events

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ziadkadry99/prompted/internal/model"
)

func TestEmitOrderAndUnsubscribe(t *testing.T) {
	b := NewBus()
	var got []string
	b.Subscribe(func(ev Event) { got = append(got, "a:"+ev.Type) })
	unsub := b.Subscribe(func(ev Event) { got = append(got, "b:"+ev.Type) })

	b.Emit(TemplateSaved(model.Template{ID: 1}))
	unsub()
	b.Emit(TemplateDeleted(1))

	want := []string{"a:template:saved", "b:template:saved", "a:template:deleted"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestConstructorsCarryEntity(t *testing.T) {
	ev := TemplateFavorited(model.Template{ID: 4, IsFavorite: true})
	if ev.ID != 4 || ev.Template == nil || !ev.Template.IsFavorite {
		t.Errorf("unexpected event %+v", ev)
	}
	fe := FolderSaved(model.Folder{ID: 2, Name: "Work"})
	if fe.Type != model.EventFolderSaved || fe.Folder.Name != "Work" {
		t.Errorf("unexpected event %+v", fe)
	}
}

func TestNilBusDropsEvents(t *testing.T) {
	var b *Bus
	b.Emit(FolderDeleted(1))
}
