package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/goleak"

	"github.com/ziadkadry99/prompted/internal/apperr"
	"github.com/ziadkadry99/prompted/internal/model"
)

func writeEnvelope(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{"status": "success", "data": data})
}

func TestListTemplatesDecodesEnvelope(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %q", r.Header.Get("Content-Type"))
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("missing X-Request-ID")
		}
		writeEnvelope(w, http.StatusOK, []model.Template{{ID: 1, Title: "a"}, {ID: 2, Title: "b"}})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, nil)
	list, err := c.ListTemplates(context.Background(), model.ListOptions{Favorites: true, FolderID: 3})
	if err != nil {
		t.Fatalf("ListTemplates: %v", err)
	}
	if len(list) != 2 || list[1].Title != "b" {
		t.Errorf("unexpected list: %+v", list)
	}
	if gotQuery != "favorites=true&folder_id=3" {
		t.Errorf("query = %q", gotQuery)
	}
	if s := c.Stats(); s.Total != 1 || s.Successful != 1 || s.Failed != 0 {
		t.Errorf("stats = %+v", s)
	}
}

func TestNon2xxBecomesTypedAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"status":"error","message":"Template not found"}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, nil)
	_, err := c.GetTemplate(context.Background(), 42)

	var e *apperr.Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *apperr.Error, got %T %v", err, err)
	}
	if e.Type != apperr.TypeAPI || e.Code != apperr.CodeNotFound || e.Status != 404 {
		t.Errorf("got %s/%s/%d", e.Type, e.Code, e.Status)
	}
	if e.Message != "Template not found" {
		t.Errorf("Message = %q", e.Message)
	}
	if s := c.Stats(); s.Failed != 1 {
		t.Errorf("Failed = %d, want 1", s.Failed)
	}
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(Config{BaseURL: url, Timeout: time.Second}, nil)
	err := c.DeleteTemplate(context.Background(), 1)
	if !apperr.IsType(err, apperr.TypeNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
}

// flakyTransport fails the first n requests with a transport error.
type flakyTransport struct {
	failures atomic.Int32
	calls    atomic.Int32
	next     http.RoundTripper
}

func (f *flakyTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	f.calls.Add(1)
	if f.failures.Add(-1) >= 0 {
		return nil, errors.New("connection reset by peer")
	}
	return f.next.RoundTrip(r)
}

func TestGETRetriedOnceOnTransientFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, []model.Folder{{ID: 1, Name: "Root"}})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, RetryGET: true}, nil)
	ft := &flakyTransport{next: http.DefaultTransport}
	ft.failures.Store(1)
	c.http.Transport = ft

	folders, err := c.ListFolders(context.Background())
	if err != nil {
		t.Fatalf("ListFolders: %v", err)
	}
	if len(folders) != 1 {
		t.Errorf("folders = %+v", folders)
	}
	if ft.calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", ft.calls.Load())
	}
}

func TestMutatingVerbsNeverRetried(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusCreated, model.Template{ID: 9})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, RetryGET: true}, nil)
	ft := &flakyTransport{next: http.DefaultTransport}
	ft.failures.Store(1)
	c.http.Transport = ft

	_, err := c.CreateTemplate(context.Background(), model.TemplateInput{Title: "t", Content: "c"})
	if !apperr.IsType(err, apperr.TypeNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	if ft.calls.Load() != 1 {
		t.Errorf("POST attempted %d times, want 1", ft.calls.Load())
	}
}

func TestPatchSendsOnlySetFields(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method = %s, want PATCH", r.Method)
		}
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &body)
		writeEnvelope(w, http.StatusOK, model.Template{ID: 3, IsFavorite: true})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, nil)
	got, err := c.PatchTemplate(context.Background(), 3, model.TemplatePatch{IsFavorite: model.Bool(true)})
	if err != nil {
		t.Fatalf("PatchTemplate: %v", err)
	}
	if !got.IsFavorite {
		t.Error("expected favorite in response")
	}
	if len(body) != 1 || body["is_favorite"] != true {
		t.Errorf("body = %v, want only is_favorite", body)
	}
}

func TestMalformedResponseIsDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, nil)
	_, err := c.GetTemplate(context.Background(), 1)
	if !apperr.Is(err, apperr.CodeDecode) {
		t.Errorf("expected decode error, got %v", err)
	}
}

func TestWatchDeliversEvents(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws/events" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteJSON(model.Event{Type: model.EventTemplateSaved, ID: 4})
		conn.WriteJSON(model.Event{Type: model.EventTemplateDeleted, ID: 5})
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	events := make(chan model.Event, 2)
	errc := make(chan error, 1)
	go func() {
		errc <- c.Watch(ctx, func(ev model.Event) { events <- ev })
	}()

	for i, want := range []int64{4, 5} {
		select {
		case ev := <-events:
			if ev.ID != want {
				t.Errorf("event %d id = %d, want %d", i, ev.ID, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for event")
		}
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Watch returned %v after cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
