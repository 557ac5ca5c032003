package templates

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/prompted/internal/export"
	"github.com/ziadkadry99/prompted/internal/model"
)

// RegisterRoutes mounts the template API and the single-template export
// endpoints.
func RegisterRoutes(r chi.Router, store *Store) {
	r.Route("/api/templates", func(r chi.Router) {
		r.Get("/", handleList(store))
		r.Post("/", handleCreate(store))
		r.Get("/{id}", handleGet(store))
		r.Put("/{id}", handleUpdate(store))
		r.Patch("/{id}", handlePatch(store))
		r.Put("/{id}/favorite", handleFavorite(store))
		r.Delete("/{id}", handleDelete(store))
	})
	r.Get("/export/md/{id}", handleExport(store, export.FormatMarkdown))
	r.Get("/export/txt/{id}", handleExport(store, export.FormatText))
}

func handleList(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := ListFilter{
			Search:    strings.TrimSpace(q.Get("search")),
			Favorites: q.Get("favorites") == "true",
			Recent:    q.Get("recent") == "true",
		}
		if v := q.Get("folder_id"); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				filter.FolderID = n
			}
		}

		list, err := store.List(r.Context(), filter)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if list == nil {
			list = []model.Template{}
		}
		writeList(w, list, len(list))
	}
}

func handleGet(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}
		t, err := store.Get(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if t == nil {
			writeError(w, http.StatusNotFound, "Template not found")
			return
		}
		writeData(w, http.StatusOK, t)
	}
}

func handleCreate(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in model.TemplateInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		created, err := store.Create(r.Context(), in)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeData(w, http.StatusCreated, created)
	}
}

// handleUpdate replaces the fields present in the body. Title and content
// must be present.
func handleUpdate(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}
		var p model.TemplatePatch
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if p.Title == nil {
			writeError(w, http.StatusBadRequest, "Title is required")
			return
		}
		if p.Content == nil {
			writeError(w, http.StatusBadRequest, "Content is required")
			return
		}
		patchAndRespond(w, r, store, id, p)
	}
}

func handlePatch(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}
		var p model.TemplatePatch
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		patchAndRespond(w, r, store, id, p)
	}
}

type favoriteRequest struct {
	IsFavorite *bool `json:"is_favorite"`
}

func handleFavorite(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}
		var req favoriteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IsFavorite == nil {
			writeError(w, http.StatusBadRequest, "is_favorite is required")
			return
		}
		patchAndRespond(w, r, store, id, model.TemplatePatch{IsFavorite: req.IsFavorite})
	}
}

func patchAndRespond(w http.ResponseWriter, r *http.Request, store *Store, id int64, p model.TemplatePatch) {
	updated, err := store.Patch(r.Context(), id, p)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if updated == nil {
		writeError(w, http.StatusNotFound, "Template not found")
		return
	}
	writeData(w, http.StatusOK, updated)
}

func handleDelete(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}
		found, err := store.Delete(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !found {
			writeError(w, http.StatusNotFound, "Template not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "success",
			"message": "Template deleted successfully",
		})
	}
}

func handleExport(store *Store, format export.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}
		t, err := store.Get(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if t == nil {
			writeError(w, http.StatusNotFound, "Template not found")
			return
		}

		var body []byte
		contentType := "text/markdown; charset=utf-8"
		switch format {
		case export.FormatText:
			body = []byte(export.Text(*t, t.FolderName, time.Now()))
			contentType = "text/plain; charset=utf-8"
		default:
			body, err = export.Markdown(*t, t.FolderName, time.Now())
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
		}

		name := strings.ReplaceAll(export.SanitizeFilename(t.Title), " ", "_") + "." + string(format)
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
		w.Write(body)
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func writeStoreError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, ErrFolderNotFound):
		writeError(w, http.StatusBadRequest, "Folder not found")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeData(w http.ResponseWriter, status int, v interface{}) {
	writeJSON(w, status, map[string]interface{}{"status": "success", "data": v})
}

func writeList(w http.ResponseWriter, v interface{}, count int) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "success", "data": v, "count": count})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"status": "error", "message": msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
