package templates

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/ziadkadry99/prompted/internal/db"
	"github.com/ziadkadry99/prompted/internal/model"
)

// RecentLimit is how many templates a recent listing returns.
const RecentLimit = 10

// ErrFolderNotFound is returned when a template is filed under a folder
// that does not exist.
var ErrFolderNotFound = errors.New("folder not found")

// ValidationError is an input problem reported to the client as 400.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ListFilter narrows a listing.
type ListFilter struct {
	Search    string
	Favorites bool
	Recent    bool
	FolderID  int64
}

// Store manages persistence of templates.
type Store struct {
	db *db.DB

	mu    sync.RWMutex
	hooks []func(model.Event)
}

// NewStore creates a new template store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// OnChange registers fn to be called after every committed change.
func (s *Store) OnChange(fn func(model.Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

func (s *Store) emit(typ string, id int64) {
	s.mu.RLock()
	hooks := append(([]func(model.Event))(nil), s.hooks...)
	s.mu.RUnlock()
	for _, fn := range hooks {
		fn(model.Event{Type: typ, ID: id})
	}
}

const selectTemplate = `SELECT t.id, t.title, t.content, t.description, t.folder_id, COALESCE(f.name, ''),
       t.is_favorite, t.created_at, t.updated_at
  FROM templates t LEFT JOIN folders f ON f.id = t.folder_id`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTemplate(row scanner) (*model.Template, error) {
	var t model.Template
	var folderID sql.NullInt64
	var createdAt, updatedAt string
	if err := row.Scan(&t.ID, &t.Title, &t.Content, &t.Description, &folderID, &t.FolderName,
		&t.IsFavorite, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if folderID.Valid {
		t.FolderID = &folderID.Int64
	}
	t.ContentLength = utf8.RuneCountInString(t.Content)
	t.CreatedAt = db.ParseTime(createdAt)
	t.UpdatedAt = db.ParseTime(updatedAt)
	return &t, nil
}

// List returns templates, most recently updated first.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]model.Template, error) {
	query := selectTemplate
	var where []string
	var args []interface{}

	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		where = append(where, "(t.title LIKE ? OR t.content LIKE ? OR t.description LIKE ?)")
		args = append(args, like, like, like)
	}
	if filter.Favorites {
		where = append(where, "t.is_favorite = 1")
	}
	if filter.FolderID != 0 {
		where = append(where, "t.folder_id = ?")
		args = append(args, filter.FolderID)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY t.updated_at DESC, t.id DESC"
	if filter.Recent {
		query += fmt.Sprintf(" LIMIT %d", RecentLimit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing templates: %w", err)
	}
	defer rows.Close()

	var out []model.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning template: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// Get returns the template with id, or nil if there is none.
func (s *Store) Get(ctx context.Context, id int64) (*model.Template, error) {
	t, err := scanTemplate(s.db.QueryRowContext(ctx, selectTemplate+" WHERE t.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting template %d: %w", id, err)
	}
	return t, nil
}

// Validate checks a template's fields against the schema limits.
func Validate(t model.Template) error {
	switch {
	case strings.TrimSpace(t.Title) == "":
		return &ValidationError{"Title is required"}
	case strings.TrimSpace(t.Content) == "":
		return &ValidationError{"Content is required"}
	case utf8.RuneCountInString(t.Title) > model.MaxTitleLength:
		return &ValidationError{fmt.Sprintf("Title must be at most %d characters", model.MaxTitleLength)}
	case utf8.RuneCountInString(t.Description) > model.MaxDescriptionLength:
		return &ValidationError{fmt.Sprintf("Description must be at most %d characters", model.MaxDescriptionLength)}
	}
	return nil
}

func (s *Store) checkFolder(ctx context.Context, folderID *int64) error {
	if folderID == nil {
		return nil
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM folders WHERE id = ?", *folderID).Scan(&n); err != nil {
		return fmt.Errorf("checking folder: %w", err)
	}
	if n == 0 {
		return ErrFolderNotFound
	}
	return nil
}

// Create inserts a new template.
func (s *Store) Create(ctx context.Context, in model.TemplateInput) (*model.Template, error) {
	t := model.Template{
		Title:       strings.TrimSpace(in.Title),
		Content:     in.Content,
		Description: in.Description,
		FolderID:    in.FolderID,
	}
	if t.FolderID != nil && *t.FolderID == 0 {
		t.FolderID = nil
	}
	if err := Validate(t); err != nil {
		return nil, err
	}
	if err := s.checkFolder(ctx, t.FolderID); err != nil {
		return nil, err
	}

	now := db.Now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO templates (title, content, description, folder_id, is_favorite, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 0, ?, ?)`,
		t.Title, t.Content, t.Description, nullID(t.FolderID), now, now)
	if err != nil {
		return nil, fmt.Errorf("inserting template: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading template id: %w", err)
	}

	created, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.emit(model.EventTemplateSaved, id)
	return created, nil
}

// Patch applies the non-nil fields of p to the template with id. It returns
// nil when the template does not exist.
func (s *Store) Patch(ctx context.Context, id int64, p model.TemplatePatch) (*model.Template, error) {
	cur, err := s.Get(ctx, id)
	if err != nil || cur == nil {
		return nil, err
	}
	favoriteOnly := p.IsFavorite != nil && p.Title == nil && p.Content == nil &&
		p.Description == nil && p.FolderID == nil

	next := *cur
	p.Apply(&next)
	next.Title = strings.TrimSpace(next.Title)
	if err := Validate(next); err != nil {
		return nil, err
	}
	if p.FolderID != nil {
		if err := s.checkFolder(ctx, next.FolderID); err != nil {
			return nil, err
		}
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE templates SET title = ?, content = ?, description = ?, folder_id = ?, is_favorite = ?, updated_at = ?
		 WHERE id = ?`,
		next.Title, next.Content, next.Description, nullID(next.FolderID), next.IsFavorite, db.Now(), id)
	if err != nil {
		return nil, fmt.Errorf("updating template %d: %w", id, err)
	}

	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if favoriteOnly {
		s.emit(model.EventTemplateFavorited, id)
	} else {
		s.emit(model.EventTemplateSaved, id)
	}
	return updated, nil
}

// Delete removes the template with id and reports whether it existed.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM templates WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("deleting template %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting template %d: %w", id, err)
	}
	if n == 0 {
		return false, nil
	}
	s.emit(model.EventTemplateDeleted, id)
	return true, nil
}

func nullID(id *int64) interface{} {
	if id == nil {
		return nil
	}
	return *id
}
