// Package folders persists the folder tree and serves it over HTTP.
package folders

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

var (
	// ErrParentNotFound is returned when a folder is placed under a parent
	// that does not exist.
	ErrParentNotFound = errors.New("parent folder not found")
	// ErrCycle is returned when a move would make a folder its own ancestor.
	ErrCycle = errors.New("folder cannot be moved into itself or a descendant")
)

// ValidationError is an input problem reported to the client as 400.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Update is a partial folder change. Nil fields are left untouched and a
// ParentID of 0 moves the folder to the top level.
type Update struct {
	Name     *string `json:"name"`
	ParentID *int64  `json:"parent_id"`
}

// Store manages persistence of folders.
type Store struct {
	db *db.DB

	mu    sync.RWMutex
	hooks []func(model.Event)
}

// NewStore creates a new folder store.
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

const selectFolder = `SELECT f.id, f.name, f.parent_id,
       (SELECT COUNT(*) FROM folders c WHERE c.parent_id = f.id),
       (SELECT COUNT(*) FROM templates t WHERE t.folder_id = f.id),
       f.created_at, f.updated_at
  FROM folders f`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanFolder(row scanner) (*model.Folder, error) {
	var f model.Folder
	var parentID sql.NullInt64
	var createdAt, updatedAt string
	if err := row.Scan(&f.ID, &f.Name, &parentID, &f.ChildrenCount, &f.TemplatesCount, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if parentID.Valid {
		f.ParentID = &parentID.Int64
	}
	f.CreatedAt = db.ParseTime(createdAt)
	f.UpdatedAt = db.ParseTime(updatedAt)
	return &f, nil
}

// List returns every folder ordered by name.
func (s *Store) List(ctx context.Context) ([]model.Folder, error) {
	rows, err := s.db.QueryContext(ctx, selectFolder+" ORDER BY f.name, f.id")
	if err != nil {
		return nil, fmt.Errorf("listing folders: %w", err)
	}
	defer rows.Close()

	var out []model.Folder
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning folder: %w", err)
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

// Get returns the folder with id, or nil if there is none.
func (s *Store) Get(ctx context.Context, id int64) (*model.Folder, error) {
	f, err := scanFolder(s.db.QueryRowContext(ctx, selectFolder+" WHERE f.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting folder %d: %w", id, err)
	}
	return f, nil
}

func validateName(name string) error {
	switch {
	case name == "":
		return &ValidationError{"Folder name is required"}
	case utf8.RuneCountInString(name) > model.MaxFolderNameLength:
		return &ValidationError{fmt.Sprintf("Folder name must be at most %d characters", model.MaxFolderNameLength)}
	}
	return nil
}

func (s *Store) exists(ctx context.Context, id int64) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM folders WHERE id = ?", id).Scan(&n); err != nil {
		return false, fmt.Errorf("checking folder %d: %w", id, err)
	}
	return n > 0, nil
}

// Create inserts a new folder. A nil or zero parent places it at the top
// level.
func (s *Store) Create(ctx context.Context, in model.FolderInput) (*model.Folder, error) {
	name := strings.TrimSpace(in.Name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	parent := in.ParentID
	if parent != nil && *parent == 0 {
		parent = nil
	}
	if parent != nil {
		ok, err := s.exists(ctx, *parent)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrParentNotFound
		}
	}

	now := db.Now()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO folders (name, parent_id, created_at, updated_at) VALUES (?, ?, ?, ?)",
		name, nullID(parent), now, now)
	if err != nil {
		return nil, fmt.Errorf("inserting folder: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading folder id: %w", err)
	}

	created, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.emit(model.EventFolderSaved, id)
	return created, nil
}

// Update renames or moves the folder with id. It returns nil when the
// folder does not exist.
func (s *Store) Update(ctx context.Context, id int64, u Update) (*model.Folder, error) {
	cur, err := s.Get(ctx, id)
	if err != nil || cur == nil {
		return nil, err
	}

	name := cur.Name
	if u.Name != nil {
		name = strings.TrimSpace(*u.Name)
		if err := validateName(name); err != nil {
			return nil, err
		}
	}

	parent := cur.ParentID
	if u.ParentID != nil {
		parent = model.ID(*u.ParentID)
		if parent != nil {
			ok, err := s.exists(ctx, *parent)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, ErrParentNotFound
			}
			all, err := s.List(ctx)
			if err != nil {
				return nil, err
			}
			if model.WouldCreateCycle(all, id, parent) {
				return nil, ErrCycle
			}
		}
	}

	_, err = s.db.ExecContext(ctx,
		"UPDATE folders SET name = ?, parent_id = ?, updated_at = ? WHERE id = ?",
		name, nullID(parent), db.Now(), id)
	if err != nil {
		return nil, fmt.Errorf("updating folder %d: %w", id, err)
	}

	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.emit(model.EventFolderSaved, id)
	return updated, nil
}

// Delete removes the folder with id. Its children move to the top level
// and its templates become unfiled. It reports whether the folder existed.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "UPDATE folders SET parent_id = NULL WHERE parent_id = ?", id); err != nil {
		return false, fmt.Errorf("reparenting children of %d: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE templates SET folder_id = NULL WHERE folder_id = ?", id); err != nil {
		return false, fmt.Errorf("unfiling templates of %d: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM folders WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("deleting folder %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting folder %d: %w", id, err)
	}
	if n == 0 {
		return false, nil
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing delete: %w", err)
	}
	s.emit(model.EventFolderDeleted, id)
	return true, nil
}

// Templates returns the templates filed directly under folder id, most
// recently updated first.
func (s *Store) Templates(ctx context.Context, id int64) ([]model.Template, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, content, description, is_favorite, created_at, updated_at
		   FROM templates WHERE folder_id = ? ORDER BY updated_at DESC, id DESC`, id)
	if err != nil {
		return nil, fmt.Errorf("listing templates in folder %d: %w", id, err)
	}
	defer rows.Close()

	var out []model.Template
	for rows.Next() {
		t := model.Template{FolderID: model.ID(id)}
		var createdAt, updatedAt string
		if err := rows.Scan(&t.ID, &t.Title, &t.Content, &t.Description, &t.IsFavorite, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning template: %w", err)
		}
		t.ContentLength = utf8.RuneCountInString(t.Content)
		t.CreatedAt = db.ParseTime(createdAt)
		t.UpdatedAt = db.ParseTime(updatedAt)
		out = append(out, t)
	}
	return out, rows.Err()
}

func nullID(id *int64) interface{} {
	if id == nil {
		return nil
	}
	return *id
}
