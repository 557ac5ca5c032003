// Package mirror keeps a directory of markdown files in step with the
// template store, one file per template, so templates can be grepped or
// versioned outside the database.
package mirror

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/ziadkadry99/prompted/internal/export"
	"github.com/ziadkadry99/prompted/internal/model"
	"github.com/ziadkadry99/prompted/internal/templates"
)

// Mirror writes templates from a store to dir.
type Mirror struct {
	dir    string
	store  *templates.Store
	logger *zap.Logger
	now    func() time.Time

	mu sync.Mutex
}

// New creates a mirror rooted at dir.
func New(dir string, store *templates.Store, logger *zap.Logger) *Mirror {
	return &Mirror{dir: dir, store: store, logger: logger.Named("mirror"), now: time.Now}
}

// FileName is the mirror file name for t.
func FileName(t model.Template) string {
	return fmt.Sprintf("%d-%s.md", t.ID, strings.ReplaceAll(export.SanitizeFilename(t.Title), " ", "_"))
}

// Attach subscribes the mirror to store changes. Failures are logged and
// never reach the request that caused them.
func (m *Mirror) Attach() {
	m.store.OnChange(func(ev model.Event) {
		var err error
		switch ev.Type {
		case model.EventTemplateSaved, model.EventTemplateFavorited:
			err = m.refresh(context.Background(), ev.ID)
		case model.EventTemplateDeleted:
			err = m.Remove(ev.ID)
		default:
			return
		}
		if err != nil {
			m.logger.Warn("mirror update failed", zap.String("event", ev.Type), zap.Int64("id", ev.ID), zap.Error(err))
		}
	})
}

func (m *Mirror) refresh(ctx context.Context, id int64) error {
	t, err := m.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if t == nil {
		return m.Remove(id)
	}
	return m.Write(*t)
}

// Write stores t under its current title, replacing any file written for an
// earlier title.
func (m *Mirror) Write(t model.Template) error {
	body, err := export.Markdown(t, t.FolderName, m.now())
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("creating mirror dir: %w", err)
	}
	name := FileName(t)
	if err := m.removeLocked(t.ID, name); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(m.dir, name), body, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	m.logger.Debug("mirrored template", zap.Int64("id", t.ID), zap.String("file", name))
	return nil
}

// Remove deletes every file written for template id.
func (m *Mirror) Remove(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeLocked(id, "")
}

func (m *Mirror) removeLocked(id int64, keep string) error {
	matches, err := doublestar.Glob(os.DirFS(m.dir), fmt.Sprintf("%d-*.md", id))
	if err != nil {
		return fmt.Errorf("listing mirror files: %w", err)
	}
	for _, name := range matches {
		if name == keep {
			continue
		}
		if err := os.Remove(filepath.Join(m.dir, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing %s: %w", name, err)
		}
	}
	return nil
}

// Sync rewrites every template and removes files whose template no longer
// exists. It returns the number of files written.
func (m *Mirror) Sync(ctx context.Context) (int, error) {
	list, err := m.store.List(ctx, templates.ListFilter{})
	if err != nil {
		return 0, err
	}
	live := make(map[int64]bool, len(list))
	for _, t := range list {
		if err := m.Write(t); err != nil {
			return 0, err
		}
		live[t.ID] = true
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	files, err := doublestar.Glob(os.DirFS(m.dir), "*.md")
	if err != nil {
		return 0, fmt.Errorf("listing mirror files: %w", err)
	}
	for _, name := range files {
		prefix, _, ok := strings.Cut(name, "-")
		if !ok {
			continue
		}
		id, err := strconv.ParseInt(prefix, 10, 64)
		if err != nil || live[id] {
			continue
		}
		if err := os.Remove(filepath.Join(m.dir, name)); err != nil && !os.IsNotExist(err) {
			return 0, fmt.Errorf("removing %s: %w", name, err)
		}
	}
	m.logger.Info("mirror synced", zap.String("dir", m.dir), zap.Int("templates", len(list)))
	return len(list), nil
}
