package db

import (
	"context"
	"fmt"
)

const welcomeContent = `# Welcome to prompted

This is a **sample template** to get you started.

## Features

- Markdown editing with live preview
- Template organization in folders
- Export to ` + "`.md`" + `, ` + "`.txt`" + ` and ` + "`.html`" + `
- Search and favorites

### Getting Started

1. Create new templates using the editor
2. Organize them in folders
3. Export when ready

*Happy prompting!*`

// Seed populates an empty database with a folder tree and a welcome
// template. It reports whether anything was inserted.
func (d *DB) Seed(ctx context.Context) (bool, error) {
	var folders, templates int
	if err := d.QueryRowContext(ctx, "SELECT COUNT(*) FROM folders").Scan(&folders); err != nil {
		return false, fmt.Errorf("counting folders: %w", err)
	}
	if err := d.QueryRowContext(ctx, "SELECT COUNT(*) FROM templates").Scan(&templates); err != nil {
		return false, fmt.Errorf("counting templates: %w", err)
	}
	if folders > 0 || templates > 0 {
		return false, nil
	}

	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning seed transaction: %w", err)
	}
	defer tx.Rollback()

	now := Now()
	insertFolder := func(name string, parent interface{}) (int64, error) {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO folders (name, parent_id, created_at, updated_at) VALUES (?, ?, ?, ?)",
			name, parent, now, now)
		if err != nil {
			return 0, fmt.Errorf("seeding folder %q: %w", name, err)
		}
		return res.LastInsertId()
	}

	root, err := insertFolder("Root", nil)
	if err != nil {
		return false, err
	}
	samples, err := insertFolder("Sample Templates", root)
	if err != nil {
		return false, err
	}
	if _, err := insertFolder("Work Templates", root); err != nil {
		return false, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO templates (title, content, description, folder_id, is_favorite, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 1, ?, ?)`,
		"Welcome Template", welcomeContent, "A sample template demonstrating markdown features",
		samples, now, now)
	if err != nil {
		return false, fmt.Errorf("seeding welcome template: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing seed: %w", err)
	}
	return true, nil
}
