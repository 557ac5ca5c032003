// Package model holds the entities shared by the client and the server.
package model

import (
	"time"
	"unicode/utf8"
)

// Field limits mirrored by the server schema.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 500
	MaxFolderNameLength  = 100
)

// Template is a user-authored markdown document.
type Template struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Description   string    `json:"description"`
	FolderID      *int64    `json:"folder_id"`
	FolderName    string    `json:"folder_name,omitempty"`
	IsFavorite    bool      `json:"is_favorite"`
	ContentLength int       `json:"content_length"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// InFolder reports whether the template is filed under folder id.
func (t Template) InFolder(id int64) bool {
	return t.FolderID != nil && *t.FolderID == id
}

// TemplateInput is the body for create and full update calls.
type TemplateInput struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	Description string `json:"description"`
	FolderID    *int64 `json:"folder_id,omitempty"`
}

// TemplatePatch carries a partial update. Nil fields are left untouched.
// A FolderID pointing at 0 moves the template back to the root.
type TemplatePatch struct {
	Title       *string `json:"title,omitempty"`
	Content     *string `json:"content,omitempty"`
	Description *string `json:"description,omitempty"`
	FolderID    *int64  `json:"folder_id,omitempty"`
	IsFavorite  *bool   `json:"is_favorite,omitempty"`
}

// Apply writes the non-nil fields of p onto t. The id is never touched.
func (p TemplatePatch) Apply(t *Template) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Content != nil {
		t.Content = *p.Content
		t.ContentLength = utf8.RuneCountInString(*p.Content)
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.FolderID != nil {
		if *p.FolderID == 0 {
			t.FolderID = nil
		} else {
			id := *p.FolderID
			t.FolderID = &id
		}
	}
	if p.IsFavorite != nil {
		t.IsFavorite = *p.IsFavorite
	}
}

// Folder is a named node in the folder tree.
type Folder struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	ParentID       *int64    `json:"parent_id"`
	ChildrenCount  int       `json:"children_count"`
	TemplatesCount int       `json:"templates_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// FolderInput is the body for folder create and update calls.
type FolderInput struct {
	Name     string `json:"name,omitempty"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

// ListOptions narrows a template listing server-side.
type ListOptions struct {
	Search    string
	Favorites bool
	Recent    bool
	FolderID  int64
}

// Event is a change notification pushed by the server over the events socket.
type Event struct {
	Type string `json:"type"` // e.g. "template:saved", "folder:deleted"
	ID   int64  `json:"id"`
}

// Event types shared by the server hub and client operations.
const (
	EventTemplateSaved     = "template:saved"
	EventTemplateDeleted   = "template:deleted"
	EventTemplateFavorited = "template:favorited"
	EventFolderSaved       = "folder:saved"
	EventFolderDeleted     = "folder:deleted"
)

// ID returns a pointer to id, or nil for 0.
func ID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

// String returns a pointer to s.
func String(s string) *string { return &s }

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }
