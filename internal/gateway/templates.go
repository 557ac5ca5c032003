package gateway

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/ziadkadry99/prompted/internal/model"
)

// API is the typed surface the operations layer depends on.
type API interface {
	ListTemplates(ctx context.Context, opts model.ListOptions) ([]model.Template, error)
	GetTemplate(ctx context.Context, id int64) (*model.Template, error)
	CreateTemplate(ctx context.Context, in model.TemplateInput) (*model.Template, error)
	UpdateTemplate(ctx context.Context, id int64, in model.TemplateInput) (*model.Template, error)
	PatchTemplate(ctx context.Context, id int64, patch model.TemplatePatch) (*model.Template, error)
	DeleteTemplate(ctx context.Context, id int64) error

	ListFolders(ctx context.Context) ([]model.Folder, error)
	CreateFolder(ctx context.Context, in model.FolderInput) (*model.Folder, error)
	UpdateFolder(ctx context.Context, id int64, in model.FolderInput) (*model.Folder, error)
	DeleteFolder(ctx context.Context, id int64) error
	FolderTemplates(ctx context.Context, id int64) ([]model.Template, error)
}

var _ API = (*Client)(nil)

// ListTemplates returns templates, optionally narrowed server-side.
func (c *Client) ListTemplates(ctx context.Context, opts model.ListOptions) ([]model.Template, error) {
	q := url.Values{}
	if opts.Search != "" {
		q.Set("search", opts.Search)
	}
	if opts.Favorites {
		q.Set("favorites", "true")
	}
	if opts.Recent {
		q.Set("recent", "true")
	}
	if opts.FolderID != 0 {
		q.Set("folder_id", strconv.FormatInt(opts.FolderID, 10))
	}
	path := "/api/templates"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out []model.Template
	if err := c.Get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTemplate fetches one template.
func (c *Client) GetTemplate(ctx context.Context, id int64) (*model.Template, error) {
	var out model.Template
	if err := c.Get(ctx, templatePath(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateTemplate creates a template and returns the server's copy.
func (c *Client) CreateTemplate(ctx context.Context, in model.TemplateInput) (*model.Template, error) {
	var out model.Template
	if err := c.Post(ctx, "/api/templates", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateTemplate replaces a template's editable fields.
func (c *Client) UpdateTemplate(ctx context.Context, id int64, in model.TemplateInput) (*model.Template, error) {
	var out model.Template
	if err := c.Put(ctx, templatePath(id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PatchTemplate sends only the fields set in patch.
func (c *Client) PatchTemplate(ctx context.Context, id int64, patch model.TemplatePatch) (*model.Template, error) {
	var out model.Template
	if err := c.Patch(ctx, templatePath(id), patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteTemplate removes a template.
func (c *Client) DeleteTemplate(ctx context.Context, id int64) error {
	return c.Delete(ctx, templatePath(id))
}

// ListFolders returns every folder as a flat list with parent pointers.
func (c *Client) ListFolders(ctx context.Context) ([]model.Folder, error) {
	var out []model.Folder
	if err := c.Get(ctx, "/api/folders", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateFolder creates a folder.
func (c *Client) CreateFolder(ctx context.Context, in model.FolderInput) (*model.Folder, error) {
	var out model.Folder
	if err := c.Post(ctx, "/api/folders", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateFolder renames or moves a folder.
func (c *Client) UpdateFolder(ctx context.Context, id int64, in model.FolderInput) (*model.Folder, error) {
	var out model.Folder
	if err := c.Put(ctx, folderPath(id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteFolder removes a folder.
func (c *Client) DeleteFolder(ctx context.Context, id int64) error {
	return c.Delete(ctx, folderPath(id))
}

// FolderTemplates lists the templates filed directly under a folder.
func (c *Client) FolderTemplates(ctx context.Context, id int64) ([]model.Template, error) {
	var out []model.Template
	if err := c.Get(ctx, folderPath(id)+"/templates", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func templatePath(id int64) string { return fmt.Sprintf("/api/templates/%d", id) }

func folderPath(id int64) string { return fmt.Sprintf("/api/folders/%d", id) }
