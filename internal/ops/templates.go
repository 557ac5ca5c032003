package ops

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ziadkadry99/prompted/internal/apperr"
	"github.com/ziadkadry99/prompted/internal/events"
	"github.com/ziadkadry99/prompted/internal/model"
)

// CopySuffix is appended to the title of a duplicated template.
const CopySuffix = " (Copy)"

// ValidateTemplate checks the fields the server requires.
func ValidateTemplate(in model.TemplateInput) error {
	switch {
	case strings.TrimSpace(in.Title) == "":
		return apperr.Validation(apperr.CodeRequired, "title", "title is required")
	case strings.TrimSpace(in.Content) == "":
		return apperr.Validation(apperr.CodeRequired, "content", "content is required")
	case utf8.RuneCountInString(in.Title) > model.MaxTitleLength:
		return apperr.Validation(apperr.CodeTooLong, "title",
			fmt.Sprintf("title must be at most %d characters", model.MaxTitleLength))
	case utf8.RuneCountInString(in.Description) > model.MaxDescriptionLength:
		return apperr.Validation(apperr.CodeTooLong, "description",
			fmt.Sprintf("description must be at most %d characters", model.MaxDescriptionLength))
	}
	return nil
}

// Create validates in, creates the template and adds the server's copy to
// the store. Invalid input fails before any network call.
func (s *Service) Create(ctx context.Context, in model.TemplateInput) (*model.Template, error) {
	if err := ValidateTemplate(in); err != nil {
		return nil, s.fail("Create", err)
	}
	t, err := s.api.CreateTemplate(ctx, in)
	if err != nil {
		return nil, s.fail("Create", err)
	}
	s.store.AddTemplate(*t)
	s.bus.Emit(events.TemplateSaved(*t))
	s.logger.Info("template created", zap.Int64("id", t.ID))
	return t, nil
}

// Update validates in and replaces the template's fields.
func (s *Service) Update(ctx context.Context, id int64, in model.TemplateInput) (*model.Template, error) {
	if err := ValidateTemplate(in); err != nil {
		return nil, s.fail("Save", err)
	}
	t, err := s.api.UpdateTemplate(ctx, id, in)
	if err != nil {
		return nil, s.fail("Save", err)
	}
	s.store.AddTemplate(*t)
	s.bus.Emit(events.TemplateSaved(*t))
	s.logger.Info("template updated", zap.Int64("id", id))
	return t, nil
}

// Save creates the template when id is 0 and updates it otherwise.
func (s *Service) Save(ctx context.Context, id int64, in model.TemplateInput) (*model.Template, error) {
	if id == 0 {
		return s.Create(ctx, in)
	}
	return s.Update(ctx, id, in)
}

// Delete removes the template on the server, then locally.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.api.DeleteTemplate(ctx, id); err != nil {
		return s.fail("Delete", err)
	}
	s.store.RemoveTemplate(id)
	s.bus.Emit(events.TemplateDeleted(id))
	s.logger.Info("template deleted", zap.Int64("id", id))
	return nil
}

// ToggleFavorite sets the favorite flag to value. The local entry is patched
// with the flag from the response; when calls race, the last response to
// arrive wins.
func (s *Service) ToggleFavorite(ctx context.Context, id int64, value bool) (*model.Template, error) {
	t, err := s.api.PatchTemplate(ctx, id, model.TemplatePatch{IsFavorite: model.Bool(value)})
	if err != nil {
		return nil, s.fail("Favorite", err)
	}
	if !s.store.UpdateTemplate(id, model.TemplatePatch{IsFavorite: model.Bool(t.IsFavorite)}) {
		s.store.AddTemplate(*t)
	}
	s.bus.Emit(events.TemplateFavorited(*t))
	return t, nil
}

// Duplicate creates a copy of a loaded template with " (Copy)" appended to
// its title.
func (s *Service) Duplicate(ctx context.Context, id int64) (*model.Template, error) {
	src, ok := s.store.Template(id)
	if !ok {
		return nil, s.fail("Duplicate", apperr.State(apperr.CodeInvariant,
			fmt.Sprintf("template %d is not loaded", id)).With("id", id))
	}
	return s.Create(ctx, model.TemplateInput{
		Title:       copyTitle(src.Title),
		Content:     src.Content,
		Description: src.Description,
		FolderID:    src.FolderID,
	})
}

// copyTitle appends CopySuffix, trimming the original so the result still
// fits the title limit.
func copyTitle(title string) string {
	room := model.MaxTitleLength - utf8.RuneCountInString(CopySuffix)
	if r := []rune(title); len(r) > room {
		title = strings.TrimSpace(string(r[:room]))
	}
	return title + CopySuffix
}

// MoveTemplate files the template under folderID; 0 moves it to the root.
func (s *Service) MoveTemplate(ctx context.Context, id, folderID int64) (*model.Template, error) {
	t, err := s.api.PatchTemplate(ctx, id, model.TemplatePatch{FolderID: &folderID})
	if err != nil {
		return nil, s.fail("Move", err)
	}
	s.store.AddTemplate(*t)
	s.bus.Emit(events.TemplateSaved(*t))
	return t, nil
}

// Load fetches one template, upserts it and makes it the current template.
func (s *Service) Load(ctx context.Context, id int64) (*model.Template, error) {
	t, err := s.api.GetTemplate(ctx, id)
	if err != nil {
		return nil, s.fail("Open", err)
	}
	s.store.AddTemplate(*t)
	s.store.SetCurrentTemplate(t)
	return t, nil
}

// LoadAll replaces the store's templates with the server's list. The loading
// flag is set for the duration and cleared whatever the outcome.
func (s *Service) LoadAll(ctx context.Context, opts model.ListOptions) ([]model.Template, error) {
	return s.loadAll(ctx, opts, false)
}

func (s *Service) loadAll(ctx context.Context, opts model.ListOptions, silent bool) ([]model.Template, error) {
	s.store.SetLoading(true)
	defer s.store.SetLoading(false)

	list, err := s.api.ListTemplates(ctx, opts)
	if err != nil {
		return nil, s.handle("Load templates", err, silent)
	}
	s.store.SetTemplates(list)
	return list, nil
}

// Refresh reloads templates and folders in the background. Failures are
// recorded and logged but not shown to the user.
func (s *Service) Refresh(ctx context.Context) error {
	if _, err := s.loadAll(ctx, model.ListOptions{}, true); err != nil {
		return err
	}
	return s.loadFolders(ctx, true)
}
