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

// ValidateFolderName checks a folder name's presence and length.
func ValidateFolderName(name string) error {
	if strings.TrimSpace(name) == "" {
		return apperr.Validation(apperr.CodeRequired, "name", "folder name is required")
	}
	if utf8.RuneCountInString(name) > model.MaxFolderNameLength {
		return apperr.Validation(apperr.CodeTooLong, "name",
			fmt.Sprintf("folder name must be at most %d characters", model.MaxFolderNameLength))
	}
	return nil
}

// LoadFolders replaces the store's folders with the server's list.
func (s *Service) LoadFolders(ctx context.Context) error {
	return s.loadFolders(ctx, false)
}

func (s *Service) loadFolders(ctx context.Context, silent bool) error {
	list, err := s.api.ListFolders(ctx)
	if err != nil {
		return s.handle("Load folders", err, silent)
	}
	s.store.SetFolders(list)
	return nil
}

// CreateFolder creates a folder under parent; 0 creates it at the root.
func (s *Service) CreateFolder(ctx context.Context, name string, parent int64) (*model.Folder, error) {
	if err := ValidateFolderName(name); err != nil {
		return nil, s.fail("Create folder", err)
	}
	f, err := s.api.CreateFolder(ctx, model.FolderInput{Name: name, ParentID: model.ID(parent)})
	if err != nil {
		return nil, s.fail("Create folder", err)
	}
	s.store.AddFolder(*f)
	s.bus.Emit(events.FolderSaved(*f))
	s.logger.Info("folder created", zap.Int64("id", f.ID))
	return f, nil
}

// RenameFolder changes a folder's name.
func (s *Service) RenameFolder(ctx context.Context, id int64, name string) (*model.Folder, error) {
	if err := ValidateFolderName(name); err != nil {
		return nil, s.fail("Rename folder", err)
	}
	f, err := s.api.UpdateFolder(ctx, id, model.FolderInput{Name: name})
	if err != nil {
		return nil, s.fail("Rename folder", err)
	}
	s.store.AddFolder(*f)
	s.bus.Emit(events.FolderSaved(*f))
	return f, nil
}

// MoveFolder re-parents a folder; 0 moves it to the root. A move that would
// create a cycle in the known tree is refused without a network call.
func (s *Service) MoveFolder(ctx context.Context, id, parent int64) (*model.Folder, error) {
	if model.WouldCreateCycle(s.store.Folders.Get(), id, model.ID(parent)) {
		return nil, s.fail("Move folder", apperr.State(apperr.CodeInvalidTransition,
			"a folder cannot be moved inside itself").With("id", id).With("parent", parent))
	}
	f, err := s.api.UpdateFolder(ctx, id, model.FolderInput{ParentID: &parent})
	if err != nil {
		return nil, s.fail("Move folder", err)
	}
	s.store.AddFolder(*f)
	s.bus.Emit(events.FolderSaved(*f))
	return f, nil
}

// DeleteFolder removes a folder on the server, then locally. Its templates
// move to the root.
func (s *Service) DeleteFolder(ctx context.Context, id int64) error {
	if err := s.api.DeleteFolder(ctx, id); err != nil {
		return s.fail("Delete folder", err)
	}
	s.store.RemoveFolder(id)
	s.bus.Emit(events.FolderDeleted(id))
	s.logger.Info("folder deleted", zap.Int64("id", id))
	return nil
}

// FolderTemplates fetches the templates filed directly under a folder and
// refreshes that folder's share of the store with them.
func (s *Service) FolderTemplates(ctx context.Context, id int64) ([]model.Template, error) {
	list, err := s.api.FolderTemplates(ctx, id)
	if err != nil {
		return nil, s.fail("Open folder", err)
	}
	s.store.SetFolderTemplates(id, list)
	return list, nil
}
