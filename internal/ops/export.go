package ops

import (
	"context"
	"io"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ziadkadry99/prompted/internal/export"
	"github.com/ziadkadry99/prompted/internal/model"
)

// ExportAll fetches every template once, with the folder list alongside for
// path names, and writes a ZIP archive to w. Invocations are independent.
func (s *Service) ExportAll(ctx context.Context, w io.Writer, opts export.Options) (*export.Manifest, error) {
	var (
		templates []model.Template
		folders   []model.Folder
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := s.api.ListTemplates(gctx, model.ListOptions{})
		templates = list
		return err
	})
	g.Go(func() error {
		list, err := s.api.ListFolders(gctx)
		folders = list
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, s.fail("Export", err)
	}

	m, err := export.Write(w, templates, folders, opts)
	if err != nil {
		return nil, s.fail("Export", err)
	}
	s.logger.Info("export written", zap.Int("templates", m.Count), zap.Int("skipped", m.Skipped))
	return m, nil
}
