package export

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/ziadkadry99/prompted/internal/model"
)

// ManifestName is the archive entry holding the export manifest.
const ManifestName = "manifest.json"

// Options controls an archive export.
type Options struct {
	Formats []Format // defaults to markdown
	// Include keeps only templates whose archive path (folder path plus
	// file name, markdown extension) matches one of these doublestar
	// patterns. Empty means everything.
	Include  []string
	Now      func() time.Time
	// Progress is called once per template, skipped ones included, so the
	// last call always has done == total.
	Progress func(done, total int, title string)
}

// ArchiveName is the file name of an export archive written at now.
func ArchiveName(now time.Time) string {
	return "prompted-export-" + now.Format("20060102-150405") + ".zip"
}

// Manifest summarises an export. It is written into the archive.
type Manifest struct {
	ExportedAt time.Time       `json:"exported_at"`
	Formats    []Format        `json:"formats"`
	Count      int             `json:"count"`
	Skipped    int             `json:"skipped"`
	Favorites  int             `json:"favorites"`
	Words      int             `json:"words"`
	Characters int             `json:"characters"`
	Templates  []ManifestEntry `json:"templates"`
}

// ManifestEntry describes one exported template.
type ManifestEntry struct {
	ID     int64        `json:"id"`
	Title  string       `json:"title"`
	Folder string       `json:"folder"`
	Files  []string     `json:"files"`
	Stats  ContentStats `json:"stats"`
}

// Write packages templates into a ZIP archive on w. Each template becomes one
// file per format under its sanitized folder path; folders resolve parent
// names. A manifest with per-template statistics is added last.
func Write(w io.Writer, templates []model.Template, folders []model.Folder, opts Options) (*Manifest, error) {
	formats := opts.Formats
	if len(formats) == 0 {
		formats = []Format{FormatMarkdown}
	}
	now := time.Now()
	if opts.Now != nil {
		now = opts.Now()
	}

	m := &Manifest{ExportedAt: now, Formats: formats}
	zw := zip.NewWriter(w)
	used := make(map[string]bool)
	report := func(i int, t model.Template) {
		if opts.Progress != nil {
			opts.Progress(i+1, len(templates), t.Title)
		}
	}

	for i, t := range templates {
		folder := folderLabel(t, folders)
		dir := archiveDir(t, folders)
		base := SanitizeFilename(t.Title)
		if used[path.Join(dir, base)] {
			base = base + "_" + strconv.FormatInt(t.ID, 10)
		}

		if !included(path.Join(dir, base+"."+string(FormatMarkdown)), opts.Include) {
			m.Skipped++
			report(i, t)
			continue
		}
		used[path.Join(dir, base)] = true

		entry := ManifestEntry{ID: t.ID, Title: t.Title, Folder: folder, Stats: Stats(t.Content)}
		for _, f := range formats {
			data, err := render(t, folder, f, now)
			if err != nil {
				return nil, fmt.Errorf("rendering %q as %s: %w", t.Title, f, err)
			}
			name := path.Join(dir, base+"."+string(f))
			if err := writeEntry(zw, name, t.UpdatedAt, data); err != nil {
				return nil, err
			}
			entry.Files = append(entry.Files, name)
		}

		m.Count++
		if t.IsFavorite {
			m.Favorites++
		}
		m.Words += entry.Stats.Words
		m.Characters += entry.Stats.Characters
		m.Templates = append(m.Templates, entry)
		report(i, t)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	if err := writeEntry(zw, ManifestName, now, data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("closing archive: %w", err)
	}
	return m, nil
}

func render(t model.Template, folder string, f Format, now time.Time) ([]byte, error) {
	switch f {
	case FormatText:
		return []byte(Text(t, folder, now)), nil
	case FormatHTML:
		return HTML(t)
	default:
		return Markdown(t, folder, now)
	}
}

func writeEntry(zw *zip.Writer, name string, modified time.Time, data []byte) error {
	if modified.IsZero() {
		modified = time.Now()
	}
	fw, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: modified,
	})
	if err != nil {
		return fmt.Errorf("creating %s: %w", name, err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// folderLabel is the human folder name recorded in headers.
func folderLabel(t model.Template, folders []model.Folder) string {
	if t.FolderID == nil {
		return RootFolderName
	}
	if p := model.FolderPath(folders, *t.FolderID); p != "" {
		return p
	}
	if t.FolderName != "" {
		return t.FolderName
	}
	return RootFolderName
}

// archiveDir is the sanitized directory for t inside the archive; "" for the
// root.
func archiveDir(t model.Template, folders []model.Folder) string {
	if t.FolderID == nil {
		return ""
	}
	p := model.FolderPath(folders, *t.FolderID)
	if p == "" {
		p = t.FolderName
	}
	if p == "" {
		return ""
	}
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = SanitizeFilename(part)
	}
	return path.Join(parts...)
}

// included matches name against patterns, and its base name as a fallback.
func included(name string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, name); err == nil && ok {
			return true
		}
		if ok, err := doublestar.Match(p, path.Base(name)); err == nil && ok {
			return true
		}
	}
	return false
}
