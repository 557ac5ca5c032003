// Package export renders templates to markdown, plain text and HTML and
// packages them into a ZIP archive.
package export

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/ziadkadry99/prompted/internal/model"
)

// Format is an export file format.
type Format string

const (
	FormatMarkdown Format = "md"
	FormatText     Format = "txt"
	FormatHTML     Format = "html"
)

// ParseFormats validates a list of format names. An empty list means markdown.
func ParseFormats(names []string) ([]Format, error) {
	if len(names) == 0 {
		return []Format{FormatMarkdown}, nil
	}
	seen := make(map[Format]bool)
	var out []Format
	for _, n := range names {
		f := Format(strings.ToLower(strings.TrimSpace(n)))
		switch f {
		case FormatMarkdown, FormatText, FormatHTML:
		default:
			return nil, fmt.Errorf("unknown export format %q (want md, txt or html)", n)
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}

const timeLayout = "2006-01-02 15:04:05"

// RootFolderName labels templates that are not filed in a folder.
const RootFolderName = "Root"

var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		highlighting.NewHighlighting(
			highlighting.WithStyle("github"),
		),
	),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
	goldmark.WithRendererOptions(
		html.WithUnsafe(),
	),
)

type frontMatter struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Created     string `yaml:"created"`
	Updated     string `yaml:"updated"`
	Folder      string `yaml:"folder"`
	Favorite    bool   `yaml:"favorite"`
	Exported    string `yaml:"exported"`
}

// Markdown renders t as a markdown document with a YAML metadata header. A
// top-level heading with the title is added when the content has none.
func Markdown(t model.Template, folder string, now time.Time) ([]byte, error) {
	if folder == "" {
		folder = RootFolderName
	}
	meta, err := yaml.Marshal(frontMatter{
		Title:       t.Title,
		Description: t.Description,
		Created:     t.CreatedAt.Format(timeLayout),
		Updated:     t.UpdatedAt.Format(timeLayout),
		Folder:      folder,
		Favorite:    t.IsFavorite,
		Exported:    now.Format(timeLayout),
	})
	if err != nil {
		return nil, fmt.Errorf("encoding front matter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(meta)
	buf.WriteString("---\n\n")
	content := t.Content
	if !strings.HasPrefix(strings.TrimSpace(content), "#") {
		content = "# " + t.Title + "\n\n" + content
	}
	buf.WriteString(content)
	return buf.Bytes(), nil
}

// Text renders t as plain text with a metadata header and the markdown
// formatting stripped.
func Text(t model.Template, folder string, now time.Time) string {
	if folder == "" {
		folder = RootFolderName
	}
	desc := t.Description
	if desc == "" {
		desc = "No description"
	}
	fav := "No"
	if t.IsFavorite {
		fav = "Yes"
	}

	var b strings.Builder
	b.WriteString("PROMPT TEMPLATE\n===============\n\n")
	fmt.Fprintf(&b, "Title: %s\n", t.Title)
	fmt.Fprintf(&b, "Description: %s\n", desc)
	fmt.Fprintf(&b, "Created: %s\n", t.CreatedAt.Format(timeLayout))
	fmt.Fprintf(&b, "Updated: %s\n", t.UpdatedAt.Format(timeLayout))
	fmt.Fprintf(&b, "Folder: %s\n", folder)
	fmt.Fprintf(&b, "Favorite: %s\n", fav)
	fmt.Fprintf(&b, "Exported: %s\n\n", now.Format(timeLayout))
	b.WriteString(strings.Repeat("=", 50))
	b.WriteString("\n\n")
	b.WriteString(PlainText(t.Content))
	return b.String()
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<article>
{{.Body}}
</article>
</body>
</html>
`))

// HTML renders t's content to a standalone HTML page with highlighted code
// blocks.
func HTML(t model.Template) ([]byte, error) {
	var body bytes.Buffer
	if err := md.Convert([]byte(t.Content), &body); err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}
	var page bytes.Buffer
	err := pageTemplate.Execute(&page, struct {
		Title string
		Body  template.HTML
	}{t.Title, template.HTML(body.String())})
	if err != nil {
		return nil, fmt.Errorf("rendering page: %w", err)
	}
	return page.Bytes(), nil
}

// PlainText converts markdown to readable plain text: headings upper-cased,
// emphasis and code markers dropped, links shown as "text (url)", list items
// bulleted and block quotes wrapped in quotes.
func PlainText(src string) string {
	if strings.TrimSpace(src) == "" {
		return ""
	}
	source := []byte(src)
	doc := md.Parser().Parse(text.NewReader(source))
	return strings.TrimSpace(strings.Join(blocks(doc, source), "\n\n"))
}

func blocks(n ast.Node, src []byte) []string {
	var out []string
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if s := block(c, src); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func block(n ast.Node, src []byte) string {
	switch n := n.(type) {
	case *ast.Heading:
		return strings.ToUpper(inline(n, src))
	case *ast.Paragraph, *ast.TextBlock:
		return inline(n, src)
	case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
		return strings.TrimRight(rawLines(n, src), "\n")
	case *ast.ThematicBreak:
		return ""
	case *ast.Blockquote:
		parts := blocks(n, src)
		for i := range parts {
			parts[i] = `"` + parts[i] + `"`
		}
		return strings.Join(parts, "\n\n")
	case *ast.List:
		num := n.Start
		var items []string
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			marker := "• "
			if n.IsOrdered() {
				marker = fmt.Sprintf("%d. ", num)
				num++
			}
			items = append(items, marker+strings.Join(blocks(c, src), "\n"))
		}
		return strings.Join(items, "\n")
	default:
		if c := n.FirstChild(); c != nil && c.Type() == ast.TypeInline {
			return inline(n, src)
		}
		return strings.Join(blocks(n, src), "\n")
	}
}

func inline(n ast.Node, src []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch c := c.(type) {
		case *ast.Text:
			b.Write(c.Segment.Value(src))
			if c.SoftLineBreak() || c.HardLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.String:
			b.Write(c.Value)
		case *ast.Link:
			b.WriteString(inline(c, src))
			b.WriteString(" (" + string(c.Destination) + ")")
		case *ast.AutoLink:
			b.Write(c.URL(src))
		case *ast.RawHTML:
		default:
			b.WriteString(inline(c, src))
		}
	}
	return strings.TrimSpace(b.String())
}

func rawLines(n ast.Node, src []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(src))
	}
	return b.String()
}
