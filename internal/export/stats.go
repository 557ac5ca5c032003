package export

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ContentStats describes a template's content.
type ContentStats struct {
	TotalLines         int `json:"total_lines"`
	NonEmptyLines      int `json:"non_empty_lines"`
	Words              int `json:"words"`
	Characters         int `json:"characters"`
	CharactersNoSpaces int `json:"characters_no_spaces"`
	Headers            int `json:"headers"`
	BoldText           int `json:"bold_text"`
	ItalicText         int `json:"italic_text"`
	CodeBlocks         int `json:"code_blocks"`
	InlineCode         int `json:"inline_code"`
	Links              int `json:"links"`
	ListItems          int `json:"list_items"`
	ReadingMinutes     int `json:"estimated_reading_time"`
}

// Stats analyses markdown content. Reading time assumes 200 words a minute,
// with a floor of one minute.
func Stats(content string) ContentStats {
	lines := strings.Split(content, "\n")
	s := ContentStats{
		TotalLines:         len(lines),
		Words:              len(strings.Fields(content)),
		Characters:         utf8.RuneCountInString(content),
		CharactersNoSpaces: utf8.RuneCountInString(strings.ReplaceAll(content, " ", "")),
	}
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			s.NonEmptyLines++
		}
	}
	s.ReadingMinutes = s.Words / 200
	if s.ReadingMinutes < 1 {
		s.ReadingMinutes = 1
	}

	source := []byte(content)
	doc := md.Parser().Parse(text.NewReader(source))
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *ast.Heading:
			s.Headers++
		case *ast.Emphasis:
			if n.Level >= 2 {
				s.BoldText++
			} else {
				s.ItalicText++
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			s.CodeBlocks++
		case *ast.CodeSpan:
			s.InlineCode++
		case *ast.Link, *ast.AutoLink:
			s.Links++
		case *ast.ListItem:
			s.ListItems++
		}
		return ast.WalkContinue, nil
	})
	return s
}

var (
	invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	repeatedUnderscores  = regexp.MustCompile(`_{2,}`)
)

// MaxFilenameLength caps sanitized names, in runes.
const MaxFilenameLength = 100

// SanitizeFilename makes name safe for use as a file name on any platform.
// Empty results become "untitled".
func SanitizeFilename(name string) string {
	name = invalidFilenameChars.ReplaceAllString(name, "_")
	name = repeatedUnderscores.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_ ")
	if name == "" {
		return "untitled"
	}
	if utf8.RuneCountInString(name) > MaxFilenameLength {
		name = strings.TrimRight(string([]rune(name)[:MaxFilenameLength]), "_ ")
	}
	return name
}
