// Package patterns decides which vault files belong to a project.
//
// A pattern list is a comma (or newline) separated string. Each item is one of:
//
//	**/*.md, notes/**     doublestar globs matched against the vault relative path
//	*.pdf                 extension shorthand, matches at any depth
//	[[Meeting Notes]]     a note referenced by its basename
//	projects/alpha        a folder (prefix) or an exact file path
//	#tag                  accepted for compatibility, never matches (no metadata index)
//
// An empty inclusion list includes every file. Exclusions always win.
package patterns

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/projctx/pkg/core"
)

// Matcher implements core.PatternMatcher.
type Matcher struct{}

// New creates a Matcher.
func New() *Matcher {
	return &Matcher{}
}

var _ core.PatternMatcher = (*Matcher)(nil)

// MatchingPatterns splits and validates the raw pattern strings of a project.
func (m *Matcher) MatchingPatterns(src core.ContextSource) (core.Patterns, error) {
	inc, err := compile(src.Inclusions)
	if err != nil {
		return core.Patterns{}, fmt.Errorf("invalid inclusion pattern: %w", err)
	}
	exc, err := compile(src.Exclusions)
	if err != nil {
		return core.Patterns{}, fmt.Errorf("invalid exclusion pattern: %w", err)
	}
	return core.Patterns{Inclusions: inc, Exclusions: exc}, nil
}

// ShouldIndexFile reports whether file matches any inclusion and no exclusion.
func (m *Matcher) ShouldIndexFile(file core.File, p core.Patterns) bool {
	for _, pat := range p.Exclusions {
		if matchOne(pat, file) {
			return false
		}
	}
	if len(p.Inclusions) == 0 {
		return true
	}
	for _, pat := range p.Inclusions {
		if matchOne(pat, file) {
			return true
		}
	}
	return false
}

// Split breaks a raw pattern list into trimmed, non-empty items.
func Split(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func compile(raw string) ([]string, error) {
	items := Split(raw)
	for _, item := range items {
		if kindOf(item) == kindGlob && !doublestar.ValidatePattern(item) {
			return nil, fmt.Errorf("%q", item)
		}
	}
	return items, nil
}

type kind int

const (
	kindPath kind = iota
	kindGlob
	kindExtension
	kindNote
	kindTag
)

func kindOf(item string) kind {
	switch {
	case strings.HasPrefix(item, "#"):
		return kindTag
	case strings.HasPrefix(item, "[[") && strings.HasSuffix(item, "]]"):
		return kindNote
	case strings.HasPrefix(item, "*.") && !strings.ContainsAny(item[2:], "/*?[{"):
		return kindExtension
	case strings.ContainsAny(item, "*?[{"):
		return kindGlob
	default:
		return kindPath
	}
}

func matchOne(item string, file core.File) bool {
	switch kindOf(item) {
	case kindTag:
		return false
	case kindNote:
		return file.IsMarkdown() && file.Basename == strings.TrimSpace(item[2:len(item)-2])
	case kindExtension:
		return strings.EqualFold(file.Extension, item[2:])
	case kindGlob:
		ok, err := doublestar.Match(item, file.Path)
		return err == nil && ok
	default:
		dir := strings.Trim(item, "/")
		return file.Path == dir || strings.HasPrefix(file.Path, dir+"/")
	}
}
