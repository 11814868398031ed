package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/projctx/pkg/core"
)

// MarkdownParser reads notes. Frontmatter is validated and re-encoded so the
// output is stable regardless of the author's YAML style.
type MarkdownParser struct{}

func (MarkdownParser) Extensions() []string { return []string{core.MarkdownExtension} }

func (MarkdownParser) Parse(ctx context.Context, file core.File, data []byte) (string, error) {
	meta, body, err := SplitFrontmatter(data)
	if err != nil {
		// A leading thematic break is not frontmatter; keep the note as written.
		return string(data), nil
	}
	return document{Metadata: meta, Content: body}.render()
}

// SplitFrontmatter separates YAML frontmatter from the note body.
// Notes without frontmatter return a nil map and the whole text.
func SplitFrontmatter(data []byte) (map[string]any, string, error) {
	if !bytes.HasPrefix(data, []byte("---\n")) && !bytes.HasPrefix(data, []byte("---\r\n")) {
		return nil, string(data), nil
	}

	rest := data[3:]
	parts := bytes.SplitN(rest, []byte("\n---"), 2)
	if len(parts) == 1 {
		return nil, "", errors.New("frontmatter started but no closing delimiter found")
	}

	meta := make(map[string]any)
	if err := yaml.Unmarshal(parts[0], &meta); err != nil {
		return nil, "", fmt.Errorf("failed to parse frontmatter: %w", err)
	}

	body := string(parts[1])
	body = strings.TrimPrefix(body, "\r")
	body = strings.TrimPrefix(body, "\n")
	body = strings.TrimPrefix(body, "\r\n")
	return meta, body, nil
}

// Title returns the frontmatter title of a note, or its basename.
func Title(file core.File, meta map[string]any) string {
	if t, ok := meta["title"].(string); ok && strings.TrimSpace(t) != "" {
		return strings.TrimSpace(t)
	}
	return file.Basename
}
