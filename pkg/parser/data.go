package parser

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/projctx/pkg/core"
)

// document is the intermediate form shared by the structured parsers:
// free-form metadata plus an optional "content" body.
type document struct {
	Metadata map[string]any
	Content  string
}

// render writes a document the way a note with frontmatter looks.
func (d document) render() (string, error) {
	var buf bytes.Buffer
	if len(d.Metadata) > 0 {
		buf.WriteString("---\n")
		encoder := yaml.NewEncoder(&buf)
		encoder.SetIndent(2)
		if err := encoder.Encode(d.Metadata); err != nil {
			return "", err
		}
		encoder.Close()
		buf.WriteString("---\n")
	}
	buf.WriteString(d.Content)
	return buf.String(), nil
}

// splitContent moves a string "content" key out of the metadata.
func splitContent(payload map[string]any) document {
	doc := document{Metadata: payload}
	if c, ok := payload["content"].(string); ok {
		doc.Content = c
		delete(doc.Metadata, "content")
	}
	return doc
}

// --- JSON ---

// JSONParser renders JSON documents. Objects with a "content" key render as
// frontmatter plus body; anything else is pretty printed.
type JSONParser struct{}

func (JSONParser) Extensions() []string { return []string{"json"} }

func (JSONParser) Parse(ctx context.Context, file core.File, data []byte) (string, error) {
	var payload map[string]any
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&payload); err != nil {
		var out bytes.Buffer
		if indentErr := json.Indent(&out, data, "", "  "); indentErr != nil {
			return "", fmt.Errorf("invalid json: %w", err)
		}
		return out.String(), nil
	}
	return splitContent(normalizeNumbers(payload).(map[string]any)).render()
}

// --- YAML ---

// YAMLParser renders YAML documents.
type YAMLParser struct{}

func (YAMLParser) Extensions() []string { return []string{"yaml", "yml"} }

func (YAMLParser) Parse(ctx context.Context, file core.File, data []byte) (string, error) {
	var payload map[string]any
	if err := yaml.Unmarshal(data, &payload); err != nil {
		var generic any
		if genericErr := yaml.Unmarshal(data, &generic); genericErr != nil {
			return "", fmt.Errorf("invalid yaml: %w", err)
		}
		out, err := yaml.Marshal(generic)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
	if payload == nil {
		return "", nil
	}
	return splitContent(payload).render()
}

// --- CSV ---

// CSVParser renders every row of a CSV file as a block of "header: value" lines.
type CSVParser struct{}

func (CSVParser) Extensions() []string { return []string{"csv"} }

func (CSVParser) Parse(ctx context.Context, file core.File, data []byte) (string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	headers, err := reader.Read()
	if err != nil {
		return "", fmt.Errorf("failed to read csv header: %w", err)
	}

	var blocks []string
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read csv row: %w", err)
		}
		if len(row) != len(headers) {
			return "", fmt.Errorf("csv row length mismatch")
		}

		var sb strings.Builder
		for i, h := range headers {
			fmt.Fprintf(&sb, "%s: %s\n", h, MarshalCSVValue(UnmarshalCSVValue(row[i])))
		}
		blocks = append(blocks, strings.TrimRight(sb.String(), "\n"))
	}
	return strings.Join(blocks, "\n\n"), nil
}

// --- Helpers ---

// UnmarshalCSVValue attempts to parse a string as JSON if it looks like a Map or Slice.
// Otherwise returns the string as is.
//
// CAVEAT: This uses a heuristic (starts/ends with {} or []). It is possible for a raw string
// that happens to be valid JSON (e.g. "{foo}") to be interpreted as an object.
func UnmarshalCSVValue(val string) any {
	valTrimmed := strings.TrimSpace(val)
	if (strings.HasPrefix(valTrimmed, "{") && strings.HasSuffix(valTrimmed, "}")) ||
		(strings.HasPrefix(valTrimmed, "[") && strings.HasSuffix(valTrimmed, "]")) {
		var parsed any
		decoder := json.NewDecoder(strings.NewReader(val))
		decoder.UseNumber()
		if err := decoder.Decode(&parsed); err == nil {
			return parsed
		}
	}
	return valTrimmed
}

// MarshalCSVValue converts a value to a string, using JSON for complex types (Map, Slice).
func MarshalCSVValue(v any) string {
	switch v.(type) {
	case map[string]any, []any, map[string]string, []string:
		b, err := json.Marshal(v)
		if err == nil {
			return string(b)
		}
	}
	return fmt.Sprintf("%v", v)
}

// normalizeNumbers turns json.Number into int64 or float64 so YAML rendering
// prints plain numbers instead of quoted strings.
func normalizeNumbers(val any) any {
	switch v := val.(type) {
	case map[string]any:
		m := make(map[string]any, len(v))
		for k, val := range v {
			m[k] = normalizeNumbers(val)
		}
		return m
	case []any:
		l := make([]any, len(v))
		for i, val := range v {
			l[i] = normalizeNumbers(val)
		}
		return l
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	default:
		return v
	}
}
