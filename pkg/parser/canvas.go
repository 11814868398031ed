package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aretw0/projctx/pkg/core"
)

type canvasNode struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Text  string `json:"text,omitempty"`
	File  string `json:"file,omitempty"`
	URL   string `json:"url,omitempty"`
	Label string `json:"label,omitempty"`
}

type canvasEdge struct {
	ID       string `json:"id"`
	FromNode string `json:"fromNode"`
	ToNode   string `json:"toNode"`
	Label    string `json:"label,omitempty"`
}

type canvasData struct {
	Nodes []canvasNode `json:"nodes"`
	Edges []canvasEdge `json:"edges"`
}

// CanvasParser turns a JSON canvas board into a textual outline of its nodes
// and the connections between them.
type CanvasParser struct{}

func (CanvasParser) Extensions() []string { return []string{"canvas"} }

func (CanvasParser) Parse(ctx context.Context, file core.File, data []byte) (string, error) {
	var canvas canvasData
	if err := json.Unmarshal(data, &canvas); err != nil {
		return "", fmt.Errorf("invalid canvas: %w", err)
	}

	names := make(map[string]string, len(canvas.Nodes))
	var sb strings.Builder
	fmt.Fprintf(&sb, "Canvas: %s\n", file.Basename)

	if len(canvas.Nodes) > 0 {
		sb.WriteString("\nNodes:\n")
	}
	for _, n := range canvas.Nodes {
		desc := describeNode(n)
		names[n.ID] = desc
		fmt.Fprintf(&sb, "- [%s] %s\n", n.Type, desc)
	}

	if len(canvas.Edges) > 0 {
		sb.WriteString("\nConnections:\n")
	}
	for _, e := range canvas.Edges {
		from, to := names[e.FromNode], names[e.ToNode]
		if from == "" {
			from = e.FromNode
		}
		if to == "" {
			to = e.ToNode
		}
		if e.Label != "" {
			fmt.Fprintf(&sb, "- %s -> %s (%s)\n", from, to, e.Label)
		} else {
			fmt.Fprintf(&sb, "- %s -> %s\n", from, to)
		}
	}

	return strings.TrimRight(sb.String(), "\n"), nil
}

func describeNode(n canvasNode) string {
	switch n.Type {
	case "text":
		return strings.Join(strings.Fields(n.Text), " ")
	case "file":
		return n.File
	case "link":
		return n.URL
	case "group":
		return n.Label
	}
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}
