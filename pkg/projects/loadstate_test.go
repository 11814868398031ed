package projects

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadTracker(t *testing.T) {
	var tr loadTracker
	tr.addTotal("a.md", "b.csv")
	tr.addTotal("a.md")
	tr.processing("a.md")
	tr.processing("b.csv")
	tr.succeeded("a.md")
	tr.failed(FailedItem{Path: "b.csv", Type: KindNonMarkdown, Error: "bad"})

	s := tr.snapshot()
	assert.Equal(t, []string{"a.md", "b.csv"}, s.Total)
	assert.Equal(t, []string{"a.md"}, s.Success)
	assert.Empty(t, s.ProcessingFiles)
	assert.Equal(t, []FailedItem{{Path: "b.csv", Type: KindNonMarkdown, Error: "bad"}}, s.Failed)

	// Snapshots do not alias the tracker.
	s.Success[0] = "changed"
	assert.Equal(t, "a.md", tr.snapshot().Success[0])

	tr.reset()
	assert.Equal(t, LoadState{}, tr.snapshot())
}
