package projects

import (
	"slices"
	"sync"
)

// File kinds reported in FailedItem.Type.
const (
	KindMarkdown    = "md"
	KindNonMarkdown = "nonMd"
)

// FailedItem describes a file that could not be turned into context.
type FailedItem struct {
	Path      string `json:"path"`
	Type      string `json:"type"`
	Error     string `json:"error,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// LoadState is the progress of the most recent context load.
type LoadState struct {
	Success         []string     `json:"success"`
	Failed          []FailedItem `json:"failed"`
	ProcessingFiles []string     `json:"processingFiles"`
	Total           []string     `json:"total"`
}

type loadTracker struct {
	mu    sync.Mutex
	state LoadState
}

func (t *loadTracker) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = LoadState{}
}

func (t *loadTracker) addTotal(paths ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range paths {
		if !slices.Contains(t.state.Total, p) {
			t.state.Total = append(t.state.Total, p)
		}
	}
}

func (t *loadTracker) processing(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.ProcessingFiles = append(t.state.ProcessingFiles, path)
}

func (t *loadTracker) succeeded(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.ProcessingFiles = slices.DeleteFunc(t.state.ProcessingFiles, func(p string) bool { return p == path })
	t.state.Success = append(t.state.Success, path)
}

func (t *loadTracker) failed(item FailedItem) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.ProcessingFiles = slices.DeleteFunc(t.state.ProcessingFiles, func(p string) bool { return p == item.Path })
	t.state.Failed = append(t.state.Failed, item)
}

func (t *loadTracker) snapshot() LoadState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return LoadState{
		Success:         slices.Clone(t.state.Success),
		Failed:          slices.Clone(t.state.Failed),
		ProcessingFiles: slices.Clone(t.state.ProcessingFiles),
		Total:           slices.Clone(t.state.Total),
	}
}
