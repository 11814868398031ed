package cache

// Outcomes reported to Recorder.SafeUpdate.
const (
	OutcomeWritten   = "written"
	OutcomeSkipped   = "skipped"
	OutcomeUnchanged = "unchanged"
	OutcomeFailed    = "failed"
)

// Lookups reported to Recorder.ContentLookup.
const (
	LookupHit   = "hit"
	LookupMiss  = "miss"
	LookupStale = "stale"
)

// Recorder receives cache events for metrics.
type Recorder interface {
	DocumentWritten()
	SafeUpdate(outcome string)
	ContentLookup(result string)
	ReferencesRemoved(n int)
}

type nopRecorder struct{}

func (nopRecorder) DocumentWritten()      {}
func (nopRecorder) SafeUpdate(string)     {}
func (nopRecorder) ContentLookup(string)  {}
func (nopRecorder) ReferencesRemoved(int) {}
