package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/projctx/pkg/cache"
)

func TestNew_Singleton(t *testing.T) {
	a := New()
	b := New()
	require.NotNil(t, a)
	assert.Same(t, a, b)
}

func TestRecorder(t *testing.T) {
	m := New()
	var _ cache.Recorder = m

	before := testutil.ToFloat64(m.SafeUpdatesTotal.WithLabelValues(cache.OutcomeWritten))
	m.SafeUpdate(cache.OutcomeWritten)
	assert.Equal(t, before+1, testutil.ToFloat64(m.SafeUpdatesTotal.WithLabelValues(cache.OutcomeWritten)))

	before = testutil.ToFloat64(m.ReferencesRemovedTotal)
	m.ReferencesRemoved(3)
	assert.Equal(t, before+3, testutil.ToFloat64(m.ReferencesRemovedTotal))

	before = testutil.ToFloat64(m.ContentLookupsTotal.WithLabelValues(cache.LookupStale))
	m.ContentLookup(cache.LookupStale)
	assert.Equal(t, before+1, testutil.ToFloat64(m.ContentLookupsTotal.WithLabelValues(cache.LookupStale)))

	before = testutil.ToFloat64(m.FilesParsedTotal.WithLabelValues("failed"))
	m.FileParsed(false)
	assert.Equal(t, before+1, testutil.ToFloat64(m.FilesParsedTotal.WithLabelValues("failed")))

	before = testutil.ToFloat64(m.DocumentWritesTotal)
	m.DocumentWritten()
	assert.Equal(t, before+1, testutil.ToFloat64(m.DocumentWritesTotal))
}
