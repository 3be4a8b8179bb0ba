package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.DeltasApplied.WithLabelValues("ADD").Add(3)
	m.LiveLevels.Set(2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `levelbook_deltas_applied_total{kind="ADD"} 3`))
	assert.True(t, strings.Contains(body, "levelbook_live_levels 2"))
}

func TestIndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.LevelsRetired.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.LevelsRetired))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.LevelsRetired))
}
