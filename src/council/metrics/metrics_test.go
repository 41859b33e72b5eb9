package metrics

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stake-plus/council-treasury/src/council/governance"
)

func TestPublish(t *testing.T) {
	m := New()
	ctx := context.Background()
	require.NoError(t, m.Publish(ctx, governance.Event{Kind: governance.EventFunded, Amount: 40}))
	require.NoError(t, m.Publish(ctx, governance.Event{Kind: governance.EventFunded, Amount: 2}))
	require.NoError(t, m.Publish(ctx, governance.Event{Kind: governance.EventFundsReleased, Amount: 30}))
	require.NoError(t, m.Publish(ctx, governance.Event{Kind: governance.EventProposalVoted}))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.events.WithLabelValues(governance.EventFunded)))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.funded))
	assert.Equal(t, 30.0, testutil.ToFloat64(m.released))

	m.Sweep(nil)
	m.Sweep(errors.New("x"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sweeps.WithLabelValues("error")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveRequest("GET", "/v1/daos", 200, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `council_http_request_duration_seconds_count{method="GET",route="/v1/daos",status="200"} 1`), body)
}
