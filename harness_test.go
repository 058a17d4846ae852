package procfixture

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestService serves the fault routes with terminate wired to a fake exit
// that drops the connection the way a dying process would.
func newTestService(t *testing.T) (*httptest.Server, *Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	srv := NewServer(smallConfig(), zerolog.Nop(), WithExitFunc(func(int) {
		panic(http.ErrAbortHandler)
	}))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, srv
}

func TestNewHarnessValidatesURL(t *testing.T) {
	for _, bad := range []string{"", "localhost:5032", "ftp://localhost", "http://", "://x"} {
		_, err := NewHarness(bad)
		assert.Error(t, err, bad)
	}

	h, err := NewHarness("http://localhost:5032/", WithConcurrency(0), WithTimeout(time.Second), WithRate(10, 1))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5032", h.BaseURL)
	assert.Equal(t, 1, h.Concurrency)
	assert.Equal(t, time.Second, h.Timeout)
	assert.NotNil(t, h.Limiter)
}

func TestTrigger(t *testing.T) {
	ts, _ := newTestService(t)
	h, err := NewHarness(ts.URL, WithHTTPClient(ts.Client()))
	require.NoError(t, err)
	ctx := context.Background()

	res, err := h.Trigger(ctx, FaultThrowArgument)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, res.Status)
	require.NotNil(t, res.Raised)
	assert.Equal(t, "ArgumentError", res.Raised.Error)
	assert.Equal(t, res.RequestID, res.Raised.RequestID)

	res, err = h.Trigger(ctx, FaultFullGC)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Nil(t, res.Raised)

	res, err = h.Trigger(ctx, FaultTerminate)
	require.NoError(t, err)
	assert.True(t, res.Dropped)

	_, err = h.Trigger(ctx, FaultUnknown)
	require.ErrorIs(t, err, ErrUnknownFault)
}

func TestTriggerUnexpectedStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	h, err := NewHarness(ts.URL)
	require.NoError(t, err)

	res, err := h.Trigger(context.Background(), FaultThrowInvalidOperation)
	require.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.Equal(t, http.StatusOK, res.Status)

	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, FaultThrowInvalidOperation, opErr.Fault)
}

func TestTriggerAll(t *testing.T) {
	ts, srv := newTestService(t)
	h, err := NewHarness(ts.URL, WithHTTPClient(ts.Client()), WithConcurrency(3), WithRate(1000, 10))
	require.NoError(t, err)

	faults := []Fault{FaultThrowInvalidOperation, FaultFullGC, FaultThrowAndCatch, FaultMemIncrease, FaultThrowArgument}
	results, err := h.TriggerAll(context.Background(), faults...)
	require.NoError(t, err)
	require.Len(t, results, len(faults))
	for i, f := range faults {
		assert.Equal(t, f, results[i].Fault)
	}
	assert.Equal(t, float64(len(faults)), sumCounter(t, srv, "procfixture_faults_injected_total"))
}

func TestTriggerAllAggregatesFailures(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer ts.Close()

	h, err := NewHarness(ts.URL)
	require.NoError(t, err)

	results, err := h.TriggerAll(context.Background(), FaultFullGC, FaultStress)
	require.Error(t, err)
	assert.Len(t, results, 2)

	var merr *MultiError
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 2)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestTriggerAllEmpty(t *testing.T) {
	h, err := NewHarness("http://localhost:5032")
	require.NoError(t, err)
	results, err := h.TriggerAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestWaitHealthy(t *testing.T) {
	ts, _ := newTestService(t)
	h, err := NewHarness(ts.URL, WithHTTPClient(ts.Client()))
	require.NoError(t, err)

	hr, err := h.WaitHealthy(context.Background(), 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "ok", hr.Status)
}

func TestWaitHealthyTimesOut(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	h, err := NewHarness(ts.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = h.WaitHealthy(ctx, 10*time.Millisecond)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func sumCounter(t *testing.T, srv *Server, name string) float64 {
	t.Helper()
	families, err := srv.Metrics().Registry.Gather()
	require.NoError(t, err)
	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}
