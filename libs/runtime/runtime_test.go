package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestLoggerAddsServiceAndFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "booking-service", slog.LevelWarn)

	logger.Info("dropped")
	logger.Warn("kept", "booking_id", "b-1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["msg"])
	assert.Equal(t, "booking-service", line["service"])
	assert.Equal(t, "b-1", line["booking_id"])
}

func TestReadyz(t *testing.T) {
	healthy := ReadyCheck{Name: "db", Check: func(context.Context) error { return nil }}
	broken := ReadyCheck{Name: "kafka", Check: func(context.Context) error { return errors.New("no brokers") }}

	get := func(mux http.Handler, path string) (*httptest.ResponseRecorder, readyReport) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		var rep readyReport
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
		return rec, rep
	}

	mux, _ := NewBaseMuxWithReady(healthy)
	rec, rep := get(mux, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", rep.Status)
	assert.Equal(t, "ok", rep.Checks["db"])

	mux, _ = NewBaseMuxWithReady(healthy, broken)
	rec, rep = get(mux, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not_ready", rep.Status)
	assert.Equal(t, "no brokers", rep.Checks["kafka"])

	mux, _ = NewBaseMuxWithReady(broken)
	rec, _ = get(mux, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReportsDraining(t *testing.T) {
	mux, probes := NewBaseMuxWithReady()
	probes.Drain()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "draining")
}
