package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastBackoff(attempts int) BackoffConfig {
	return BackoffConfig{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     5 * time.Millisecond,
	}
}

func TestUpsertRetriesUntilSuccess(t *testing.T) {
	var calls int32
	var got upsertRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/records/upsert", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	c.Backoff = fastBackoff(5)

	err := c.Upsert(context.Background(), TableAssets, "T-1", []string{"T-1", "Impact Wrench Kit"})
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, TableAssets, got.Table)
	assert.Equal(t, "T-1", got.ID)
}

func TestUpsertGivesUpAfterBoundedAttempts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	c.Backoff = fastBackoff(3)

	err := c.Upsert(context.Background(), TableCases, "C-1", []string{"C-1"})
	assert.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	c.Backoff = BackoffConfig{MaxAttempts: 10, InitialDelay: time.Minute, Multiplier: 2.0}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Upsert(ctx, TableAssets, "T-1", []string{"T-1"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchTableReturnsHeaderFirst(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/records/cases", r.URL.Path)
		json.NewEncoder(w).Encode(fetchResponse{Rows: [][]string{
			{"id", "tool_id"},
			{"C-1", "T-1"},
		}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	c.Backoff = fastBackoff(2)

	rows, err := c.FetchTable(context.Background(), TableCases)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"id", "tool_id"}, rows[0])
}

func TestDeleteHitsRecordPath(t *testing.T) {
	var path, method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path, method = r.URL.Path, r.Method
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	require.NoError(t, c.Delete(context.Background(), TableMaintenance, "M-1"))
	assert.Equal(t, http.MethodDelete, method)
	assert.Equal(t, "/records/maintenance/M-1", path)
}

func TestBackoffDelayGrowsAndCaps(t *testing.T) {
	cfg := BackoffConfig{
		MaxAttempts:  5,
		InitialDelay: 500 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     8 * time.Second,
	}
	assert.Equal(t, 500*time.Millisecond, cfg.Delay(1))
	assert.Equal(t, time.Second, cfg.Delay(2))
	assert.Equal(t, 2*time.Second, cfg.Delay(3))
	assert.Equal(t, 8*time.Second, cfg.Delay(6), "delay never exceeds the cap")
}
