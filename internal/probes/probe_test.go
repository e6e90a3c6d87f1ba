package probes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/checkernet/probed/internal/core"
	"github.com/checkernet/probed/internal/queue"
)

func dealJob(payload string) core.Job {
	return core.Job{
		ID:      uuid.New(),
		Queue:   "deal",
		Payload: []byte(payload),
	}
}

func TestDealHandler_Success(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(probeVerdict{Ok: true})
	}))
	defer srv.Close()

	h, err := NewDealHandler(GatewayOptions{BaseURL: srv.URL})
	require.NoError(t, err)

	err = h.Run(context.Background(), dealJob(`{"sp_address":"f01000","interval_seconds":60}`))
	require.NoError(t, err)
	assert.Equal(t, "/probe/deal", gotPath)
	assert.Equal(t, "f01000", gotBody["sp_address"])
}

func TestRetrievalHandler_GatewayFailureVerdict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(probeVerdict{Ok: false, Detail: "piece not found"})
	}))
	defer srv.Close()

	h, err := NewRetrievalHandler(GatewayOptions{BaseURL: srv.URL})
	require.NoError(t, err)

	err = h.Run(context.Background(), dealJob(`{"sp_address":"f01000"}`))
	require.ErrorContains(t, err, "piece not found")
}

func TestDealHandler_UnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	h, err := NewDealHandler(GatewayOptions{BaseURL: srv.URL})
	require.NoError(t, err)

	err = h.Run(context.Background(), dealJob(`{"sp_address":"f01000"}`))
	require.ErrorContains(t, err, "unexpected status 502")
}

func TestDealHandler_HonorsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	h, err := NewDealHandler(GatewayOptions{BaseURL: srv.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err = h.Run(ctx, dealJob(`{"sp_address":"f01000"}`))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDealHandler_RejectsEmptyAddress(t *testing.T) {
	h, err := NewDealHandler(GatewayOptions{BaseURL: "http://gateway"})
	require.NoError(t, err)

	err = h.Run(context.Background(), dealJob(`{"interval_seconds":60}`))
	require.ErrorContains(t, err, "no provider address")
}

type stubDeleter struct {
	got     queue.DeleteFinishedParams
	deleted int64
	err     error
}

func (s *stubDeleter) DeleteFinishedJobs(_ context.Context, p queue.DeleteFinishedParams) (int64, error) {
	s.got = p
	return s.deleted, s.err
}

func TestCleanupHandler_PassesRetention(t *testing.T) {
	deleter := &stubDeleter{deleted: 42}
	h := NewCleanupHandler(deleter, 24*time.Hour, 500, nil)

	require.NoError(t, h.Run(context.Background(), core.Job{}))
	assert.Equal(t, 24*time.Hour, deleter.got.MaxAge)
	assert.Equal(t, 500, deleter.got.BatchSize)
}

func TestCleanupHandler_Defaults(t *testing.T) {
	deleter := &stubDeleter{}
	h := NewCleanupHandler(deleter, 0, 0, nil)

	require.NoError(t, h.Run(context.Background(), core.Job{}))
	assert.Equal(t, 168*time.Hour, deleter.got.MaxAge)
	assert.Equal(t, 1000, deleter.got.BatchSize)
}

type stubRefresher struct {
	count int
	err   error
	calls int
}

func (s *stubRefresher) Refresh(context.Context) (int, error) {
	s.calls++
	return s.count, s.err
}

func TestRefreshHandler_RunsRefresh(t *testing.T) {
	refresher := &stubRefresher{count: 7}
	h := NewRefreshHandler(refresher, nil)

	require.NoError(t, h.Run(context.Background(), core.Job{}))
	assert.Equal(t, 1, refresher.calls)
}

func TestRefreshHandler_PropagatesError(t *testing.T) {
	refresher := &stubRefresher{err: assert.AnError}
	h := NewRefreshHandler(refresher, nil)

	require.ErrorIs(t, h.Run(context.Background(), core.Job{}), assert.AnError)
}
