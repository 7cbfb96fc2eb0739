package generation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"atelier_back/gallery"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &Client{remote: &remote{
		httpClient: &http.Client{},
		baseURL:    srv.URL,
		timeout:    timeout,
	}}, srv
}

func TestGenerateSuccessSurfacesWarnings(t *testing.T) {
	var received GenerateRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_ = json.NewEncoder(w).Encode(GenerateResult{
			Mode:     gallery.ModeStudioRandom,
			Results:  []ResultItem{{URL: "/a.png", Seed: int64Ptr(5)}},
			Warnings: []string{"a non-commercially-licensed model was used"},
		})
	}, 5*time.Second)

	result, err := client.Generate(context.Background(), GenerateRequest{
		Mode:       gallery.ModeStudioRandom,
		Count:      2,
		Prompt:     "headshot",
		Checkpoint: "studioRealism_v30.safetensors",
	})

	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	require.Equal(t, "/a.png", result.Results[0].URL)
	require.Equal(t, int64(5), *result.Results[0].Seed)
	require.Equal(t, []string{"a non-commercially-licensed model was used"}, result.Warnings)

	require.Equal(t, 2, received.Count)
	require.Equal(t, "studioRealism_v30.safetensors", received.Checkpoint)
	require.False(t, client.Busy())
}

func TestGenerateSendsAPIKeyHeader(t *testing.T) {
	var gotKey string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		_ = json.NewEncoder(w).Encode(GenerateResult{Results: []ResultItem{{URL: "/a.png"}}})
	}, 5*time.Second)
	client.apiKey = "secret"

	_, err := client.Generate(context.Background(), GenerateRequest{})
	require.NoError(t, err)
	require.Equal(t, "secret", gotKey)
}

func TestGenerateServiceErrorIsTypedAndRetryable(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "gpu pool exhausted"})
	}, 5*time.Second)

	_, err := client.Generate(context.Background(), GenerateRequest{})

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, http.StatusInternalServerError, svcErr.Status)
	require.Equal(t, "gpu pool exhausted", svcErr.Message)
	require.True(t, IsRetryable(err))
	require.False(t, IsCancellation(err))
	require.False(t, client.Busy())
}

func TestGenerateMalformedPayloadIsServiceError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	}, 5*time.Second)

	_, err := client.Generate(context.Background(), GenerateRequest{})

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	require.True(t, IsRetryable(err))
}

func TestGenerateTimeoutIsDistinctFromCancel(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server notices the client going away and
		// cancels r.Context(); otherwise this handler never unblocks.
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}, 50*time.Millisecond)

	_, err := client.Generate(context.Background(), GenerateRequest{})

	require.ErrorIs(t, err, ErrTimedOut)
	require.NotErrorIs(t, err, ErrCancelled)
	require.True(t, IsCancellation(err))
	require.False(t, IsRetryable(err))
	require.False(t, client.Busy())
}

func TestExplicitCancelResolvesPendingCall(t *testing.T) {
	started := make(chan struct{})
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		close(started)
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}, 5*time.Second)

	errCh := make(chan error, 1)
	go func() {
		_, err := client.Generate(context.Background(), GenerateRequest{})
		errCh <- err
	}()

	<-started
	require.True(t, client.Cancel())

	err := <-errCh
	require.ErrorIs(t, err, ErrCancelled)
	require.False(t, client.Busy())
	require.False(t, client.Cancel(), "nothing left to cancel")
}

func TestNewerCallSupersedesOlderCall(t *testing.T) {
	var calls int32
	firstStarted := make(chan struct{})
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(firstStarted)
			_, _ = io.Copy(io.Discard, r.Body)
			<-r.Context().Done()
			return
		}
		_ = json.NewEncoder(w).Encode(GenerateResult{Results: []ResultItem{{URL: "/second.png"}}})
	}, 5*time.Second)

	firstErr := make(chan error, 1)
	go func() {
		_, err := client.Generate(context.Background(), GenerateRequest{Prompt: "first"})
		firstErr <- err
	}()

	<-firstStarted

	// Last write wins: starting the second call cancels the first.
	result, err := client.Generate(context.Background(), GenerateRequest{Prompt: "second"})
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	require.Equal(t, "/second.png", result.Results[0].URL)

	// The first call settles as a cancellation and must not have clobbered
	// the second call's state.
	require.ErrorIs(t, <-firstErr, ErrCancelled)
	require.False(t, client.Busy())
}

func TestCallerContextCancellation(t *testing.T) {
	started := make(chan struct{})
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		close(started)
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := client.Generate(ctx, GenerateRequest{})
		errCh <- err
	}()

	<-started
	cancel()

	require.ErrorIs(t, <-errCh, ErrCancelled)
}

func TestClassifyErrorPassesServiceErrorsThrough(t *testing.T) {
	ctx := context.Background()
	original := &ServiceError{Status: 503, Message: "overloaded"}

	classified := classifyError(ctx, original)
	var svcErr *ServiceError
	require.ErrorAs(t, classified, &svcErr)
	require.Equal(t, original, svcErr)

	transport := classifyError(ctx, errors.New("connection refused"))
	require.True(t, IsRetryable(transport))
}

func int64Ptr(v int64) *int64 {
	return &v
}
