package trailer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, string) {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	dir := t.TempDir()

	return NewClient(srv.URL+"/trailer", srv.Client(), dir, time.Minute, slog.Default()), dir
}

func TestFetch_Success(t *testing.T) {
	video := []byte("ftyp-fake-mp4-bytes")

	c, dir := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/trailer", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "video/mp4", r.Header.Get("Accept"))

		var body generateRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, generateRequest{Title: "Dune", Author: "Frank Herbert"}, body)

		w.Header().Set("Content-Type", "video/mp4")
		_, _ = w.Write(video)
	})

	sp, err := c.Fetch(context.Background(), "Dune", "Frank Herbert")
	require.NoError(t, err)

	assert.Equal(t, int64(len(video)), sp.Length())

	got, err := io.ReadAll(sp)
	require.NoError(t, err)
	assert.Equal(t, video, got)

	tail := make([]byte, 3)
	_, err = sp.ReadAt(tail, int64(len(video)-3))
	require.NoError(t, err)
	assert.Equal(t, "tes", string(tail))

	path := sp.Path()
	assert.FileExists(t, path)

	require.NoError(t, sp.Close())
	assert.NoFileExists(t, path)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFetch_Rejected(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":"title required"}`))
	})

	_, err := c.Fetch(context.Background(), "", "x")
	require.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "title required")
}

func TestFetch_RejectedEmptyBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	})

	_, err := c.Fetch(context.Background(), "a", "b")
	require.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "no response body")
}

func TestFetch_ServerError(t *testing.T) {
	c, dir := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gpu on fire", http.StatusBadGateway)
	})

	_, err := c.Fetch(context.Background(), "a", "b")

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.StatusCode)
	assert.Contains(t, se.Body, "gpu on fire")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no spool file on failure")
}

func TestFetch_Timeout(t *testing.T) {
	release := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c := NewClient(srv.URL, srv.Client(), t.TempDir(), 50*time.Millisecond, slog.Default())

	_, err := c.Fetch(context.Background(), "a", "b")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestFetch_NoEndpoint(t *testing.T) {
	c := NewClient("", nil, "", 0, nil)

	_, err := c.Fetch(context.Background(), "a", "b")
	require.ErrorIs(t, err, ErrNoEndpoint)
	assert.Equal(t, DefaultTimeout, c.timeout)
}
