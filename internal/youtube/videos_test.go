package youtube

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteVideo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/youtube/v3/videos", r.URL.Path)
		assert.Equal(t, "vid 1", r.URL.Query().Get("id"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, newTestClient(t, srv.URL).DeleteVideo(context.Background(), "vid 1"))
}

func TestDeleteVideo_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	err := newTestClient(t, srv.URL).DeleteVideo(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteVideo_EmptyID(t *testing.T) {
	assert.Error(t, newTestClient(t, "http://unused").DeleteVideo(context.Background(), ""))
}

func TestUpdatePrivacy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "status", r.URL.Query().Get("part"))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)

		var got privacyUpdate
		assert.NoError(t, json.Unmarshal(body, &got))
		assert.Equal(t, "v1", got.ID)
		assert.Equal(t, PrivacyPublic, got.Status.PrivacyStatus)

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	applied, err := newTestClient(t, srv.URL).UpdatePrivacy(context.Background(), "v1", "Public")
	require.NoError(t, err)
	assert.Equal(t, PrivacyPublic, applied)
}

func TestUpdatePrivacy_InvalidValue(t *testing.T) {
	_, err := newTestClient(t, "http://unused").UpdatePrivacy(context.Background(), "v1", "friends-only")
	assert.ErrorIs(t, err, ErrInvalidPrivacy)
}
