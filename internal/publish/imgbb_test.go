package publish

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewImgbb_Validation(t *testing.T) {
	_, err := NewImgbb("")
	assert.ErrorIs(t, err, ErrImgbbKeyRequired)

	i, err := NewImgbb("test-key")
	require.NoError(t, err)
	assert.NotNil(t, i)
}

func TestImgbb_Publish_Success(t *testing.T) {
	local := writeTestDerivative(t, "compressed_abc.webp")

	var gotKey, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		_, _, err := r.FormFile("image")
		require.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"status":  200,
			"data":    map[string]string{"url": "https://i.ibb.co/abc123/compressed.webp"},
		})
	}))
	defer srv.Close()

	i, err := NewImgbb("test-key", WithImgbbBaseURL(srv.URL))
	require.NoError(t, err)

	url, err := i.Publish(context.Background(), local)
	require.NoError(t, err)
	assert.Equal(t, "https://i.ibb.co/abc123/compressed.webp", url)
	assert.Equal(t, "/1/upload", gotPath)
	assert.Equal(t, "test-key", gotKey)
}

func TestImgbb_Publish_APIReportedFailure(t *testing.T) {
	local := writeTestDerivative(t, "compressed_abc.webp")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"status":  400,
			"error":   map[string]any{"message": "Invalid API v1 key"},
		})
	}))
	defer srv.Close()

	i, err := NewImgbb("bad-key", WithImgbbBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = i.Publish(context.Background(), local)
	require.Error(t, err)

	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, "imgbb", backendErr.Backend)
	assert.Contains(t, backendErr.Message, "Invalid API v1 key")
}

func TestImgbb_Publish_SuccessFalseWithoutMessage(t *testing.T) {
	local := writeTestDerivative(t, "compressed_abc.webp")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false})
	}))
	defer srv.Close()

	i, err := NewImgbb("test-key", WithImgbbBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = i.Publish(context.Background(), local)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected with status 200")
}

func TestImgbb_Publish_TransportError(t *testing.T) {
	local := writeTestDerivative(t, "compressed_abc.webp")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused

	i, err := NewImgbb("test-key", WithImgbbBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = i.Publish(context.Background(), local)
	require.Error(t, err)

	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Contains(t, backendErr.Message, "request failed")
}

func TestUnconfigured_Publish(t *testing.T) {
	u := Unconfigured{Backend: "cloudinary"}

	_, err := u.Publish(context.Background(), "/any/path")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotConfigured)

	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, "cloudinary", backendErr.Backend)
}
