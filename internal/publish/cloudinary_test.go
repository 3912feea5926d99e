package publish

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestDerivative(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte("derivative bytes"), 0600))
	return p
}

func TestNewCloudinary_Validation(t *testing.T) {
	_, err := NewCloudinary("", "key", "secret")
	assert.ErrorIs(t, err, ErrCloudNameRequired)

	_, err = NewCloudinary("demo", "", "secret")
	assert.ErrorIs(t, err, ErrCredentialsRequired)

	_, err = NewCloudinary("demo", "key", "")
	assert.ErrorIs(t, err, ErrCredentialsRequired)

	c, err := NewCloudinary("demo", "key", "secret")
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestCloudinary_Publish_Success(t *testing.T) {
	local := writeTestDerivative(t, "compressed_abc.mp4")

	var gotPath string
	var gotFields map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotFields = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			gotFields[k] = v[0]
		}
		_, _, err := r.FormFile("file")
		require.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"secure_url": "https://res.cloudinary.com/demo/video/upload/v1/seami_compressed/abc.mp4",
		})
	}))
	defer srv.Close()

	c, err := NewCloudinary("demo", "key", "secret", WithCloudinaryBaseURL(srv.URL))
	require.NoError(t, err)
	c.now = func() time.Time { return time.Unix(1700000000, 0) }

	url, err := c.Publish(context.Background(), local)
	require.NoError(t, err)
	assert.Equal(t, "https://res.cloudinary.com/demo/video/upload/v1/seami_compressed/abc.mp4", url)

	assert.Equal(t, "/v1_1/demo/video/upload", gotPath)
	assert.Equal(t, "key", gotFields["api_key"])
	assert.Equal(t, "seami_compressed", gotFields["folder"])
	assert.Equal(t, "1700000000", gotFields["timestamp"])

	sum := sha1.Sum([]byte("folder=seami_compressed&timestamp=1700000000secret"))
	assert.Equal(t, hex.EncodeToString(sum[:]), gotFields["signature"])
}

func TestCloudinary_Publish_APIError(t *testing.T) {
	local := writeTestDerivative(t, "compressed_abc.mp4")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "Invalid Signature"},
		})
	}))
	defer srv.Close()

	c, err := NewCloudinary("demo", "key", "secret", WithCloudinaryBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = c.Publish(context.Background(), local)
	require.Error(t, err)

	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, "cloudinary", backendErr.Backend)
	assert.Contains(t, backendErr.Message, "Invalid Signature")
}

func TestCloudinary_Publish_TransportError(t *testing.T) {
	local := writeTestDerivative(t, "compressed_abc.mp4")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused

	c, err := NewCloudinary("demo", "key", "secret", WithCloudinaryBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = c.Publish(context.Background(), local)
	require.Error(t, err)

	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Contains(t, backendErr.Message, "request failed")
}

func TestCloudinary_Publish_MissingFile(t *testing.T) {
	c, err := NewCloudinary("demo", "key", "secret")
	require.NoError(t, err)

	_, err = c.Publish(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"))
	require.Error(t, err)

	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.True(t, os.IsNotExist(backendErr.Err))
}

func TestCloudinary_Publish_EmptyURLInResponse(t *testing.T) {
	local := writeTestDerivative(t, "compressed_abc.mp4")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	c, err := NewCloudinary("demo", "key", "secret", WithCloudinaryBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = c.Publish(context.Background(), local)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no secure URL")
}
