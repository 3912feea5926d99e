package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
)

// ErrImgbbKeyRequired is returned when the API key is not provided.
var ErrImgbbKeyRequired = errors.New("imgbb: API key is required")

// Imgbb uploads image derivatives to the imgbb hosting API, keyed by a
// static API key, and returns the hosted URL.
type Imgbb struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// ImgbbOption is a function that configures an Imgbb client.
type ImgbbOption func(*Imgbb)

// WithImgbbBaseURL sets a custom API base URL.
func WithImgbbBaseURL(url string) ImgbbOption {
	return func(i *Imgbb) {
		i.baseURL = url
	}
}

// WithImgbbHTTPClient sets a custom HTTP client.
func WithImgbbHTTPClient(hc *http.Client) ImgbbOption {
	return func(i *Imgbb) {
		i.httpClient = hc
	}
}

// NewImgbb creates an imgbb image publisher.
func NewImgbb(apiKey string, opts ...ImgbbOption) (*Imgbb, error) {
	if apiKey == "" {
		return nil, ErrImgbbKeyRequired
	}

	i := &Imgbb{
		apiKey:     apiKey,
		baseURL:    "https://api.imgbb.com",
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// imgbbResponse mirrors the fields of the imgbb upload response we consume.
type imgbbResponse struct {
	Success bool `json:"success"`
	Status  int  `json:"status"`
	Data    struct {
		URL string `json:"url"`
	} `json:"data"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Publish uploads the file at localPath as a multipart form post and
// returns the hosted URL. The API reports failures in-band with a success
// flag; both those and transport failures surface as a BackendError.
func (i *Imgbb) Publish(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath) // #nosec G304 - path is generated by the pipeline
	if err != nil {
		return "", &BackendError{Backend: "imgbb", Message: "derivative file could not be read", Err: err}
	}
	defer func() { _ = f.Close() }()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("image", filepath.Base(localPath))
	if err != nil {
		return "", &BackendError{Backend: "imgbb", Message: "build upload form", Err: err}
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", &BackendError{Backend: "imgbb", Message: "read derivative file", Err: err}
	}
	if err := mw.Close(); err != nil {
		return "", &BackendError{Backend: "imgbb", Message: "build upload form", Err: err}
	}

	endpoint := fmt.Sprintf("%s/1/upload?key=%s", i.baseURL, url.QueryEscape(i.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", &BackendError{Backend: "imgbb", Message: "create request", Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return "", &BackendError{Backend: "imgbb", Message: fmt.Sprintf("request failed: %v", err), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &BackendError{Backend: "imgbb", Message: fmt.Sprintf("read response: %v", err), Err: err}
	}

	var parsed imgbbResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &BackendError{
			Backend: "imgbb",
			Message: fmt.Sprintf("unexpected response with status %d", resp.StatusCode),
			Err:     err,
		}
	}

	if !parsed.Success {
		msg := parsed.Error.Message
		if msg == "" {
			msg = fmt.Sprintf("upload rejected with status %d", resp.StatusCode)
		}
		return "", &BackendError{Backend: "imgbb", Message: msg}
	}

	if parsed.Data.URL == "" {
		return "", &BackendError{Backend: "imgbb", Message: "response contained no image URL"}
	}

	return parsed.Data.URL, nil
}
