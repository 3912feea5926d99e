package publish

import (
	"bytes"
	"context"
	"crypto/sha1" // #nosec G505 - Cloudinary's signing scheme mandates SHA-1
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Static errors for Cloudinary client construction.
var (
	// ErrCloudNameRequired is returned when the cloud name is not provided.
	ErrCloudNameRequired = errors.New("cloudinary: cloud name is required")
	// ErrCredentialsRequired is returned when the API key or secret is missing.
	ErrCredentialsRequired = errors.New("cloudinary: API key and secret are required")
)

// Cloudinary uploads video derivatives to the Cloudinary media store under
// a fixed logical folder and returns the store's canonical secure URL.
type Cloudinary struct {
	cloudName  string
	apiKey     string
	apiSecret  string
	folder     string
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

// CloudinaryOption is a function that configures a Cloudinary client.
type CloudinaryOption func(*Cloudinary)

// WithCloudinaryFolder sets the logical upload folder.
func WithCloudinaryFolder(folder string) CloudinaryOption {
	return func(c *Cloudinary) {
		if folder != "" {
			c.folder = folder
		}
	}
}

// WithCloudinaryBaseURL sets a custom API base URL.
func WithCloudinaryBaseURL(url string) CloudinaryOption {
	return func(c *Cloudinary) {
		c.baseURL = url
	}
}

// WithCloudinaryHTTPClient sets a custom HTTP client.
func WithCloudinaryHTTPClient(hc *http.Client) CloudinaryOption {
	return func(c *Cloudinary) {
		c.httpClient = hc
	}
}

// NewCloudinary creates a Cloudinary video publisher.
// No request timeout is set on the default client: uploads of large
// derivatives are bounded by the caller's context, not a fixed deadline.
func NewCloudinary(cloudName, apiKey, apiSecret string, opts ...CloudinaryOption) (*Cloudinary, error) {
	if cloudName == "" {
		return nil, ErrCloudNameRequired
	}
	if apiKey == "" || apiSecret == "" {
		return nil, ErrCredentialsRequired
	}

	c := &Cloudinary{
		cloudName:  cloudName,
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		folder:     "seami_compressed",
		baseURL:    "https://api.cloudinary.com",
		httpClient: &http.Client{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// uploadResponse is the subset of Cloudinary's upload response we consume.
type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	Error     struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Publish uploads the file at localPath as a video asset and returns its
// secure URL. The upload is signed with the account secret.
func (c *Cloudinary) Publish(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath) // #nosec G304 - path is generated by the pipeline
	if err != nil {
		return "", &BackendError{Backend: "cloudinary", Message: "derivative file could not be read", Err: err}
	}
	defer func() { _ = f.Close() }()

	timestamp := strconv.FormatInt(c.now().Unix(), 10)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fields := map[string]string{
		"api_key":   c.apiKey,
		"timestamp": timestamp,
		"folder":    c.folder,
		"signature": c.sign(timestamp),
	}
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			return "", &BackendError{Backend: "cloudinary", Message: "build upload form", Err: err}
		}
	}

	part, err := mw.CreateFormFile("file", filepath.Base(localPath))
	if err != nil {
		return "", &BackendError{Backend: "cloudinary", Message: "build upload form", Err: err}
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", &BackendError{Backend: "cloudinary", Message: "read derivative file", Err: err}
	}
	if err := mw.Close(); err != nil {
		return "", &BackendError{Backend: "cloudinary", Message: "build upload form", Err: err}
	}

	url := fmt.Sprintf("%s/v1_1/%s/video/upload", c.baseURL, c.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", &BackendError{Backend: "cloudinary", Message: "create request", Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &BackendError{Backend: "cloudinary", Message: fmt.Sprintf("request failed: %v", err), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &BackendError{Backend: "cloudinary", Message: fmt.Sprintf("read response: %v", err), Err: err}
	}

	var parsed uploadResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &BackendError{
			Backend: "cloudinary",
			Message: fmt.Sprintf("unexpected response with status %d", resp.StatusCode),
			Err:     err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := parsed.Error.Message
		if msg == "" {
			msg = fmt.Sprintf("upload rejected with status %d", resp.StatusCode)
		}
		return "", &BackendError{Backend: "cloudinary", Message: msg}
	}

	if parsed.SecureURL == "" {
		return "", &BackendError{Backend: "cloudinary", Message: "response contained no secure URL"}
	}

	return parsed.SecureURL, nil
}

// sign computes the SHA-1 request signature over the signed parameters,
// sorted by name, with the API secret appended.
func (c *Cloudinary) sign(timestamp string) string {
	toSign := fmt.Sprintf("folder=%s&timestamp=%s%s", c.folder, timestamp, c.apiSecret)
	sum := sha1.Sum([]byte(toSign)) // #nosec G401 - mandated by the Cloudinary API
	return hex.EncodeToString(sum[:])
}
