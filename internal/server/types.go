// Package server provides the HTTP surface for the media ingestion pipeline.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

// VideoUploadResponse is the HTTP response for a successful video upload.
type VideoUploadResponse struct {
	// Success is always true on this response.
	Success bool `json:"success"`
	// VideoURL is the public URL of the published derivative.
	VideoURL string `json:"videoUrl"`
}

// ImageUploadResponse is the HTTP response for a successful image upload.
type ImageUploadResponse struct {
	// Success is always true on this response.
	Success bool `json:"success"`
	// ImageURL is the public URL of the published derivative.
	ImageURL string `json:"imageUrl"`
	// OriginalFormat is the uploaded file's extension, with leading dot.
	OriginalFormat string `json:"originalFormat"`
	// CompressedFormat is the derivative encoding.
	CompressedFormat string `json:"compressedFormat"`
}

// FailureResponse is the uniform error payload. Every failure carries a
// false success flag and the diagnostic message.
type FailureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
	// Cloudinary reports whether the video backend credentials are present.
	Cloudinary BackendHealth `json:"cloudinary"`
}

// BackendHealth reports the configuration state of an external backend.
type BackendHealth struct {
	Configured bool `json:"configured"`
}

// uploadRequest is the internal DTO validated for each multipart upload.
type uploadRequest struct {
	// Filename is the client-supplied file name.
	Filename string `validate:"required"`
	// Size is the declared part size in bytes.
	Size int64 `validate:"gte=0"`
}
