package convert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	apperrors "github.com/lgwanai/email-mcp/internal/errors"
)

// RichConverter turns rich documents (PDF, Office formats, images) into
// text. Implementations may call out to an external service; absence of a
// converter is a configuration fact, not an error.
type RichConverter interface {
	Convert(ctx context.Context, filename string, content []byte) (string, error)
}

// HTTPConverter delegates rich-document conversion to an external HTTP
// service that accepts a multipart upload and answers with extracted text.
type HTTPConverter struct {
	baseURL string
	client  *http.Client
}

// NewHTTPConverter creates a converter client for the service at baseURL
func NewHTTPConverter(baseURL string, timeout time.Duration) *HTTPConverter {
	return &HTTPConverter{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type convertResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// Convert uploads the document and returns the extracted text
func (c *HTTPConverter) Convert(ctx context.Context, filename string, content []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return "", fmt.Errorf("failed to build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/convert", &body)
	if err != nil {
		return "", fmt.Errorf("failed to build converter request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", apperrors.NewAppError(apperrors.ErrConversionFailure,
			fmt.Sprintf("converter unreachable: %v", err), apperrors.CodeConversionFailure)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperrors.NewAppError(apperrors.ErrConversionFailure,
			fmt.Sprintf("converter returned status %d", resp.StatusCode),
			apperrors.CodeConversionFailure)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return "", apperrors.NewAppError(apperrors.ErrConversionFailure,
			fmt.Sprintf("failed to read converter response: %v", err),
			apperrors.CodeConversionFailure)
	}

	var parsed convertResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		// Some converters answer with bare text
		return string(data), nil
	}
	if parsed.Error != "" {
		return "", apperrors.NewAppError(apperrors.ErrConversionFailure,
			parsed.Error, apperrors.CodeConversionFailure)
	}
	return parsed.Text, nil
}
