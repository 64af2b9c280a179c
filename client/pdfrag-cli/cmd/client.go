package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pdfrag/backend/go/pkg/circuitbreaker"
	pkghttp "pdfrag/backend/go/pkg/http"

	"github.com/gabriel-vasile/mimetype"
)

// Client talks to the pdfrag HTTP API.
type Client struct {
	base   string
	apiKey string
	http   *pkghttp.Client
}

// NewClient creates a Client. Three consecutive 5xx responses open the breaker for 30s.
func NewClient(base, apiKey string, timeout time.Duration) *Client {
	return &Client{
		base:   strings.TrimRight(base, "/"),
		apiKey: apiKey,
		http:   pkghttp.NewClientWith(&http.Client{Timeout: timeout}, circuitbreaker.New(3, 1, 30*time.Second)),
	}
}

// APIError is a non-2xx response.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Detail)
}

// FileRecord mirrors the server's file record.
type FileRecord struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	SizeMB    float64   `json:"size_mb"`
	ChunkIDs  []string  `json:"chunks_ids"`
	CreatedAt time.Time `json:"created_at"`
}

// UploadResult mirrors the upload response.
type UploadResult struct {
	Filenames   []string `json:"filenames"`
	TotalFiles  int      `json:"total_files"`
	TotalChunks int      `json:"total_chunks"`
	Message     string   `json:"message"`
}

// DeletionResult mirrors the delete response.
type DeletionResult struct {
	Message       string `json:"message"`
	DeletedChunks int    `json:"deleted_chunks"`
	Filename      string `json:"filename"`
}

// Source is a cited (filename, page) pair.
type Source struct {
	Filename string `json:"filename"`
	Page     int    `json:"page"`
}

// Answer mirrors the ask-question response.
type Answer struct {
	Answer     string   `json:"answer"`
	Sources    []Source `json:"sources"`
	Confidence *string  `json:"confidence"`
}

// Upload sends files in one multipart request. The content type of each part is sniffed.
func (c *Client) Upload(ctx context.Context, paths []string) (*UploadResult, json.RawMessage, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, nil, err
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, filepath.Base(p)))
		h.Set("Content-Type", mimetype.Detect(data).String())
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, nil, err
		}
		if _, err := part.Write(data); err != nil {
			return nil, nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, nil, err
	}

	var out UploadResult
	raw, err := c.do(ctx, http.MethodPost, "/documents", mw.FormDataContentType(), &buf, &out)
	return &out, raw, err
}

// List returns every upload, newest first.
func (c *Client) List(ctx context.Context) ([]FileRecord, json.RawMessage, error) {
	var out []FileRecord
	raw, err := c.do(ctx, http.MethodGet, "/documents", "", nil, &out)
	return out, raw, err
}

// Delete removes one upload by record id.
func (c *Client) Delete(ctx context.Context, id string) (*DeletionResult, json.RawMessage, error) {
	var out DeletionResult
	raw, err := c.do(ctx, http.MethodDelete, "/documents/"+url.PathEscape(id), "", nil, &out)
	return &out, raw, err
}

// DeleteByFilename removes every upload stored under filename.
func (c *Client) DeleteByFilename(ctx context.Context, filename string) (*DeletionResult, json.RawMessage, error) {
	var out DeletionResult
	raw, err := c.do(ctx, http.MethodDelete, "/documents?filename="+url.QueryEscape(filename), "", nil, &out)
	return &out, raw, err
}

// Ask sends a question. k <= 0 uses the server default.
func (c *Client) Ask(ctx context.Context, question string, k int) (*Answer, json.RawMessage, error) {
	body := map[string]interface{}{"question": question}
	if k > 0 {
		body["k"] = k
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, nil, err
	}
	var out Answer
	raw, err := c.do(ctx, http.MethodPost, "/rag/ask-question", "application/json", bytes.NewReader(b), &out)
	return &out, raw, err
}

// Health returns the raw health report. A 503 report is returned together with an APIError.
func (c *Client) Health(ctx context.Context) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, "/health", "", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out interface{}) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Detail string `json:"detail"`
		}
		_ = json.Unmarshal(raw, &e)
		return raw, &APIError{Status: resp.StatusCode, Detail: e.Detail}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return raw, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return raw, nil
}
