package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"
)

// DocumentCloudClient implements Uploader against the DocumentCloud REST
// API. URL-sourced files are uploaded server-side via file_url; archive
// members are pushed through the presigned-URL flow.
type DocumentCloudClient struct {
	baseURL string
	token   string
	httpc   *http.Client
}

// NewDocumentCloudClient builds a client. baseURL is the API root, e.g.
// "https://api.www.documentcloud.org/api".
func NewDocumentCloudClient(baseURL, token string) (*DocumentCloudClient, error) {
	if baseURL == "" || token == "" {
		return nil, fmt.Errorf("documentcloud base URL and token must be set")
	}
	return &DocumentCloudClient{
		baseURL: baseURL,
		token:   token,
		httpc:   &http.Client{Timeout: 120 * time.Second},
	}, nil
}

// VerifyPermissions checks that the authenticated account may upload.
func (c *DocumentCloudClient) VerifyPermissions(ctx context.Context) error {
	var user struct {
		VerifiedJournalist bool `json:"verified_journalist"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/users/me/", nil, &user); err != nil {
		return fmt.Errorf("fetch account: %w", err)
	}
	if !user.VerifiedJournalist {
		return fmt.Errorf("account is not verified for uploads")
	}
	return nil
}

// Upload creates one document. Never retried by the caller.
func (c *DocumentCloudClient) Upload(ctx context.Context, req UploadRequest) error {
	payload := map[string]any{
		"title":       req.Title,
		"description": req.Description,
		"source":      req.Source,
		"language":    req.Language,
		"access":      req.Access,
		"data":        req.Data,
	}
	if req.OriginalExtension != "" {
		payload["original_extension"] = req.OriginalExtension
	}
	if id, err := strconv.Atoi(req.Project); err == nil {
		payload["projects"] = []int{id}
	}

	if req.FileURL != "" {
		payload["file_url"] = req.FileURL
		return c.doJSON(ctx, http.MethodPost, "/documents/", payload, nil)
	}
	return c.uploadLocal(ctx, payload, req.LocalPath)
}

// uploadLocal creates the document record, pushes the bytes to the returned
// presigned URL, then triggers processing.
func (c *DocumentCloudClient) uploadLocal(ctx context.Context, payload map[string]any, localPath string) error {
	var created struct {
		ID           json.Number `json:"id"`
		PresignedURL string      `json:"presigned_url"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/documents/", payload, &created); err != nil {
		return fmt.Errorf("create document: %w", err)
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", localPath, err)
	}
	put, err := http.NewRequestWithContext(ctx, http.MethodPut, created.PresignedURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	resp, err := c.httpc.Do(put)
	if err != nil {
		return fmt.Errorf("push file bytes: %w", err)
	}
	drainAndClose(resp)
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("push file bytes: status %d", resp.StatusCode)
	}

	path := fmt.Sprintf("/documents/%s/process/", created.ID.String())
	if err := c.doJSON(ctx, http.MethodPost, path, nil, nil); err != nil {
		return fmt.Errorf("trigger processing: %w", err)
	}
	return nil
}

func (c *DocumentCloudClient) doJSON(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request %s %s: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer drainAndClose(resp)

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, detail)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response of %s %s: %w", method, path, err)
		}
	}
	return nil
}

func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}

// NoopUploader accepts everything without side effects. Used for local runs
// against the file-backed ledger.
type NoopUploader struct{}

// VerifyPermissions always succeeds.
func (NoopUploader) VerifyPermissions(_ context.Context) error { return nil }

// Upload does nothing.
func (NoopUploader) Upload(_ context.Context, _ UploadRequest) error { return nil }
