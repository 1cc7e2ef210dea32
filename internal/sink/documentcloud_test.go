package sink

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerifyPermissions(t *testing.T) {
	verified := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/users/me/", r.URL.Path)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{"verified_journalist": verified})
	}))
	defer srv.Close()

	c, err := NewDocumentCloudClient(srv.URL+"/api", "tok")
	require.NoError(t, err)
	require.NoError(t, c.VerifyPermissions(context.Background()))

	verified = false
	require.Error(t, c.VerifyPermissions(context.Background()))
}

func TestUploadByURL(t *testing.T) {
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/documents/", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c, err := NewDocumentCloudClient(srv.URL+"/api", "tok")
	require.NoError(t, err)

	req := UploadRequest{
		Title:    "Décision",
		Access:   "private",
		Language: "fra",
		Project:  "214000",
		FileURL:  "https://example.org/IMG/pdf/decision.pdf",
		Data:     map[string]string{"year": "2024"},
	}
	require.NoError(t, c.Upload(context.Background(), req))
	require.Equal(t, "https://example.org/IMG/pdf/decision.pdf", payload["file_url"])
	require.Equal(t, "private", payload["access"])
	require.Equal(t, []any{float64(214000)}, payload["projects"])
}

func TestUploadLocalFile(t *testing.T) {
	local := filepath.Join(t.TempDir(), "decision.pdf")
	require.NoError(t, os.WriteFile(local, []byte("pdf-bytes"), 0o600))

	var putBody []byte
	var processed bool
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/documents/":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":            12345,
				"presigned_url": srv.URL + "/put/decision.pdf",
			})
		case r.Method == http.MethodPut && r.URL.Path == "/put/decision.pdf":
			putBody, _ = io.ReadAll(r.Body)
		case r.Method == http.MethodPost && r.URL.Path == "/api/documents/12345/process/":
			processed = true
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	c, err := NewDocumentCloudClient(srv.URL+"/api", "tok")
	require.NoError(t, err)

	require.NoError(t, c.Upload(context.Background(), UploadRequest{
		Title:     "Décision",
		LocalPath: local,
	}))
	require.Equal(t, "pdf-bytes", string(putBody))
	require.True(t, processed)
}

func TestUploadSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"detail":"quota exceeded"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	c, err := NewDocumentCloudClient(srv.URL+"/api", "tok")
	require.NoError(t, err)

	err = c.Upload(context.Background(), UploadRequest{FileURL: "https://example.org/x.pdf"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 403")
}

func TestNewDocumentCloudClientRequiresCredentials(t *testing.T) {
	_, err := NewDocumentCloudClient("", "tok")
	require.Error(t, err)
	_, err = NewDocumentCloudClient("https://api.example.org", "")
	require.Error(t, err)
}
