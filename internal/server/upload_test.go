package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"qrdrop/internal/store"
)

func newTestConfig(t *testing.T) Config {
	t.Helper()

	st, err := store.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS failed: %v", err)
	}

	return Config{
		Addr:  ":0",
		Build: BuildInfo{Version: "test"},
		Lifecycle: &Lifecycle{
			Store:   st,
			BaseURL: StaticBaseURL("https://share.example.com"),
			Encode:  stubEncoder,
		},
		Store: st,
	}
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write part failed: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer failed: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestUploadHandler_Success(t *testing.T) {
	cfg := newTestConfig(t)
	handler := cfg.uploadHandler()

	body, contentType := multipartBody(t, "file", "note.txt", []byte("hello"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp uploadResp
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Filename != "note.txt" {
		t.Errorf("filename = %q", resp.Filename)
	}
	if resp.URL != "https://share.example.com/view/note.txt" {
		t.Errorf("url = %q", resp.URL)
	}
	if resp.Code != "/codes/note.txt.png" {
		t.Errorf("code = %q", resp.Code)
	}
	if resp.Key == "" {
		t.Error("no key in response")
	}
}

func TestUploadHandler_InvalidMethod(t *testing.T) {
	cfg := newTestConfig(t)

	req := httptest.NewRequest(http.MethodGet, "/upload", nil)
	rr := httptest.NewRecorder()
	cfg.uploadHandler().ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rr.Code)
	}
}

func TestUploadHandler_MissingFilePart(t *testing.T) {
	cfg := newTestConfig(t)

	body, contentType := multipartBody(t, "other", "note.txt", []byte("hello"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()

	cfg.uploadHandler().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing file part, got %d", rr.Code)
	}
}

func TestUploadHandler_EmptyFilename(t *testing.T) {
	cfg := newTestConfig(t)

	body, contentType := multipartBody(t, "file", "", []byte("hello"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()

	cfg.uploadHandler().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty filename, got %d", rr.Code)
	}
}

func TestUploadHandler_NotMultipart(t *testing.T) {
	cfg := newTestConfig(t)

	req := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewReader([]byte("raw")))
	rr := httptest.NewRecorder()
	cfg.uploadHandler().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for non-multipart body, got %d", rr.Code)
	}
}

func TestMaxUploadBytes(t *testing.T) {
	tests := []struct {
		name        string
		envValue    string
		want        int64
		shouldError bool
	}{
		{"valid limit", "1048576", 1048576, false},
		{"empty value (no limit)", "", 0, false},
		{"invalid format", "not-a-number", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("QRDROP_MAX_UPLOAD_BYTES", tt.envValue)

			got, err := maxUploadBytes()

			if tt.shouldError {
				if err == nil {
					t.Errorf("Expected error for %s, got nil", tt.name)
				}
				return
			}
			if err != nil {
				t.Errorf("Expected no error for %s, got %v", tt.name, err)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}
