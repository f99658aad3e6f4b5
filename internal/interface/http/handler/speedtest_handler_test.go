package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDownload_DefaultSize(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/download", nil)
	rec := httptest.NewRecorder()

	Download(1024, 4096).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if rec.Body.Len() != 1024 {
		t.Fatalf("expected 1024 bytes, got %d", rec.Body.Len())
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store, no-cache" {
		t.Fatalf("unexpected Cache-Control: %s", got)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/octet-stream" {
		t.Fatalf("unexpected Content-Type: %s", got)
	}
}

func TestDownload_SizeParam(t *testing.T) {
	cases := []struct {
		query string
		want  int
	}{
		{"size=10", 10},
		{"size=999999", 4096},
		{"size=-5", 1024},
		{"size=abc", 1024},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/download?"+tc.query, nil)
			rec := httptest.NewRecorder()
			Download(1024, 4096).ServeHTTP(rec, req)
			if rec.Body.Len() != tc.want {
				t.Fatalf("expected %d bytes, got %d", tc.want, rec.Body.Len())
			}
		})
	}
}

func TestDownload_MethodNotAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/download", nil)
	rec := httptest.NewRecorder()

	Download(0, 0).ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}

func TestDownloadSize_Defaults(t *testing.T) {
	if got := downloadSize("", DefaultDownloadSize, MaxDownloadSize); got != 5<<20 {
		t.Fatalf("expected 5 MiB, got %d", got)
	}
	if got := downloadSize("209715200", DefaultDownloadSize, MaxDownloadSize); got != 100<<20 {
		t.Fatalf("expected cap at 100 MiB, got %d", got)
	}
}

func TestUpload(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "blob.bin")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(bytes.Repeat([]byte{0xAB}, 2048))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()

	Upload().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["success"] != true {
		t.Fatalf("expected success, got %v", resp)
	}
}

func TestUpload_MissingFile(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("other", "value")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()

	Upload().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No file provided") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestUpload_MethodNotAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/upload", nil)
	rec := httptest.NewRecorder()

	Upload().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}
