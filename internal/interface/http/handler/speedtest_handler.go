package handler

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"k8s.io/klog/v2"
)

const (
	DefaultDownloadSize int64 = 5 << 20
	MaxDownloadSize     int64 = 100 << 20
	maxUploadMemory           = 32 << 20
)

// Download 回傳 size 指定大小的隨機位元組，供測速下載使用。
// size 無效時使用 defaultSize，超過 maxSize 時截斷。
func Download(defaultSize, maxSize int64) http.Handler {
	if defaultSize <= 0 {
		defaultSize = DefaultDownloadSize
	}
	if maxSize <= 0 {
		maxSize = MaxDownloadSize
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		size := downloadSize(r.URL.Query().Get("size"), defaultSize, maxSize)
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Cache-Control", "no-store, no-cache")
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)

		if _, err := io.CopyN(w, rand.Reader, size); err != nil {
			// 用戶端中途斷線屬正常情況
			klog.V(2).InfoS("Speedtest download aborted", "size", size, "err", err)
		}
	})
}

func downloadSize(raw string, def, limit int64) int64 {
	size, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || size <= 0 {
		size = def
	}
	if size > limit {
		size = limit
	}
	return size
}

// Upload 接收 multipart 欄位 file 並丟棄內容，只回報是否成功。
func Upload() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		if err := r.ParseMultipartForm(maxUploadMemory); err != nil && !errors.Is(err, http.ErrMissingFile) {
			klog.V(1).InfoS("Speedtest upload parse failed", "err", err)
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": "Upload failed"})
			return
		}
		defer func() {
			if r.MultipartForm != nil {
				_ = r.MultipartForm.RemoveAll()
			}
		}()

		file, _, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "No file provided"})
			return
		}
		defer file.Close()
		n, _ := io.Copy(io.Discard, file)
		klog.V(2).InfoS("Speedtest upload received", "bytes", n)

		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
