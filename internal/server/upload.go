package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
)

// uploadResp is the JSON response returned after a successful upload.
// Key is the one-time retrieval key; this response is the only place it
// ever appears.
type uploadResp struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Code     string `json:"code"`
	Key      string `json:"key"`
}

// maxUploadBytes reads the QRDROP_MAX_UPLOAD_BYTES environment variable
// and returns the maximum allowed upload size in bytes. Returns 0 if not
// set (meaning no limit). Returns an error if the value cannot be parsed.
func maxUploadBytes() (int64, error) {
	raw := os.Getenv("QRDROP_MAX_UPLOAD_BYTES")
	if raw == "" {
		return 0, nil // no limit configured
	}
	return strconv.ParseInt(raw, 10, 64)
}

// uploadHandler handles POST /upload requests. It reads the multipart
// "file" part, runs the seal lifecycle (store plaintext, encrypt, store
// ciphertext, drop plaintext, issue link code) and returns the filename,
// retrieval URL, code image reference and one-time key.
func (cfg Config) uploadHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		limit, err := maxUploadBytes()
		if err != nil {
			http.Error(w, "server misconfigured", http.StatusInternalServerError)
			return
		}
		if limit > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
		}

		mr, err := r.MultipartReader()
		if err != nil {
			http.Error(w, "bad multipart", http.StatusBadRequest)
			return
		}

		var filename string
		var data []byte

		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				http.Error(w, "bad multipart", http.StatusBadRequest)
				return
			}

			if part.FormName() != "file" {
				_ = part.Close()
				continue
			}

			filename = part.FileName()
			data, err = io.ReadAll(part)
			_ = part.Close()
			if err != nil {
				var maxErr *http.MaxBytesError
				if errors.As(err, &maxErr) {
					http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
					return
				}
				http.Error(w, "bad multipart", http.StatusBadRequest)
				return
			}
			break
		}

		if data == nil {
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}

		res, err := cfg.Lifecycle.Seal(r.Context(), filename, data)
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, "bad filename", http.StatusBadRequest)
				return
			}

			rid := RequestIDFromContext(r.Context())
			log.Printf("rid=%s msg=seal_failed err=%v", rid, err)
			http.Error(w, "upload failed", http.StatusBadGateway)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(uploadResp{
			Filename: res.Filename,
			URL:      res.URL,
			Code:     res.CodeRef,
			Key:      res.Key,
		})
	})
}
