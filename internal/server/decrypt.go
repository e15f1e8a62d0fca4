package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
)

type decryptResp struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// decryptHandler handles POST /decrypt/{filename} with the one-time key
// in the "key" form field. On success the plaintext is rematerialized
// and the response points at the raw download endpoint. Every failure
// to open the ciphertext answers with the same generic 403; the key
// itself is read from the body and never logged.
func (cfg Config) decryptHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		key := r.PostFormValue("key")
		if key == "" {
			http.Error(w, "missing key", http.StatusBadRequest)
			return
		}

		name, err := sanitizeFilename(r.PathValue("filename"))
		if err != nil {
			http.Error(w, "bad filename", http.StatusBadRequest)
			return
		}

		if _, err := cfg.Lifecycle.Unseal(r.Context(), name, key); err != nil {
			switch {
			case errors.Is(err, ErrNotFound):
				http.Error(w, "not found", http.StatusNotFound)
			case errors.Is(err, ErrAccessDenied):
				http.Error(w, "access denied", http.StatusForbidden)
			default:
				rid := RequestIDFromContext(r.Context())
				log.Printf("rid=%s msg=unseal_failed err=%v", rid, err)
				http.Error(w, "storage error", http.StatusBadGateway)
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(decryptResp{
			Filename: name,
			URL:      "/uploads/" + name,
		})
	})
}
