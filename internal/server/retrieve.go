package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"qrdrop/internal/store"
)

type viewResp struct {
	Filename string `json:"filename"`
	Exists   bool   `json:"exists"`
}

// viewHandler handles GET /view/{filename}, the landing for a scanned
// code. It confirms a sealed object exists without touching it.
func (cfg Config) viewHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		name := r.PathValue("filename")

		exists, err := cfg.Lifecycle.Sealed(r.Context(), name)
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, "bad filename", http.StatusBadRequest)
				return
			}
			rid := RequestIDFromContext(r.Context())
			log.Printf("rid=%s msg=view_check_failed err=%v", rid, err)
			http.Error(w, "storage error", http.StatusBadGateway)
			return
		}
		if !exists {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(viewResp{Filename: name, Exists: true})
	})
}

// downloadHandler handles GET /uploads/{filename}: raw bytes from the
// plaintext namespace, present only after an upload that has not been
// sealed yet or after a successful decrypt.
func (cfg Config) downloadHandler() http.Handler {
	return cfg.serveNamespace(store.NSPlaintext, "application/octet-stream", true)
}

// codeHandler handles GET /codes/{filename}: the rendered link image
// for a sealed object.
func (cfg Config) codeHandler() http.Handler {
	return cfg.serveNamespace(store.NSCodes, "image/png", false)
}

func (cfg Config) serveNamespace(ns store.Namespace, contentType string, attachment bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		name, err := sanitizeFilename(r.PathValue("filename"))
		if err != nil {
			http.Error(w, "bad filename", http.StatusBadRequest)
			return
		}

		data, err := cfg.Store.Get(r.Context(), ns, name)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "not found", http.StatusNotFound)
				return
			}
			rid := RequestIDFromContext(r.Context())
			log.Printf("rid=%s msg=namespace_read_failed ns=%s err=%v", rid, ns, err)
			http.Error(w, "storage error", http.StatusBadGateway)
			return
		}

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		if attachment {
			// Encourage safe download behavior in browsers.
			w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	})
}
