package http

import (
	"io"
	"mime"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/learning-site/internal/logger"
	"github.com/mind-engage/learning-site/internal/storage"
)

func MountAssets(r chi.Router, bs storage.BlobStore, log *logger.Logger) {
	// GET /assets/*   -> returns the blob at whatever follows /assets/
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		key, err := storage.CleanKey(chi.URLParam(r, "*"))
		if err != nil {
			fail(w, r, log, err, nil)
			return
		}
		rc, err := bs.Open(r.Context(), key)
		if err != nil {
			fail(w, r, log, err, nil)
			return
		}
		defer rc.Close()
		ct := mime.TypeByExtension(path.Ext(key))
		if ct == "" {
			ct = "application/octet-stream"
		}
		w.Header().Set("Content-Type", ct)
		_, _ = io.Copy(w, rc)
	})
}
