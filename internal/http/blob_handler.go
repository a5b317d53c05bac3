package http

import (
	"context"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/fjod/storefront/internal/blob"
	"github.com/fjod/storefront/internal/logger"
	"github.com/go-chi/chi/v5"
)

type BlobHandler struct {
	blobs     blob.Storage
	maxUpload int64
	timeout   time.Duration
}

func NewBlobHandler(blobs blob.Storage, maxUpload int64, timeout time.Duration) *BlobHandler {
	return &BlobHandler{blobs: blobs, maxUpload: maxUpload, timeout: timeout}
}

type UploadResponseDTO struct {
	URL string `json:"url"`
}

// POST /api/v1/blobs with a multipart "file" field. Files are stored under images/.
func (h *BlobHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "a file is required")
		return
	}
	defer file.Close()

	url, err := h.blobs.Put(ctx, "images/"+path.Base(header.Filename), file)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, UploadResponseDTO{URL: url})
}

// GET /blobs/{id}
func (h *BlobHandler) Download(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	obj, err := h.blobs.Open(ctx, chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	defer obj.Close()

	contentType := mime.TypeByExtension(path.Ext(obj.Name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(obj.Length, 10))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := io.Copy(w, obj); err != nil {
		logger.FromContext(r.Context()).WithError(err).Warn("blob download interrupted")
	}
}
