package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	imageDir       = "images"
	maxUploadBytes = 10 << 20
)

var imageTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ImageHandler stores the pictures shown on note cards inside the vault.
type ImageHandler struct {
	vaultRoot string
}

// NewImageHandler creates a handler rooted at the vault directory.
func NewImageHandler(vaultRoot string) *ImageHandler {
	return &ImageHandler{vaultRoot: vaultRoot}
}

func (h *ImageHandler) dir() string {
	return filepath.Join(h.vaultRoot, imageDir)
}

// resolve returns the absolute path of a plain file name under the image
// directory.
func (h *ImageHandler) resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid filename: %q", name)
	}
	abs := filepath.Join(h.dir(), name)
	if !strings.HasPrefix(abs, h.dir()+string(os.PathSeparator)) {
		return "", fmt.Errorf("path escapes image directory")
	}
	return abs, nil
}

// storedName keeps the readable stem of the upload and makes it unique.
func storedName(original, ext string) string {
	stem := strings.TrimSuffix(filepath.Base(original), filepath.Ext(original))
	stem = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return -1
	}, stem)
	prefix := uuid.NewString()[:8]
	if stem == "" {
		return prefix + ext
	}
	return prefix + "-" + stem + ext
}

// ServeFile handles GET /api/images/{filename}.
//
//	@Summary		Get a card image
//	@Tags			images
//	@Param			filename	path	string	true	"Stored file name"
//	@Success		200
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/images/{filename} [get]
func (h *ImageHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	abs, err := h.resolve(chi.URLParam(r, "filename"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if _, statErr := os.Stat(abs); os.IsNotExist(statErr) {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	http.ServeFile(w, r, abs)
}

// Upload handles POST /api/images (multipart/form-data, field "file").
//
//	@Summary		Upload a card image
//	@Tags			images
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"Image file"
//	@Success		201		{object}	ImageUploadResponse
//	@Failure		400		{object}	errResponse
//	@Failure		415		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/images [post]
func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read upload"))
		return
	}
	ext, ok := imageTypes[http.DetectContentType(data)]
	if !ok {
		writeJSON(w, http.StatusUnsupportedMediaType, errorBody("not a supported image"))
		return
	}

	name := storedName(header.Filename, ext)
	abs, err := h.resolve(name)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if err := os.MkdirAll(h.dir(), 0o755); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to create image dir"))
		return
	}
	dst, err := os.Create(abs)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to create file"))
		return
	}
	defer dst.Close()

	written, err := io.Copy(dst, bytes.NewReader(data))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to write file"))
		return
	}

	writeJSON(w, http.StatusCreated, ImageUploadResponse{
		Filename: name,
		Size:     written,
		URL:      "/api/" + imageDir + "/" + name,
	})
}
