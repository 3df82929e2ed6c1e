// Package uploads exposes passenger profile-photo uploads backed by
// the storage client. The returned object key is what clients store
// under the profile_photo answer.
package uploads

import (
	"net/http"

	"tripforms_backend/internal/storage"
	"tripforms_backend/platform/apperr"
	"tripforms_backend/platform/httpkit"
	"tripforms_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

type uploadResponse struct {
	FileKey string `json:"fileKey"`
	URL     string `json:"url"`
}

type Handler struct {
	store  *storage.Client
	bucket string
	log    *logger.Logger
}

func NewHandler(store *storage.Client, bucket string, log *logger.Logger) *Handler {
	return &Handler{store: store, bucket: bucket, log: log}
}

// UploadProfilePhoto receives a multipart image and stores it under a
// per-user folder.
func (h *Handler) UploadProfilePhoto(c *gin.Context) {
	if h.store == nil {
		httpkit.HandleError(c, apperr.Precondition("photo storage is not configured"))
		return
	}

	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "missing file", nil)
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if err := h.store.ValidateContentType(contentType); err != nil {
		httpkit.HandleError(c, apperr.Validation(err.Error()))
		return
	}
	if err := h.store.ValidateFileSize(fileHeader.Size); err != nil {
		httpkit.HandleError(c, apperr.Validation(err.Error()))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	defer file.Close()

	ctx := c.Request.Context()
	key, err := h.store.Upload(ctx, h.bucket, id.UserID().String(), fileHeader.Filename, contentType, file, fileHeader.Size)
	if err != nil {
		h.log.Error("profile photo upload failed", "error", err)
		httpkit.HandleError(c, err)
		return
	}

	url, err := h.store.DownloadURL(ctx, h.bucket, key)
	if err != nil {
		h.log.Error("profile photo presign failed", "fileKey", key, "error", err)
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, uploadResponse{FileKey: key, URL: url})
}

// ProfilePhotoURL presigns a download link for a stored photo key.
func (h *Handler) ProfilePhotoURL(c *gin.Context) {
	if h.store == nil {
		httpkit.HandleError(c, apperr.Precondition("photo storage is not configured"))
		return
	}

	key := c.Query("key")
	if key == "" {
		httpkit.Error(c, http.StatusBadRequest, "missing key", nil)
		return
	}

	url, err := h.store.DownloadURL(c.Request.Context(), h.bucket, key)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"url": url})
}
