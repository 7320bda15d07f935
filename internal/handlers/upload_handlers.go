package handlers

import (
	"net/http"
	"time"

	"schoolprops/internal/common"
	"schoolprops/internal/services"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

const photoURLExpiry = 15 * time.Minute

// UploadHandlers stores request photos and hands out short-lived download links.
type UploadHandlers struct {
	photos services.PhotoStorage
}

func NewUploadHandlers(photos services.PhotoStorage) *UploadHandlers {
	return &UploadHandlers{photos: photos}
}

// UploadPhoto accepts a multipart "file" field and returns the stored key.
func (h *UploadHandlers) UploadPhoto(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return common.SendValidationError(c, "file", "is required")
	}
	src, err := fh.Open()
	if err != nil {
		return common.SendClientError(c, "Unreadable upload")
	}
	defer src.Close()

	key, err := h.photos.Upload(c.Request().Context(), fh.Header.Get(echo.HeaderContentType), src, fh.Size)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	log.Info().Str("key", key).Int64("size", fh.Size).Msg("Photo uploaded")
	return c.JSON(http.StatusCreated, map[string]string{"key": key})
}

// PhotoURL presigns GET /uploads/photos/:name.
func (h *UploadHandlers) PhotoURL(c echo.Context) error {
	key := "photos/" + c.Param("name")
	url, err := h.photos.PresignedURL(c.Request().Context(), key, photoURLExpiry)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"key":        key,
		"url":        url,
		"expires_in": int(photoURLExpiry.Seconds()),
	})
}
