package controllers

import (
	"errors"
	"io"
	"net/http"

	"faculty-ranker-api/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ImageController struct {
	images *services.ImageService
	logger *zap.Logger
}

func NewImageController(images *services.ImageService, logger *zap.Logger) *ImageController {
	return &ImageController{images: images, logger: loggerOrNop(logger)}
}

// readAllLimit reads at most limit bytes and fails if more are available.
func readAllLimit(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, services.ErrFileTooLarge
	}
	return data, nil
}

// UploadImage handles POST /faculty/upload (multipart field "image")
func (h *ImageController) UploadImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, services.MaxImageSize+1<<20)

	fileHeader, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, h.logger, services.ErrFileTooLarge)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	if fileHeader.Size > services.MaxImageSize {
		respondError(c, h.logger, services.ErrFileTooLarge)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cannot open uploaded file"})
		return
	}
	defer file.Close()

	data, err := readAllLimit(file, services.MaxImageSize)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	uploaded, err := h.images.Upload(c.Request.Context(), c.GetString("userID"), fileHeader.Filename, data)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, uploaded)
}
