package handlers

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/example/derma-scan/internal/usecase"
)

// MaxUploadSize is the default cap on uploaded images.
const MaxUploadSize = 8 << 20

// UploadFieldName is the multipart form field carrying the image.
const UploadFieldName = "file"

// PredictService is the use-case surface the HTTP layer depends on.
type PredictService interface {
	PredictImage(ctx context.Context, imageBytes []byte) (string, *usecase.Response, error)
	RunnerReachable(ctx context.Context) bool
	Diseases(ctx context.Context) ([]string, error)
}

// RegisterRoutes wires the HTTP handlers to the Gin router.
func RegisterRoutes(router *gin.Engine, svc PredictService, maxUploadBytes int64) {
	if maxUploadBytes <= 0 {
		maxUploadBytes = MaxUploadSize
	}

	router.GET("/health", func(c *gin.Context) {
		runner := "ok"
		if !svc.RunnerReachable(c.Request.Context()) {
			runner = "unreachable"
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "model_runner": runner})
	})

	router.GET("/diseases", func(c *gin.Context) {
		names, err := svc.Diseases(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list diseases"})
			return
		}
		c.JSON(http.StatusOK, names)
	})

	router.POST("/predict", func(c *gin.Context) {
		file, err := c.FormFile(UploadFieldName)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
			return
		}

		if file.Size > maxUploadBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds upload limit"})
			return
		}

		src, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unable to open image"})
			return
		}
		defer src.Close()

		data, err := io.ReadAll(src)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read image"})
			return
		}

		if !strings.HasPrefix(http.DetectContentType(data), "image/") {
			c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "file must be an image"})
			return
		}

		requestID, resp, err := svc.PredictImage(c.Request.Context(), data)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "error processing image"})
			return
		}

		c.Header("X-Request-ID", requestID)
		c.JSON(http.StatusOK, resp)
	})
}
