package service

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shrinkray/image-optimizer-backend/internal/auth/middleware"
	"github.com/shrinkray/image-optimizer-backend/internal/image/biz"
	apperrors "github.com/shrinkray/image-optimizer-backend/internal/pkg/errors"
	"github.com/shrinkray/image-optimizer-backend/internal/pkg/logger"
	"github.com/shrinkray/image-optimizer-backend/internal/pkg/response"
)

// ImageService handles image upload and retrieval requests
type ImageService struct {
	uc             *biz.OptimizeUseCase
	maxUploadBytes int64
	logger         *logger.Logger
}

func NewImageService(uc *biz.OptimizeUseCase, maxUploadBytes int64, log *logger.Logger) *ImageService {
	return &ImageService{
		uc:             uc,
		maxUploadBytes: maxUploadBytes,
		logger:         log,
	}
}

// RegisterRoutes registers image routes on the router. optionalAuth
// attaches the user identity when a token is present and passes
// anonymous requests through.
func (s *ImageService) RegisterRoutes(r gin.IRouter, optionalAuth gin.HandlerFunc) {
	r.POST("/optimize-image", optionalAuth, s.Optimize)

	images := r.Group("/images", optionalAuth)
	{
		images.GET("", s.List)
		images.GET("/:id", s.Get)
		images.GET("/:id/download", s.Download)
	}
}

// optimizeResponse is the success body for POST /optimize-image
type optimizeResponse struct {
	Message          string  `json:"message"`
	OriginalURL      string  `json:"originalUrl"`
	OptimizedURL     string  `json:"optimizedUrl"`
	OriginalSize     int64   `json:"originalSize"`
	OptimizedSize    int64   `json:"optimizedSize"`
	CompressionRatio float64 `json:"compressionRatio"`
}

// Optimize accepts a multipart upload, optimizes it and stores both
// variants
func (s *ImageService) Optimize(c *gin.Context) {
	// bodyLimit leaves headroom for the multipart framing around the
	// per-file limit enforced downstream
	bodyLimit := s.maxUploadBytes + 1<<20
	if s.maxUploadBytes > 0 {
		if c.Request.ContentLength > bodyLimit {
			response.HandleError(c, apperrors.New(apperrors.ErrFileTooLarge))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, bodyLimit)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			response.HandleError(c, apperrors.New(apperrors.ErrFileTooLarge))
			return
		}
		response.HandleError(c, apperrors.New(apperrors.ErrMissingFile))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.HandleError(c, apperrors.Wrap(err, apperrors.ErrInvalidParams))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		response.HandleError(c, apperrors.Wrap(err, apperrors.ErrInternalServer))
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	out, err := s.uc.Optimize(c.Request.Context(), &biz.OptimizeInput{
		Filename:    fileHeader.Filename,
		ContentType: contentType,
		Data:        data,
		UserID:      c.GetString(middleware.ContextUserID),
	})
	if err != nil {
		s.logger.Error("optimize request failed",
			zap.String("filename", fileHeader.Filename),
			zap.String("content_type", contentType),
			zap.Error(err))
		response.HandleError(c, err)
		return
	}

	response.OK(c, optimizeResponse{
		Message:          "Image processed successfully",
		OriginalURL:      out.OriginalURL,
		OptimizedURL:     out.OptimizedURL,
		OriginalSize:     out.Image.OriginalSize,
		OptimizedSize:    out.Image.OptimizedSize,
		CompressionRatio: out.CompressionRatio,
	})
}

type imageView struct {
	ID               string  `json:"id"`
	OriginalFilename string  `json:"originalFilename"`
	OriginalURL      string  `json:"originalUrl"`
	OptimizedURL     string  `json:"optimizedUrl"`
	ContentType      string  `json:"contentType"`
	OriginalSize     int64   `json:"originalSize"`
	OptimizedSize    int64   `json:"optimizedSize"`
	CompressionRatio float64 `json:"compressionRatio"`
	OptimizedAt      string  `json:"optimizedAt"`
	ExpiresAt        string  `json:"expiresAt,omitempty"`
}

func (s *ImageService) toView(img *biz.Image) imageView {
	v := imageView{
		ID:               img.ID,
		OriginalFilename: img.OriginalFilename,
		OriginalURL:      s.uc.PublicURL(img.OriginalPath),
		OptimizedURL:     s.uc.PublicURL(img.OptimizedPath),
		ContentType:      img.ContentType,
		OriginalSize:     img.OriginalSize,
		OptimizedSize:    img.OptimizedSize,
		CompressionRatio: biz.CompressionRatio(img.OriginalSize, img.OptimizedSize),
		OptimizedAt:      img.OptimizedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	if img.ExpiresAt != nil {
		v.ExpiresAt = img.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return v
}

// List returns a page of images, scoped to the caller when
// authenticated
func (s *ImageService) List(c *gin.Context) {
	var query struct {
		Offset int `form:"offset"`
		Limit  int `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		response.HandleError(c, apperrors.Wrap(err, apperrors.ErrInvalidParams))
		return
	}

	userID := c.GetString(middleware.ContextUserID)
	images, total, err := s.uc.List(c.Request.Context(), userID, query.Offset, query.Limit)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	views := make([]imageView, 0, len(images))
	for _, img := range images {
		views = append(views, s.toView(img))
	}
	response.OK(c, gin.H{"images": views, "total": total})
}

// Get returns one image's metadata
func (s *ImageService) Get(c *gin.Context) {
	img, err := s.uc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.OK(c, s.toView(img))
}

// Download streams the optimized object back to the caller
func (s *ImageService) Download(c *gin.Context) {
	img, rc, err := s.uc.Download(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", img.OriginalFilename))
	c.DataFromReader(http.StatusOK, img.OptimizedSize, img.ContentType, rc, nil)
}
