package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	apierrors "github.com/openninety/api/internal/errors"
	"github.com/openninety/api/internal/middleware"
	"github.com/openninety/api/internal/services"
)

// ImportHandler handles filing archive import requests.
type ImportHandler struct {
	service services.ImportService
}

// NewImportHandler creates a new ImportHandler instance.
func NewImportHandler(service services.ImportService) *ImportHandler {
	return &ImportHandler{
		service: service,
	}
}

// ImportRequest represents the body of the import endpoint.
type ImportRequest struct {
	ArchiveURL string `json:"archiveUrl" binding:"required,url"`
	MaxRecords int    `json:"maxRecords" binding:"omitempty,min=1"`
}

// ImportResponse represents the response for the import endpoint: the run
// statistics plus the derived success rate.
type ImportResponse struct {
	*services.ImportStats
	SuccessRatePercent float64 `json:"successRatePercent"`
}

// Run handles POST /api/v1/imports endpoint.
// It downloads the archive, ingests every XML filing it contains, and returns
// the run statistics. The call is synchronous; large archives take a while.
func (h *ImportHandler) Run(c *gin.Context) {
	log := middleware.GetLogger(c)

	// Bind and validate request body
	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// Check if it's a validation error
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		// Generic bad request for other binding errors
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	if log != nil {
		log.Info("Processing import request", map[string]interface{}{
			"archive_url": req.ArchiveURL,
			"max_records": req.MaxRecords,
		})
	}

	// Call service layer
	stats, err := h.service.Run(c.Request.Context(), req.ArchiveURL, req.MaxRecords)
	if err != nil {
		// Handle service-level errors
		if errors.Is(err, services.ErrArchiveUnavailable) {
			apierrors.BadGateway(c, "Could not fetch or expand the filing archive", err)
			return
		}
		// Unexpected failures
		apierrors.InternalServerError(c, "Import run failed", err)
		return
	}

	c.JSON(http.StatusOK, ImportResponse{
		ImportStats:        stats,
		SuccessRatePercent: stats.SuccessRatePercent(),
	})
}
