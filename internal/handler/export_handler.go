package handler

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/okil-ai/consult-api/internal/dto"
	"github.com/okil-ai/consult-api/internal/middleware"
	"github.com/okil-ai/consult-api/internal/models"
	appErrors "github.com/okil-ai/consult-api/pkg/errors"
	"github.com/okil-ai/consult-api/pkg/export"
	"github.com/okil-ai/consult-api/pkg/response"
	"github.com/okil-ai/consult-api/pkg/storage"
)

type exportService interface {
	Create(ctx context.Context, claims *models.JWTClaims, req dto.CreateExportRequest) (*dto.ExportResponse, error)
	Open(token string) (*os.File, *storage.DownloadClaims, error)
}

// ExportHandler renders schedule exports and serves signed downloads.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(svc exportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Create godoc
// @Summary Export own schedule
// @Description Renders appointments between from and to (inclusive) and returns a signed download URL.
// @Tags Exports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateExportRequest true "Export"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /appointments/exports [post]
func (h *ExportHandler) Create(c *gin.Context) {
	var req dto.CreateExportRequest
	if !bindJSON(c, &req, "invalid export payload") {
		return
	}
	res, err := h.service.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// Download godoc
// @Summary Download a rendered export
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exports/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	file, claims, err := h.service.Open(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Internal(err, "failed to read export"))
		return
	}

	name := path.Base(claims.Path)
	contentType := "application/octet-stream"
	if renderer, err := export.RendererFor(export.Format(strings.TrimPrefix(path.Ext(name), "."))); err == nil {
		contentType = renderer.ContentType()
	}

	c.Set(middleware.AuditSubjectKey, claims.OwnerID)
	c.Set(middleware.AuditResourceKey, claims.ID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", name))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), contentType, file, nil)
}
