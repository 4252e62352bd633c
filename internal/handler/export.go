package handler

import (
	"errors"
	"path/filepath"

	"github.com/gofiber/fiber/v3"

	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/middleware"
	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/model"
	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/service"
)

type ExportHandler struct {
	svc *service.ExportService
}

func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{svc: svc}
}

// Export handles GET /api/database/export and the legacy /database.db.
// Serves the newest gzipped CSV snapshot of the public segment table.
func (h *ExportHandler) Export(c fiber.Ctx) error {
	path, err := h.svc.Latest()
	if errors.Is(err, model.ErrNotFound) {
		return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "No export file available yet")
	}
	if err != nil {
		return serviceError(c, err, "read export directory")
	}

	c.Set(fiber.HeaderContentType, "application/gzip")
	c.Set(fiber.HeaderContentDisposition, "attachment; filename="+filepath.Base(path))
	return c.SendFile(path)
}
