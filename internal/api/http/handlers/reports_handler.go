package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/personahub/chat-backend/internal/api/dto"
	"github.com/personahub/chat-backend/internal/dispatch"
	"github.com/personahub/chat-backend/internal/domain"
	"github.com/personahub/chat-backend/internal/service"
)

// ReportsHandler exposes the moderation queue.
type ReportsHandler struct {
	d *dispatch.Dispatcher
}

// NewReportsHandler constructs handler.
func NewReportsHandler(d *dispatch.Dispatcher) *ReportsHandler {
	return &ReportsHandler{d: d}
}

// Create POST /reports.
func (h *ReportsHandler) Create(c *fiber.Ctx) error {
	var req service.CreateReport
	if err := parseBody(c, &req); err != nil {
		return err
	}
	return respond[service.CreateReport, domain.Report](c, h.d, req, fiber.StatusCreated, dto.Report)
}

// List GET /admin/reports.
func (h *ReportsHandler) List(c *fiber.Ctx) error {
	limit, offset, err := queryPage(c)
	if err != nil {
		return err
	}
	req := service.ListReports{Statuses: queryList(c, "status"), Limit: limit, Offset: offset}
	return respond[service.ListReports, service.Page[domain.Report]](c, h.d, req, fiber.StatusOK, pageOf(dto.Report))
}

// Resolve POST /admin/reports/:id/resolve.
func (h *ReportsHandler) Resolve(c *fiber.Ctx) error {
	var req service.ResolveReport
	if err := parseBody(c, &req); err != nil {
		return err
	}
	req.ReportID = c.Params("id")
	return respond[service.ResolveReport, domain.Report](c, h.d, req, fiber.StatusOK, dto.Report)
}
