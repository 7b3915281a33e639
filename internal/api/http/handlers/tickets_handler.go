package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/personahub/chat-backend/internal/api/dto"
	"github.com/personahub/chat-backend/internal/dispatch"
	"github.com/personahub/chat-backend/internal/domain"
	"github.com/personahub/chat-backend/internal/service"
)

// TicketsHandler exposes the support ticket requests.
type TicketsHandler struct {
	d *dispatch.Dispatcher
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(d *dispatch.Dispatcher) *TicketsHandler {
	return &TicketsHandler{d: d}
}

// Create POST /tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	var req service.CreateTicket
	if err := parseBody(c, &req); err != nil {
		return err
	}
	return respond[service.CreateTicket, domain.Ticket](c, h.d, req, fiber.StatusCreated, dto.Ticket)
}

// ListMine GET /tickets.
func (h *TicketsHandler) ListMine(c *fiber.Ctx) error {
	limit, offset, err := queryPage(c)
	if err != nil {
		return err
	}
	req := service.ListMyTickets{
		Statuses:   queryList(c, "status"),
		Priorities: queryList(c, "priority"),
		Limit:      limit,
		Offset:     offset,
	}
	return respond[service.ListMyTickets, service.Page[domain.Ticket]](c, h.d, req, fiber.StatusOK, pageOf(dto.Ticket))
}

// Get GET /tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	req := service.GetTicket{TicketID: c.Params("id")}
	return respond[service.GetTicket, domain.Ticket](c, h.d, req, fiber.StatusOK, dto.Ticket)
}

// History GET /tickets/:id/history.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	req := service.ListTicketHistory{TicketID: c.Params("id")}
	return respond[service.ListTicketHistory, []domain.TicketHistory](c, h.d, req, fiber.StatusOK, dto.TicketHistory)
}

// Close POST /tickets/:id/close.
func (h *TicketsHandler) Close(c *fiber.Ctx) error {
	var req service.CloseTicket
	if err := parseBody(c, &req); err != nil {
		return err
	}
	req.TicketID = c.Params("id")
	return respond[service.CloseTicket, domain.Ticket](c, h.d, req, fiber.StatusOK, dto.Ticket)
}

// Reopen POST /tickets/:id/reopen.
func (h *TicketsHandler) Reopen(c *fiber.Ctx) error {
	var req service.ReopenTicket
	if err := parseBody(c, &req); err != nil {
		return err
	}
	req.TicketID = c.Params("id")
	return respond[service.ReopenTicket, domain.Ticket](c, h.d, req, fiber.StatusOK, dto.Ticket)
}

// ListAll GET /admin/tickets.
func (h *TicketsHandler) ListAll(c *fiber.Ctx) error {
	limit, offset, err := queryPage(c)
	if err != nil {
		return err
	}
	req := service.ListTickets{
		Statuses:   queryList(c, "status"),
		Priorities: queryList(c, "priority"),
		AssigneeID: c.Query("assignee_id"),
		Limit:      limit,
		Offset:     offset,
	}
	return respond[service.ListTickets, service.Page[domain.Ticket]](c, h.d, req, fiber.StatusOK, pageOf(dto.Ticket))
}

// Assign POST /admin/tickets/:id/assign.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	var req service.AssignTicket
	if err := parseBody(c, &req); err != nil {
		return err
	}
	req.TicketID = c.Params("id")
	return respond[service.AssignTicket, domain.Ticket](c, h.d, req, fiber.StatusOK, dto.Ticket)
}

// Escalate POST /admin/tickets/:id/escalate.
func (h *TicketsHandler) Escalate(c *fiber.Ctx) error {
	req := service.EscalateTicket{TicketID: c.Params("id")}
	return respond[service.EscalateTicket, domain.Ticket](c, h.d, req, fiber.StatusOK, dto.Ticket)
}

// UpdateStatus PATCH /admin/tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	var req service.UpdateTicketStatus
	if err := parseBody(c, &req); err != nil {
		return err
	}
	req.TicketID = c.Params("id")
	return respond[service.UpdateTicketStatus, domain.Ticket](c, h.d, req, fiber.StatusOK, dto.Ticket)
}
