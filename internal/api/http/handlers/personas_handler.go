package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/personahub/chat-backend/internal/api/dto"
	"github.com/personahub/chat-backend/internal/dispatch"
	"github.com/personahub/chat-backend/internal/domain"
	"github.com/personahub/chat-backend/internal/service"
	apperrors "github.com/personahub/chat-backend/pkg/util"
)

// PersonasHandler exposes persona and chat session requests.
type PersonasHandler struct {
	d *dispatch.Dispatcher
}

// NewPersonasHandler constructs handler.
func NewPersonasHandler(d *dispatch.Dispatcher) *PersonasHandler {
	return &PersonasHandler{d: d}
}

// Create POST /personas.
func (h *PersonasHandler) Create(c *fiber.Ctx) error {
	var req service.CreatePersona
	if err := parseBody(c, &req); err != nil {
		return err
	}
	return respond[service.CreatePersona, domain.Persona](c, h.d, req, fiber.StatusCreated, dto.Persona)
}

// ListPublic GET /personas.
func (h *PersonasHandler) ListPublic(c *fiber.Ctx) error {
	limit, offset, err := queryPage(c)
	if err != nil {
		return err
	}
	req := service.ListPublicPersonas{Limit: limit, Offset: offset}
	return respond[service.ListPublicPersonas, service.Page[domain.Persona]](c, h.d, req, fiber.StatusOK, pageOf(dto.Persona))
}

// Get GET /personas/:id.
func (h *PersonasHandler) Get(c *fiber.Ctx) error {
	req := service.GetPersona{PersonaID: c.Params("id")}
	return respond[service.GetPersona, domain.Persona](c, h.d, req, fiber.StatusOK, dto.Persona)
}

// Update PATCH /personas/:id.
func (h *PersonasHandler) Update(c *fiber.Ctx) error {
	var body dto.UpdatePersonaRequest
	if err := parseBody(c, &body); err != nil {
		return err
	}
	req := service.UpdatePersona{
		PersonaID:   c.Params("id"),
		Name:        body.Name,
		Description: body.Description,
		IsPublic:    body.IsPublic,
	}
	return respond[service.UpdatePersona, domain.Persona](c, h.d, req, fiber.StatusOK, dto.Persona)
}

// Archive DELETE /personas/:id.
func (h *PersonasHandler) Archive(c *fiber.Ctx) error {
	req := service.ArchivePersona{PersonaID: c.Params("id")}
	return respond[service.ArchivePersona, domain.Persona](c, h.d, req, fiber.StatusOK, dto.Persona)
}

// UploadImage PUT /personas/:id/image, multipart field "image".
func (h *PersonasHandler) UploadImage(c *fiber.Ctx) error {
	header, err := c.FormFile("image")
	if err != nil {
		return apperrors.NewValidationError("validation failed: image: is required", map[string]any{
			"fields": map[string]any{"image": "is required"},
		})
	}
	file, err := header.Open()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	defer file.Close()

	req := service.UploadPersonaImage{
		PersonaID:   c.Params("id"),
		FileName:    header.Filename,
		ContentType: header.Header.Get(fiber.HeaderContentType),
		Size:        header.Size,
		Body:        file,
	}
	return respond[service.UploadPersonaImage, domain.Persona](c, h.d, req, fiber.StatusOK, dto.Persona)
}

// Suspend POST /admin/personas/:id/suspend.
func (h *PersonasHandler) Suspend(c *fiber.Ctx) error {
	var req service.SuspendPersona
	if err := parseBody(c, &req); err != nil {
		return err
	}
	req.PersonaID = c.Params("id")
	return respond[service.SuspendPersona, domain.Persona](c, h.d, req, fiber.StatusOK, dto.Persona)
}

// Reinstate POST /admin/personas/:id/reinstate.
func (h *PersonasHandler) Reinstate(c *fiber.Ctx) error {
	req := service.ReinstatePersona{PersonaID: c.Params("id")}
	return respond[service.ReinstatePersona, domain.Persona](c, h.d, req, fiber.StatusOK, dto.Persona)
}

// StartChat POST /chats.
func (h *PersonasHandler) StartChat(c *fiber.Ctx) error {
	var req service.StartChatSession
	if err := parseBody(c, &req); err != nil {
		return err
	}
	return respond[service.StartChatSession, service.ChatSessionView](c, h.d, req, fiber.StatusCreated, same[service.ChatSessionView])
}

// GetChat GET /chats/:id.
func (h *PersonasHandler) GetChat(c *fiber.Ctx) error {
	req := service.GetChatSession{SessionID: c.Params("id")}
	return respond[service.GetChatSession, service.ChatSessionView](c, h.d, req, fiber.StatusOK, same[service.ChatSessionView])
}
