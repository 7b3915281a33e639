package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/personahub/chat-backend/internal/api/dto"
	"github.com/personahub/chat-backend/internal/dispatch"
	"github.com/personahub/chat-backend/internal/domain"
	"github.com/personahub/chat-backend/internal/result"
	"github.com/personahub/chat-backend/internal/service"
)

// UsersHandler exposes account, profile and device requests.
type UsersHandler struct {
	d *dispatch.Dispatcher
}

// NewUsersHandler constructs handler.
func NewUsersHandler(d *dispatch.Dispatcher) *UsersHandler {
	return &UsersHandler{d: d}
}

// Register POST /auth/register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req service.RegisterAccount
	if err := parseBody(c, &req); err != nil {
		return err
	}
	return respond[service.RegisterAccount, service.AccessGrant](c, h.d, req, fiber.StatusCreated, same[service.AccessGrant])
}

// Login POST /auth/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req service.Login
	if err := parseBody(c, &req); err != nil {
		return err
	}
	return respond[service.Login, service.AccessGrant](c, h.d, req, fiber.StatusOK, same[service.AccessGrant])
}

// Me GET /me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	return respond[service.GetMyProfile, service.UserProfile](c, h.d, service.GetMyProfile{}, fiber.StatusOK, same[service.UserProfile])
}

// SetPassword POST /me/password.
func (h *UsersHandler) SetPassword(c *fiber.Ctx) error {
	var req service.SetPassword
	if err := parseBody(c, &req); err != nil {
		return err
	}
	return respond[service.SetPassword, result.Void](c, h.d, req, fiber.StatusNoContent, same[result.Void])
}

// UnlinkGoogle DELETE /me/google.
func (h *UsersHandler) UnlinkGoogle(c *fiber.Ctx) error {
	return respond[service.UnlinkGoogle, service.UserProfile](c, h.d, service.UnlinkGoogle{}, fiber.StatusOK, same[service.UserProfile])
}

// Suspend POST /admin/users/:id/suspend.
func (h *UsersHandler) Suspend(c *fiber.Ctx) error {
	var req service.SuspendUser
	if err := parseBody(c, &req); err != nil {
		return err
	}
	req.UserID = c.Params("id")
	return respond[service.SuspendUser, service.UserProfile](c, h.d, req, fiber.StatusOK, same[service.UserProfile])
}

// Unsuspend POST /admin/users/:id/unsuspend.
func (h *UsersHandler) Unsuspend(c *fiber.Ctx) error {
	req := service.UnsuspendUser{UserID: c.Params("id")}
	return respond[service.UnsuspendUser, service.UserProfile](c, h.d, req, fiber.StatusOK, same[service.UserProfile])
}

// RegisterDevice POST /me/devices.
func (h *UsersHandler) RegisterDevice(c *fiber.Ctx) error {
	var req service.RegisterDevice
	if err := parseBody(c, &req); err != nil {
		return err
	}
	return respond[service.RegisterDevice, domain.Device](c, h.d, req, fiber.StatusCreated, dto.Device)
}

// ListDevices GET /me/devices.
func (h *UsersHandler) ListDevices(c *fiber.Ctx) error {
	return respond[service.ListMyDevices, []domain.Device](c, h.d, service.ListMyDevices{}, fiber.StatusOK, func(devices []domain.Device) []dto.DeviceResponse {
		return dto.MapItems(devices, dto.Device)
	})
}

// UnregisterDevice DELETE /me/devices/:id.
func (h *UsersHandler) UnregisterDevice(c *fiber.Ctx) error {
	req := service.UnregisterDevice{DeviceID: c.Params("id")}
	return respond[service.UnregisterDevice, result.Void](c, h.d, req, fiber.StatusNoContent, same[result.Void])
}
