package handlers

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/personahub/chat-backend/internal/api/dto"
	"github.com/personahub/chat-backend/internal/dispatch"
	"github.com/personahub/chat-backend/internal/service"
	apperrors "github.com/personahub/chat-backend/pkg/util"
)

// respond sends req through the dispatcher and renders the outcome. Failed
// results and faults are returned as errors for the error middleware.
func respond[Req dispatch.Request, Res, Out any](c *fiber.Ctx, d *dispatch.Dispatcher, req Req, status int, present func(Res) Out) error {
	res, err := dispatch.Send[Req, Res](c.UserContext(), d, req)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if !res.IsSuccess() {
		return apperrors.FromFailure(res.Problem())
	}
	if status == fiber.StatusNoContent {
		return c.SendStatus(status)
	}
	return c.Status(status).JSON(fiber.Map{"data": present(res.Value())})
}

func same[T any](v T) T { return v }

func pageOf[T, U any](fn func(T) U) func(service.Page[T]) dto.PageResponse[U] {
	return func(p service.Page[T]) dto.PageResponse[U] {
		return dto.PageResponse[U]{Items: dto.MapItems(p.Items, fn), Total: p.Total, Limit: p.Limit, Offset: p.Offset}
	}
}

// parseBody decodes the body into out. An empty body leaves out untouched.
func parseBody(c *fiber.Ctx, out any) error {
	if len(bytes.TrimSpace(c.Body())) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

func queryPage(c *fiber.Ctx) (limit, offset int, err error) {
	if limit, err = queryInt(c, "limit"); err != nil {
		return 0, 0, err
	}
	if offset, err = queryInt(c, "offset"); err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

func queryInt(c *fiber.Ctx, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewValidationError("validation failed: "+key+": must be an integer", map[string]any{
			"fields": map[string]any{key: "must be an integer"},
		})
	}
	return n, nil
}

// queryList accepts both repeated keys and comma separated values.
func queryList(c *fiber.Ctx, key string) []string {
	var out []string
	for _, raw := range c.Context().QueryArgs().PeekMulti(key) {
		for _, part := range strings.Split(string(raw), ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
