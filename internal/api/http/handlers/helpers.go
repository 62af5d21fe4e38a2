package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/xl-support/helpdesk/internal/auth"
	apperrors "github.com/xl-support/helpdesk/pkg/util/errorutil"
)

func principal(c *fiber.Ctx) (*auth.Principal, error) {
	p, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return p, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

func parseIDParam(c *fiber.Ctx, key string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(key), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewFieldValidationError(map[string]string{key: "must be a positive integer"})
	}
	return id, nil
}

func parseIntQuery(c *fiber.Ctx, key string, defaultVal int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return defaultVal, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewFieldValidationError(map[string]string{key: "must be an integer"})
	}
	return v, nil
}
