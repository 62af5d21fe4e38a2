package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/xl-support/helpdesk/internal/api/dto"
	"github.com/xl-support/helpdesk/internal/service"
)

// AuthHandler exposes sign-in, registration and session endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := h.auth.Login(c.UserContext(), req.ToInput())
	if err != nil {
		return err
	}
	return c.JSON(dto.NewAuthResponse(res))
}

// SignUp handles POST /api/auth/signup.
func (h *AuthHandler) SignUp(c *fiber.Ctx) error {
	var req dto.SignUpRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := h.auth.SignUp(c.UserContext(), req.ToInput())
	if err != nil {
		return err
	}
	return c.JSON(dto.NewAuthResponse(res))
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	if err := h.auth.Logout(c.UserContext(), p.User, p.Session); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "signed out"})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	user, err := h.auth.CurrentUser(c.UserContext(), p.Session)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponse(user))
}
