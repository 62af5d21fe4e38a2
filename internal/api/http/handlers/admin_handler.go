package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/xl-support/helpdesk/internal/api/dto"
	"github.com/xl-support/helpdesk/internal/observability"
	"github.com/xl-support/helpdesk/internal/service"
)

// AdminHandler exposes account administration and ticket workflow endpoints.
type AdminHandler struct {
	auth        *service.AuthService
	tickets     *service.TicketService
	assignments *service.AssignmentService
	metrics     *observability.Metrics
}

// NewAdminHandler constructs handler.
func NewAdminHandler(authService *service.AuthService, ticketService *service.TicketService, assignmentService *service.AssignmentService, metrics *observability.Metrics) *AdminHandler {
	return &AdminHandler{auth: authService, tickets: ticketService, assignments: assignmentService, metrics: metrics}
}

// ListUsers GET /api/admin/users.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	users, err := h.auth.ListUsers(c.UserContext(), p.User)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserListResponse(users))
}

// ListLogs GET /api/admin/logs.
func (h *AdminHandler) ListLogs(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	logs, err := h.auth.ListLogs(c.UserContext(), p.User)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserLogListResponse(logs))
}

// UpdateUser PUT /api/admin/users/:id.
func (h *AdminHandler) UpdateUser(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.auth.UpdateUser(c.UserContext(), p.User, id, req.ToInput())
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponse(user))
}

// UpdateTicketStatus PUT /api/admin/tickets/:id/status.
func (h *AdminHandler) UpdateTicketStatus(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateTicketStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.AdvanceStatus(c.UserContext(), p.User, id, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}

// AssignTicket PUT /api/admin/tickets/:id/assignee.
func (h *AdminHandler) AssignTicket(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.AssignTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.assignments.AssignTicket(c.UserContext(), p.User, id, req.Assignee())
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}

// TicketHistory GET /api/admin/tickets/:id/history.
func (h *AdminHandler) TicketHistory(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	entries, err := h.assignments.History(c.UserContext(), p.User, id)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketHistoryListResponse(entries))
}

// Metrics GET /api/admin/metrics.
func (h *AdminHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(h.metrics.Snapshot())
}
