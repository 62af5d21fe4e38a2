package handlers

import (
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/xl-support/helpdesk/internal/api/dto"
	"github.com/xl-support/helpdesk/internal/service"
	apperrors "github.com/xl-support/helpdesk/pkg/util/errorutil"
)

// TicketsHandler manages ticket endpoints for any signed-in user.
type TicketsHandler struct {
	service     *service.TicketService
	assignments *service.AssignmentService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, assignmentService *service.AssignmentService) *TicketsHandler {
	return &TicketsHandler{service: ticketService, assignments: assignmentService}
}

// CreateTicket POST /api/tickets. The ticket always belongs to the caller.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), p.User, req.ToInput(p.User.Email))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}

// ListTickets GET /api/tickets. Optional limit and offset query parameters.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	limit, err := parseIntQuery(c, "limit", 0)
	if err != nil {
		return err
	}
	offset, err := parseIntQuery(c, "offset", 0)
	if err != nil {
		return err
	}
	tickets, err := h.service.ListAllTickets(c.UserContext(), service.Page{Limit: limit, Offset: offset})
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketListResponse(tickets))
}

// ListByCreator GET /api/tickets/user/:email.
func (h *TicketsHandler) ListByCreator(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	email, err := url.PathUnescape(c.Params("email"))
	if err != nil {
		return apperrors.NewFieldValidationError(map[string]string{"email": "is not a valid path segment"})
	}
	tickets, err := h.service.ListTicketsByCreator(c.UserContext(), p.User, email)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketListResponse(tickets))
}

// Stats GET /api/tickets/stats?createdBy=.
func (h *TicketsHandler) Stats(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	stats, err := h.service.Stats(c.UserContext(), p.User, c.Query("createdBy"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketStatsResponse(stats))
}

// Claim POST /api/tickets/:id/claim assigns the ticket to the caller.
func (h *TicketsHandler) Claim(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	ticket, err := h.assignments.SelfAssignTicket(c.UserContext(), p.User, id)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}
