package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/xl-support/helpdesk/internal/api/http/handlers"
	"github.com/xl-support/helpdesk/internal/auth"
	"github.com/xl-support/helpdesk/internal/config"
	"github.com/xl-support/helpdesk/internal/events"
	"github.com/xl-support/helpdesk/internal/observability"
	"github.com/xl-support/helpdesk/internal/repository/memrepo"
	"github.com/xl-support/helpdesk/internal/service"
)

type testServer struct {
	app *fiber.App
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := config.Config{
		App: config.AppConfig{Name: "helpdesk", Version: "test"},
		Auth: config.AuthConfig{
			JWTSecret:             "test-secret",
			AccessTokenTTLMinutes: 30,
			BcryptCost:            bcrypt.MinCost,
		},
	}
	store := memrepo.New()
	dispatcher := events.NewInMemoryDispatcher()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	authService := service.NewAuthService(cfg, service.AuthDependencies{
		UserRepo:    store.Users(),
		UserLogRepo: store.UserLogs(),
		Sessions:    auth.NewMemorySessionStore(),
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  store.Tickets(),
		UserRepo:    store.Users(),
		HistoryRepo: store.TicketHistory(),
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		TicketRepo:  store.Tickets(),
		UserRepo:    store.Users(),
		HistoryRepo: store.TicketHistory(),
		Dispatcher:  dispatcher,
		Logger:      logger,
	})

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 0, "*")
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, nil),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService, assignmentService),
		Admin:          handlers.NewAdminHandler(authService, ticketService, assignmentService, metrics),
		AuthMiddleware: auth.NewAuthMiddleware(authService.Tokens(), authService.Sessions(), store.Users()),
	})
	return &testServer{app: app}
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func (s *testServer) signUp(t *testing.T, email, name string) (int64, string) {
	t.Helper()
	status, body := s.do(t, fiber.MethodPost, "/api/auth/signup", fiber.Map{
		"email": email, "password": "hunter22", "confirmPassword": "hunter22", "name": name,
	}, "")
	require.Equal(t, fiber.StatusOK, status, string(body))
	var res struct {
		ID      int64 `json:"id"`
		Session struct {
			Token string `json:"token"`
		} `json:"session"`
	}
	require.NoError(t, json.Unmarshal(body, &res))
	require.NotEmpty(t, res.Session.Token)
	return res.ID, res.Session.Token
}

func decodeMap(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(body, &m), string(body))
	return m
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	envelope := decodeMap(t, body)
	errBody, ok := envelope["error"].(map[string]any)
	require.True(t, ok, string(body))
	code, _ := errBody["code"].(string)
	return code
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, fiber.MethodPost, "/api/auth/signup", fiber.Map{
		"email": "jane@xl.com", "password": "hunter22", "confirmPassword": "hunter22", "name": "Jane",
	}, "")
	require.Equal(t, fiber.StatusOK, status)
	user := decodeMap(t, body)
	assert.Equal(t, "SupportAgent", user["role"])
	assert.Equal(t, "Support", user["department"])
	assert.NotContains(t, user, "password")
	assert.NotContains(t, user, "passwordHash")
	assert.NotContains(t, string(body), "hunter22")

	status, body = s.do(t, fiber.MethodPost, "/api/auth/login", fiber.Map{
		"email": "jane@xl.com", "password": "hunter22",
	}, "")
	require.Equal(t, fiber.StatusOK, status)
	session := decodeMap(t, body)["session"].(map[string]any)
	token := session["token"].(string)
	assert.NotEmpty(t, session["expiresAt"])

	status, body = s.do(t, fiber.MethodGet, "/api/auth/me", nil, token)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "jane@xl.com", decodeMap(t, body)["email"])

	status, _ = s.do(t, fiber.MethodPost, "/api/auth/logout", nil, token)
	require.Equal(t, fiber.StatusOK, status)

	status, body = s.do(t, fiber.MethodGet, "/api/auth/me", nil, token)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, body))
}

func TestLoginFailuresShareOneResponse(t *testing.T) {
	s := newTestServer(t)
	s.signUp(t, "jane@xl.com", "Jane")

	unknownStatus, unknownBody := s.do(t, fiber.MethodPost, "/api/auth/login", fiber.Map{
		"email": "ghost@xl.com", "password": "hunter22",
	}, "")
	wrongStatus, wrongBody := s.do(t, fiber.MethodPost, "/api/auth/login", fiber.Map{
		"email": "jane@xl.com", "password": "nope",
	}, "")

	assert.Equal(t, fiber.StatusUnauthorized, unknownStatus)
	assert.Equal(t, unknownStatus, wrongStatus)
	assert.JSONEq(t, string(unknownBody), string(wrongBody))
}

func TestSignUpErrors(t *testing.T) {
	s := newTestServer(t)
	s.signUp(t, "jane@xl.com", "Jane")

	status, body := s.do(t, fiber.MethodPost, "/api/auth/signup", fiber.Map{
		"email": "jane@xl.com", "password": "x", "confirmPassword": "x", "name": "Again",
	}, "")
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "CONFLICT", errorCode(t, body))

	status, body = s.do(t, fiber.MethodPost, "/api/auth/signup", fiber.Map{
		"email": "bad", "password": "x", "confirmPassword": "x", "name": "",
	}, "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	details := decodeMap(t, body)["error"].(map[string]any)["details"].(map[string]any)
	assert.Contains(t, details, "email")
	assert.Contains(t, details, "name")

	status, body = s.do(t, fiber.MethodPost, "/api/auth/signup", fiber.Map{
		"email": "new@xl.com", "password": "x", "confirmPassword": "y", "name": "New",
	}, "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, body))
}

func TestCreateTicketUsesSessionIdentity(t *testing.T) {
	s := newTestServer(t)
	_, token := s.signUp(t, "jane@xl.com", "Jane")
	s.signUp(t, "bob@xl.com", "Bob")

	status, body := s.do(t, fiber.MethodPost, "/api/tickets", fiber.Map{
		"subject":     "VPN down",
		"description": "Cannot reach the VPN since this morning",
		"priority":    "medium",
		"status":      "Resolved",
		"createdBy":   "bob@xl.com",
	}, token)
	require.Equal(t, fiber.StatusOK, status, string(body))
	ticket := decodeMap(t, body)
	assert.Equal(t, "Open", ticket["status"])
	assert.Equal(t, "jane@xl.com", ticket["createdBy"])
	assert.Equal(t, "General", ticket["category"])
	assert.Equal(t, "Support Request", ticket["type"])

	status, body = s.do(t, fiber.MethodPost, "/api/tickets", fiber.Map{"priority": "urgent"}, token)
	assert.Equal(t, fiber.StatusBadRequest, status)
	details := decodeMap(t, body)["error"].(map[string]any)["details"].(map[string]any)
	assert.Contains(t, details, "subject")
	assert.Contains(t, details, "description")
	assert.Contains(t, details, "priority")
}

func TestTicketListingsAndStats(t *testing.T) {
	s := newTestServer(t)
	_, jane := s.signUp(t, "jane@xl.com", "Jane")
	_, bob := s.signUp(t, "bob@xl.com", "Bob")

	for i := 0; i < 2; i++ {
		status, _ := s.do(t, fiber.MethodPost, "/api/tickets", fiber.Map{
			"subject": fmt.Sprintf("Issue %d", i), "description": "details", "priority": "low",
		}, jane)
		require.Equal(t, fiber.StatusOK, status)
	}

	status, body := s.do(t, fiber.MethodGet, "/api/tickets", nil, bob)
	require.Equal(t, fiber.StatusOK, status)
	var all []map[string]any
	require.NoError(t, json.Unmarshal(body, &all))
	assert.Len(t, all, 2)

	status, body = s.do(t, fiber.MethodGet, "/api/tickets?limit=1&offset=1", nil, bob)
	require.Equal(t, fiber.StatusOK, status)
	var window []map[string]any
	require.NoError(t, json.Unmarshal(body, &window))
	require.Len(t, window, 1)
	assert.Equal(t, all[1]["id"], window[0]["id"])

	status, body = s.do(t, fiber.MethodGet, "/api/tickets/user/bob@xl.com", nil, bob)
	require.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body))

	status, body = s.do(t, fiber.MethodGet, "/api/tickets/user/jane%40xl.com", nil, jane)
	require.Equal(t, fiber.StatusOK, status)
	var mine []map[string]any
	require.NoError(t, json.Unmarshal(body, &mine))
	assert.Len(t, mine, 2)

	status, body = s.do(t, fiber.MethodGet, "/api/tickets/user/jane@xl.com", nil, bob)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", errorCode(t, body))

	status, body = s.do(t, fiber.MethodGet, "/api/tickets/stats?createdBy=jane@xl.com", nil, jane)
	require.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"totalTickets":2,"solvedTickets":0,"awaitingApproval":2,"inProgress":0}`, string(body))

	status, _ = s.do(t, fiber.MethodGet, "/api/tickets", nil, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)
	_, admin := s.signUp(t, "admin@xl.com", "Admin")
	agentID, agent := s.signUp(t, "jane@xl.com", "Jane")

	status, body := s.do(t, fiber.MethodGet, "/api/admin/users", nil, agent)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", errorCode(t, body))

	status, body = s.do(t, fiber.MethodGet, "/api/admin/users", nil, admin)
	require.Equal(t, fiber.StatusOK, status)
	assert.NotContains(t, string(body), "password")
	var users []map[string]any
	require.NoError(t, json.Unmarshal(body, &users))
	assert.Len(t, users, 2)

	status, body = s.do(t, fiber.MethodGet, "/api/admin/logs", nil, admin)
	require.Equal(t, fiber.StatusOK, status)
	var logs []map[string]any
	require.NoError(t, json.Unmarshal(body, &logs))
	assert.Len(t, logs, 2)

	path := fmt.Sprintf("/api/admin/users/%d", agentID)
	status, body = s.do(t, fiber.MethodPut, path, fiber.Map{"email": "admin@xl.com"}, admin)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "CONFLICT", errorCode(t, body))

	status, _ = s.do(t, fiber.MethodPut, "/api/admin/users/9999", fiber.Map{"name": "Ghost"}, admin)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = s.do(t, fiber.MethodPut, "/api/admin/users/abc", fiber.Map{"name": "Ghost"}, admin)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = s.do(t, fiber.MethodPut, path, fiber.Map{"role": "Admin", "specialty": "Networking"}, admin)
	require.Equal(t, fiber.StatusOK, status, string(body))
	updated := decodeMap(t, body)
	assert.Equal(t, "Admin", updated["role"])
	assert.Equal(t, "Networking", updated["specialty"])

	// The agent's token still says SupportAgent; the stored role wins.
	status, _ = s.do(t, fiber.MethodGet, "/api/admin/users", nil, agent)
	assert.Equal(t, fiber.StatusOK, status)

	status, body = s.do(t, fiber.MethodGet, "/api/admin/metrics", nil, admin)
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, decodeMap(t, body), "requests")
}

func TestAdminAdvancesTicketStatus(t *testing.T) {
	s := newTestServer(t)
	_, admin := s.signUp(t, "admin@xl.com", "Admin")
	_, agent := s.signUp(t, "jane@xl.com", "Jane")

	status, body := s.do(t, fiber.MethodPost, "/api/tickets", fiber.Map{
		"subject": "Laptop", "description": "Battery swollen", "priority": "high",
	}, agent)
	require.Equal(t, fiber.StatusOK, status)
	id := int64(decodeMap(t, body)["id"].(float64))
	path := fmt.Sprintf("/api/admin/tickets/%d/status", id)

	status, _ = s.do(t, fiber.MethodPut, path, fiber.Map{"status": "InProgress"}, agent)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, body = s.do(t, fiber.MethodPut, path, fiber.Map{"status": "InProgress"}, admin)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "InProgress", decodeMap(t, body)["status"])

	status, body = s.do(t, fiber.MethodPut, path, fiber.Map{"status": "Open"}, admin)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "CONFLICT", errorCode(t, body))

	status, _ = s.do(t, fiber.MethodPut, "/api/admin/tickets/9999/status", fiber.Map{"status": "Resolved"}, admin)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestAssignmentAndHistory(t *testing.T) {
	s := newTestServer(t)
	_, admin := s.signUp(t, "admin@xl.com", "Admin")
	_, jane := s.signUp(t, "jane@xl.com", "Jane")
	_, bob := s.signUp(t, "bob@xl.com", "Bob")

	status, body := s.do(t, fiber.MethodPost, "/api/tickets", fiber.Map{
		"subject": "Monitor", "description": "Flickers", "priority": "low",
	}, jane)
	require.Equal(t, fiber.StatusOK, status)
	id := int64(decodeMap(t, body)["id"].(float64))

	status, body = s.do(t, fiber.MethodPost, fmt.Sprintf("/api/tickets/%d/claim", id), nil, bob)
	require.Equal(t, fiber.StatusOK, status, string(body))
	assert.Equal(t, "bob@xl.com", decodeMap(t, body)["assignedTo"])

	status, _ = s.do(t, fiber.MethodPost, fmt.Sprintf("/api/tickets/%d/claim", id), nil, jane)
	assert.Equal(t, fiber.StatusConflict, status)

	assignPath := fmt.Sprintf("/api/admin/tickets/%d/assignee", id)
	status, _ = s.do(t, fiber.MethodPut, assignPath, fiber.Map{"assignedTo": "ghost@xl.com"}, admin)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = s.do(t, fiber.MethodPut, assignPath, fiber.Map{"assignedTo": "jane@xl.com"}, admin)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "jane@xl.com", decodeMap(t, body)["assignedTo"])

	status, _ = s.do(t, fiber.MethodPut, fmt.Sprintf("/api/admin/tickets/%d/status", id), fiber.Map{"status": "Resolved"}, admin)
	require.Equal(t, fiber.StatusOK, status)

	status, body = s.do(t, fiber.MethodGet, fmt.Sprintf("/api/admin/tickets/%d/history", id), nil, admin)
	require.Equal(t, fiber.StatusOK, status)
	var history []map[string]any
	require.NoError(t, json.Unmarshal(body, &history))
	require.Len(t, history, 3)
	assert.Equal(t, "ASSIGNEE_CHANGE", history[0]["changeType"])
	assert.Nil(t, history[0]["oldValue"])
	assert.Equal(t, "bob@xl.com", history[0]["newValue"])
	assert.Equal(t, "STATUS_CHANGE", history[2]["changeType"])
	assert.Equal(t, "Resolved", history[2]["newValue"])

	status, _ = s.do(t, fiber.MethodGet, fmt.Sprintf("/api/admin/tickets/%d/history", id), nil, jane)
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestHealthAndUnknownRoutes(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, fiber.MethodGet, "/health/live", nil, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "alive", decodeMap(t, body)["status"])

	status, _ = s.do(t, fiber.MethodGet, "/health/ready", nil, "")
	assert.Equal(t, fiber.StatusOK, status)

	status, body = s.do(t, fiber.MethodGet, "/api/nope", nil, "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(t, body))
}
