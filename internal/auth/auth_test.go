package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xl-support/helpdesk/internal/domain"
	"github.com/xl-support/helpdesk/internal/repository"
	apperrors "github.com/xl-support/helpdesk/pkg/util/errorutil"
)

func TestHashPasswordNeverStoresPlaintext(t *testing.T) {
	hash, err := HashPassword("pw1", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "pw1", hash)
	assert.NoError(t, ComparePassword(hash, "pw1"))
	assert.Error(t, ComparePassword(hash, "pw2"))
}

func TestCompareAgainstDummyDoesNotPanic(t *testing.T) {
	CompareAgainstDummy("anything", 4)
	CompareAgainstDummy("", 4)
}

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 30)
	user := &domain.User{ID: 12, Role: domain.RoleAdmin}

	session, err := tm.Issue(user, 77)
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, session.IssuedAt.Add(30*time.Minute), session.ExpiresAt)

	parsed, err := tm.Parse(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.ID, parsed.ID)
	assert.Equal(t, int64(12), parsed.UserID)
	assert.Equal(t, int64(77), parsed.LogID)
	assert.Equal(t, domain.RoleAdmin, parsed.Role)
}

func TestTokenRejectsExpiredAndForeignTokens(t *testing.T) {
	tm := NewTokenManager("secret", 1)
	session, err := tm.Issue(&domain.User{ID: 1, Role: domain.RoleSupportAgent}, 0)
	require.NoError(t, err)

	tm.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = tm.Parse(session.Token)
	assert.Error(t, err)

	other := NewTokenManager("other-secret", 1)
	_, err = other.Parse(session.Token)
	assert.Error(t, err)

	_, err = tm.Parse("not-a-token")
	assert.Error(t, err)
}

func TestRedisSessionStore(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisSessionStore(client, "helpdesk:").(*redisSessionStore)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	mock.ExpectSet("helpdesk:session:revoked:abc", "1", 30*time.Minute).SetVal("OK")
	require.NoError(t, store.Revoke(ctx, "abc", now.Add(30*time.Minute)))

	// already expired tokens need no revocation entry
	require.NoError(t, store.Revoke(ctx, "old", now.Add(-time.Minute)))

	mock.ExpectGet("helpdesk:session:revoked:abc").SetVal("1")
	revoked, err := store.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, revoked)

	mock.ExpectGet("helpdesk:session:revoked:def").RedisNil()
	revoked, err = store.IsRevoked(ctx, "def")
	require.NoError(t, err)
	assert.False(t, revoked)

	mock.ExpectGet("helpdesk:session:revoked:ghi").SetErr(errors.New("connection refused"))
	_, err = store.IsRevoked(ctx, "ghi")
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemorySessionStoreExpiresEntries(t *testing.T) {
	store := NewMemorySessionStore().(*memorySessionStore)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, "abc", now.Add(time.Minute)))
	revoked, _ := store.IsRevoked(ctx, "abc")
	assert.True(t, revoked)

	now = now.Add(2 * time.Minute)
	revoked, _ = store.IsRevoked(ctx, "abc")
	assert.False(t, revoked)
}

type stubUsers map[int64]*domain.User

func (s stubUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	if u, ok := s[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func newTestApp(m *AuthMiddleware, guards ...fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).SendString(de.Code)
		},
	})
	handlers := append([]fiber.Handler{m.Handle}, guards...)
	handlers = append(handlers, func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		return c.SendString(string(p.User.Role))
	})
	app.Get("/", handlers...)
	return app
}

func doGet(t *testing.T, app *fiber.App, token string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	buf := make([]byte, 64)
	n, _ := resp.Body.Read(buf)
	return resp.StatusCode, string(buf[:n])
}

func TestMiddlewareUsesStoredRoleNotClaim(t *testing.T) {
	tm := NewTokenManager("secret", 10)
	users := stubUsers{5: {ID: 5, Email: "bob@x.com", Role: domain.RoleSupportAgent}}
	mw := NewAuthMiddleware(tm, NewMemorySessionStore(), users)

	// token claims Admin but the account was demoted after issue
	session, err := tm.Issue(&domain.User{ID: 5, Role: domain.RoleAdmin}, 0)
	require.NoError(t, err)

	status, body := doGet(t, newTestApp(mw), session.Token)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "SupportAgent", body)

	status, body = doGet(t, newTestApp(mw, RequireAdmin()), session.Token)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, apperrors.CodeForbidden, body)
}

func TestMiddlewareRejectsMissingRevokedAndUnknown(t *testing.T) {
	tm := NewTokenManager("secret", 10)
	sessions := NewMemorySessionStore()
	users := stubUsers{5: {ID: 5, Role: domain.RoleAdmin}}
	app := newTestApp(NewAuthMiddleware(tm, sessions, users))

	status, _ := doGet(t, app, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doGet(t, app, "garbage")
	assert.Equal(t, http.StatusUnauthorized, status)

	ghost, err := tm.Issue(&domain.User{ID: 9, Role: domain.RoleAdmin}, 0)
	require.NoError(t, err)
	status, _ = doGet(t, app, ghost.Token)
	assert.Equal(t, http.StatusUnauthorized, status)

	session, err := tm.Issue(&domain.User{ID: 5, Role: domain.RoleAdmin}, 0)
	require.NoError(t, err)
	status, _ = doGet(t, app, session.Token)
	assert.Equal(t, http.StatusOK, status)

	require.NoError(t, sessions.Revoke(context.Background(), session.ID, session.ExpiresAt))
	status, _ = doGet(t, app, session.Token)
	assert.Equal(t, http.StatusUnauthorized, status)
}
