package app

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chitram/companion/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memUsers struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func newMemUsers() *memUsers { return &memUsers{users: map[string]domain.User{}} }

func (m *memUsers) CreateUser(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Username]; ok {
		return domain.ErrUserExists
	}
	m.users[u.Username] = *u
	return nil
}

func (m *memUsers) GetUser(_ context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func newTestAuth(t *testing.T) *AuthService {
	t.Helper()
	svc, err := NewAuthService(newMemUsers(), "test-secret", "chitram-test", time.Hour)
	require.NoError(t, err)
	return svc
}

func TestNewAuthService_RequiresSecret(t *testing.T) {
	_, err := NewAuthService(newMemUsers(), "", "x", time.Hour)
	assert.Error(t, err)
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	svc := newTestAuth(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "  Ravi ", "s3cret", "")
	require.NoError(t, err)
	assert.Equal(t, "ravi", user.Username)
	assert.Equal(t, "ravi", user.DisplayName)
	assert.NotEqual(t, "s3cret", user.PasswordHash)

	_, err = svc.Register(ctx, "ravi", "other", "Ravi")
	assert.ErrorIs(t, err, domain.ErrUserExists)

	token, logged, err := svc.Login(ctx, "RAVI", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "ravi", logged.Username)

	subject, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ravi", subject)
}

func TestAuthService_LoginFailures(t *testing.T) {
	svc := newTestAuth(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, "meena", "pw", "Meena")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "meena", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "ghost", "pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_RegisterRequiresInput(t *testing.T) {
	svc := newTestAuth(t)
	_, err := svc.Register(context.Background(), " ", "pw", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Register(context.Background(), "user", "", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAuthService_RegisterRejectsOverlongPassword(t *testing.T) {
	svc := newTestAuth(t)
	_, err := svc.Register(context.Background(), "user", strings.Repeat("p", 73), "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Register(context.Background(), "user", strings.Repeat("p", 72), "")
	assert.NoError(t, err)
}

func TestAuthService_ValidateToken(t *testing.T) {
	svc := newTestAuth(t)
	issuedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issuedAt }

	token, err := svc.issue("ravi")
	require.NoError(t, err)

	svc.now = func() time.Time { return issuedAt.Add(2 * time.Hour) }
	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)

	_, err = svc.ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	svc.now = func() time.Time { return issuedAt }
	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "ravi",
		Issuer:    "someone-else",
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
