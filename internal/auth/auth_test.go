package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"collectdash/internal/config"
	"collectdash/internal/shared/testutil"
	"collectdash/pkg/contracts/domain"
)

type mockAgents struct {
	mock.Mock
}

func (m *mockAgents) IsAgent(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

func hash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func authConfig(t *testing.T) config.AuthConfig {
	return config.AuthConfig{
		SessionTTL: time.Hour,
		Agent:      config.CredentialConfig{Username: "agent", PasswordHash: hash(t, "agentpass")},
		Admin:      config.CredentialConfig{Username: "admin", PasswordHash: hash(t, "adminpass")},
		Superadmin: config.CredentialConfig{Username: "superadmin"},
	}
}

func newUsers(t *testing.T) *UserStore {
	t.Helper()
	users, err := NewUserStore(authConfig(t))
	require.NoError(t, err)
	users.cost = bcrypt.MinCost
	return users
}

func TestNewUserStore_RejectsMalformedHash(t *testing.T) {
	cfg := authConfig(t)
	cfg.Admin.PasswordHash = "plaintext"
	_, err := NewUserStore(cfg)
	assert.Error(t, err)
}

func TestUserStore_Verify(t *testing.T) {
	users := newUsers(t)

	tests := []struct {
		name     string
		role     domain.Role
		username string
		password string
		wantErr  error
	}{
		{name: "agent ok", role: domain.RoleAgent, username: "agent", password: "agentpass"},
		{name: "admin ok", role: domain.RoleAdmin, username: "admin", password: "adminpass"},
		{name: "wrong password", role: domain.RoleAdmin, username: "admin", password: "nope", wantErr: ErrInvalidCredentials},
		{name: "wrong username", role: domain.RoleAdmin, username: "root", password: "adminpass", wantErr: ErrInvalidCredentials},
		{name: "other role's login", role: domain.RoleAdmin, username: "agent", password: "agentpass", wantErr: ErrInvalidCredentials},
		{name: "role without hash", role: domain.RoleSuperAdmin, username: "superadmin", password: "superpass", wantErr: ErrLoginDisabled},
		{name: "unknown role", role: domain.Role("guest"), username: "guest", password: "x", wantErr: ErrUnknownRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := users.Verify(tt.role, tt.username, tt.password)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestHashPassword(t *testing.T) {
	h, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(h), []byte("s3cret")))

	_, err = HashPassword("")
	assert.ErrorIs(t, err, ErrPasswordRequired)
}

func TestSessionStore(t *testing.T) {
	store := NewSessionStore(time.Minute, 0)
	defer store.Stop()
	now := time.Unix(1000, 0)
	store.now = func() time.Time { return now }

	sess := store.Create("Alice", domain.RoleAgent, "Alice")
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, now.Add(time.Minute), sess.ExpiresAt)

	got, err := store.Get(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess, got)

	_, err = store.Get("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	now = now.Add(time.Minute)
	_, err = store.Get(sess.Token)
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, 0, store.Len())
}

func TestSessionStore_Sweep(t *testing.T) {
	store := NewSessionStore(time.Millisecond, 5*time.Millisecond)
	defer store.Stop()
	store.Create("admin", domain.RoleAdmin, "")

	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func newService(t *testing.T, agents AgentDirectory) *Service {
	t.Helper()
	sessions := NewSessionStore(time.Hour, 0)
	t.Cleanup(sessions.Stop)
	return NewService(newUsers(t), sessions, agents, nil, testutil.Logger(t))
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()
	agents := new(mockAgents)
	agents.On("IsAgent", mock.Anything, "Alice").Return(true, nil)
	agents.On("IsAgent", mock.Anything, "Mallory").Return(false, nil)
	agents.On("IsAgent", mock.Anything, "Broken").Return(false, errors.New("source down"))

	svc := newService(t, agents)

	tests := []struct {
		name         string
		req          LoginRequest
		wantUsername string
		wantErr      error
		wantAnyErr   bool
	}{
		{
			name:         "admin",
			req:          LoginRequest{Role: domain.RoleAdmin, Username: "admin", Password: "adminpass"},
			wantUsername: "admin",
		},
		{
			name:         "agent becomes chosen agent",
			req:          LoginRequest{Role: domain.RoleAgent, Username: "agent", Password: "agentpass", AgentName: " Alice "},
			wantUsername: "Alice",
		},
		{
			name:    "agent name missing",
			req:     LoginRequest{Role: domain.RoleAgent, Username: "agent", Password: "agentpass"},
			wantErr: ErrAgentRequired,
		},
		{
			name:    "unknown agent",
			req:     LoginRequest{Role: domain.RoleAgent, Username: "agent", Password: "agentpass", AgentName: "Mallory"},
			wantErr: ErrUnknownAgent,
		},
		{
			name:       "agent lookup fails",
			req:        LoginRequest{Role: domain.RoleAgent, Username: "agent", Password: "agentpass", AgentName: "Broken"},
			wantAnyErr: true,
		},
		{
			name:    "bad password",
			req:     LoginRequest{Role: domain.RoleAdmin, Username: "admin", Password: "wrong"},
			wantErr: ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, err := svc.Login(ctx, tt.req)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantAnyErr:
				assert.Error(t, err)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantUsername, sess.Username)
				assert.Equal(t, tt.req.Role, sess.Role)

				got, err := svc.Authenticate(sess.Token)
				require.NoError(t, err)
				assert.Equal(t, sess, got)
			}
		})
	}
}

func TestService_Logout(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil)

	sess, err := svc.Login(ctx, LoginRequest{Role: domain.RoleAdmin, Username: "admin", Password: "adminpass"})
	require.NoError(t, err)

	svc.Logout(ctx, sess.Token)
	_, err = svc.Authenticate(sess.Token)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = svc.Authenticate("")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestService_ChangePassword(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil)
	sess := domain.Session{Username: "admin", Role: domain.RoleAdmin}

	tests := []struct {
		name    string
		req     ChangePasswordRequest
		wantErr error
	}{
		{name: "empty field", req: ChangePasswordRequest{OldPassword: "adminpass", NewPassword: "x"}, wantErr: ErrPasswordRequired},
		{name: "mismatch", req: ChangePasswordRequest{OldPassword: "adminpass", NewPassword: "a", ConfirmPassword: "b"}, wantErr: ErrPasswordMismatch},
		{name: "wrong current", req: ChangePasswordRequest{OldPassword: "nope", NewPassword: "a", ConfirmPassword: "a"}, wantErr: ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, svc.ChangePassword(ctx, sess, tt.req), tt.wantErr)
		})
	}

	require.NoError(t, svc.ChangePassword(ctx, sess, ChangePasswordRequest{
		OldPassword: "adminpass", NewPassword: "n3w", ConfirmPassword: "n3w",
	}))

	_, err := svc.Login(ctx, LoginRequest{Role: domain.RoleAdmin, Username: "admin", Password: "adminpass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, LoginRequest{Role: domain.RoleAdmin, Username: "admin", Password: "n3w"})
	assert.NoError(t, err)
}

func TestLoginRequest_Validation(t *testing.T) {
	v := validator.New()

	tests := []struct {
		name    string
		req     LoginRequest
		wantErr bool
	}{
		{name: "admin", req: LoginRequest{Role: "admin", Username: "admin", Password: "p"}},
		{name: "agent with name", req: LoginRequest{Role: "agent", Username: "agent", Password: "p", AgentName: "Alice"}},
		{name: "agent without name", req: LoginRequest{Role: "agent", Username: "agent", Password: "p"}, wantErr: true},
		{name: "unknown role", req: LoginRequest{Role: "guest", Username: "g", Password: "p"}, wantErr: true},
		{name: "missing password", req: LoginRequest{Role: "admin", Username: "admin"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.req)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSessionContext(t *testing.T) {
	_, ok := SessionFromContext(context.Background())
	assert.False(t, ok)

	sess := domain.Session{Token: "t", Role: domain.RoleAdmin}
	got, ok := SessionFromContext(WithSession(context.Background(), sess))
	require.True(t, ok)
	assert.Equal(t, sess, got)
}
