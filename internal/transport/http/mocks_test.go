package http

import (
	"context"
	"net/http"
	"time"

	"github.com/stretchr/testify/mock"

	"collectdash/internal/auth"
	"collectdash/internal/chat"
	"collectdash/pkg/contracts/domain"
)

type MockDashboardService struct {
	mock.Mock
}

func (m *MockDashboardService) Snapshot(ctx context.Context) (*domain.DashboardSnapshot, error) {
	args := m.Called(ctx)
	snap, _ := args.Get(0).(*domain.DashboardSnapshot)
	return snap, args.Error(1)
}

func (m *MockDashboardService) Refresh(ctx context.Context, trigger string) (*domain.DashboardSnapshot, error) {
	args := m.Called(ctx, trigger)
	snap, _ := args.Get(0).(*domain.DashboardSnapshot)
	return snap, args.Error(1)
}

func (m *MockDashboardService) Agents(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	agents, _ := args.Get(0).([]string)
	return agents, args.Error(1)
}

func (m *MockDashboardService) Status() (time.Time, error) {
	args := m.Called()
	return args.Get(0).(time.Time), args.Error(1)
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Login(ctx context.Context, req auth.LoginRequest) (domain.Session, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.Session), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, token string) {
	m.Called(ctx, token)
}

func (m *MockAuthService) Authenticate(token string) (domain.Session, error) {
	args := m.Called(token)
	return args.Get(0).(domain.Session), args.Error(1)
}

func (m *MockAuthService) ChangePassword(ctx context.Context, sess domain.Session, req auth.ChangePasswordRequest) error {
	args := m.Called(ctx, sess, req)
	return args.Error(0)
}

type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) Send(ctx context.Context, sess domain.Session, req chat.SendRequest) (domain.ChatMessage, error) {
	args := m.Called(ctx, sess, req)
	return args.Get(0).(domain.ChatMessage), args.Error(1)
}

func (m *MockChatService) Unread(ctx context.Context, sess domain.Session) ([]domain.ChatMessage, error) {
	args := m.Called(ctx, sess)
	msgs, _ := args.Get(0).([]domain.ChatMessage)
	return msgs, args.Error(1)
}

func (m *MockChatService) Inbox(ctx context.Context, sess domain.Session, filter chat.InboxFilter) (chat.Inbox, error) {
	args := m.Called(ctx, sess, filter)
	return args.Get(0).(chat.Inbox), args.Error(1)
}

func (m *MockChatService) Delete(ctx context.Context, sess domain.Session, timestamp string) error {
	args := m.Called(ctx, sess, timestamp)
	return args.Error(0)
}

var (
	adminSession = domain.Session{Token: "admin-token", Username: "admin", Role: domain.RoleAdmin}
	agentSession = domain.Session{Token: "agent-token", Username: "Alice", Role: domain.RoleAgent, AgentName: "Alice"}
)

// withSession places sess in every request's context, standing in for the
// session middleware.
func withSession(sess domain.Session, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), sess)))
	})
}
