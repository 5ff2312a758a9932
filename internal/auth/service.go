package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"collectdash/internal/infrastructure"
	"collectdash/pkg/contracts/domain"
)

// AgentDirectory tells whether a name is a known agent batch.
type AgentDirectory interface {
	IsAgent(ctx context.Context, name string) (bool, error)
}

// LoginRequest is a login form submission.
type LoginRequest struct {
	Role      domain.Role `json:"role" validate:"required,oneof=agent admin superadmin"`
	Username  string      `json:"username" validate:"required"`
	Password  string      `json:"password" validate:"required"`
	AgentName string      `json:"agent_name" validate:"required_if=Role agent"`
}

// ChangePasswordRequest is a password change form submission.
type ChangePasswordRequest struct {
	OldPassword     string `json:"old_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// Service authenticates users and manages their sessions.
type Service struct {
	users    *UserStore
	sessions *SessionStore
	agents   AgentDirectory
	metrics  *infrastructure.BusinessMetrics
	logger   *slog.Logger
}

// NewService creates an auth service. agents may be nil, in which case agent
// names are not checked.
func NewService(users *UserStore, sessions *SessionStore, agents AgentDirectory, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:    users,
		sessions: sessions,
		agents:   agents,
		metrics:  metrics,
		logger:   logger.With(slog.String("component", "auth_service")),
	}
}

// Login verifies the credentials and opens a session. An agent session's
// username is the chosen agent name.
func (s *Service) Login(ctx context.Context, req LoginRequest) (domain.Session, error) {
	sess, err := s.login(ctx, req)
	infrastructure.RecordLogin(ctx, s.metrics, string(req.Role), err == nil)
	if err != nil {
		s.logger.WarnContext(ctx, "login failed",
			slog.String("role", string(req.Role)),
			slog.String("username", req.Username),
			slog.String("error", err.Error()))
		return domain.Session{}, err
	}

	s.logger.InfoContext(ctx, "login succeeded",
		slog.String("role", string(sess.Role)),
		slog.String("username", sess.Username))
	return sess, nil
}

func (s *Service) login(ctx context.Context, req LoginRequest) (domain.Session, error) {
	if err := s.users.Verify(req.Role, req.Username, req.Password); err != nil {
		return domain.Session{}, err
	}
	if req.Role != domain.RoleAgent {
		return s.sessions.Create(req.Username, req.Role, ""), nil
	}

	agent := strings.TrimSpace(req.AgentName)
	if agent == "" {
		return domain.Session{}, ErrAgentRequired
	}
	if s.agents != nil {
		ok, err := s.agents.IsAgent(ctx, agent)
		if err != nil {
			return domain.Session{}, fmt.Errorf("look up agent: %w", err)
		}
		if !ok {
			return domain.Session{}, fmt.Errorf("%w: %q", ErrUnknownAgent, agent)
		}
	}
	return s.sessions.Create(agent, req.Role, agent), nil
}

// Logout ends the session. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) {
	s.sessions.Delete(token)
	s.logger.DebugContext(ctx, "session closed")
}

// Authenticate resolves a session token.
func (s *Service) Authenticate(token string) (domain.Session, error) {
	if token == "" {
		return domain.Session{}, ErrSessionNotFound
	}
	return s.sessions.Get(token)
}

// ChangePassword replaces the password of the session's role after checking
// the current one.
func (s *Service) ChangePassword(ctx context.Context, sess domain.Session, req ChangePasswordRequest) error {
	if req.OldPassword == "" || req.NewPassword == "" || req.ConfirmPassword == "" {
		return ErrPasswordRequired
	}
	if req.NewPassword != req.ConfirmPassword {
		return ErrPasswordMismatch
	}

	if err := s.users.Verify(sess.Role, s.users.Username(sess.Role), req.OldPassword); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return fmt.Errorf("current password: %w", err)
		}
		return err
	}
	if err := s.users.SetPassword(sess.Role, req.NewPassword); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "password changed",
		slog.String("role", string(sess.Role)),
		slog.String("username", sess.Username))
	return nil
}
