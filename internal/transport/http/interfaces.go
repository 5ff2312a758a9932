package http

import (
	"context"
	"time"

	"collectdash/internal/auth"
	"collectdash/internal/chat"
	"collectdash/pkg/contracts/domain"
)

// DashboardService serves aggregated collections snapshots.
type DashboardService interface {
	Snapshot(ctx context.Context) (*domain.DashboardSnapshot, error)
	Refresh(ctx context.Context, trigger string) (*domain.DashboardSnapshot, error)
	Agents(ctx context.Context) ([]string, error)
	Status() (time.Time, error)
}

// AuthService logs users in and out.
type AuthService interface {
	Login(ctx context.Context, req auth.LoginRequest) (domain.Session, error)
	Logout(ctx context.Context, token string)
	Authenticate(token string) (domain.Session, error)
	ChangePassword(ctx context.Context, sess domain.Session, req auth.ChangePasswordRequest) error
}

// ChatService reads and writes the message board.
type ChatService interface {
	Send(ctx context.Context, sess domain.Session, req chat.SendRequest) (domain.ChatMessage, error)
	Unread(ctx context.Context, sess domain.Session) ([]domain.ChatMessage, error)
	Inbox(ctx context.Context, sess domain.Session, filter chat.InboxFilter) (chat.Inbox, error)
	Delete(ctx context.Context, sess domain.Session, timestamp string) error
}
