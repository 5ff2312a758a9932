package chat

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"collectdash/internal/infrastructure"
	"collectdash/pkg/contracts/domain"
)

// DefaultRangeDays is how far back a date-range inbox reaches by default.
const DefaultRangeDays = 3

// Inbox filter modes for admins.
const (
	ModeToday = "today"
	ModeRange = "range"
)

// SendRequest is a chat form submission.
type SendRequest struct {
	Message string `json:"message" validate:"required"`
	ReplyTo string `json:"reply_to"`
}

// InboxFilter narrows an admin's inbox. Agents always see their own sent
// messages and the filter is ignored.
type InboxFilter struct {
	// Mode is ModeToday (default) or ModeRange.
	Mode string
	// From and To are inclusive calendar dates; only their year, month and
	// day are used. Zero values default to DefaultRangeDays ago and today.
	From time.Time
	To   time.Time
	// Sender keeps only messages from this sender when set.
	Sender string
}

// Inbox is a filtered message list, newest first.
type Inbox struct {
	Messages []domain.ChatMessage `json:"messages"`
	// Senders lists the distinct senders within the date window, sorted, for
	// the sender filter.
	Senders []string `json:"senders,omitempty"`
}

// Service applies the chat rules on top of a Store.
type Service struct {
	store   Store
	loc     *time.Location
	now     func() time.Time
	metrics *infrastructure.BusinessMetrics
	logger  *slog.Logger
}

// NewService creates a chat service. Timestamps are written and compared in
// loc; nil selects time.Local.
func NewService(store Store, loc *time.Location, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   store,
		loc:     loc,
		now:     time.Now,
		metrics: metrics,
		logger:  logger.With(slog.String("component", "chat_service")),
	}
}

// Send appends a message from the session's party. Agents send as their
// agent name to Admin; admins send as their capitalized role to Agent.
func (s *Service) Send(ctx context.Context, sess domain.Session, req SendRequest) (domain.ChatMessage, error) {
	text := strings.TrimSpace(req.Message)
	if text == "" {
		return domain.ChatMessage{}, ErrEmptyMessage
	}

	msg := domain.ChatMessage{
		Timestamp: s.now().In(s.loc).Format(domain.ChatTimestampLayout),
		Message:   text,
	}
	if sess.Role.IsAdmin() {
		msg.Sender = capitalize(string(sess.Role))
		msg.Receiver = domain.ChatPartyAgent
		msg.ReplyTo = strings.TrimSpace(req.ReplyTo)
	} else {
		if strings.TrimSpace(req.ReplyTo) != "" {
			return domain.ChatMessage{}, ErrReplyNotAllowed
		}
		msg.Sender = sess.Username
		msg.Receiver = domain.ChatPartyAdmin
	}

	if err := s.store.Append(ctx, msg); err != nil {
		return domain.ChatMessage{}, fmt.Errorf("send message: %w", err)
	}
	infrastructure.RecordChatMessage(ctx, s.metrics, string(sess.Role))

	s.logger.InfoContext(ctx, "chat message sent",
		slog.String("sender", msg.Sender),
		slog.String("receiver", msg.Receiver),
		slog.String("timestamp", msg.Timestamp))
	return msg, nil
}

// Unread returns the messages addressed to the session's party: Agent for
// agents, Admin for admins, whoever sent them. There is no read tracking.
func (s *Service) Unread(ctx context.Context, sess domain.Session) ([]domain.ChatMessage, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	party := domain.ChatPartyAgent
	if sess.Role.IsAdmin() {
		party = domain.ChatPartyAdmin
	}

	out := []domain.ChatMessage{}
	for _, msg := range all {
		if msg.Receiver == party {
			out = append(out, msg)
		}
	}
	slices.Reverse(out)
	return out, nil
}

// Inbox returns the session's view of the message board, newest first.
func (s *Service) Inbox(ctx context.Context, sess domain.Session, filter InboxFilter) (Inbox, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return Inbox{}, fmt.Errorf("list messages: %w", err)
	}

	if !sess.Role.IsAdmin() {
		out := []domain.ChatMessage{}
		for _, msg := range all {
			if msg.Sender == sess.Username {
				out = append(out, msg)
			}
		}
		slices.Reverse(out)
		return Inbox{Messages: out}, nil
	}

	from, to, err := s.window(filter)
	if err != nil {
		return Inbox{}, err
	}

	inWindow := make([]domain.ChatMessage, 0, len(all))
	senders := make(map[string]struct{})
	for _, msg := range all {
		t, ok := msg.Time(s.loc)
		if !ok || t.Before(from) || !t.Before(to) {
			continue
		}
		inWindow = append(inWindow, msg)
		senders[msg.Sender] = struct{}{}
	}

	inbox := Inbox{Messages: []domain.ChatMessage{}, Senders: make([]string, 0, len(senders))}
	for name := range senders {
		inbox.Senders = append(inbox.Senders, name)
	}
	slices.Sort(inbox.Senders)

	for _, msg := range inWindow {
		if filter.Sender == "" || msg.Sender == filter.Sender {
			inbox.Messages = append(inbox.Messages, msg)
		}
	}
	slices.Reverse(inbox.Messages)
	return inbox, nil
}

// Delete removes a message by timestamp. Only admins may delete.
func (s *Service) Delete(ctx context.Context, sess domain.Session, timestamp string) error {
	if !sess.Role.IsAdmin() {
		return ErrForbidden
	}
	timestamp = strings.TrimSpace(timestamp)
	if timestamp == "" {
		return ErrMessageNotFound
	}

	if err := s.store.DeleteByTimestamp(ctx, timestamp); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "chat message removed",
		slog.String("timestamp", timestamp),
		slog.String("by", sess.Username))
	return nil
}

// window returns the half-open instant range [from, to) covering the
// filter's calendar days.
func (s *Service) window(filter InboxFilter) (time.Time, time.Time, error) {
	today := dateIn(s.now().In(s.loc), s.loc)

	switch filter.Mode {
	case "", ModeToday:
		return today, today.AddDate(0, 0, 1), nil
	case ModeRange:
		from, to := today.AddDate(0, 0, -DefaultRangeDays), today
		if !filter.From.IsZero() {
			from = dateIn(filter.From, s.loc)
		}
		if !filter.To.IsZero() {
			to = dateIn(filter.To, s.loc)
		}
		if to.Before(from) {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: %s is after %s", ErrInvalidRange,
				from.Format(time.DateOnly), to.Format(time.DateOnly))
		}
		return from, to.AddDate(0, 0, 1), nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("%w: unknown mode %q", ErrInvalidRange, filter.Mode)
	}
}

// dateIn returns midnight in loc of the calendar date t carries.
func dateIn(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
