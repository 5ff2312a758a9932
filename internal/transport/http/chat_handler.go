package http

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"collectdash/internal/auth"
	"collectdash/internal/chat"
	apierrors "collectdash/internal/errors"
	"collectdash/internal/middleware"
	"collectdash/pkg/contracts/domain"
)

// ChatHandler serves the agent/admin message board.
type ChatHandler struct {
	service      ChatService
	validator    *middleware.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewChatHandler creates a new chat handler
func NewChatHandler(service ChatService, validator *middleware.Validator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ChatHandler {
	return &ChatHandler{
		service:      service,
		validator:    validator,
		logger:       logger.With(slog.String("component", "chat_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the chat routes. Callers mount them behind the session
// middleware.
func (h *ChatHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/inbox", h.Inbox)
	r.Get("/unread", h.Unread)
	r.Post("/messages", h.Send)
	r.With(middleware.RequireAdmin()).Delete("/messages/{timestamp}", h.Delete)
	return r
}

func (h *ChatHandler) session(w http.ResponseWriter, r *http.Request) (domain.Session, bool) {
	sess, ok := auth.SessionFromContext(r.Context())
	if !ok {
		h.errorHandler.HandleError(w, r, apierrors.ErrUnauthorized)
	}
	return sess, ok
}

// Inbox handles GET /api/chat/inbox. Admins may pass mode (today|range),
// from and to (YYYY-MM-DD) and sender.
func (h *ChatHandler) Inbox(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	filter, err := parseInboxFilter(r.URL.Query())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	inbox, err := h.service.Inbox(r.Context(), sess, filter)
	if err != nil {
		h.errorHandler.HandleError(w, r, mapError(err))
		return
	}
	render.JSON(w, r, inbox)
}

// Unread handles GET /api/chat/unread
func (h *ChatHandler) Unread(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	msgs, err := h.service.Unread(r.Context(), sess)
	if err != nil {
		h.errorHandler.HandleError(w, r, mapError(err))
		return
	}
	render.JSON(w, r, map[string]any{
		"count":    len(msgs),
		"messages": msgs,
	})
}

// Send handles POST /api/chat/messages
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req chat.SendRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	msg, err := h.service.Send(r.Context(), sess, req)
	if err != nil {
		h.errorHandler.HandleError(w, r, mapError(err))
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, msg)
}

// Delete handles DELETE /api/chat/messages/{timestamp}
func (h *ChatHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	// The parameter stays escaped when chi matched on RawPath.
	timestamp, err := url.PathUnescape(chi.URLParam(r, "timestamp"))
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("timestamp", "Invalid timestamp"))
		return
	}

	if err := h.service.Delete(r.Context(), sess, timestamp); err != nil {
		h.errorHandler.HandleError(w, r, mapError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseInboxFilter(q url.Values) (chat.InboxFilter, error) {
	filter := chat.InboxFilter{
		Mode:   q.Get("mode"),
		Sender: q.Get("sender"),
	}
	for _, p := range []struct {
		name string
		dst  *time.Time
	}{
		{"from", &filter.From},
		{"to", &filter.To},
	} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return chat.InboxFilter{}, apierrors.ErrValidation(p.name, "Expected a date in YYYY-MM-DD format")
		}
		*p.dst = t
	}
	return filter, nil
}
