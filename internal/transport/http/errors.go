package http

import (
	"errors"
	"net/http"

	"collectdash/internal/auth"
	"collectdash/internal/chat"
	apierrors "collectdash/internal/errors"
	"collectdash/internal/services"
)

// mapError turns domain sentinels into API errors. Anything unrecognised is
// returned as is and left to the error handler.
func mapError(err error) error {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrLoginDisabled):
		return apierrors.ErrInvalidCredentials
	case errors.Is(err, auth.ErrSessionNotFound),
		errors.Is(err, auth.ErrSessionExpired):
		return apierrors.New(http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
	case errors.Is(err, auth.ErrUnknownRole),
		errors.Is(err, auth.ErrAgentRequired),
		errors.Is(err, auth.ErrUnknownAgent),
		errors.Is(err, auth.ErrPasswordRequired),
		errors.Is(err, auth.ErrPasswordMismatch),
		errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, chat.ErrInvalidRange),
		errors.Is(err, services.ErrUnknownMetric),
		errors.Is(err, services.ErrUnknownAgent):
		return apierrors.New(http.StatusBadRequest, "INVALID_PARAMETER", err.Error())
	case errors.Is(err, chat.ErrReplyNotAllowed),
		errors.Is(err, chat.ErrForbidden):
		return apierrors.New(http.StatusForbidden, "FORBIDDEN", err.Error())
	case errors.Is(err, chat.ErrMessageNotFound):
		return apierrors.NotFoundError("message")
	}
	return err
}
