package chat

import "errors"

// Chat errors
var (
	ErrEmptyMessage    = errors.New("message is empty")
	ErrReplyNotAllowed = errors.New("only admins can reply to a message")
	ErrForbidden       = errors.New("only admins can delete messages")
	ErrMessageNotFound = errors.New("message not found")
	ErrInvalidRange    = errors.New("invalid date range")
)
