package services

import "errors"

// Dashboard errors
var (
	ErrUnknownMetric = errors.New("unknown metric")
	ErrUnknownAgent  = errors.New("unknown agent")
)
