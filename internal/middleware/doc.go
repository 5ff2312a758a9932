// Package middleware holds the HTTP middleware of the dashboard API.
//
// Recommended order: RequestID, RealIP, OTel, StructuredLogger, recovery,
// SecurityHeaders, CORS, RateLimiter, then per-group Timeout, Session and
// RequireRole. Every rejection is rendered as an RFC 7807 problem.
package middleware
