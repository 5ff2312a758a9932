// Package http implements the HTTP handlers of the collections dashboard.
// Handlers stay thin: they parse and validate requests, call a service and
// render the result. All business rules live in the services, auth and chat
// packages.
//
// # Routes
//
// The application mounts the handlers under /api:
//
//	/api/health         HealthHandler (public)
//	/api/version        HealthHandler.Version (public)
//	/api/auth           AuthHandler (login and the agent picker are public)
//	/api/dashboard      DashboardHandler (session required)
//	/api/dashboard/export/*  admin and superadmin only
//	/api/chat           ChatHandler (session required, delete is admin only)
//
// # Error Handling
//
// Domain sentinels are translated by mapError and rendered by the shared
// ErrorHandler as RFC 7807 problem details:
//
//	{
//	    "type": "/errors/data/empty",
//	    "title": "Service Unavailable",
//	    "status": 503,
//	    "detail": "No data available",
//	    "instance": "/api/dashboard"
//	}
//
// An empty source renders 503, an unreachable source 502 and anything
// unexpected 500 without leaking internals.
//
// # Exports
//
// CSV downloads carry a UTF-8 byte order mark so spreadsheet tools detect the
// encoding. The workbook export holds one sheet per table.
package http
