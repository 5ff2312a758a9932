// Package websocket pushes dashboard events to browsers.
//
// A single Hub goroutine owns the client set. Clients never send commands;
// the read pump only keeps the connection alive. The server pushes
// TypeDashboardRefreshed after every scheduled refresh so pages can reload
// their tables. Chat messages are not pushed.
package websocket
