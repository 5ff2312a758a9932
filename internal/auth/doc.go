// Package auth implements the dashboard's static role logins.
//
// Each role (agent, admin, superadmin) has one username and a bcrypt
// password hash taken from configuration. A successful login issues an opaque
// session token that expires after the configured TTL. Agents additionally
// pick the agent batch they act as; that name becomes the session username.
//
// Password changes only replace the in-memory hash and are lost on restart.
package auth
