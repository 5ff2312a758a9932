package domain

import "time"

// ChatTimestampLayout is the layout used for chat message timestamps.
// Timestamps double as message identifiers for replies and deletion.
const ChatTimestampLayout = "2006-01-02 15:04:05"

// Chat parties.
const (
	ChatPartyAdmin = "Admin"
	ChatPartyAgent = "Agent"
)

// ChatMessage is one row of the agent chat worksheet.
type ChatMessage struct {
	Timestamp string `json:"timestamp"`
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver"`
	Message   string `json:"message"`
	ReplyTo   string `json:"reply_to,omitempty"`
}

// Time parses Timestamp. ok is false for malformed timestamps.
func (m ChatMessage) Time(loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(ChatTimestampLayout, m.Timestamp, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Role is a dashboard login role.
type Role string

const (
	RoleAgent      Role = "agent"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// Roles lists every known role.
var Roles = []Role{RoleAgent, RoleAdmin, RoleSuperAdmin}

// IsAdmin reports whether the role has admin privileges.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// Session is an authenticated dashboard session.
// For agents Username is the agent (batch) name chosen at login.
type Session struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	AgentName string    `json:"agent_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
