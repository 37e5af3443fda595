// Package session provides in-memory conversation session storage.
//
// Sessions hold a bounded window of recent conversation turns. The store
// caps the number of live sessions and expires idle ones, so a long-running
// server does not accumulate unbounded state.
package session

// Role constants define valid turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is a single conversation turn as persisted in a session.
// Only user and assistant turns are stored; tool traffic from the answer
// loop never enters the session window.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
