// Package audit records security-relevant events: directory writes, token
// lifecycle, and authorization denials. Entries are persisted to the
// audit_logs table and mirrored to a logrus stream so operators can tail
// them without database access.
package audit

import "time"

// Action identifies what happened
type Action string

const (
	ActionUserCreate    Action = "user.create"
	ActionUserDelete    Action = "user.delete"
	ActionCompanyCreate Action = "company.create"
	ActionTokenIssue    Action = "token.issue"
	ActionTokenRevoke   Action = "token.revoke"
	ActionLogin         Action = "auth.login"
	ActionLoginFailed   Action = "auth.login_failed"
	ActionAccessDenied  Action = "authz.access_denied"
)

// Status is the outcome of the recorded action
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusDenied  Status = "denied"
)

// Entry is one audit record
type Entry struct {
	ID           int64     `json:"id"`
	UserID       *int64    `json:"user_id,omitempty"`
	CompanyID    *int64    `json:"company_id,omitempty"`
	Action       Action    `json:"action"`
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id,omitempty"`
	IPAddress    string    `json:"ip_address,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
	Status       Status    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
