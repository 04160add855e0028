package models

// AuditOutcome is the result recorded for an audited action.
type AuditOutcome string

const (
	OutcomeSuccess AuditOutcome = "success"
	OutcomeFailure AuditOutcome = "failure"
	OutcomeAborted AuditOutcome = "aborted"
)

// AuditEvent is posted to the audit endpoint. The response is ignored.
type AuditEvent struct {
	ActionID string         `json:"action_id"`
	Outcome  AuditOutcome   `json:"outcome"`
	Message  string         `json:"message,omitempty"`
	Payload  map[string]any `json:"payload,omitempty"`
}
