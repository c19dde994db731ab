package models

import (
	"encoding/json"
	"time"
)

// AuditAction identifies the recorded operation.
type AuditAction string

const (
	AuditActionLogin      AuditAction = "LOGIN"
	AuditActionTransition AuditAction = "GRIEVANCE_TRANSITION"
	AuditActionRetract    AuditAction = "GRIEVANCE_RETRACT"
	AuditActionFeedback   AuditAction = "GRIEVANCE_FEEDBACK"
)

// AuditLog is an append-only record of a sensitive operation.
type AuditLog struct {
	ID         string          `db:"id" json:"id"`
	UserID     *string         `db:"user_id" json:"user_id,omitempty"`
	Action     AuditAction     `db:"action" json:"action"`
	Resource   string          `db:"resource" json:"resource"`
	ResourceID *string         `db:"resource_id" json:"resource_id,omitempty"`
	Details    json.RawMessage `db:"details" json:"details,omitempty"`
	IPAddress  string          `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent  string          `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}
