package models

import "time"

// GrievanceStatus enumerates the lifecycle states of a grievance.
type GrievanceStatus string

const (
	GrievancePending   GrievanceStatus = "Pending"
	GrievanceResolved  GrievanceStatus = "Resolved"
	GrievanceEscalated GrievanceStatus = "Escalated"
	GrievanceRejected  GrievanceStatus = "Rejected"
)

// Terminal reports whether the status permits no further transition.
func (s GrievanceStatus) Terminal() bool {
	switch s {
	case GrievanceResolved, GrievanceEscalated, GrievanceRejected:
		return true
	}
	return false
}

// ValidTarget reports whether the status is a legal transition target.
// Pending is never a target: once a grievance leaves Pending it never returns.
func (s GrievanceStatus) ValidTarget() bool {
	return s.Terminal()
}

// Grievance is a single filed complaint progressing through the lifecycle.
//
// Invariants: status != Pending implies resolution_reply and resolved_at are
// set; feedback_stars set implies status == Resolved; the three non-Pending
// states are terminal.
type Grievance struct {
	ID                 string          `db:"id" json:"id"`
	StudentID          string          `db:"student_id" json:"student_id"`
	Category           Category        `db:"category" json:"category"`
	Description        string          `db:"description" json:"description"`
	Status             GrievanceStatus `db:"status" json:"status"`
	ProofImageRef      *string         `db:"proof_image_ref" json:"proof_image_ref,omitempty"`
	ResolutionReply    *string         `db:"resolution_reply" json:"resolution_reply,omitempty"`
	ResolutionImageRef *string         `db:"resolution_image_ref" json:"resolution_image_ref,omitempty"`
	FeedbackStars      *int            `db:"feedback_stars" json:"feedback_stars,omitempty"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	ResolvedAt         *time.Time      `db:"resolved_at" json:"resolved_at,omitempty"`
}

// GrievanceFilter captures listing criteria.
type GrievanceFilter struct {
	StudentID string
	Status    *GrievanceStatus
	Page      int
	PageSize  int
}

// GrievanceStats is the aggregate payload served by the stats endpoint.
type GrievanceStats struct {
	Total             int     `json:"total"`
	Resolved          int     `json:"resolved"`
	Escalated         int     `json:"escalated"`
	Rejected          int     `json:"rejected"`
	Pending           int     `json:"pending"`
	ResolutionRate    int     `json:"resolution_rate"`
	AvgResolutionTime string  `json:"avg_resolution_time"`
	Year              int     `json:"year"`
	MonthlySeries     [12]int `json:"monthly_series"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
