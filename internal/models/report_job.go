package models

import "time"

// ReportFormat enumerates supported export renderings.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// ReportJobStatus tracks asynchronous report generation.
type ReportJobStatus string

const (
	ReportJobQueued     ReportJobStatus = "queued"
	ReportJobProcessing ReportJobStatus = "processing"
	ReportJobCompleted  ReportJobStatus = "completed"
	ReportJobFailed     ReportJobStatus = "failed"
)

// ReportJob describes one grievance register export request.
// ScopeEmployeeID limits the register to the routed subset of one authority;
// empty means the full register.
type ReportJob struct {
	ID              string          `json:"id"`
	Format          ReportFormat    `json:"format"`
	RequestedBy     string          `json:"requested_by"`
	ScopeEmployeeID string          `json:"scope_employee_id,omitempty"`
	Status          ReportJobStatus `json:"status"`
	FilePath        string          `json:"-"`
	DownloadToken   string          `json:"download_token,omitempty"`
	ExpiresAt       *time.Time      `json:"expires_at,omitempty"`
	Error           string          `json:"error,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
}
