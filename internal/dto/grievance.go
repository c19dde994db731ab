package dto

// CreateGrievanceRequest files a new complaint.
type CreateGrievanceRequest struct {
	Category      string  `json:"category" validate:"required"`
	Description   string  `json:"description" validate:"required"`
	ProofImageRef *string `json:"proof_image_ref,omitempty"`
}

// TransitionGrievanceRequest moves a grievance to a terminal status.
type TransitionGrievanceRequest struct {
	Status             string  `json:"status" validate:"required"`
	Reply              string  `json:"reply" validate:"required"`
	ResolutionImageRef *string `json:"resolution_image_ref,omitempty"`
}

// FeedbackRequest records one-shot satisfaction stars.
type FeedbackRequest struct {
	Stars int `json:"stars" validate:"required,min=1,max=5"`
}

// ReportRequest enqueues a grievance register export.
type ReportRequest struct {
	Format string `json:"format" validate:"required,oneof=csv pdf"`
}
