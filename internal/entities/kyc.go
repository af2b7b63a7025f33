package entities

// KycSubmission carries the full document set: a government ID with selfie
// plus the valet qualification license. Images are base64 strings.
type KycSubmission struct {
	IDType          string `json:"id_type"` // aadhaar | pan | license
	IDFront         string `json:"id_front"`
	IDBack          string `json:"id_back"`
	Selfie          string `json:"selfie"`
	LicenseFront    string `json:"license_front"`
	LicenseBack     string `json:"license_back"`
	ExperienceYears int    `json:"experience_years"`
}

type KycReceipt struct {
	SubmissionID string            `json:"submission_id"`
	DocumentIDs  map[string]string `json:"document_ids"`
	Status       string            `json:"status"`
}

type KycStatusResponse struct {
	Status string `json:"status"`
}

type KycReviewRequest struct {
	Outcome string `json:"outcome"` // approved | rejected
}
