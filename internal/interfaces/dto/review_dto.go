package dto

type TranslateRequest struct {
	Text string `json:"text" binding:"required"`
}

type TranslateStatusRequest struct {
	UploadedFileID string `json:"uploadedFileId" binding:"required"`
}

type SendApprovalEmailsRequest struct {
	FileID         string `json:"fileId" binding:"required"`
	Subject        string `json:"subject"`
	Message        string `json:"message"`
	SourceText     string `json:"sourceText"`
	TranslatedText string `json:"translatedText"`
}

type ApproveRequest struct {
	ApprovedBy string `json:"approvedBy" binding:"required"`
}

// RejectRequest leaves comments unbound so the service can report the
// missing-comments case itself.
type RejectRequest struct {
	RejectedBy string `json:"rejectedBy" binding:"required"`
	Comments   string `json:"comments"`
}
