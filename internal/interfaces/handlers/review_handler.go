package handlers

import (
	"document-review/internal/domain/services"
	"document-review/internal/interfaces/dto"
	"net/http"

	"github.com/gin-gonic/gin"
)

type ReviewHandler struct {
	reviewSvc *services.ReviewService
}

func NewReviewHandler(reviewSvc *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewSvc: reviewSvc}
}

func (h *ReviewHandler) TranslateStatus(c *gin.Context) {
	var req dto.TranslateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, 400, "uploadedFileId is required")
		return
	}

	view, err := h.reviewSvc.MarkTranslated(c.Request.Context(), req.UploadedFileID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	respondWithSuccess(c, nil, view)
}

func (h *ReviewHandler) Translate(c *gin.Context) {
	var req dto.TranslateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, 400, "text is required")
		return
	}

	result, err := h.reviewSvc.Translate(c.Request.Context(), c.Param("id"), req.Text)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	respondWithSuccess(c, nil, result)
}

// SendApprovalEmails answers 502 when any send failed, still carrying the
// per-reviewer results.
func (h *ReviewHandler) SendApprovalEmails(c *gin.Context) {
	var req dto.SendApprovalEmailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, 400, "fileId is required")
		return
	}

	result, err := h.reviewSvc.SubmitForApproval(c.Request.Context(), req.FileID, services.SubmitInput{
		Subject: req.Subject,
		Message: req.Message,
		Translation: services.TranslationSummary{
			SourceText:     req.SourceText,
			TranslatedText: req.TranslatedText,
		},
	})
	if err != nil {
		if result == nil {
			handleServiceError(c, err)
			return
		}
		status, message := errorStatus(err)
		_ = c.Error(err)
		c.JSON(status, dto.APIResponse{
			Error: &dto.ErrorResponse{Code: status, Text: message},
			Data:  result,
		})
		return
	}

	respondWithSuccess(c, nil, result)
}

func (h *ReviewHandler) Approve(c *gin.Context) {
	var req dto.ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, 400, "approvedBy is required")
		return
	}

	view, err := h.reviewSvc.Approve(c.Request.Context(), c.Param("id"), req.ApprovedBy)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	respondWithSuccess(c, nil, view)
}

func (h *ReviewHandler) Reject(c *gin.Context) {
	var req dto.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, 400, "rejectedBy is required")
		return
	}

	view, err := h.reviewSvc.Reject(c.Request.Context(), c.Param("id"), req.RejectedBy, req.Comments)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	respondWithSuccess(c, nil, view)
}

func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
