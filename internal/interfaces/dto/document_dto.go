package dto

import (
	"document-review/internal/domain/entities"
	"mime/multipart"
)

// UploadRequest is bound from the multipart upload form.
type UploadRequest struct {
	File           *multipart.FileHeader `form:"pdfFile" binding:"required"`
	FileName       string                `form:"fileName"`
	SourceLanguage string                `form:"sourceLanguage" binding:"required"`
	TargetLanguage string                `form:"translatedLanguage" binding:"required"`
}

type SaveEditedRequest struct {
	File           *multipart.FileHeader `form:"pdfFile" binding:"required"`
	OriginalFileID string                `form:"originalFileId"`
	FileName       string                `form:"fileName"`
	SourceLanguage string                `form:"sourceLanguage"`
	TargetLanguage string                `form:"translatedLanguage"`
}

type UploadResponse struct {
	FileID   string             `json:"fileId"`
	Document *entities.Document `json:"document"`
}

type DocumentListResponse struct {
	Docs []entities.DocumentSummary `json:"docs"`
}
