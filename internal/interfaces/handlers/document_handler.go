package handlers

import (
	"document-review/internal/domain/entities"
	"document-review/internal/domain/services"
	"document-review/internal/interfaces/dto"
	"document-review/pkg/errors"
	stderrors "errors"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
)

// formOverhead is the room left for multipart headers and text fields on top
// of the file size limit.
const formOverhead = 1 << 20

type DocumentHandler struct {
	documentSvc *services.DocumentService
	maxBodySize int64
}

func NewDocumentHandler(documentSvc *services.DocumentService, maxFileSize int64) *DocumentHandler {
	return &DocumentHandler{
		documentSvc: documentSvc,
		maxBodySize: maxFileSize + formOverhead,
	}
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodySize)

	var req dto.UploadRequest
	if err := c.ShouldBind(&req); err != nil {
		respondWithBindError(c, err, "pdfFile, sourceLanguage and translatedLanguage are required")
		return
	}

	doc, err := h.upload(c, req.File, req.FileName, req.SourceLanguage, req.TargetLanguage)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	respondWithSuccess(c, nil, dto.UploadResponse{FileID: doc.ID, Document: doc})
}

// SaveEdited stores an edited file. With originalFileId it replaces the
// content of that document, otherwise the file becomes a new document.
func (h *DocumentHandler) SaveEdited(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodySize)

	var req dto.SaveEditedRequest
	if err := c.ShouldBind(&req); err != nil {
		respondWithBindError(c, err, "pdfFile is required")
		return
	}

	if req.OriginalFileID == "" {
		doc, err := h.upload(c, req.File, req.FileName, req.SourceLanguage, req.TargetLanguage)
		if err != nil {
			handleServiceError(c, err)
			return
		}
		respondWithSuccess(c, nil, dto.UploadResponse{FileID: doc.ID, Document: doc})
		return
	}

	file, err := req.File.Open()
	if err != nil {
		respondWithError(c, http.StatusBadRequest, 400, "failed to read uploaded file")
		return
	}
	defer file.Close()

	doc, err := h.documentSvc.ReplaceContent(c.Request.Context(), req.OriginalFileID, mediaTypeOf(req.File), file)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	respondWithSuccess(c, nil, dto.UploadResponse{FileID: doc.ID, Document: doc})
}

func (h *DocumentHandler) upload(c *gin.Context, fh *multipart.FileHeader, name, sourceLang, targetLang string) (*entities.Document, error) {
	file, err := fh.Open()
	if err != nil {
		return nil, errors.NewValidationError("failed to read uploaded file")
	}
	defer file.Close()

	if name == "" {
		name = fh.Filename
	}

	return h.documentSvc.Upload(c.Request.Context(), services.UploadInput{
		Name:           name,
		SourceLanguage: sourceLang,
		TargetLanguage: targetLang,
		MediaType:      mediaTypeOf(fh),
		Content:        file,
	})
}

func (h *DocumentHandler) GetList(c *gin.Context) {
	docs, err := h.documentSvc.GetList(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}

	respondWithSuccess(c, nil, dto.DocumentListResponse{Docs: docs})
}

func (h *DocumentHandler) GetByID(c *gin.Context) {
	view, err := h.documentSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	respondWithSuccess(c, nil, view)
}

func (h *DocumentHandler) Download(c *gin.Context) {
	h.serveContent(c, "attachment")
}

func (h *DocumentHandler) Preview(c *gin.Context) {
	h.serveContent(c, "inline")
}

func (h *DocumentHandler) serveContent(c *gin.Context, disposition string) {
	doc, content, err := h.documentSvc.OpenContent(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	defer content.Close()

	c.DataFromReader(http.StatusOK, doc.Size, doc.MediaType, content, map[string]string{
		"Content-Disposition": mime.FormatMediaType(disposition, map[string]string{"filename": doc.Name}),
	})
}

func mediaTypeOf(fh *multipart.FileHeader) string {
	mediaType, _, err := mime.ParseMediaType(fh.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return mediaType
}

func respondWithBindError(c *gin.Context, err error, message string) {
	var maxErr *http.MaxBytesError
	if stderrors.As(err, &maxErr) {
		respondWithError(c, http.StatusBadRequest, 400, "file exceeds the maximum allowed size")
		return
	}
	respondWithError(c, http.StatusBadRequest, 400, message)
}
