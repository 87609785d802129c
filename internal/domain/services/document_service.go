package services

import (
	"bufio"
	"context"
	"document-review/internal/domain/entities"
	"document-review/internal/domain/repositories"
	"document-review/internal/utils"
	"document-review/pkg/errors"
	stderrors "errors"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrContentTooLarge = stderrors.New("content exceeds the maximum size")

type UploadLimits struct {
	MaxSize      int64
	AllowedMimes []string
}

type UploadInput struct {
	Name           string
	SourceLanguage string
	TargetLanguage string
	MediaType      string
	Content        io.Reader
}

// DocumentView is a document together with its derived review state.
type DocumentView struct {
	Document *entities.Document     `json:"document"`
	State    entities.DocumentStatus `json:"state"`
	Review   entities.ReviewState    `json:"review"`
}

type DocumentService struct {
	docRepo repositories.DocumentRepository
	blobs   repositories.BlobStore
	cache   CacheService
	roster  *Roster
	limits  UploadLimits
	logger  *zap.Logger
	now     func() time.Time
}

func NewDocumentService(
	docRepo repositories.DocumentRepository,
	blobs repositories.BlobStore,
	cache CacheService,
	roster *Roster,
	limits UploadLimits,
	logger *zap.Logger,
) *DocumentService {
	return &DocumentService{
		docRepo: docRepo,
		blobs:   blobs,
		cache:   cache,
		roster:  roster,
		limits:  limits,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *DocumentService) Upload(ctx context.Context, in UploadInput) (*entities.Document, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := utils.ValidateDocumentName(in.Name); err != nil {
		return nil, errors.NewValidationError(err.Error())
	}
	if err := utils.ValidateLanguage(in.SourceLanguage); err != nil {
		return nil, errors.NewValidationError("source language: " + err.Error())
	}
	if err := utils.ValidateLanguage(in.TargetLanguage); err != nil {
		return nil, errors.NewValidationError("target language: " + err.Error())
	}
	if err := utils.ValidateMediaType(in.MediaType, s.limits.AllowedMimes); err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	id := uuid.NewString()

	size, err := s.putContent(ctx, id, in.Content)
	if err != nil {
		return nil, err
	}

	now := s.now()
	doc := &entities.Document{
		ID:             id,
		Name:           in.Name,
		SourceLanguage: in.SourceLanguage,
		TargetLanguage: in.TargetLanguage,
		Status:         entities.StatusUploaded,
		MediaType:      in.MediaType,
		Size:           size,
		ContentKey:     id,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.docRepo.Create(ctx, doc); err != nil {
		s.removeContent(ctx, id, id)
		return nil, errors.NewDependencyError("failed to create document", err)
	}

	s.invalidateList(ctx)

	s.logger.Info("document uploaded",
		zap.String("document_id", id),
		zap.String("name", doc.Name),
		zap.Int64("size", size))

	return doc, nil
}

// ReplaceContent swaps the stored file for an edited version. Review state is
// left as it is. The edit is written under a fresh key and swapped in only if
// the content it replaces is still current; a concurrent edit that lands
// first makes this one fail with a ConflictError.
func (s *DocumentService) ReplaceContent(ctx context.Context, id, mediaType string, content io.Reader) (*entities.Document, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	if err := utils.ValidateMediaType(mediaType, s.limits.AllowedMimes); err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "failed to load document")
	}

	key := id + "." + uuid.NewString()
	size, err := s.putContent(ctx, key, content)
	if err != nil {
		return nil, err
	}

	updated, err := s.docRepo.Update(ctx, id, &entities.DocumentPatch{
		Guard:   entities.Guard{ContentKey: doc.ContentKey},
		Content: &entities.ContentChange{Key: key, MediaType: mediaType, Size: size},
	})
	if err != nil {
		s.removeContent(ctx, id, key)
		if stderrors.Is(err, repositories.ErrPreconditionFailed) {
			return nil, errors.NewConflictError("document content was changed by another edit")
		}
		return nil, storeError(err, "failed to update document")
	}

	s.removeContent(ctx, id, doc.ContentKey)
	s.invalidateList(ctx)

	s.logger.Info("document content replaced", zap.String("document_id", id), zap.Int64("size", size))

	return updated, nil
}

func (s *DocumentService) GetByID(ctx context.Context, id string) (*DocumentView, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "failed to load document")
	}

	return newDocumentView(doc, s.roster.Slots()), nil
}

func (s *DocumentService) GetList(ctx context.Context) ([]entities.DocumentSummary, error) {
	cached, gen, cacheErr := s.cache.GetDocumentList(ctx)
	if cacheErr == nil {
		return cached, nil
	}
	if !stderrors.Is(cacheErr, ErrCacheMiss) {
		s.logger.Warn("failed to read document list cache", zap.Error(cacheErr))
	}

	docs, err := s.docRepo.List(ctx)
	if err != nil {
		return nil, errors.NewDependencyError("failed to list documents", err)
	}

	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})

	slots := s.roster.Slots()
	summaries := make([]entities.DocumentSummary, 0, len(docs))
	for _, doc := range docs {
		summaries = append(summaries, doc.Summary(slots))
	}

	// Without a known generation the list could be stored under a key that
	// a later write has already invalidated.
	if stderrors.Is(cacheErr, ErrCacheMiss) {
		if err := s.cache.SetDocumentList(ctx, gen, summaries); err != nil {
			s.logger.Warn("failed to cache document list", zap.Error(err))
		}
	}

	return summaries, nil
}

// OpenContent returns the document and a reader over its stored file. The
// caller must close the reader.
func (s *DocumentService) OpenContent(ctx context.Context, id string) (*entities.Document, io.ReadCloser, error) {
	if err := validateID(id); err != nil {
		return nil, nil, err
	}

	// A concurrent edit may remove the blob between the two reads; the
	// second attempt sees the new key.
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		doc, err := s.docRepo.GetByID(ctx, id)
		if err != nil {
			return nil, nil, storeError(err, "failed to load document")
		}

		rc, err := s.blobs.Open(ctx, doc.ContentKey)
		if err == nil {
			return doc, rc, nil
		}
		lastErr = err
		if !stderrors.Is(err, repositories.ErrNotFound) {
			break
		}
	}

	return nil, nil, storeError(lastErr, "failed to open document content")
}

func (s *DocumentService) putContent(ctx context.Context, key string, content io.Reader) (int64, error) {
	if content == nil {
		return 0, errors.NewValidationError("file content is required")
	}

	br := bufio.NewReader(content)
	if _, err := br.Peek(1); err != nil {
		if stderrors.Is(err, io.EOF) {
			return 0, errors.NewValidationError("file is empty")
		}
		return 0, errors.NewDependencyError("failed to read document content", err)
	}

	size, err := s.blobs.Put(ctx, key, &maxBytesReader{r: br, n: s.limits.MaxSize})
	if err != nil {
		if stderrors.Is(err, ErrContentTooLarge) {
			return 0, errors.NewValidationError("file exceeds the maximum allowed size")
		}
		return 0, errors.NewDependencyError("failed to store document content", err)
	}

	return size, nil
}

func (s *DocumentService) removeContent(ctx context.Context, id, key string) {
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to remove stale content",
			zap.String("document_id", id),
			zap.String("key", key),
			zap.Error(err))
	}
}

func (s *DocumentService) invalidateList(ctx context.Context) {
	if err := s.cache.InvalidateDocumentList(ctx); err != nil {
		s.logger.Warn("failed to invalidate document list cache", zap.Error(err))
	}
}

func newDocumentView(doc *entities.Document, slots []string) *DocumentView {
	return &DocumentView{
		Document: doc,
		State:    doc.State(slots),
		Review:   doc.Review(slots),
	}
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.NewValidationError("invalid document id")
	}
	return nil
}

func storeError(err error, message string) error {
	if stderrors.Is(err, repositories.ErrNotFound) {
		return errors.NewNotFoundError("document not found")
	}
	return errors.NewDependencyError(message, err)
}

// maxBytesReader fails with ErrContentTooLarge once more than n bytes are
// read, so a blob store never commits an oversized file.
type maxBytesReader struct {
	r io.Reader
	n int64
}

func (l *maxBytesReader) Read(p []byte) (int, error) {
	if l.n <= 0 {
		var probe [1]byte
		n, err := l.r.Read(probe[:])
		if n > 0 {
			return 0, ErrContentTooLarge
		}
		return 0, err
	}
	if int64(len(p)) > l.n {
		p = p[:l.n]
	}
	n, err := l.r.Read(p)
	l.n -= int64(n)
	return n, err
}
