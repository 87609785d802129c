package services

import (
	"context"
	"document-review/internal/domain/entities"
	"document-review/internal/domain/repositories"
	"document-review/pkg/errors"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const unauthorizedMessage = "You are not authorized to review this translation."

type ReviewOptions struct {
	BaseURL        string
	DefaultSubject string
	MaxParallel    int
	SendTimeout    time.Duration
}

type SubmitInput struct {
	Subject     string
	Message     string
	Translation TranslationSummary
}

type SubmitResult struct {
	DocumentID string       `json:"document_id"`
	Results    []SendResult `json:"results"`
	Sent       int          `json:"sent"`
	Failed     int          `json:"failed"`
	Skipped    int          `json:"skipped"`
}

// ReviewService drives a document through
// uploaded -> translated -> under_review -> approved | rejected.
// Every transition is a single guarded store update; nothing is cached
// between calls.
type ReviewService struct {
	docRepo    repositories.DocumentRepository
	cache      CacheService
	roster     *Roster
	authorizer Authorizer
	notifier   Notifier
	translator Translator
	opts       ReviewOptions
	logger     *zap.Logger
	now        func() time.Time
}

func NewReviewService(
	docRepo repositories.DocumentRepository,
	cache CacheService,
	roster *Roster,
	authorizer Authorizer,
	notifier Notifier,
	translator Translator,
	opts ReviewOptions,
	logger *zap.Logger,
) *ReviewService {
	return &ReviewService{
		docRepo:    docRepo,
		cache:      cache,
		roster:     roster,
		authorizer: authorizer,
		notifier:   notifier,
		translator: translator,
		opts:       opts,
		logger:     logger,
		now:        time.Now,
	}
}

// MarkTranslated flips the translated flag. It succeeds exactly once per
// document; later calls return a ConflictError.
func (s *ReviewService) MarkTranslated(ctx context.Context, id string) (*DocumentView, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	translated := true
	status := entities.StatusTranslated
	doc, err := s.docRepo.Update(ctx, id, &entities.DocumentPatch{
		Guard:      entities.Guard{AllowedStatuses: []entities.DocumentStatus{entities.StatusUploaded}},
		Translated: &translated,
		Status:     &status,
	})
	if err != nil {
		if stderrors.Is(err, repositories.ErrPreconditionFailed) {
			return nil, errors.NewConflictError("document is already translated")
		}
		return nil, storeError(err, "failed to update translation status")
	}

	s.invalidateList(ctx)
	s.logger.Info("document translated", zap.String("document_id", id))

	return newDocumentView(doc, s.roster.Slots()), nil
}

// Translate runs the translator over text for the document's language pair
// and marks the document translated. A translator failure changes nothing.
func (s *ReviewService) Translate(ctx context.Context, id, text string) (*TranslationResult, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.NewValidationError("text to translate is required")
	}

	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "failed to load document")
	}
	if doc.Status != entities.StatusUploaded {
		return nil, errors.NewConflictError("document is already translated")
	}

	out, err := s.translator.Translate(ctx, text, doc.SourceLanguage, doc.TargetLanguage)
	if err != nil {
		return nil, errors.NewDependencyError("translation failed", err)
	}

	if _, err := s.MarkTranslated(ctx, id); err != nil {
		return nil, err
	}

	return &TranslationResult{
		OriginalText:   text,
		TranslatedText: out,
		SourceLanguage: doc.SourceLanguage,
		TargetLanguage: doc.TargetLanguage,
	}, nil
}

// SubmitForApproval moves the document under review and sends every
// configured reviewer their approval link. Sends run concurrently and are all
// awaited; if any fails the per-reviewer results are returned together with a
// DependencyError. The transition is kept either way.
func (s *ReviewService) SubmitForApproval(ctx context.Context, id string, in SubmitInput) (*SubmitResult, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	now := s.now()
	status := entities.StatusUnderReview
	doc, err := s.docRepo.Update(ctx, id, &entities.DocumentPatch{
		Guard: entities.Guard{
			AllowedStatuses: []entities.DocumentStatus{entities.StatusTranslated, entities.StatusUnderReview},
			PendingSlots:    s.roster.Slots(),
		},
		Status:      &status,
		SubmittedAt: &now,
	})
	if err != nil {
		if stderrors.Is(err, repositories.ErrPreconditionFailed) {
			return nil, s.submitConflict(ctx, id)
		}
		return nil, storeError(err, "failed to submit document for approval")
	}

	s.invalidateList(ctx)

	result := s.fanOut(ctx, doc, in)

	s.logger.Info("approval requests sent",
		zap.String("document_id", id),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped))

	if result.Failed > 0 {
		return result, errors.NewDependencyError(
			fmt.Sprintf("failed to send %d of %d approval emails", result.Failed, result.Sent+result.Failed), nil)
	}

	return result, nil
}

func (s *ReviewService) fanOut(ctx context.Context, doc *entities.Document, in SubmitInput) *SubmitResult {
	reviewers := s.roster.Reviewers()
	results := make([]SendResult, len(reviewers))

	subject := in.Subject
	if strings.TrimSpace(subject) == "" {
		subject = s.opts.DefaultSubject
	}

	var g errgroup.Group
	if s.opts.MaxParallel > 0 {
		g.SetLimit(s.opts.MaxParallel)
	}

	for i, rv := range reviewers {
		// Slots already approved on a re-submit are not mailed again.
		if doc.IsApproved(rv.Slot) {
			results[i] = SendResult{Reviewer: rv.Email, Slot: rv.Slot, Skipped: true}
			continue
		}

		g.Go(func() error {
			n := Notification{
				Reviewer:       rv,
				Link:           ApprovalLink(s.opts.BaseURL, doc.ID, rv.Email),
				DocumentID:     doc.ID,
				DocumentName:   doc.Name,
				SourceLanguage: doc.SourceLanguage,
				TargetLanguage: doc.TargetLanguage,
				Subject:        subject,
				Message:        in.Message,
				Translation:    in.Translation,
			}

			sendCtx := ctx
			if s.opts.SendTimeout > 0 {
				var cancel context.CancelFunc
				sendCtx, cancel = context.WithTimeout(ctx, s.opts.SendTimeout)
				defer cancel()
			}

			res := SendResult{Reviewer: rv.Email, Slot: rv.Slot}
			err := s.notifier.Notify(sendCtx, n)
			if err != nil {
				res.Error = "failed to send approval email"
				s.logger.Error("approval email failed",
					zap.String("document_id", doc.ID),
					zap.String("slot", rv.Slot),
					zap.Error(err))
			} else {
				res.Sent = true
			}
			results[i] = res
			return err
		})
	}
	// Wait returns the first failure; the per-reviewer results carry the rest.
	_ = g.Wait()

	out := &SubmitResult{DocumentID: doc.ID, Results: results}
	for _, r := range results {
		switch {
		case r.Skipped:
			out.Skipped++
		case r.Sent:
			out.Sent++
		default:
			out.Failed++
		}
	}
	return out
}

func (s *ReviewService) submitConflict(ctx context.Context, id string) error {
	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		return storeError(err, "failed to load document")
	}
	if doc.Status == entities.StatusUploaded {
		return errors.NewConflictError("document has not been translated yet")
	}
	return errors.NewConflictError("document review is already closed")
}

// Approve sets the reviewer's slot. Unknown identities are rejected before
// the store is touched. Approving twice is a no-op.
func (s *ReviewService) Approve(ctx context.Context, id, reviewer string) (*DocumentView, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	slot, err := s.authorize(id, reviewer, "approve")
	if err != nil {
		return nil, err
	}

	doc, err := s.docRepo.Update(ctx, id, &entities.DocumentPatch{
		Guard:       entities.Guard{AllowedStatuses: []entities.DocumentStatus{entities.StatusUnderReview}},
		ApproveSlot: &entities.SlotApproval{Slot: slot, Reviewer: reviewer},
	})
	if err != nil {
		if stderrors.Is(err, repositories.ErrPreconditionFailed) {
			return nil, errors.NewConflictError("document is not under review")
		}
		return nil, storeError(err, "failed to record approval")
	}

	s.invalidateList(ctx)

	view := newDocumentView(doc, s.roster.Slots())
	s.logger.Info("translation approved",
		zap.String("document_id", id),
		zap.String("slot", slot),
		zap.Bool("fully_approved", view.Review.FullyApproved))

	return view, nil
}

// Reject closes the review with the reviewer's comments. Comments are
// mandatory, and a fully approved document can no longer be rejected.
func (s *ReviewService) Reject(ctx context.Context, id, reviewer, comments string) (*DocumentView, error) {
	comments = strings.TrimSpace(comments)
	if comments == "" {
		return nil, errors.NewValidationError("Comments are required when rejecting a translation")
	}
	if err := validateID(id); err != nil {
		return nil, err
	}

	slot, err := s.authorize(id, reviewer, "reject")
	if err != nil {
		return nil, err
	}

	status := entities.StatusRejected
	doc, err := s.docRepo.Update(ctx, id, &entities.DocumentPatch{
		Guard: entities.Guard{
			AllowedStatuses: []entities.DocumentStatus{entities.StatusUnderReview},
			PendingSlots:    s.roster.Slots(),
		},
		Status: &status,
		Rejection: &entities.Rejection{
			Reviewer:   reviewer,
			Slot:       slot,
			Comments:   comments,
			RejectedAt: s.now(),
		},
	})
	if err != nil {
		if stderrors.Is(err, repositories.ErrPreconditionFailed) {
			return nil, errors.NewConflictError("document is not open for review")
		}
		return nil, storeError(err, "failed to record rejection")
	}

	s.invalidateList(ctx)
	s.logger.Info("translation rejected", zap.String("document_id", id), zap.String("slot", slot))

	return newDocumentView(doc, s.roster.Slots()), nil
}

func (s *ReviewService) authorize(id, reviewer, action string) (string, error) {
	slot, ok := s.authorizer.SlotFor(reviewer)
	if !ok {
		s.logger.Warn("unauthorized review attempt",
			zap.String("document_id", id),
			zap.String("action", action),
			zap.String("reviewer", reviewer))
		return "", errors.NewUnauthorizedError(unauthorizedMessage)
	}
	return slot, nil
}

func (s *ReviewService) invalidateList(ctx context.Context) {
	if err := s.cache.InvalidateDocumentList(ctx); err != nil {
		s.logger.Warn("failed to invalidate document list cache", zap.Error(err))
	}
}
