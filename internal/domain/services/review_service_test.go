package services

import (
	"context"
	"document-review/internal/domain/entities"
	"document-review/pkg/errors"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviewLifecycle(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	doc := env.upload(t, "Order.pdf", "en", "tel")
	assert.Equal(t, entities.StatusUploaded, doc.Status)
	assert.False(t, doc.Translated)

	var conflict *errors.ConflictError

	_, err := env.review.SubmitForApproval(ctx, doc.ID, SubmitInput{})
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "document has not been translated yet", conflict.Message)
	assert.Empty(t, env.notifier.notifications())

	_, err = env.review.Approve(ctx, doc.ID, "reviewer.one@example.com")
	require.ErrorAs(t, err, &conflict)

	view, err := env.review.MarkTranslated(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusTranslated, view.State)
	assert.True(t, view.Document.Translated)

	result, err := env.review.SubmitForApproval(ctx, doc.ID, SubmitInput{
		Message:     "Please review",
		Translation: TranslationSummary{SourceText: "Hello", TranslatedText: "నమస్కారం"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Sent)
	assert.Equal(t, 0, result.Failed)

	sent := env.notifier.notifications()
	require.Len(t, sent, 3)
	links := make(map[string]string)
	for _, n := range sent {
		links[n.Reviewer.Email] = n.Link
		assert.Equal(t, "Translation Approval Request", n.Subject)
		assert.Equal(t, "Order.pdf", n.DocumentName)
		assert.Equal(t, "Please review", n.Message)
	}
	assert.Equal(t,
		"http://localhost:5173/approve/"+doc.ID+"?reviewer=reviewer.one%40example.com",
		links["reviewer.one@example.com"])

	got, err := env.docs.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusUnderReview, got.State)
	assert.NotNil(t, got.Document.SubmittedAt)

	var unauthorized *errors.UnauthorizedError
	_, err = env.review.Approve(ctx, doc.ID, "mallory@example.com")
	require.ErrorAs(t, err, &unauthorized)
	assert.NotContains(t, unauthorized.Message, "example.com")

	for i, rv := range testReviewers {
		view, err = env.review.Approve(ctx, doc.ID, rv.Email)
		require.NoError(t, err)
		slot, ok := view.Review.Slot(rv.Slot)
		require.True(t, ok)
		assert.True(t, slot.Approved)
		assert.Equal(t, i == len(testReviewers)-1, view.Review.FullyApproved)
	}
	assert.Equal(t, entities.StatusApproved, view.State)

	_, err = env.review.Reject(ctx, doc.ID, "reviewer.one@example.com", "too late")
	require.ErrorAs(t, err, &conflict)

	_, err = env.review.SubmitForApproval(ctx, doc.ID, SubmitInput{})
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "document review is already closed", conflict.Message)
}

func TestUnauthorizedApprovalWritesNothing(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id := env.underReview(t)

	before, err := env.docs.GetByID(ctx, id)
	require.NoError(t, err)

	for _, identity := range []string{"mallory@example.com", "", "Reviewer.One@example.com"} {
		_, err := env.review.Approve(ctx, id, identity)
		var unauthorized *errors.UnauthorizedError
		require.ErrorAs(t, err, &unauthorized, identity)
	}

	after, err := env.docs.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, before.Document.UpdatedAt, after.Document.UpdatedAt)
	assert.Empty(t, after.Document.Approvals)
}

func TestApproveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id := env.underReview(t)

	first, err := env.review.Approve(ctx, id, "reviewer.two@example.com")
	require.NoError(t, err)
	second, err := env.review.Approve(ctx, id, "reviewer.two@example.com")
	require.NoError(t, err)

	assert.Equal(t,
		first.Document.Approvals["approval_2"].ApprovedAt,
		second.Document.Approvals["approval_2"].ApprovedAt)
	assert.Len(t, second.Document.Approvals, 1)
	assert.False(t, second.Review.FullyApproved)
}

func TestConcurrentApprovals(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id := env.underReview(t)

	var wg sync.WaitGroup
	errs := make(chan error, len(testReviewers)*10)
	for i := 0; i < 10; i++ {
		for _, rv := range testReviewers {
			wg.Add(1)
			go func(email string) {
				defer wg.Done()
				if _, err := env.review.Approve(ctx, id, email); err != nil {
					errs <- err
				}
			}(rv.Email)
		}
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("unexpected approval error: %v", err)
	}

	view, err := env.docs.GetByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, view.Review.FullyApproved)
	assert.Equal(t, entities.StatusApproved, view.State)
	assert.Len(t, view.Document.Approvals, len(testReviewers))
}

func TestRejectRequiresComments(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id := env.underReview(t)

	var validation *errors.ValidationError
	for _, comments := range []string{"", "   \n\t"} {
		_, err := env.review.Reject(ctx, id, "reviewer.one@example.com", comments)
		require.ErrorAs(t, err, &validation)
		assert.Equal(t, "Comments are required when rejecting a translation", validation.Message)
	}

	view, err := env.docs.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusUnderReview, view.State)
}

func TestRejectClosesReview(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id := env.underReview(t)

	_, err := env.review.Approve(ctx, id, "reviewer.one@example.com")
	require.NoError(t, err)

	var unauthorized *errors.UnauthorizedError
	_, err = env.review.Reject(ctx, id, "mallory@example.com", "no")
	require.ErrorAs(t, err, &unauthorized)

	view, err := env.review.Reject(ctx, id, "reviewer.two@example.com", "  Wrong terminology on page 2  ")
	require.NoError(t, err)
	assert.Equal(t, entities.StatusRejected, view.State)
	assert.True(t, view.Review.Rejected)
	require.NotNil(t, view.Review.Rejection)
	assert.Equal(t, "approval_2", view.Review.Rejection.Slot)
	assert.Equal(t, "Wrong terminology on page 2", view.Review.Rejection.Comments)

	stored, err := env.docs.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, stored.Document.Rejection)
	assert.Equal(t, "reviewer.two@example.com", stored.Document.Rejection.Reviewer)

	var conflict *errors.ConflictError
	_, err = env.review.Approve(ctx, id, "reviewer.three@example.com")
	require.ErrorAs(t, err, &conflict)
	_, err = env.review.Reject(ctx, id, "reviewer.three@example.com", "again")
	require.ErrorAs(t, err, &conflict)
}

func TestMarkTranslatedOnlyOnce(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	doc := env.upload(t, "Order.pdf", "en", "tel")

	_, err := env.review.MarkTranslated(ctx, doc.ID)
	require.NoError(t, err)

	var conflict *errors.ConflictError
	_, err = env.review.MarkTranslated(ctx, doc.ID)
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "document is already translated", conflict.Message)

	var notFound *errors.NotFoundError
	_, err = env.review.MarkTranslated(ctx, "2f0c0b7e-6f3c-4a4e-9d55-0c8a3c8a1b11")
	require.ErrorAs(t, err, &notFound)

	var validation *errors.ValidationError
	_, err = env.review.MarkTranslated(ctx, "not-an-id")
	require.ErrorAs(t, err, &validation)
}

func TestSubmitPartialFailure(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.notifier.fail = map[string]error{
		"reviewer.two@example.com": stderrors.New("smtp: connection refused"),
	}

	doc := env.upload(t, "Order.pdf", "en", "tel")
	_, err := env.review.MarkTranslated(ctx, doc.ID)
	require.NoError(t, err)

	result, err := env.review.SubmitForApproval(ctx, doc.ID, SubmitInput{Subject: "Please approve"})

	var dependency *errors.DependencyError
	require.ErrorAs(t, err, &dependency)
	assert.Equal(t, "failed to send 1 of 3 approval emails", dependency.Message)

	require.NotNil(t, result)
	assert.Equal(t, 2, result.Sent)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Results, 3)
	for _, r := range result.Results {
		assert.Equal(t, r.Reviewer != "reviewer.two@example.com", r.Sent, r.Reviewer)
		if !r.Sent {
			assert.NotContains(t, r.Error, "connection refused")
		}
	}
	for _, n := range env.notifier.notifications() {
		assert.Equal(t, "Please approve", n.Subject)
	}

	view, err := env.docs.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusUnderReview, view.State)

	env.notifier.fail = nil
	result, err = env.review.SubmitForApproval(ctx, doc.ID, SubmitInput{})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Sent)
}

func TestTranslate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	doc := env.upload(t, "Order.pdf", "en", "es")
	result, err := env.review.Translate(ctx, doc.ID, "This is sample text")
	require.NoError(t, err)
	assert.Equal(t, cannedTranslations["es"], result.TranslatedText)
	assert.Equal(t, "This is sample text", result.OriginalText)

	view, err := env.docs.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusTranslated, view.State)

	var conflict *errors.ConflictError
	_, err = env.review.Translate(ctx, doc.ID, "again")
	require.ErrorAs(t, err, &conflict)

	other := env.upload(t, "Order.pdf", "en", "tel")
	result, err = env.review.Translate(ctx, other.ID, "Hello")
	require.NoError(t, err)
	assert.Equal(t, "Translated version of: Hello", result.TranslatedText)

	var validation *errors.ValidationError
	_, err = env.review.Translate(ctx, other.ID, " ")
	require.ErrorAs(t, err, &validation)
}

type failingTranslator struct{}

func (failingTranslator) Translate(context.Context, string, string, string) (string, error) {
	return "", stderrors.New("backend unavailable")
}

func TestTranslateFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.review.translator = failingTranslator{}

	doc := env.upload(t, "Order.pdf", "en", "tel")

	var dependency *errors.DependencyError
	_, err := env.review.Translate(ctx, doc.ID, "Hello")
	require.ErrorAs(t, err, &dependency)

	view, err := env.docs.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusUploaded, view.State)
}

func TestTransitionStoreFailure(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		setup func(t *testing.T, env *testEnv) string
		call  func(env *testEnv, id string) error
	}{
		{
			name: "mark translated",
			setup: func(t *testing.T, env *testEnv) string {
				return env.upload(t, "Order.pdf", "en", "tel").ID
			},
			call: func(env *testEnv, id string) error {
				_, err := env.review.MarkTranslated(ctx, id)
				return err
			},
		},
		{
			name:  "approve",
			setup: func(t *testing.T, env *testEnv) string { return env.underReview(t) },
			call: func(env *testEnv, id string) error {
				_, err := env.review.Approve(ctx, id, "reviewer.one@example.com")
				return err
			},
		},
		{
			name:  "reject",
			setup: func(t *testing.T, env *testEnv) string { return env.underReview(t) },
			call: func(env *testEnv, id string) error {
				_, err := env.review.Reject(ctx, id, "reviewer.one@example.com", "Wrong terminology")
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			id := tt.setup(t, env)

			client := newFakeRedis()
			env.review.cache = NewRedisCacheService(client, time.Minute)
			env.review.docRepo = &hookRepository{
				DocumentRepository: env.repo,
				updateErr:          stderrors.New("db down"),
			}

			before, err := env.docs.GetByID(ctx, id)
			require.NoError(t, err)

			var dependency *errors.DependencyError
			require.ErrorAs(t, tt.call(env, id), &dependency)

			after, err := env.docs.GetByID(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, before.State, after.State)
			assert.Equal(t, before.Document.UpdatedAt, after.Document.UpdatedAt)
			assert.Equal(t, before.Document.Translated, after.Document.Translated)
			assert.Empty(t, after.Document.Approvals)
			assert.Nil(t, after.Document.Rejection)
			assert.Zero(t, client.invalidations())
		})
	}
}

func TestResubmitSkipsApprovedReviewers(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	id := env.underReview(t)
	require.Len(t, env.notifier.notifications(), 3)

	_, err := env.review.Approve(ctx, id, "reviewer.one@example.com")
	require.NoError(t, err)

	result, err := env.review.SubmitForApproval(ctx, id, SubmitInput{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Sent)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 1, result.Skipped)

	for _, r := range result.Results {
		assert.Equal(t, r.Slot == "approval_1", r.Skipped, r.Slot)
		assert.Equal(t, r.Slot != "approval_1", r.Sent, r.Slot)
	}

	notes := env.notifier.notifications()
	require.Len(t, notes, 5)
	for _, n := range notes[3:] {
		assert.NotEqual(t, "reviewer.one@example.com", n.Reviewer.Email)
	}
}
