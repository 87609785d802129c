package services

import (
	"context"
	"document-review/internal/domain/entities"
	"document-review/internal/domain/repositories"
	"document-review/internal/infrastructure/memory"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testPDF = "%PDF-1.4\n1 0 obj\n<<>>\nendobj\n%%EOF\n"

var testReviewers = []Reviewer{
	{Slot: "approval_1", Email: "reviewer.one@example.com", Name: "Reviewer One"},
	{Slot: "approval_2", Email: "reviewer.two@example.com", Name: "Reviewer Two"},
	{Slot: "approval_3", Email: "reviewer.three@example.com", Name: "Reviewer Three"},
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []Notification
	fail map[string]error
}

func (n *fakeNotifier) Notify(ctx context.Context, note Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err, ok := n.fail[note.Reviewer.Email]; ok {
		return err
	}
	n.sent = append(n.sent, note)
	return nil
}

func (n *fakeNotifier) notifications() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.sent...)
}

type testEnv struct {
	repo     repositories.DocumentRepository
	blobs    repositories.BlobStore
	docs     *DocumentService
	review   *ReviewService
	notifier *fakeNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	roster, err := NewRoster(testReviewers)
	require.NoError(t, err)
	authorizer, err := NewStaticAuthorizer(roster, MatchExact)
	require.NoError(t, err)

	env := &testEnv{
		repo:     memory.NewDocumentRepository(),
		blobs:    memory.NewBlobStore(),
		notifier: &fakeNotifier{},
	}
	cache := NewNoopCacheService()

	env.docs = NewDocumentService(env.repo, env.blobs, cache, roster, UploadLimits{
		MaxSize:      1 << 20,
		AllowedMimes: []string{"application/pdf"},
	}, zap.NewNop())

	env.review = NewReviewService(env.repo, cache, roster, authorizer, env.notifier, MockTranslator{}, ReviewOptions{
		BaseURL:        "http://localhost:5173",
		DefaultSubject: "Translation Approval Request",
		MaxParallel:    2,
		SendTimeout:    time.Second,
	}, zap.NewNop())

	return env
}

func (e *testEnv) upload(t *testing.T, name, src, tgt string) *entities.Document {
	t.Helper()

	doc, err := e.docs.Upload(context.Background(), UploadInput{
		Name:           name,
		SourceLanguage: src,
		TargetLanguage: tgt,
		MediaType:      "application/pdf",
		Content:        strings.NewReader(testPDF),
	})
	require.NoError(t, err)
	return doc
}

// underReview uploads a document, marks it translated and submits it.
func (e *testEnv) underReview(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	doc := e.upload(t, "Order.pdf", "en", "tel")
	_, err := e.review.MarkTranslated(ctx, doc.ID)
	require.NoError(t, err)
	_, err = e.review.SubmitForApproval(ctx, doc.ID, SubmitInput{})
	require.NoError(t, err)

	return doc.ID
}

// hookRepository runs callbacks around store calls to force interleavings.
type hookRepository struct {
	repositories.DocumentRepository
	afterList    func()
	beforeUpdate func(patch *entities.DocumentPatch)
	updateErr    error
}

func (r *hookRepository) List(ctx context.Context) ([]*entities.Document, error) {
	docs, err := r.DocumentRepository.List(ctx)
	if r.afterList != nil {
		r.afterList()
	}
	return docs, err
}

func (r *hookRepository) Update(ctx context.Context, id string, patch *entities.DocumentPatch) (*entities.Document, error) {
	if r.beforeUpdate != nil {
		r.beforeUpdate(patch)
	}
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	return r.DocumentRepository.Update(ctx, id, patch)
}
