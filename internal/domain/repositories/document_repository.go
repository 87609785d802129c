package repositories

import (
	"context"
	"document-review/internal/domain/entities"
	"errors"
	"io"
)

var (
	ErrNotFound           = errors.New("document not found")
	ErrPreconditionFailed = errors.New("document precondition failed")
)

// DocumentRepository persists documents and their review bits. Update must be
// atomic per document: the guard is evaluated against the current state and
// the patch applied in the same step, so concurrent slot approvals on one
// document never lose each other.
type DocumentRepository interface {
	Create(ctx context.Context, doc *entities.Document) error
	GetByID(ctx context.Context, id string) (*entities.Document, error)
	List(ctx context.Context) ([]*entities.Document, error)
	Update(ctx context.Context, id string, patch *entities.DocumentPatch) (*entities.Document, error)
}

// BlobStore keeps document content keyed by document id.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
