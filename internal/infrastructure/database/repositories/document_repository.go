package repositories

import (
	"context"
	"database/sql"
	"document-review/internal/domain/entities"
	"document-review/internal/domain/repositories"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
)

const documentColumns = `id, name, source_language, target_language, translated, status, media_type, size,
	content_key, submitted_at, rejected_by, rejection_slot, rejection_comments, rejected_at, created_at, updated_at`

type documentRow struct {
	entities.Document
	RejectedBy        sql.NullString `db:"rejected_by"`
	RejectionSlot     sql.NullString `db:"rejection_slot"`
	RejectionComments sql.NullString `db:"rejection_comments"`
	RejectedAt        sql.NullTime   `db:"rejected_at"`
}

func (r *documentRow) toEntity() *entities.Document {
	doc := r.Document
	doc.Approvals = make(map[string]entities.Approval)
	if r.RejectedAt.Valid {
		doc.Rejection = &entities.Rejection{
			Reviewer:   r.RejectedBy.String,
			Slot:       r.RejectionSlot.String,
			Comments:   r.RejectionComments.String,
			RejectedAt: r.RejectedAt.Time,
		}
	}
	return &doc
}

type approvalRow struct {
	DocumentID string    `db:"document_id"`
	Slot       string    `db:"slot"`
	Reviewer   string    `db:"reviewer"`
	ApprovedAt time.Time `db:"approved_at"`
}

// documentRepository reads through sqlx and runs guarded updates as pgx
// transactions holding a row lock on the document.
type documentRepository struct {
	db   *sqlx.DB
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewDocumentRepository(db *sqlx.DB, pool *pgxpool.Pool) repositories.DocumentRepository {
	return &documentRepository{db: db, pool: pool, now: time.Now}
}

func (r *documentRepository) Create(ctx context.Context, doc *entities.Document) error {
	query := `INSERT INTO documents (id, name, source_language, target_language, translated, status,
		media_type, size, content_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.ExecContext(ctx, query,
		doc.ID, doc.Name, doc.SourceLanguage, doc.TargetLanguage, doc.Translated, string(doc.Status),
		doc.MediaType, doc.Size, doc.ContentKey, doc.CreatedAt, doc.UpdatedAt,
	)
	return err
}

func (r *documentRepository) GetByID(ctx context.Context, id string) (*entities.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`

	var row documentRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}

	doc := row.toEntity()

	var approvals []approvalRow
	err := r.db.SelectContext(ctx, &approvals,
		`SELECT document_id, slot, reviewer, approved_at FROM document_approvals WHERE document_id = $1`, id)
	if err != nil {
		return nil, err
	}
	for _, a := range approvals {
		doc.Approvals[a.Slot] = entities.Approval{Reviewer: a.Reviewer, ApprovedAt: a.ApprovedAt}
	}

	return doc, nil
}

func (r *documentRepository) List(ctx context.Context) ([]*entities.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents ORDER BY created_at DESC`

	var rows []documentRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	docs := make([]*entities.Document, 0, len(rows))
	byID := make(map[string]*entities.Document, len(rows))
	ids := make([]string, 0, len(rows))
	for i := range rows {
		doc := rows[i].toEntity()
		docs = append(docs, doc)
		byID[doc.ID] = doc
		ids = append(ids, doc.ID)
	}
	if len(ids) == 0 {
		return docs, nil
	}

	var approvals []approvalRow
	err := r.db.SelectContext(ctx, &approvals,
		`SELECT document_id, slot, reviewer, approved_at FROM document_approvals WHERE document_id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	for _, a := range approvals {
		if doc, ok := byID[a.DocumentID]; ok {
			doc.Approvals[a.Slot] = entities.Approval{Reviewer: a.Reviewer, ApprovedAt: a.ApprovedAt}
		}
	}

	return docs, nil
}

func (r *documentRepository) Update(ctx context.Context, id string, patch *entities.DocumentPatch) (*entities.Document, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	doc, err := lockDocument(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := patch.Guard.Check(doc); err != nil {
		return nil, repositories.ErrPreconditionFailed
	}

	patch.Apply(doc, r.now())

	var rejectedBy, rejectionSlot, rejectionComments *string
	var rejectedAt *time.Time
	if doc.Rejection != nil {
		rejectedBy = &doc.Rejection.Reviewer
		rejectionSlot = &doc.Rejection.Slot
		rejectionComments = &doc.Rejection.Comments
		rejectedAt = &doc.Rejection.RejectedAt
	}

	_, err = tx.Exec(ctx, `UPDATE documents SET translated = $2, status = $3, media_type = $4, size = $5,
		submitted_at = $6, rejected_by = $7, rejection_slot = $8, rejection_comments = $9, rejected_at = $10,
		updated_at = $11, content_key = $12
		WHERE id = $1`,
		id, doc.Translated, string(doc.Status), doc.MediaType, doc.Size,
		doc.SubmittedAt, rejectedBy, rejectionSlot, rejectionComments, rejectedAt,
		doc.UpdatedAt, doc.ContentKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update document: %w", err)
	}

	if patch.ApproveSlot != nil {
		approval := doc.Approvals[patch.ApproveSlot.Slot]
		_, err = tx.Exec(ctx, `INSERT INTO document_approvals (document_id, slot, reviewer, approved_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (document_id, slot) DO NOTHING`,
			id, patch.ApproveSlot.Slot, approval.Reviewer, approval.ApprovedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to record approval: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return doc, nil
}

func lockDocument(ctx context.Context, tx pgx.Tx, id string) (*entities.Document, error) {
	var (
		doc                                         entities.Document
		status                                      string
		rejectedBy, rejectionSlot, rejectionComment *string
		rejectedAt                                  *time.Time
	)

	err := tx.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1 FOR UPDATE`, id).Scan(
		&doc.ID, &doc.Name, &doc.SourceLanguage, &doc.TargetLanguage, &doc.Translated, &status,
		&doc.MediaType, &doc.Size, &doc.ContentKey, &doc.SubmittedAt,
		&rejectedBy, &rejectionSlot, &rejectionComment, &rejectedAt,
		&doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock document: %w", err)
	}

	doc.Status = entities.DocumentStatus(status)
	if rejectedAt != nil {
		doc.Rejection = &entities.Rejection{RejectedAt: *rejectedAt}
		if rejectedBy != nil {
			doc.Rejection.Reviewer = *rejectedBy
		}
		if rejectionSlot != nil {
			doc.Rejection.Slot = *rejectionSlot
		}
		if rejectionComment != nil {
			doc.Rejection.Comments = *rejectionComment
		}
	}

	rows, err := tx.Query(ctx,
		`SELECT slot, reviewer, approved_at FROM document_approvals WHERE document_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load approvals: %w", err)
	}
	defer rows.Close()

	doc.Approvals = make(map[string]entities.Approval)
	for rows.Next() {
		var slot string
		var a entities.Approval
		if err := rows.Scan(&slot, &a.Reviewer, &a.ApprovedAt); err != nil {
			return nil, fmt.Errorf("failed to scan approval: %w", err)
		}
		doc.Approvals[slot] = a
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load approvals: %w", err)
	}

	return &doc, nil
}
