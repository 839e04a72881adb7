package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/zatekoja/localdiscovery/internal/domain/entities"
	"github.com/zatekoja/localdiscovery/internal/domain/repositories"
	"github.com/zatekoja/localdiscovery/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/localdiscovery/pkg/errors"
)

const uniqueViolation = "23505"

// EmbeddingAdapter implements the EmbeddingRepository interface on a
// pgvector column
type EmbeddingAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewEmbeddingAdapter creates a new embedding adapter
func NewEmbeddingAdapter(client *postgres.Client) repositories.EmbeddingRepository {
	return &EmbeddingAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

type embeddingRow struct {
	ID        string         `db:"id"`
	Title     sql.NullString `db:"title"`
	Content   string         `db:"content"`
	Embedding sql.NullString `db:"embedding"`
	Metadata  []byte         `db:"metadata"`
	IsActive  bool           `db:"is_active"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

var embeddingColumns = []interface{}{
	"id", "title", "content", "embedding", "metadata", "is_active", "created_at", "updated_at",
}

// FindByNaturalKey returns the newest document built from the given entity
func (a *EmbeddingAdapter) FindByNaturalKey(ctx context.Context, entityType entities.EntityType, entityID string) (*entities.EmbeddingDocument, error) {
	query, args, err := a.db.From("embedding_documents").Prepared(true).
		Select(embeddingColumns...).
		Where(
			goqu.L("metadata->>? = ?", entities.MetadataEntityType, string(entityType)),
			goqu.L("metadata->>? = ?", entities.MetadataEntityID, entityID),
		).
		Order(goqu.C("updated_at").Desc()).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	defer a.client.Observe(ctx, "embedding_documents.find", time.Now())
	var row embeddingRow
	if err := a.client.SQLX().GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("embedding document not found")
		}
		return nil, apperrors.NewInternalError("failed to get embedding document", err)
	}
	return embeddingFromRow(&row), nil
}

// Create inserts a new document
func (a *EmbeddingAdapter) Create(ctx context.Context, doc *entities.EmbeddingDocument) error {
	metadata, err := json.Marshal(doc.Metadata)
	if err != nil {
		return apperrors.NewInternalError("failed to encode metadata", err)
	}

	now := time.Now().UTC()
	query, args, err := a.db.Insert("embedding_documents").Prepared(true).Rows(goqu.Record{
		"id":         doc.ID,
		"title":      doc.Title,
		"content":    doc.Content,
		"embedding":  pgvector.NewVector(doc.Vector),
		"metadata":   string(metadata),
		"is_active":  doc.IsActive,
		"created_at": now,
		"updated_at": now,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert", err)
	}

	defer a.client.Observe(ctx, "embedding_documents.create", time.Now())
	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return apperrors.NewConflictError("embedding document already exists")
		}
		return apperrors.NewInternalError("failed to create embedding document", err)
	}
	doc.CreatedAt, doc.UpdatedAt = now, now
	return nil
}

// Update overwrites a document's content, vector and metadata
func (a *EmbeddingAdapter) Update(ctx context.Context, doc *entities.EmbeddingDocument) error {
	metadata, err := json.Marshal(doc.Metadata)
	if err != nil {
		return apperrors.NewInternalError("failed to encode metadata", err)
	}

	now := time.Now().UTC()
	query, args, err := a.db.Update("embedding_documents").Prepared(true).Set(goqu.Record{
		"title":      doc.Title,
		"content":    doc.Content,
		"embedding":  pgvector.NewVector(doc.Vector),
		"metadata":   string(metadata),
		"is_active":  doc.IsActive,
		"updated_at": now,
	}).Where(goqu.Ex{"id": doc.ID}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update", err)
	}

	defer a.client.Observe(ctx, "embedding_documents.update", time.Now())
	return a.execOne(ctx, query, args, now, doc)
}

// ListActive returns every active document
func (a *EmbeddingAdapter) ListActive(ctx context.Context) ([]*entities.EmbeddingDocument, error) {
	query, args, err := a.db.From("embedding_documents").Prepared(true).
		Select(embeddingColumns...).
		Where(goqu.C("is_active").IsTrue()).
		Order(goqu.C("id").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	defer a.client.Observe(ctx, "embedding_documents.list_active", time.Now())
	var rows []embeddingRow
	if err := a.client.SQLX().SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to list embedding documents", err)
	}

	docs := make([]*entities.EmbeddingDocument, 0, len(rows))
	for i := range rows {
		docs = append(docs, embeddingFromRow(&rows[i]))
	}
	return docs, nil
}

// Deactivate marks a document inactive so it drops out of search
func (a *EmbeddingAdapter) Deactivate(ctx context.Context, id string) error {
	now := time.Now().UTC()
	query, args, err := a.db.Update("embedding_documents").Prepared(true).
		Set(goqu.Record{"is_active": false, "updated_at": now}).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update", err)
	}

	defer a.client.Observe(ctx, "embedding_documents.deactivate", time.Now())
	return a.execOne(ctx, query, args, now, nil)
}

func (a *EmbeddingAdapter) execOne(ctx context.Context, query string, args []interface{}, now time.Time, doc *entities.EmbeddingDocument) error {
	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update embedding document", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if affected == 0 {
		return apperrors.NewNotFoundError("embedding document not found")
	}
	if doc != nil {
		doc.UpdatedAt = now
	}
	return nil
}

func embeddingFromRow(r *embeddingRow) *entities.EmbeddingDocument {
	doc := &entities.EmbeddingDocument{
		ID:        r.ID,
		Title:     nullString(r.Title),
		Content:   r.Content,
		Metadata:  map[string]interface{}{},
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if len(r.Metadata) > 0 {
		// Unreadable metadata leaves the document without a natural key
		_ = json.Unmarshal(r.Metadata, &doc.Metadata)
	}
	if r.Embedding.Valid {
		var v pgvector.Vector
		if err := v.Scan(r.Embedding.String); err == nil {
			doc.Vector = v.Slice()
		}
	}
	return doc
}
