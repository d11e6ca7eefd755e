package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var documentColumns = []string{
	"id", "file_name", "stored_file_name", "path", "description",
	"category", "extension", "size", "upload_time", "status",
}

type DocumentRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewDocumentRepository(db *pgxpool.Pool, logger *zap.Logger) *DocumentRepository {
	return &DocumentRepository{
		db:     db,
		logger: logger,
	}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	query := squirrel.Insert("documents").
		Columns(documentColumns...).
		Values(doc.ID, doc.FileName, doc.StoredFileName, doc.Path, doc.Description,
			doc.Category, doc.Extension, doc.Size, doc.UploadTime, doc.Status).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	query := squirrel.Select(documentColumns...).
		From("documents").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var doc models.Document
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&doc.ID, &doc.FileName, &doc.StoredFileName, &doc.Path, &doc.Description,
		&doc.Category, &doc.Extension, &doc.Size, &doc.UploadTime, &doc.Status,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &doc, nil
}

// List returns all documents ordered by upload time, newest first.
func (r *DocumentRepository) List(ctx context.Context) ([]*models.Document, error) {
	query := squirrel.Select(documentColumns...).
		From("documents").
		OrderBy("upload_time DESC", "id DESC").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var documents []*models.Document
	for rows.Next() {
		var doc models.Document
		if err := rows.Scan(
			&doc.ID, &doc.FileName, &doc.StoredFileName, &doc.Path, &doc.Description,
			&doc.Category, &doc.Extension, &doc.Size, &doc.UploadTime, &doc.Status,
		); err != nil {
			return nil, err
		}
		documents = append(documents, &doc)
	}

	return documents, rows.Err()
}

func (r *DocumentRepository) ListByStatus(ctx context.Context, statuses ...models.DocumentStatus) ([]*models.Document, error) {
	query := squirrel.Select(documentColumns...).
		From("documents").
		Where(squirrel.Eq{"status": statuses}).
		OrderBy("upload_time ASC").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var documents []*models.Document
	for rows.Next() {
		var doc models.Document
		if err := rows.Scan(
			&doc.ID, &doc.FileName, &doc.StoredFileName, &doc.Path, &doc.Description,
			&doc.Category, &doc.Extension, &doc.Size, &doc.UploadTime, &doc.Status,
		); err != nil {
			return nil, err
		}
		documents = append(documents, &doc)
	}

	return documents, rows.Err()
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status models.DocumentStatus) error {
	query := squirrel.Update("documents").
		Set("status", status).
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Delete removes the document record and its sections in one transaction.
// A missing record means the document does not exist, regardless of any
// content file left on disk.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	delSections, args, err := squirrel.Delete("sections").
		Where(squirrel.Eq{"document_id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, delSections, args...); err != nil {
		return err
	}

	delDoc, args, err := squirrel.Delete("documents").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, delDoc, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit document delete: %w", err)
	}
	return nil
}

// HasProcessed reports whether any document has ever been successfully
// processed. The Q&A entry point uses this to trigger a just-in-time
// full re-ingest on a cold knowledge base.
func (r *DocumentRepository) HasProcessed(ctx context.Context) (bool, error) {
	sql, args, err := squirrel.Select("1").
		From("documents").
		Where(squirrel.Eq{"status": models.DocumentStatusProcessed}).
		Limit(1).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return false, err
	}

	var one int
	err = r.db.QueryRow(ctx, sql, args...).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
