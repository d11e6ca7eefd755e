package repository

import (
	"context"
	"fmt"

	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// RetrievableSection is a section joined with the metadata of its processed
// parent document, the shape the retrieval index is built from.
type RetrievableSection struct {
	models.Section
	FileName string
	Category string
}

type SectionRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewSectionRepository(db *pgxpool.Pool, logger *zap.Logger) *SectionRepository {
	return &SectionRepository{
		db:     db,
		logger: logger,
	}
}

// Publish replaces the document's section set with the given one and marks
// the document processed, all in a single transaction. Readers never observe
// a partial section set; a failed publish leaves prior sections untouched.
func (r *SectionRepository) Publish(ctx context.Context, documentID string, sections []models.Section) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	delSQL, args, err := squirrel.Delete("sections").
		Where(squirrel.Eq{"document_id": documentID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, delSQL, args...); err != nil {
		return err
	}

	insert := squirrel.Insert("sections").
		Columns("document_id", "title", "text", "ordinal").
		PlaceholderFormat(squirrel.Dollar)
	for _, sec := range sections {
		insert = insert.Values(documentID, sec.Title, sec.Text, sec.Ordinal)
	}
	insSQL, args, err := insert.ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, insSQL, args...); err != nil {
		return err
	}

	updSQL, args, err := squirrel.Update("documents").
		Set("status", models.DocumentStatusProcessed).
		Where(squirrel.Eq{"id": documentID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, updSQL, args...); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to publish sections: %w", err)
	}

	r.logger.Info("Section set published",
		zap.String("document_id", documentID),
		zap.Int("sections", len(sections)),
	)
	return nil
}

func (r *SectionRepository) ListByDocument(ctx context.Context, documentID string) ([]models.Section, error) {
	sql, args, err := squirrel.Select("document_id", "title", "text", "ordinal").
		From("sections").
		Where(squirrel.Eq{"document_id": documentID}).
		OrderBy("ordinal ASC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sections []models.Section
	for rows.Next() {
		var sec models.Section
		if err := rows.Scan(&sec.DocumentID, &sec.Title, &sec.Text, &sec.Ordinal); err != nil {
			return nil, err
		}
		sections = append(sections, sec)
	}

	return sections, rows.Err()
}

// ListRetrievable returns every section whose parent document is processed,
// with the parent's filename and category attached.
func (r *SectionRepository) ListRetrievable(ctx context.Context) ([]RetrievableSection, error) {
	sql, args, err := squirrel.Select(
		"s.document_id", "s.title", "s.text", "s.ordinal",
		"d.file_name", "d.category").
		From("sections s").
		Join("documents d ON d.id = s.document_id").
		Where(squirrel.Eq{"d.status": models.DocumentStatusProcessed}).
		OrderBy("s.document_id", "s.ordinal").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sections []RetrievableSection
	for rows.Next() {
		var sec RetrievableSection
		if err := rows.Scan(&sec.DocumentID, &sec.Title, &sec.Text, &sec.Ordinal,
			&sec.FileName, &sec.Category); err != nil {
			return nil, err
		}
		sections = append(sections, sec)
	}

	return sections, rows.Err()
}
