package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type CallRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewCallRepository(db *pgxpool.Pool, logger *zap.Logger) *CallRepository {
	return &CallRepository{
		db:     db,
		logger: logger,
	}
}

// SaveSession persists a terminal session and its transcript for audit,
// session row and turn rows in one transaction.
func (r *CallRepository) SaveSession(ctx context.Context, session *models.CallSession, turns []models.DialogueTurn) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	insSession, args, err := squirrel.Insert("call_sessions").
		Columns("id", "phone_number", "language", "tts_engine", "state", "started_at", "ended_at").
		Values(session.ID, session.PhoneNumber, session.Language, session.TTSEngine,
			session.State, session.StartedAt, session.EndedAt).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, insSession, args...); err != nil {
		return err
	}

	if len(turns) > 0 {
		insert := squirrel.Insert("dialogue_turns").
			Columns("session_id", "ordinal", "utterance", "intent", "spoken_response",
				"failed", "fail_reason", "timestamp").
			PlaceholderFormat(squirrel.Dollar)
		for _, turn := range turns {
			insert = insert.Values(turn.SessionID, turn.Ordinal, turn.Utterance, turn.Intent,
				turn.SpokenResponse, turn.Failed, turn.FailReason, turn.Timestamp)
		}
		insSQL, args, err := insert.ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, insSQL, args...); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to save call session: %w", err)
	}

	r.logger.Info("Call session persisted",
		zap.String("session_id", session.ID.String()),
		zap.String("state", string(session.State)),
		zap.Int("turns", len(turns)),
	)
	return nil
}

func (r *CallRepository) GetSession(ctx context.Context, id uuid.UUID) (*models.CallSession, []models.DialogueTurn, error) {
	sessSQL, args, err := squirrel.Select("id", "phone_number", "language", "tts_engine",
		"state", "started_at", "ended_at").
		From("call_sessions").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, nil, err
	}

	var session models.CallSession
	err = r.db.QueryRow(ctx, sessSQL, args...).Scan(
		&session.ID, &session.PhoneNumber, &session.Language, &session.TTSEngine,
		&session.State, &session.StartedAt, &session.EndedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, models.ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	turnSQL, args, err := squirrel.Select("session_id", "ordinal", "utterance", "intent",
		"spoken_response", "failed", "fail_reason", "timestamp").
		From("dialogue_turns").
		Where(squirrel.Eq{"session_id": id}).
		OrderBy("ordinal ASC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, nil, err
	}

	rows, err := r.db.Query(ctx, turnSQL, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var turns []models.DialogueTurn
	for rows.Next() {
		var turn models.DialogueTurn
		if err := rows.Scan(&turn.SessionID, &turn.Ordinal, &turn.Utterance, &turn.Intent,
			&turn.SpokenResponse, &turn.Failed, &turn.FailReason, &turn.Timestamp); err != nil {
			return nil, nil, err
		}
		turns = append(turns, turn)
	}

	return &session, turns, rows.Err()
}
