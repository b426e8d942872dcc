package models

import (
	"context"
	"fmt"
	"time"

	"github.com/robalyx/warden/internal/database/dbretry"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// NoteModel handles database operations for staff notes.
type NoteModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewNote creates a new note model instance.
func NewNote(db *bun.DB, logger *zap.Logger) *NoteModel {
	return &NoteModel{
		db:     db,
		logger: logger.Named("db_note"),
	}
}

// Add inserts a new note for a user.
func (m *NoteModel) Add(
	ctx context.Context, userID, authorID uint64, content string,
) (*types.Note, error) {
	note := &types.Note{
		UserID:    userID,
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: time.Now(),
		Active:    true,
	}

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().Model(note).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to add note: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Debug("Added note",
		zap.Uint64("userID", userID),
		zap.Uint64("authorID", authorID))

	return note, nil
}

// GetActive returns the user's active notes, newest first.
func (m *NoteModel) GetActive(ctx context.Context, userID uint64) ([]*types.Note, error) {
	var notes []*types.Note

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		err := m.db.NewSelect().
			Model(&notes).
			Where("user_id = ?", userID).
			Where("active = TRUE").
			Order("created_at DESC").
			Scan(ctx)
		if err != nil {
			return fmt.Errorf("failed to get active notes: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return notes, nil
}

// Deactivate soft-deletes a note by ID. Returns false when no active note
// with that ID exists.
func (m *NoteModel) Deactivate(ctx context.Context, noteID int64) (bool, error) {
	removed, err := dbretry.Operation(ctx, func(ctx context.Context) (bool, error) {
		res, err := m.db.NewUpdate().
			Model((*types.Note)(nil)).
			Set("active = FALSE").
			Where("id = ?", noteID).
			Where("active = TRUE").
			Exec(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to deactivate note: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return false, fmt.Errorf("failed to get affected rows: %w", err)
		}

		return affected > 0, nil
	})
	if err != nil {
		return false, err
	}

	m.logger.Debug("Deactivated note",
		zap.Int64("noteID", noteID),
		zap.Bool("removed", removed))

	return removed, nil
}
