package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/robalyx/warden/internal/database/dbretry"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// BanModel handles database operations for ban records.
type BanModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewBan creates a new ban model instance.
func NewBan(db *bun.DB, logger *zap.Logger) *BanModel {
	return &BanModel{
		db:     db,
		logger: logger.Named("db_ban"),
	}
}

// Add inserts a new ban record for a user. The record is permanent evidence
// and is kept even if the platform-level ban is later lifted.
func (m *BanModel) Add(
	ctx context.Context, userID uint64, reason string, bannedBy uint64,
) (*types.Ban, error) {
	ban := &types.Ban{
		UserID:    userID,
		Reason:    reason,
		BannedBy:  bannedBy,
		CreatedAt: time.Now(),
	}

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().Model(ban).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to add ban: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Debug("Added ban",
		zap.Uint64("userID", userID),
		zap.Uint64("bannedBy", bannedBy))

	return ban, nil
}

// IsBanned reports whether the user has a ban record.
func (m *BanModel) IsBanned(ctx context.Context, userID uint64) (bool, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (bool, error) {
		exists, err := m.db.NewSelect().
			Model((*types.Ban)(nil)).
			Where("user_id = ?", userID).
			Exists(ctx)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return false, fmt.Errorf("failed to check ban: %w", err)
		}

		return exists, nil
	})
}
