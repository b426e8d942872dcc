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

// WarningModel handles database operations for warning records.
type WarningModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewWarning creates a new warning model instance.
func NewWarning(db *bun.DB, logger *zap.Logger) *WarningModel {
	return &WarningModel{
		db:     db,
		logger: logger.Named("db_warning"),
	}
}

// Add inserts a new warning for a user. The expiry instant is derived from
// the creation instant and the configured expiration window, never supplied
// by the caller.
func (m *WarningModel) Add(
	ctx context.Context, userID uint64, reason string, warnedBy uint64, expirationDays int,
) (*types.Warning, error) {
	now := time.Now()
	warning := &types.Warning{
		UserID:    userID,
		Reason:    reason,
		WarnedBy:  warnedBy,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(expirationDays) * 24 * time.Hour),
	}

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().Model(warning).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to add warning: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Debug("Added warning",
		zap.Uint64("userID", userID),
		zap.Uint64("warnedBy", warnedBy),
		zap.Time("expiresAt", warning.ExpiresAt))

	return warning, nil
}

// GetActive returns the user's active warnings, newest first. Expired
// warnings for the user are deleted as a side effect of the read, so counts
// derived from this result are always recomputed from live records.
func (m *WarningModel) GetActive(ctx context.Context, userID uint64) ([]*types.Warning, error) {
	var warnings []*types.Warning

	now := time.Now()

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		err := m.db.NewSelect().
			Model(&warnings).
			Where("user_id = ?", userID).
			Where("expires_at > ?", now).
			Order("created_at DESC").
			Scan(ctx)
		if err != nil {
			return fmt.Errorf("failed to get active warnings: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	// Read-triggered garbage collection of expired warnings.
	if err := m.purgeExpired(ctx, userID, now); err != nil {
		m.logger.Error("Failed to purge expired warnings",
			zap.Error(err),
			zap.Uint64("userID", userID))
	}

	return warnings, nil
}

// CountActive returns the number of active warnings for a user.
func (m *WarningModel) CountActive(ctx context.Context, userID uint64) (int, error) {
	warnings, err := m.GetActive(ctx, userID)
	if err != nil {
		return 0, err
	}

	return len(warnings), nil
}

// Remove deletes a warning by ID. Returns false when no such warning exists.
func (m *WarningModel) Remove(ctx context.Context, warningID int64) (bool, error) {
	removed, err := dbretry.Operation(ctx, func(ctx context.Context) (bool, error) {
		res, err := m.db.NewDelete().
			Model((*types.Warning)(nil)).
			Where("id = ?", warningID).
			Exec(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to remove warning: %w", err)
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

	m.logger.Debug("Removed warning",
		zap.Int64("warningID", warningID),
		zap.Bool("removed", removed))

	return removed, nil
}

// purgeExpired deletes all of the user's warnings that have expired.
func (m *WarningModel) purgeExpired(ctx context.Context, userID uint64, now time.Time) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewDelete().
			Model((*types.Warning)(nil)).
			Where("user_id = ?", userID).
			Where("expires_at <= ?", now).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to purge expired warnings: %w", err)
		}

		return nil
	})
}
