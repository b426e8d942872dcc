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

// MuteModel handles database operations for mute records.
type MuteModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewMute creates a new mute model instance.
func NewMute(db *bun.DB, logger *zap.Logger) *MuteModel {
	return &MuteModel{
		db:     db,
		logger: logger.Named("db_mute"),
	}
}

// Add inserts a new mute for a user. The expiry instant is derived from the
// creation instant and the duration.
func (m *MuteModel) Add(
	ctx context.Context, userID uint64, reason string, mutedBy uint64, durationHours int,
) (*types.Mute, error) {
	now := time.Now()
	mute := &types.Mute{
		UserID:        userID,
		Reason:        reason,
		MutedBy:       mutedBy,
		DurationHours: durationHours,
		CreatedAt:     now,
		ExpiresAt:     now.Add(time.Duration(durationHours) * time.Hour),
	}

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().Model(mute).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to add mute: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Debug("Added mute",
		zap.Uint64("userID", userID),
		zap.Uint64("mutedBy", mutedBy),
		zap.Int("durationHours", durationHours))

	return mute, nil
}

// GetActive returns the user's active mutes, newest first, deleting expired
// mute records as a side effect of the read.
func (m *MuteModel) GetActive(ctx context.Context, userID uint64) ([]*types.Mute, error) {
	var mutes []*types.Mute

	now := time.Now()

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		err := m.db.NewSelect().
			Model(&mutes).
			Where("user_id = ?", userID).
			Where("expires_at > ?", now).
			Order("created_at DESC").
			Scan(ctx)
		if err != nil {
			return fmt.Errorf("failed to get active mutes: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := m.purgeExpired(ctx, userID, now); err != nil {
		m.logger.Error("Failed to purge expired mutes",
			zap.Error(err),
			zap.Uint64("userID", userID))
	}

	return mutes, nil
}

// IsMuted reports whether the user has an active mute record.
func (m *MuteModel) IsMuted(ctx context.Context, userID uint64) (bool, error) {
	mutes, err := m.GetActive(ctx, userID)
	if err != nil {
		return false, err
	}

	return len(mutes) > 0, nil
}

// GetUnresolved returns every remaining mute row across all users, including
// rows that expired while the bot was down and were never lifted. Used at
// startup to re-schedule expiry timers and lift overdue mutes.
func (m *MuteModel) GetUnresolved(ctx context.Context) ([]*types.Mute, error) {
	var mutes []*types.Mute

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		err := m.db.NewSelect().
			Model(&mutes).
			Order("expires_at ASC").
			Scan(ctx)
		if err != nil {
			return fmt.Errorf("failed to get unresolved mutes: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return mutes, nil
}

// EndActive expires all of the user's active mutes immediately. Used by
// manual unmutes so that reconciliation stops treating the user as muted.
func (m *MuteModel) EndActive(ctx context.Context, userID uint64) error {
	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		now := time.Now()

		_, err := m.db.NewUpdate().
			Model((*types.Mute)(nil)).
			Set("expires_at = ?", now).
			Where("user_id = ?", userID).
			Where("expires_at > ?", now).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to end active mutes: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Debug("Ended active mutes", zap.Uint64("userID", userID))

	return nil
}

// purgeExpired deletes all of the user's mutes that have expired.
func (m *MuteModel) purgeExpired(ctx context.Context, userID uint64, now time.Time) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewDelete().
			Model((*types.Mute)(nil)).
			Where("user_id = ?", userID).
			Where("expires_at <= ?", now).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to purge expired mutes: %w", err)
		}

		return nil
	})
}
