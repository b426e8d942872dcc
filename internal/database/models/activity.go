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

// ActivityModel handles database operations for moderator action records.
type ActivityModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewActivity creates a repository with database access for storing and
// aggregating moderator actions.
func NewActivity(db *bun.DB, logger *zap.Logger) *ActivityModel {
	return &ActivityModel{
		db:     db,
		logger: logger.Named("db_activity"),
	}
}

// Log stores a moderator action. Failures are logged but not returned;
// activity tracking never blocks a moderation pipeline.
func (m *ActivityModel) Log(ctx context.Context, moderatorID uint64, actionType types.ActionType) {
	action := &types.ModeratorAction{
		ModeratorID: moderatorID,
		ActionType:  actionType,
		CreatedAt:   time.Now(),
	}

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().Model(action).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to log moderator action: %w", err)
		}

		return nil
	})
	if err != nil {
		m.logger.Error("Failed to log moderator action",
			zap.Error(err),
			zap.Uint64("moderatorID", moderatorID),
			zap.String("actionType", string(actionType)))

		return
	}

	m.logger.Debug("Logged moderator action",
		zap.Uint64("moderatorID", moderatorID),
		zap.String("actionType", string(actionType)))
}

// GetStats returns per-moderator counts of the given action type within the
// rolling window ending now.
func (m *ActivityModel) GetStats(
	ctx context.Context, actionType types.ActionType, window time.Duration,
) ([]*types.ModeratorStats, error) {
	var stats []*types.ModeratorStats

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		err := m.db.NewSelect().
			Model((*types.ModeratorAction)(nil)).
			Column("moderator_id").
			ColumnExpr("COUNT(*) AS count").
			Where("action_type = ?", actionType).
			Where("created_at >= ?", time.Now().Add(-window)).
			Group("moderator_id").
			Order("count DESC").
			Scan(ctx, &stats)
		if err != nil {
			return fmt.Errorf("failed to get moderator stats: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return stats, nil
}
