package moderation

import (
	"context"
	"fmt"

	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/setup/config"
	"go.uber.org/zap"
)

// Escalator owns the warning count threshold rule. Every warning, whether
// issued by a moderator or a content filter, passes through RecordWarning so
// the automatic mute check cannot be bypassed.
type Escalator struct {
	warnings WarningStore
	mutes    MuteStore
	activity ActivityStore
	cfg      *config.Warnings
	logger   *zap.Logger
}

// NewEscalator creates the warning escalation engine.
func NewEscalator(
	warnings WarningStore, mutes MuteStore, activity ActivityStore,
	cfg *config.Warnings, logger *zap.Logger,
) *Escalator {
	return &Escalator{
		warnings: warnings,
		mutes:    mutes,
		activity: activity,
		cfg:      cfg,
		logger:   logger.Named("escalation"),
	}
}

// RecordWarning persists a warning, logs the issuer's activity, and reports
// the resulting active count plus whether an automatic mute should follow.
// An automatic mute fires only while the active count is at or above the
// threshold AND no active mute exists, so repeated warnings during an active
// automatic mute do not stack further mutes.
func (e *Escalator) RecordWarning(
	ctx context.Context, userID uint64, reason string, issuerID uint64,
) (*types.Warning, int, bool, error) {
	warning, err := e.warnings.Add(ctx, userID, reason, issuerID, e.cfg.ExpirationDays)
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to record warning: %w", err)
	}

	e.activity.Log(ctx, issuerID, types.ActionTypeWarningIssued)

	count, err := e.warnings.CountActive(ctx, userID)
	if err != nil {
		// The warning is recorded; report it with the count unknown rather
		// than failing the whole pipeline.
		e.logger.Error("Failed to count active warnings after recording",
			zap.Error(err),
			zap.Uint64("userID", userID))

		return warning, 1, false, nil
	}

	shouldMute, err := e.shouldAutoMute(ctx, userID, count)
	if err != nil {
		e.logger.Error("Failed to evaluate automatic mute",
			zap.Error(err),
			zap.Uint64("userID", userID))

		return warning, count, false, nil
	}

	return warning, count, shouldMute, nil
}

// ShouldAutoMute reports whether the user's current warning state calls for
// an automatic mute.
func (e *Escalator) ShouldAutoMute(ctx context.Context, userID uint64) (bool, error) {
	count, err := e.warnings.CountActive(ctx, userID)
	if err != nil {
		return false, err
	}

	return e.shouldAutoMute(ctx, userID, count)
}

func (e *Escalator) shouldAutoMute(ctx context.Context, userID uint64, count int) (bool, error) {
	if count < e.cfg.MaxWarnings {
		return false, nil
	}

	muted, err := e.mutes.IsMuted(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to check active mute: %w", err)
	}

	return !muted, nil
}

// AutoMuteReason is the recorded reason for threshold-triggered mutes.
func (e *Escalator) AutoMuteReason() string {
	return fmt.Sprintf("Automatic mute: reached %d active warnings", e.cfg.MaxWarnings)
}
