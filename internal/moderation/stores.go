package moderation

import (
	"context"

	"github.com/robalyx/warden/internal/database/types"
)

// WarningStore is the subset of warning record operations the pipelines use.
type WarningStore interface {
	Add(ctx context.Context, userID uint64, reason string, warnedBy uint64, expirationDays int) (*types.Warning, error)
	GetActive(ctx context.Context, userID uint64) ([]*types.Warning, error)
	CountActive(ctx context.Context, userID uint64) (int, error)
	Remove(ctx context.Context, warningID int64) (bool, error)
}

// MuteStore is the subset of mute record operations the pipelines use.
type MuteStore interface {
	Add(ctx context.Context, userID uint64, reason string, mutedBy uint64, durationHours int) (*types.Mute, error)
	GetActive(ctx context.Context, userID uint64) ([]*types.Mute, error)
	IsMuted(ctx context.Context, userID uint64) (bool, error)
	GetUnresolved(ctx context.Context) ([]*types.Mute, error)
	EndActive(ctx context.Context, userID uint64) error
}

// NoteStore is the subset of note record operations the pipelines use.
type NoteStore interface {
	Add(ctx context.Context, userID, authorID uint64, content string) (*types.Note, error)
	GetActive(ctx context.Context, userID uint64) ([]*types.Note, error)
	Deactivate(ctx context.Context, noteID int64) (bool, error)
}

// BanStore is the subset of ban record operations the pipelines use.
type BanStore interface {
	Add(ctx context.Context, userID uint64, reason string, bannedBy uint64) (*types.Ban, error)
	IsBanned(ctx context.Context, userID uint64) (bool, error)
}

// ActivityStore records moderator actions for aggregate reporting.
type ActivityStore interface {
	Log(ctx context.Context, moderatorID uint64, actionType types.ActionType)
}
