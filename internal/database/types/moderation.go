package types

import (
	"time"
)

// Warning represents a warning issued against a user. Warnings are immutable
// once created; they stop counting after ExpiresAt and are purged lazily the
// next time the user's warnings are read.
type Warning struct {
	ID        int64     `bun:",pk,autoincrement"`
	UserID    uint64    `bun:",notnull"` // Discord ID of the warned user
	Reason    string    `bun:",notnull"` // Why the warning was issued
	WarnedBy  uint64    `bun:",notnull"` // Discord ID of the issuer (bot ID for filter warnings)
	CreatedAt time.Time `bun:",notnull"` // When the warning was issued
	ExpiresAt time.Time `bun:",notnull"` // CreatedAt + configured expiration window
}

// IsActive reports whether the warning still counts at the given instant.
func (w *Warning) IsActive(now time.Time) bool {
	return now.Before(w.ExpiresAt)
}

// Mute represents the intent to mute a user. The muted role grant is a
// separate side effect reconciled against this record on subject lookups.
type Mute struct {
	ID            int64     `bun:",pk,autoincrement"`
	UserID        uint64    `bun:",notnull"` // Discord ID of the muted user
	Reason        string    `bun:",notnull"` // Why the mute was issued
	MutedBy       uint64    `bun:",notnull"` // Discord ID of the issuer (bot ID for automatic mutes)
	DurationHours int       `bun:",notnull"` // Mute length in hours
	CreatedAt     time.Time `bun:",notnull"` // When the mute was issued
	ExpiresAt     time.Time `bun:",notnull"` // CreatedAt + DurationHours
}

// IsActive reports whether the mute is still in force at the given instant.
func (m *Mute) IsActive(now time.Time) bool {
	return now.Before(m.ExpiresAt)
}

// Note represents a staff note about a user. Notes are soft-deleted by
// clearing Active and are never physically removed.
type Note struct {
	ID        int64     `bun:",pk,autoincrement"`
	UserID    uint64    `bun:",notnull"`   // Discord ID of the subject
	AuthorID  uint64    `bun:",notnull"`   // Discord ID of the note author
	Content   string    `bun:",type:text"` // Note body
	CreatedAt time.Time `bun:",notnull"`   // When the note was added
	Active    bool      `bun:",notnull"`   // False once removed
}

// Ban represents a ban record. The record is permanent evidence independent
// of the platform-level ban action and never expires.
type Ban struct {
	ID        int64     `bun:",pk,autoincrement"`
	UserID    uint64    `bun:",notnull"` // Discord ID of the banned user
	Reason    string    `bun:",notnull"` // Why the ban was issued
	BannedBy  uint64    `bun:",notnull"` // Discord ID of the issuer
	CreatedAt time.Time `bun:",notnull"` // When the ban was issued
}

// ActionType identifies a tracked moderator action.
type ActionType string

const (
	ActionTypeWarningIssued  ActionType = "warning_issued"
	ActionTypeMessageDeleted ActionType = "message_deleted"
)

// ModeratorAction is an append-only record of a moderator action, used for
// aggregate reporting over a rolling window.
type ModeratorAction struct {
	ID          int64      `bun:",pk,autoincrement"`
	ModeratorID uint64     `bun:",notnull"` // Discord ID of the acting moderator
	ActionType  ActionType `bun:",notnull"` // Kind of action performed
	CreatedAt   time.Time  `bun:",notnull"` // When the action happened
}

// ModeratorStats holds per-moderator action counts for a reporting window.
type ModeratorStats struct {
	ModeratorID uint64 `bun:"moderator_id"`
	Count       int    `bun:"count"`
}
