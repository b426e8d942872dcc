package database

import (
	"github.com/robalyx/warden/internal/database/models"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Repository provides access to all database models.
type Repository struct {
	warning  *models.WarningModel
	mute     *models.MuteModel
	note     *models.NoteModel
	ban      *models.BanModel
	activity *models.ActivityModel
}

// NewRepository creates a new repository instance with all models.
func NewRepository(db *bun.DB, logger *zap.Logger) *Repository {
	return &Repository{
		warning:  models.NewWarning(db, logger),
		mute:     models.NewMute(db, logger),
		note:     models.NewNote(db, logger),
		ban:      models.NewBan(db, logger),
		activity: models.NewActivity(db, logger),
	}
}

// Warning returns the warning model repository.
func (r *Repository) Warning() *models.WarningModel {
	return r.warning
}

// Mute returns the mute model repository.
func (r *Repository) Mute() *models.MuteModel {
	return r.mute
}

// Note returns the note model repository.
func (r *Repository) Note() *models.NoteModel {
	return r.note
}

// Ban returns the ban model repository.
func (r *Repository) Ban() *models.BanModel {
	return r.ban
}

// Activity returns the moderator activity model repository.
func (r *Repository) Activity() *models.ActivityModel {
	return r.activity
}
