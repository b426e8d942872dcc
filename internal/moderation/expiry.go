package moderation

import (
	"context"
	"sync"
	"time"

	"github.com/robalyx/warden/internal/setup/config"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// fireTimeout bounds the work done when an expiry timer fires.
const fireTimeout = 30 * time.Second

// Scheduler lifts mutes when they expire. The mute record is the source of
// truth; timers only make expiry prompt. A missed or duplicate timer firing
// is harmless because every firing re-checks the record state, and drift
// between record and role is corrected by Reconcile on subject lookups.
type Scheduler struct {
	mu       sync.Mutex
	timers   map[uint64]*time.Timer
	platform Platform
	mutes    MuteStore
	cfg      *config.Config
	logger   *zap.Logger
}

// NewScheduler creates the mute expiry scheduler.
func NewScheduler(platform Platform, mutes MuteStore, cfg *config.Config, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		timers:   make(map[uint64]*time.Timer),
		platform: platform,
		mutes:    mutes,
		cfg:      cfg,
		logger:   logger.Named("expiry"),
	}
}

// Schedule arms a one-shot timer lifting the user's mute at the given
// instant, replacing any timer already armed for them.
func (s *Scheduler) Schedule(userID uint64, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[userID]; ok {
		timer.Stop()
	}

	delay := time.Until(expiresAt)
	if delay < 0 {
		delay = 0
	}

	s.timers[userID] = time.AfterFunc(delay, func() {
		s.fire(userID)
	})

	s.logger.Debug("Scheduled mute expiry",
		zap.Uint64("userID", userID),
		zap.Time("expiresAt", expiresAt))
}

// Cancel disarms the user's expiry timer if one is armed. Safe to call when
// none is.
func (s *Scheduler) Cancel(userID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[userID]; ok {
		timer.Stop()
		delete(s.timers, userID)
	}
}

// fire runs when a timer elapses. It re-reads the record state: a still
// active mute (from a newer, longer record) re-arms the timer instead of
// lifting.
func (s *Scheduler) fire(userID uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), fireTimeout)
	defer cancel()

	s.mu.Lock()
	delete(s.timers, userID)
	s.mu.Unlock()

	mutes, err := s.mutes.GetActive(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to read mute state on expiry; leaving for reconciliation",
			zap.Error(err),
			zap.Uint64("userID", userID))

		return
	}

	if len(mutes) > 0 {
		s.Schedule(userID, mutes[0].ExpiresAt)
		return
	}

	s.lift(ctx, userID)
}

// lift revokes the muted role and announces the expiry.
func (s *Scheduler) lift(ctx context.Context, userID uint64) {
	if err := s.platform.RevokeRole(ctx, userID, s.cfg.Roles.MutedRoleID, "Mute expired"); err != nil {
		s.logger.Error("Failed to revoke muted role on expiry",
			zap.Error(err),
			zap.Uint64("userID", userID))

		return
	}

	s.logger.Info("Mute expired", zap.Uint64("userID", userID))

	if err := s.platform.SendDirectMessage(ctx, userID, unmuteDMEmbed(s.platform.GuildName())); err != nil {
		s.logger.Debug("Could not DM user about mute expiry",
			zap.Error(err),
			zap.Uint64("userID", userID))
	}

	botID := s.platform.BotUserID()
	if err := s.platform.PostEmbed(ctx, s.cfg.Mute.LogChannelID, unmuteLogEmbed(userID, botID, true)); err != nil {
		s.logger.Error("Failed to post mute expiry audit log",
			zap.Error(err),
			zap.Uint64("userID", userID))
	}
}

// Reconcile compares the user's mute record against their muted role and
// corrects drift in both directions. Run on every subject lookup.
func (s *Scheduler) Reconcile(ctx context.Context, userID uint64) error {
	member, err := s.platform.FetchMember(ctx, userID)
	if err != nil {
		// Not in the guild anymore; nothing to correct.
		s.logger.Debug("Skipping reconciliation for unresolved member",
			zap.Error(err),
			zap.Uint64("userID", userID))

		return nil
	}

	mutes, err := s.mutes.GetActive(ctx, userID)
	if err != nil {
		return err
	}

	recordActive := len(mutes) > 0
	roleHeld := member.HasRole(s.cfg.Roles.MutedRoleID)

	switch {
	case recordActive && !roleHeld:
		s.logger.Warn("Active mute record without muted role; re-granting",
			zap.Uint64("userID", userID))

		if err := s.platform.GrantRole(ctx, userID, s.cfg.Roles.MutedRoleID, "Mute reconciliation"); err != nil {
			return err
		}

		s.Schedule(userID, mutes[0].ExpiresAt)

	case !recordActive && roleHeld:
		s.logger.Warn("Muted role held without active mute record; revoking",
			zap.Uint64("userID", userID))

		s.Cancel(userID)

		if err := s.platform.RevokeRole(ctx, userID, s.cfg.Roles.MutedRoleID, "Mute reconciliation"); err != nil {
			return err
		}
	}

	return nil
}

// ResumeAll sweeps the mute table after a restart: overdue mutes are lifted
// immediately and the rest get their timers re-armed.
func (s *Scheduler) ResumeAll(ctx context.Context) error {
	mutes, err := s.mutes.GetUnresolved(ctx)
	if err != nil {
		return err
	}

	// Collapse to the latest expiry per user.
	latest := make(map[uint64]time.Time, len(mutes))
	for _, mute := range mutes {
		if expiry, ok := latest[mute.UserID]; !ok || mute.ExpiresAt.After(expiry) {
			latest[mute.UserID] = mute.ExpiresAt
		}
	}

	now := time.Now()
	p := pool.New().WithMaxGoroutines(4)

	for userID, expiresAt := range latest {
		p.Go(func() {
			if expiresAt.After(now) {
				s.Schedule(userID, expiresAt)
				return
			}

			// Expired while the bot was down. GetActive purges the stale
			// rows; then lift the role.
			if _, err := s.mutes.GetActive(ctx, userID); err != nil {
				s.logger.Error("Failed to purge overdue mute",
					zap.Error(err),
					zap.Uint64("userID", userID))

				return
			}

			s.lift(ctx, userID)
		})
	}

	p.Wait()

	s.logger.Info("Resumed mute expiry timers", zap.Int("users", len(latest)))

	return nil
}
