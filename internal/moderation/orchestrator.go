package moderation

import (
	"context"
	"errors"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/robalyx/warden/internal/setup/config"
	"go.uber.org/zap"
)

// Actor identifies the invoker of a moderation action.
type Actor struct {
	ID      uint64
	RoleIDs []uint64
}

// HasRole reports whether the actor holds the given role.
func (a Actor) HasRole(roleID uint64) bool {
	for _, id := range a.RoleIDs {
		if id == roleID {
			return true
		}
	}

	return false
}

// Orchestrator runs the moderation pipelines. Every action follows the same
// shape: authorize the invoker, check preconditions, persist the record,
// attempt a best-effort DM to the subject, post to the audit channel, and
// report an Outcome.
type Orchestrator struct {
	platform  Platform
	escalator *Escalator
	scheduler *Scheduler
	warnings  WarningStore
	mutes     MuteStore
	notes     NoteStore
	bans      BanStore
	activity  ActivityStore
	cfg       *config.Config
	logger    *zap.Logger
}

// NewOrchestrator creates the moderation pipeline runner.
func NewOrchestrator(
	platform Platform, escalator *Escalator, scheduler *Scheduler,
	warnings WarningStore, mutes MuteStore, notes NoteStore,
	bans BanStore, activity ActivityStore,
	cfg *config.Config, logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		platform:  platform,
		escalator: escalator,
		scheduler: scheduler,
		warnings:  warnings,
		mutes:     mutes,
		notes:     notes,
		bans:      bans,
		activity:  activity,
		cfg:       cfg,
		logger:    logger.Named("moderation"),
	}
}

// Authorize checks that the invoker holds the staff role or owns the guild.
func (o *Orchestrator) Authorize(ctx context.Context, invoker Actor) error {
	if invoker.HasRole(o.cfg.Roles.StaffRoleID) {
		return nil
	}

	ownerID, err := o.platform.GuildOwnerID(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve guild owner: %w", err)
	}

	if invoker.ID == ownerID {
		return nil
	}

	return ErrNotStaff
}

// Warn records a warning against the target, notifies them, applies the
// automatic mute if the warning crossed the threshold, and posts the audit
// log. An audit post failure here is reported as a failure even though the
// warning is already recorded.
func (o *Orchestrator) Warn(ctx context.Context, invoker Actor, targetID uint64, reason string) Outcome {
	if err := o.Authorize(ctx, invoker); err != nil {
		return o.rejectOrFail(err, "failed to authorize invoker")
	}

	warning, count, shouldMute, err := o.escalator.RecordWarning(ctx, targetID, reason, invoker.ID)
	if err != nil {
		return Failed("Failed to record the warning.", err)
	}

	outcome := Done(fmt.Sprintf("Warning recorded. %s now has %d/%d active warnings.",
		mention(targetID), count, o.cfg.Warnings.MaxWarnings))

	dm := warningDMEmbed(o.platform.GuildName(), reason, count, o.cfg.Warnings.MaxWarnings)
	if err := o.platform.SendDirectMessage(ctx, targetID, dm); err != nil {
		o.logger.Debug("Could not DM warned user",
			zap.Error(err),
			zap.Uint64("targetID", targetID))

		outcome = outcome.Annotate("Could not DM the user about the warning.")
	}

	if shouldMute {
		if err := o.ApplyAutoMute(ctx, targetID); err != nil {
			o.logger.Error("Automatic mute failed",
				zap.Error(err),
				zap.Uint64("targetID", targetID))

			outcome = outcome.Annotate("Warning threshold reached but the automatic mute failed.")
		} else {
			outcome = outcome.Annotate(fmt.Sprintf("Warning threshold reached; automatically muted for %s.",
				formatHours(o.cfg.Warnings.AutoMuteDurationHours)))
		}
	}

	log := warningLogEmbed(targetID, invoker.ID, reason, count, o.cfg.Warnings.MaxWarnings)
	if err := o.platform.PostEmbed(ctx, o.cfg.Warnings.LogChannelID, log); err != nil {
		o.logger.Error("Failed to post warning audit log",
			zap.Error(err),
			zap.Int64("warningID", warning.ID))

		return Failed("The warning was recorded but some operations failed.", err)
	}

	return outcome
}

// RemoveWarning deletes a warning record by ID.
func (o *Orchestrator) RemoveWarning(ctx context.Context, invoker Actor, warningID int64) Outcome {
	if err := o.Authorize(ctx, invoker); err != nil {
		return o.rejectOrFail(err, "failed to authorize invoker")
	}

	removed, err := o.warnings.Remove(ctx, warningID)
	if err != nil {
		return Failed("Failed to remove the warning.", err)
	}

	if !removed {
		return Done("No warning with that ID exists; nothing removed.")
	}

	return Done("Warning removed.")
}

// Mute grants the muted role, records the mute, schedules its expiry, and
// notifies the subject. Role hierarchy preconditions are checked before any
// state changes.
func (o *Orchestrator) Mute(
	ctx context.Context, invoker Actor, targetID uint64, reason string, durationHours int,
) Outcome {
	if err := o.Authorize(ctx, invoker); err != nil {
		return o.rejectOrFail(err, "failed to authorize invoker")
	}

	if durationHours <= 0 {
		durationHours = o.cfg.Mute.DefaultDurationHours
	}

	if err := o.scheduler.Reconcile(ctx, targetID); err != nil {
		o.logger.Debug("Reconciliation before mute failed",
			zap.Error(err),
			zap.Uint64("targetID", targetID))
	}

	if err := o.checkMutePreconditions(ctx, targetID); err != nil {
		return o.rejectOrFail(err, "failed to check mute preconditions")
	}

	mute, err := o.mutes.Add(ctx, targetID, reason, invoker.ID, durationHours)
	if err != nil {
		return Failed("Failed to record the mute.", err)
	}

	if err := o.platform.GrantRole(ctx, targetID, o.cfg.Roles.MutedRoleID, reason); err != nil {
		return Failed("The mute was recorded but the muted role could not be granted.", err)
	}

	o.scheduler.Schedule(targetID, mute.ExpiresAt)

	outcome := Done(fmt.Sprintf("%s has been muted for %s.",
		mention(targetID), formatHours(durationHours)))

	dm := muteDMEmbed(o.platform.GuildName(), reason, durationHours)
	if err := o.platform.SendDirectMessage(ctx, targetID, dm); err != nil {
		o.logger.Debug("Could not DM muted user",
			zap.Error(err),
			zap.Uint64("targetID", targetID))

		outcome = outcome.Annotate("Could not DM the user about the mute.")
	}

	o.postAudit(ctx, o.cfg.Mute.LogChannelID, muteLogEmbed(targetID, invoker.ID, reason, durationHours))

	return outcome
}

// Unmute lifts a mute early: revokes the role, cancels the expiry timer,
// expires the record, and notifies the subject.
func (o *Orchestrator) Unmute(ctx context.Context, invoker Actor, targetID uint64) Outcome {
	if err := o.Authorize(ctx, invoker); err != nil {
		return o.rejectOrFail(err, "failed to authorize invoker")
	}

	// Correct any record/role drift first so a stale role does not pass for
	// an active mute.
	if err := o.scheduler.Reconcile(ctx, targetID); err != nil {
		o.logger.Debug("Reconciliation before unmute failed",
			zap.Error(err),
			zap.Uint64("targetID", targetID))
	}

	member, err := o.platform.FetchMember(ctx, targetID)
	if err != nil {
		return Failed("Failed to look up the member.", err)
	}

	if !member.HasRole(o.cfg.Roles.MutedRoleID) {
		return Rejected(ErrNotMuted)
	}

	if err := o.platform.RevokeRole(ctx, targetID, o.cfg.Roles.MutedRoleID, "Manual unmute"); err != nil {
		return Failed("Failed to remove the muted role.", err)
	}

	o.scheduler.Cancel(targetID)

	if err := o.mutes.EndActive(ctx, targetID); err != nil {
		// The role is gone; reconciliation would re-grant it from the stale
		// record, so surface this.
		return Failed("The muted role was removed but the mute record could not be closed.", err)
	}

	outcome := Done(fmt.Sprintf("%s has been unmuted.", mention(targetID)))

	if err := o.platform.SendDirectMessage(ctx, targetID, unmuteDMEmbed(o.platform.GuildName())); err != nil {
		o.logger.Debug("Could not DM unmuted user",
			zap.Error(err),
			zap.Uint64("targetID", targetID))

		outcome = outcome.Annotate("Could not DM the user about the unmute.")
	}

	o.postAudit(ctx, o.cfg.Mute.LogChannelID, unmuteLogEmbed(targetID, invoker.ID, false))

	return outcome
}

// Ban records a ban, notifies the subject before the platform ban lands, and
// bans them from the guild.
func (o *Orchestrator) Ban(ctx context.Context, invoker Actor, targetID uint64, reason string) Outcome {
	if err := o.Authorize(ctx, invoker); err != nil {
		return o.rejectOrFail(err, "failed to authorize invoker")
	}

	if err := o.checkTargetHierarchy(ctx, targetID); err != nil {
		return o.rejectOrFail(err, "failed to check ban preconditions")
	}

	if _, err := o.bans.Add(ctx, targetID, reason, invoker.ID); err != nil {
		return Failed("Failed to record the ban.", err)
	}

	outcome := Done(fmt.Sprintf("%s has been banned.", mention(targetID)))

	// DM before banning; the DM channel closes once the ban lands.
	dm := banDMEmbed(o.platform.GuildName(), reason)
	if err := o.platform.SendDirectMessage(ctx, targetID, dm); err != nil {
		o.logger.Debug("Could not DM banned user",
			zap.Error(err),
			zap.Uint64("targetID", targetID))

		outcome = outcome.Annotate("Could not DM the user about the ban.")
	}

	if err := o.platform.BanUser(ctx, targetID, reason); err != nil {
		return Failed("The ban was recorded but the guild ban failed.", err)
	}

	o.postAudit(ctx, o.cfg.Ban.LogChannelID, banLogEmbed(targetID, invoker.ID, reason))

	return outcome
}

// AddNote records a staff note about the target. Notes are internal; the
// subject is not notified.
func (o *Orchestrator) AddNote(ctx context.Context, invoker Actor, targetID uint64, content string) Outcome {
	if err := o.Authorize(ctx, invoker); err != nil {
		return o.rejectOrFail(err, "failed to authorize invoker")
	}

	if _, err := o.notes.Add(ctx, targetID, invoker.ID, content); err != nil {
		return Failed("Failed to add the note.", err)
	}

	o.postAudit(ctx, o.cfg.Notes.LogChannelID, noteLogEmbed(targetID, invoker.ID, content, "Added"))

	return Done(fmt.Sprintf("Note added for %s.", mention(targetID)))
}

// RemoveNote soft-deletes a note by ID.
func (o *Orchestrator) RemoveNote(ctx context.Context, invoker Actor, targetID uint64, noteID int64) Outcome {
	if err := o.Authorize(ctx, invoker); err != nil {
		return o.rejectOrFail(err, "failed to authorize invoker")
	}

	removed, err := o.notes.Deactivate(ctx, noteID)
	if err != nil {
		return Failed("Failed to remove the note.", err)
	}

	if !removed {
		return Done("No active note with that ID exists; nothing removed.")
	}

	o.postAudit(ctx, o.cfg.Notes.LogChannelID,
		noteLogEmbed(targetID, invoker.ID, fmt.Sprintf("Note #%d", noteID), "Removed"))

	return Done("Note removed.")
}

// ApplyAutoMute applies the warning-threshold mute.
func (o *Orchestrator) ApplyAutoMute(ctx context.Context, targetID uint64) error {
	return o.AutoMute(ctx, targetID, o.escalator.AutoMuteReason(), o.cfg.Warnings.AutoMuteDurationHours)
}

// IssueAutoWarning records a warning on the bot's own authority, used by the
// content filters. The warning flows through the same escalation engine as
// moderator-issued warnings, so it can trigger the automatic mute.
func (o *Orchestrator) IssueAutoWarning(ctx context.Context, targetID uint64, reason string) error {
	botID := o.platform.BotUserID()

	_, count, shouldMute, err := o.escalator.RecordWarning(ctx, targetID, reason, botID)
	if err != nil {
		return err
	}

	dm := warningDMEmbed(o.platform.GuildName(), reason, count, o.cfg.Warnings.MaxWarnings)
	if err := o.platform.SendDirectMessage(ctx, targetID, dm); err != nil {
		o.logger.Debug("Could not DM auto-warned user",
			zap.Error(err),
			zap.Uint64("targetID", targetID))
	}

	if shouldMute {
		if err := o.ApplyAutoMute(ctx, targetID); err != nil {
			o.logger.Error("Automatic mute after filter warning failed",
				zap.Error(err),
				zap.Uint64("targetID", targetID))
		}
	}

	o.postAudit(ctx, o.cfg.Warnings.LogChannelID,
		warningLogEmbed(targetID, botID, reason, count, o.cfg.Warnings.MaxWarnings))

	return nil
}

// AutoMute mutes a user on the bot's own authority. Used by the warning
// escalation path and the content filters; hierarchy preconditions still
// apply but invoker authorization does not.
func (o *Orchestrator) AutoMute(ctx context.Context, targetID uint64, reason string, durationHours int) error {
	if err := o.checkMutePreconditions(ctx, targetID); err != nil {
		return err
	}

	botID := o.platform.BotUserID()

	mute, err := o.mutes.Add(ctx, targetID, reason, botID, durationHours)
	if err != nil {
		return fmt.Errorf("failed to record automatic mute: %w", err)
	}

	if err := o.platform.GrantRole(ctx, targetID, o.cfg.Roles.MutedRoleID, reason); err != nil {
		return fmt.Errorf("failed to grant muted role: %w", err)
	}

	o.scheduler.Schedule(targetID, mute.ExpiresAt)

	dm := muteDMEmbed(o.platform.GuildName(), reason, durationHours)
	if err := o.platform.SendDirectMessage(ctx, targetID, dm); err != nil {
		o.logger.Debug("Could not DM auto-muted user",
			zap.Error(err),
			zap.Uint64("targetID", targetID))
	}

	o.postAudit(ctx, o.cfg.Mute.LogChannelID, muteLogEmbed(targetID, botID, reason, durationHours))

	return nil
}

// checkMutePreconditions verifies the muted role exists, sits below the
// bot's highest role, and that the bot outranks the target.
func (o *Orchestrator) checkMutePreconditions(ctx context.Context, targetID uint64) error {
	rolePos, err := o.platform.RolePosition(ctx, o.cfg.Roles.MutedRoleID)
	if err != nil {
		return err
	}

	botPos, err := o.platform.BotTopRolePosition(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve bot role position: %w", err)
	}

	if rolePos >= botPos {
		return ErrMuteRoleTooHigh
	}

	return o.checkTargetHierarchyWithBotPos(ctx, targetID, botPos)
}

// checkTargetHierarchy verifies the bot outranks the target member.
func (o *Orchestrator) checkTargetHierarchy(ctx context.Context, targetID uint64) error {
	botPos, err := o.platform.BotTopRolePosition(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve bot role position: %w", err)
	}

	return o.checkTargetHierarchyWithBotPos(ctx, targetID, botPos)
}

func (o *Orchestrator) checkTargetHierarchyWithBotPos(ctx context.Context, targetID uint64, botPos int) error {
	member, err := o.platform.FetchMember(ctx, targetID)
	if err != nil {
		return fmt.Errorf("failed to look up target member: %w", err)
	}

	if member.TopRolePosition >= botPos {
		return ErrTargetTooHigh
	}

	return nil
}

// postAudit posts to an audit channel, logging failures without affecting
// the pipeline outcome.
func (o *Orchestrator) postAudit(ctx context.Context, channelID uint64, embed discord.Embed) {
	if err := o.platform.PostEmbed(ctx, channelID, embed); err != nil {
		o.logger.Error("Failed to post audit log",
			zap.Error(err),
			zap.Uint64("channelID", channelID))
	}
}

// rejectOrFail maps a precondition error to a rejection and anything else to
// a failure.
func (o *Orchestrator) rejectOrFail(err error, failMessage string) Outcome {
	if isRejection(err) {
		return Rejected(err)
	}

	return Failed(failMessage, err)
}

func isRejection(err error) bool {
	if err == nil {
		return false
	}

	for _, rejection := range []error{
		ErrNotStaff, ErrMuteRoleNotFound, ErrMuteRoleTooHigh, ErrTargetTooHigh, ErrNotMuted,
	} {
		if errors.Is(err, rejection) {
			return true
		}
	}

	return false
}
