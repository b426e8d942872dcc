package moderation_test

import (
	"context"
	"errors"
	"testing"

	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/moderation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWarnRequiresStaff(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()

	outcome := e.orch.Warn(ctx, moderation.Actor{ID: 42}, targetID, "spam")

	assert.Equal(t, moderation.StatusRejected, outcome.Status)
	require.ErrorIs(t, outcome.Err, moderation.ErrNotStaff)

	active, err := e.warnings.GetActive(ctx, targetID)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestGuildOwnerBypassesStaffCheck(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()

	outcome := e.orch.Warn(ctx, moderation.Actor{ID: ownerID}, targetID, "spam")

	assert.Equal(t, moderation.StatusDone, outcome.Status)
}

func TestWarnRecordsNotifiesAndLogs(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()

	outcome := e.orch.Warn(ctx, staffActor(), targetID, "spam")

	assert.Equal(t, moderation.StatusDone, outcome.Status)

	active, err := e.warnings.GetActive(ctx, targetID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "spam", active[0].Reason)
	assert.Equal(t, staffID, active[0].WarnedBy)

	assert.Equal(t, 1, e.platform.dms[targetID])
	assert.Equal(t, 1, e.platform.posts[e.cfg.Warnings.LogChannelID])
	assert.Equal(t, 1, e.activity.counts[types.ActionTypeWarningIssued])
}

func TestWarnDMFailureIsAnnotatedNotFatal(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.platform.dmErr = errors.New("cannot DM user")
	ctx := context.Background()

	outcome := e.orch.Warn(ctx, staffActor(), targetID, "spam")

	assert.Equal(t, moderation.StatusDone, outcome.Status)
	assert.NotEmpty(t, outcome.Annotations)
}

func TestWarnAuditFailureReportedAfterRecording(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.platform.postErr = errors.New("channel gone")
	ctx := context.Background()

	outcome := e.orch.Warn(ctx, staffActor(), targetID, "spam")

	assert.Equal(t, moderation.StatusFailed, outcome.Status)

	// The warning itself must survive the audit failure.
	active, err := e.warnings.GetActive(ctx, targetID)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestWarnThresholdTriggersExactlyOneAutoMute(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()

	for n := 0; n < 3; n++ {
		outcome := e.orch.Warn(ctx, staffActor(), targetID, "spam")
		require.Equal(t, moderation.StatusDone, outcome.Status)
	}

	assert.Equal(t, 1, e.mutes.count())
	assert.True(t, e.platform.hasRole(targetID, mutedRoleID))

	// One more warning during the active automatic mute must not stack a
	// second mute.
	outcome := e.orch.Warn(ctx, staffActor(), targetID, "again")
	require.Equal(t, moderation.StatusDone, outcome.Status)
	assert.Equal(t, 1, e.mutes.count())

	muted, err := e.mutes.GetActive(ctx, targetID)
	require.NoError(t, err)
	require.Len(t, muted, 1)
	assert.Equal(t, botID, muted[0].MutedBy)
	assert.Equal(t, e.cfg.Warnings.AutoMuteDurationHours, muted[0].DurationHours)
}

func TestMuteDefaultsDuration(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()

	outcome := e.orch.Mute(ctx, staffActor(), targetID, "flooding", 0)

	require.Equal(t, moderation.StatusDone, outcome.Status)

	active, err := e.mutes.GetActive(ctx, targetID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, e.cfg.Mute.DefaultDurationHours, active[0].DurationHours)
	assert.True(t, e.platform.hasRole(targetID, mutedRoleID))
	assert.Equal(t, 1, e.platform.dms[targetID])
	assert.Equal(t, 1, e.platform.posts[e.cfg.Mute.LogChannelID])
}

func TestMuteRejectsOutrankedBot(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.platform.addMember(targetID, 20)
	ctx := context.Background()

	outcome := e.orch.Mute(ctx, staffActor(), targetID, "flooding", 2)

	assert.Equal(t, moderation.StatusRejected, outcome.Status)
	require.ErrorIs(t, outcome.Err, moderation.ErrTargetTooHigh)
	assert.Equal(t, 0, e.mutes.count())
}

func TestMuteRejectsMisplacedMutedRole(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.platform.roles[mutedRoleID] = 15
	ctx := context.Background()

	outcome := e.orch.Mute(ctx, staffActor(), targetID, "flooding", 2)

	assert.Equal(t, moderation.StatusRejected, outcome.Status)
	require.ErrorIs(t, outcome.Err, moderation.ErrMuteRoleTooHigh)
}

func TestMuteRejectsMissingMutedRole(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	delete(e.platform.roles, mutedRoleID)
	ctx := context.Background()

	outcome := e.orch.Mute(ctx, staffActor(), targetID, "flooding", 2)

	assert.Equal(t, moderation.StatusRejected, outcome.Status)
	require.ErrorIs(t, outcome.Err, moderation.ErrMuteRoleNotFound)
}

func TestUnmuteRejectsUnmutedTarget(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()

	outcome := e.orch.Unmute(ctx, staffActor(), targetID)

	assert.Equal(t, moderation.StatusRejected, outcome.Status)
	require.ErrorIs(t, outcome.Err, moderation.ErrNotMuted)
}

func TestUnmuteLiftsMuteAndClosesRecord(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()

	require.Equal(t, moderation.StatusDone, e.orch.Mute(ctx, staffActor(), targetID, "flooding", 48).Status)
	require.True(t, e.platform.hasRole(targetID, mutedRoleID))

	outcome := e.orch.Unmute(ctx, staffActor(), targetID)

	assert.Equal(t, moderation.StatusDone, outcome.Status)
	assert.False(t, e.platform.hasRole(targetID, mutedRoleID))

	muted, err := e.mutes.IsMuted(ctx, targetID)
	require.NoError(t, err)
	assert.False(t, muted, "record must be closed so reconciliation does not re-mute")
}

func TestUnmuteReconcilesStaleRole(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()

	// The member holds the muted role with no backing record, e.g. after a
	// manual role grant. Reconciliation strips it and the unmute rejects
	// instead of treating the stale role as an active mute.
	member := e.platform.members[targetID]
	member.RoleIDs = append(member.RoleIDs, mutedRoleID)

	outcome := e.orch.Unmute(ctx, staffActor(), targetID)

	assert.Equal(t, moderation.StatusRejected, outcome.Status)
	require.ErrorIs(t, outcome.Err, moderation.ErrNotMuted)
	assert.False(t, e.platform.hasRole(targetID, mutedRoleID))
}

func TestMuteRegrantsRoleLostToDrift(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()

	require.Equal(t, moderation.StatusDone, e.orch.Mute(ctx, staffActor(), targetID, "flooding", 48).Status)

	// The role disappears out of band while the record stays active; the next
	// mute pipeline run reconciles before recording the new mute.
	require.NoError(t, e.platform.RevokeRole(ctx, targetID, mutedRoleID, "manual"))

	outcome := e.orch.Mute(ctx, staffActor(), targetID, "still flooding", 24)

	assert.Equal(t, moderation.StatusDone, outcome.Status)
	assert.True(t, e.platform.hasRole(targetID, mutedRoleID))
}

func TestBanRecordsNotifiesAndBans(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()

	outcome := e.orch.Ban(ctx, staffActor(), targetID, "raiding")

	assert.Equal(t, moderation.StatusDone, outcome.Status)
	assert.Contains(t, e.platform.banned, targetID)
	assert.Equal(t, 1, e.platform.dms[targetID])
	assert.Equal(t, 1, e.platform.posts[e.cfg.Ban.LogChannelID])

	banned, err := e.bans.IsBanned(ctx, targetID)
	require.NoError(t, err)
	assert.True(t, banned)
}

func TestNoteAddAndRemove(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()

	outcome := e.orch.AddNote(ctx, staffActor(), targetID, "keeps testing limits")
	require.Equal(t, moderation.StatusDone, outcome.Status)

	notes, err := e.notes.GetActive(ctx, targetID)
	require.NoError(t, err)
	require.Len(t, notes, 1)

	outcome = e.orch.RemoveNote(ctx, staffActor(), targetID, notes[0].ID)
	require.Equal(t, moderation.StatusDone, outcome.Status)

	notes, err = e.notes.GetActive(ctx, targetID)
	require.NoError(t, err)
	assert.Empty(t, notes)

	// Removing again reports nothing removed but is not an error.
	outcome = e.orch.RemoveNote(ctx, staffActor(), targetID, 42)
	assert.Equal(t, moderation.StatusDone, outcome.Status)
}

func TestRemoveWarning(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()

	require.Equal(t, moderation.StatusDone, e.orch.Warn(ctx, staffActor(), targetID, "spam").Status)

	active, err := e.warnings.GetActive(ctx, targetID)
	require.NoError(t, err)
	require.Len(t, active, 1)

	outcome := e.orch.RemoveWarning(ctx, staffActor(), active[0].ID)
	assert.Equal(t, moderation.StatusDone, outcome.Status)

	active, err = e.warnings.GetActive(ctx, targetID)
	require.NoError(t, err)
	assert.Empty(t, active)
}
