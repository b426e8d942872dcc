package commands

import (
	"testing"

	"github.com/robalyx/warden/internal/bot/session"
	"github.com/robalyx/warden/internal/moderation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCustomIDRoundTrip(t *testing.T) {
	t.Parallel()

	id := customID(session.KindMute, "reason", "d67a1f2e")
	assert.Equal(t, "warden:mute:reason:d67a1f2e", id)

	kind, action, sessionID, ok := parseCustomID(id)
	require.True(t, ok)
	assert.Equal(t, session.KindMute, kind)
	assert.Equal(t, "reason", action)
	assert.Equal(t, "d67a1f2e", sessionID)
}

func TestParseCustomIDRejectsForeignIDs(t *testing.T) {
	t.Parallel()

	_, _, _, ok := parseCustomID("otherbot:mute:reason:x")
	assert.False(t, ok)

	_, _, _, ok = parseCustomID("warden:mute")
	assert.False(t, ok)
}

func TestEveryDefinitionHasHandler(t *testing.T) {
	t.Parallel()

	h := New(nil, nil, nil, nil, nil, nil, zap.NewNop())

	for _, def := range Definitions() {
		assert.Contains(t, h.commands, def.CommandName(),
			"registered command %q must have a dispatch entry", def.CommandName())
	}
}

func TestFormatOutcome(t *testing.T) {
	t.Parallel()

	done := moderation.Done("User muted.").Annotate("Could not DM the user.")
	assert.Equal(t, "User muted.\n- Could not DM the user.", formatOutcome(done))

	rejected := moderation.Rejected(moderation.ErrNotStaff)
	assert.Contains(t, formatOutcome(rejected), "Cannot do that")

	failed := moderation.Failed("Failed to record the mute.", assert.AnError)
	assert.Contains(t, formatOutcome(failed), "Something went wrong")
}
