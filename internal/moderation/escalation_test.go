package moderation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordWarningBelowThreshold(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()

	warning, count, shouldMute, err := e.escalator.RecordWarning(ctx, targetID, "spam", staffID)
	require.NoError(t, err)
	assert.Equal(t, targetID, warning.UserID)
	assert.Equal(t, 1, count)
	assert.False(t, shouldMute)
}

func TestRecordWarningAtThreshold(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, count, shouldMute, err := e.escalator.RecordWarning(ctx, targetID, "spam", staffID)
		require.NoError(t, err)
		assert.Equal(t, i+1, count)
		assert.False(t, shouldMute)
	}

	_, count, shouldMute, err := e.escalator.RecordWarning(ctx, targetID, "spam", staffID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.True(t, shouldMute)
}

func TestNoSecondAutoMuteWhileMuted(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()

	for n := 0; n < 3; n++ {
		_, _, _, err := e.escalator.RecordWarning(ctx, targetID, "spam", staffID)
		require.NoError(t, err)
	}

	_, err := e.mutes.Add(ctx, targetID, "auto", botID, 24)
	require.NoError(t, err)

	_, count, shouldMute, err := e.escalator.RecordWarning(ctx, targetID, "spam", staffID)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.False(t, shouldMute, "an active mute suppresses further automatic mutes")
}

func TestAutoMuteAgainAfterMuteEnded(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()

	for n := 0; n < 3; n++ {
		_, _, _, err := e.escalator.RecordWarning(ctx, targetID, "spam", staffID)
		require.NoError(t, err)
	}

	mute, err := e.mutes.Add(ctx, targetID, "auto", botID, 24)
	require.NoError(t, err)

	// The mute runs out while the warnings are still active.
	mute.ExpiresAt = time.Now().Add(-time.Minute)

	shouldMute, err := e.escalator.ShouldAutoMute(ctx, targetID)
	require.NoError(t, err)
	assert.True(t, shouldMute)
}
