package config_test

import (
	"testing"

	"github.com/robalyx/warden/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterActionValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, config.FilterActionNone.Validate())
	require.NoError(t, config.FilterActionWarn.Validate())
	require.NoError(t, config.FilterActionMute.Validate())

	err := config.FilterAction("kick").Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrInvalidFilterAction)

	require.Error(t, config.FilterAction("").Validate())
}
