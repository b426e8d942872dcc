package dbretry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/robalyx/warden/internal/database/dbretry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryableError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("syntax error at or near"), false},
		{"connection reset", errors.New("read tcp: connection reset by peer"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"io timeout", errors.New("read tcp: i/o timeout"), true},
		{"eof", errors.New("unexpected EOF"), true},
		{"deadline", context.DeadlineExceeded, true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.retryable, dbretry.IsRetryableError(tc.err))
		})
	}
}

func TestOperationRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	attempts := 0

	result, err := dbretry.Operation(context.Background(), func(context.Context) (int, error) {
		attempts++
		if attempts < 3 {
			return 0, errors.New("connection refused")
		}

		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 3, attempts)
}

func TestOperationStopsOnPermanentError(t *testing.T) {
	t.Parallel()

	attempts := 0
	permanent := errors.New("duplicate key value violates unique constraint")

	_, err := dbretry.Operation(context.Background(), func(context.Context) (string, error) {
		attempts++
		return "", permanent
	})

	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, attempts)
}

func TestNoResult(t *testing.T) {
	t.Parallel()

	called := false

	err := dbretry.NoResult(context.Background(), func(context.Context) error {
		called = true
		return nil
	})

	require.NoError(t, err)
	assert.True(t, called)
}
