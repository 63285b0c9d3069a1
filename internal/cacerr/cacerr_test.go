package cacerr_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resonance-systems/cac/internal/cacerr"
)

func TestError_FormatsWithAndWithoutWrappedCause(t *testing.T) {
	plain := cacerr.New(cacerr.KindInput, "POLICY-01", "empty expression")
	assert.Equal(t, "POLICY-01: empty expression", plain.Error())

	wrapped := cacerr.Wrap(cacerr.KindTransient, "FABRIC-01", "lock busy", errors.New("deadline exceeded"))
	assert.Contains(t, wrapped.Error(), "FABRIC-01: lock busy")
	assert.Contains(t, wrapped.Error(), "deadline exceeded")
}

func TestUnwrap_ExposesWrappedCause(t *testing.T) {
	cause := errors.New("root cause")
	err := cacerr.Wrap(cacerr.KindTransient, "FABRIC-01", "lock busy", cause)
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestIs_MatchesWrappedKind(t *testing.T) {
	err := cacerr.New(cacerr.KindNotFound, "LEDGER-01", "unknown commitment")
	assert.True(t, cacerr.Is(err, cacerr.KindNotFound))
	assert.False(t, cacerr.Is(err, cacerr.KindInput))
	assert.False(t, cacerr.Is(errors.New("plain"), cacerr.KindNotFound))
}

func TestCodeOf_ExtractsCodeOrEmptyString(t *testing.T) {
	err := cacerr.New(cacerr.KindInput, "POLICY-02", "bad kind")
	assert.Equal(t, "POLICY-02", cacerr.CodeOf(err))
	assert.Equal(t, "", cacerr.CodeOf(errors.New("plain")))
}

func TestWithRetry_ReturnsImmediatelyOnSuccess(t *testing.T) {
	calls := 0
	err := cacerr.WithRetry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_ReturnsImmediatelyOnNonTransientError(t *testing.T) {
	calls := 0
	wantErr := cacerr.New(cacerr.KindInput, "POLICY-01", "bad input")
	err := cacerr.WithRetry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return wantErr
	})
	assert.Equal(t, wantErr, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_RetriesTransientUntilSuccess(t *testing.T) {
	calls := 0
	err := cacerr.WithRetry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return cacerr.New(cacerr.KindTransient, "FABRIC-01", "lock busy")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_ExhaustsRetriesAndReturnsLastError(t *testing.T) {
	calls := 0
	err := cacerr.WithRetry(context.Background(), 2, time.Millisecond, func() error {
		calls++
		return cacerr.New(cacerr.KindTransient, "FABRIC-01", "still busy")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, cacerr.Is(err, cacerr.KindTransient))
}

func TestWithRetry_RespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := cacerr.WithRetry(ctx, 5, 50*time.Millisecond, func() error {
		calls++
		return cacerr.New(cacerr.KindTransient, "FABRIC-01", "lock busy")
	})
	require.Error(t, err)
	assert.Equal(t, context.Canceled, err)
	assert.Equal(t, 1, calls)
}
