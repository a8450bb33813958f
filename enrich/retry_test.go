package enrich

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/poiesic/acooeaz/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestRetryWithBackoff_EventualSuccess(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), fastPolicy(5), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithBackoff_AllAttemptsFail(t *testing.T) {
	attempts := 0
	expectedErr := errors.New("persistent error")
	err := RetryWithBackoff(context.Background(), fastPolicy(3), func(context.Context) error {
		attempts++
		return expectedErr
	})
	assert.Equal(t, expectedErr, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithBackoff_ContractViolationIsFinal(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), fastPolicy(3), func(context.Context) error {
		attempts++
		return fmt.Errorf("%w: no trade_names", core.ErrContractViolation)
	})
	assert.ErrorIs(t, err, core.ErrContractViolation)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithBackoff_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := RetryWithBackoff(ctx, fastPolicy(10), func(context.Context) error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("error")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, attempts)
}

func TestRetryWithBackoff_InvalidAttempts(t *testing.T) {
	err := RetryWithBackoff(context.Background(), RetryPolicy{}, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Second, MaxDelay: 3 * time.Second}
	assert.Equal(t, time.Second, p.delay(1))
	assert.Equal(t, 2*time.Second, p.delay(2))
	assert.Equal(t, 3*time.Second, p.delay(3), "capped")

	uncapped := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Second}
	assert.Equal(t, 4*time.Second, uncapped.delay(3))
}
