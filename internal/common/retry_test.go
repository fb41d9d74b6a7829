package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/ecolens/internal/service"
)

var fastRetry = service.RetryOptions{
	MaxAttempts:  3,
	InitialDelay: time.Millisecond,
	MaxDelay:     5 * time.Millisecond,
	Multiplier:   2,
}

func TestWithRetry(t *testing.T) {
	transient := errors.New("connection reset")

	tests := []struct {
		name      string
		errs      []error
		wantErr   error
		wantCalls int
	}{
		{name: "first try", errs: []error{nil}, wantCalls: 1},
		{name: "recovers", errs: []error{transient, transient, nil}, wantCalls: 3},
		{name: "exhausted", errs: []error{transient, transient, transient}, wantErr: ErrMaxRetries, wantCalls: 3},
		{
			name:      "permanent failure stops",
			errs:      []error{&RetryableError{Err: transient, Retryable: false}},
			wantErr:   transient,
			wantCalls: 1,
		},
		{name: "canceled stops", errs: []error{context.Canceled}, wantErr: context.Canceled, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := WithRetry(context.Background(), func() error {
				err := tt.errs[calls]
				calls++
				return err
			}, fastRetry)

			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestWithRetry_ContextCanceledWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	opts := fastRetry
	opts.InitialDelay = time.Hour
	opts.MaxDelay = time.Hour

	err := WithRetry(ctx, func() error {
		cancel()
		return errors.New("unavailable")
	}, opts)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoff(t *testing.T) {
	opts := normalizeRetry(service.RetryOptions{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second})

	assert.Equal(t, 100*time.Millisecond, backoff(opts, 1, errors.New("x")))
	assert.Equal(t, 400*time.Millisecond, backoff(opts, 3, errors.New("x")))
	assert.Equal(t, time.Second, backoff(opts, 10, errors.New("x")))
	assert.Equal(t, time.Second, backoff(opts, 1, ErrRateLimit))
	assert.Equal(t, 3, opts.MaxAttempts)
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(context.DeadlineExceeded))
	assert.True(t, IsRetryable(errors.New("timeout")))
	assert.True(t, IsRetryable(&RetryableError{Err: errors.New("503"), Retryable: true}))
	assert.False(t, IsRetryable(&RetryableError{Err: errors.New("400"), Retryable: false}))
}
