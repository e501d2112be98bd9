package pacer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ClampsInitialToBounds(t *testing.T) {
	l := New(50, 1, 10, 1, 0.5)
	assert.Equal(t, 10.0, l.Limit())

	l = New(0, 0, 5, 1, 0.5)
	assert.Equal(t, 1.0, l.Limit())
}

func TestThrottled_HalvesAndRespectsMinimum(t *testing.T) {
	l := New(8, 1, 10, 1, 0.5)
	l.Throttled()
	assert.Equal(t, 4.0, l.Limit())
	l.Throttled()
	l.Throttled()
	l.Throttled()
	assert.Equal(t, 1.0, l.Limit())
}

func TestSuccess_WaitsForCooldown(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := New(4, 1, 10, 1, 0.5)
	l.now = func() time.Time { return now }

	l.Throttled()
	require.Equal(t, 2.0, l.Limit())

	l.Success()
	assert.Equal(t, 2.0, l.Limit(), "rate must stay flat during cooldown")

	now = now.Add(DefaultCooldown + time.Second)
	l.Success()
	assert.Equal(t, 3.0, l.Limit())
}

func TestSuccess_CapsAtMaximum(t *testing.T) {
	l := New(9, 1, 10, 5, 0.5)
	l.Success()
	assert.Equal(t, 10.0, l.Limit())
}

func TestObserve_ClassifiesErrors(t *testing.T) {
	l := New(8, 1, 10, 1, 0.5)

	l.Observe(errors.New("dial tcp: timeout"))
	assert.Equal(t, 8.0, l.Limit(), "plain errors leave the rate alone")

	l.Observe(fmt.Errorf("infer: %w", &StatusError{Code: 429}))
	assert.Equal(t, 4.0, l.Limit())

	l.Observe(&StatusError{Code: 503})
	assert.Equal(t, 2.0, l.Limit())
}

func TestStatusErrorHelpers(t *testing.T) {
	tests := []struct {
		err         error
		rateLimited bool
		server      bool
	}{
		{&StatusError{Code: 429}, true, false},
		{&StatusError{Code: 500, Body: "boom"}, false, true},
		{&StatusError{Code: 404}, false, false},
		{errors.New("other"), false, false},
		{nil, false, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.rateLimited, IsRateLimited(tt.err), "%v", tt.err)
		assert.Equal(t, tt.server, IsServerError(tt.err), "%v", tt.err)
	}
	assert.Equal(t, "http status 500: boom", (&StatusError{Code: 500, Body: "boom"}).Error())
}

func TestWait_HonoursCancelledContext(t *testing.T) {
	l := New(1, 1, 1, 0, 0.5)
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, l.Wait(ctx))
}
