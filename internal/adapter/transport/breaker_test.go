package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sugarcrm-client/internal/domain"
	"sugarcrm-client/internal/infra/logger"
)

func TestBreakerPassesThroughBodies(t *testing.T) {
	inner := domain.TransportFunc(func(context.Context, domain.Envelope) ([]byte, error) {
		return []byte("false"), nil
	})
	b := NewBreaker("test", inner, BreakerConfig{MaxFailures: 1}, logger.Discard())

	for i := 0; i < 3; i++ {
		body, err := b.Do(context.Background(), testEnvelope())
		require.NoError(t, err)
		assert.Equal(t, "false", string(body))
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	calls := 0
	inner := domain.TransportFunc(func(context.Context, domain.Envelope) ([]byte, error) {
		calls++
		return nil, domain.NewDomainError("fake", domain.ErrTransport, "refused")
	})
	b := NewBreaker("test", inner, BreakerConfig{MaxFailures: 2, Timeout: time.Minute}, logger.Discard())

	for i := 0; i < 2; i++ {
		_, err := b.Do(context.Background(), testEnvelope())
		require.Error(t, err)
		assert.False(t, errors.Is(err, domain.ErrCircuitOpen))
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, err := b.Do(context.Background(), testEnvelope())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCircuitOpen)
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.Equal(t, domain.CodeCircuitOpen, domain.ErrorCodeOf(err))
	assert.Equal(t, 2, calls, "open circuit must not reach the endpoint")
}

func TestBreakerIgnoresCanceledCalls(t *testing.T) {
	inner := domain.TransportFunc(func(context.Context, domain.Envelope) ([]byte, error) {
		return nil, context.Canceled
	})
	b := NewBreaker("test", inner, BreakerConfig{MaxFailures: 1}, logger.Discard())

	for i := 0; i < 3; i++ {
		_, err := b.Do(context.Background(), testEnvelope())
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
	assert.Equal(t, uint32(0), b.Counts().ConsecutiveFailures)
}
