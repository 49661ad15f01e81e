package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passing(name string) Checker {
	return CheckerFunc{CheckName: name, Fn: func(ctx context.Context) error { return nil }}
}

func failing(name string) Checker {
	return CheckerFunc{CheckName: name, Fn: func(ctx context.Context) error {
		return errors.New("unreachable")
	}}
}

func TestAggregator_AllHealthy(t *testing.T) {
	agg := NewAggregator(time.Second)
	agg.Register(passing("database"))
	agg.Register(passing("state_store"))

	resp := agg.Check(context.Background())
	require.True(t, resp.IsHealthy())
	assert.Len(t, resp.Checks, 2)
	assert.Equal(t, StatusHealthy, resp.Checks["database"].Status)
}

func TestAggregator_OneFailureIsUnhealthy(t *testing.T) {
	agg := NewAggregator(time.Second)
	agg.Register(passing("database"))
	agg.Register(failing("state_store"))

	resp := agg.Check(context.Background())
	assert.False(t, resp.IsHealthy())
	assert.Equal(t, StatusUnhealthy, resp.Status)
	assert.Equal(t, "unreachable", resp.Checks["state_store"].Error)
	assert.Equal(t, StatusHealthy, resp.Checks["database"].Status)
}

func TestAggregator_NoChecksIsHealthy(t *testing.T) {
	agg := NewAggregator(0)
	resp := agg.Check(context.Background())
	assert.True(t, resp.IsHealthy())
}

func TestAggregator_TimeoutPropagates(t *testing.T) {
	agg := NewAggregator(50 * time.Millisecond)
	agg.Register(CheckerFunc{CheckName: "slow", Fn: func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return nil
		}
	}})

	resp := agg.Check(context.Background())
	assert.False(t, resp.IsHealthy())
}
