package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunAggregatesInOrder(t *testing.T) {
	c := NewChecker(time.Second)
	c.Register("segment", func(ctx context.Context) (string, error) {
		time.Sleep(10 * time.Millisecond)
		return "seg_1.ivx", nil
	})
	c.Disabled("redis")
	c.Register("postgres", func(ctx context.Context) (string, error) {
		return "", errors.New("connection refused")
	})

	report := c.Run(context.Background())
	assert.Equal(t, StatusDown, report.Status)
	require.Len(t, report.Results, 3)

	assert.Equal(t, "segment", report.Results[0].Name)
	assert.Equal(t, StatusUp, report.Results[0].Status)
	assert.Equal(t, "seg_1.ivx", report.Results[0].Detail)
	assert.GreaterOrEqual(t, report.Results[0].Latency, 10*time.Millisecond)

	assert.Equal(t, StatusDisabled, report.Results[1].Status)

	assert.Equal(t, StatusDown, report.Results[2].Status)
	assert.Equal(t, "connection refused", report.Results[2].Error)
}

func TestRunAllUp(t *testing.T) {
	c := NewChecker(0)
	c.Register("corpus", func(ctx context.Context) (string, error) { return "", nil })
	c.Disabled("kafka")
	assert.Equal(t, StatusUp, c.Run(context.Background()).Status)
}

func TestCheckTimeout(t *testing.T) {
	c := NewChecker(20 * time.Millisecond)
	c.Register("slow", func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	report := c.Run(context.Background())
	assert.Equal(t, StatusDown, report.Status)
	assert.Contains(t, report.Results[0].Error, "deadline exceeded")
}
