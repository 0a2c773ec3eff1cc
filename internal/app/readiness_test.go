package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadinessWaiter_PollsUntilReady(t *testing.T) {
	attempts := 0
	var order []string
	w := NewReadinessWaiter(time.Millisecond).
		Add("flaky", func(context.Context) error {
			attempts++
			if attempts < 3 {
				return errors.New("connection refused")
			}
			order = append(order, "flaky")
			return nil
		}).
		Add("steady", func(context.Context) error {
			order = append(order, "steady")
			return nil
		})

	require.NoError(t, w.WaitForDependencies(context.Background()))
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []string{"flaky", "steady"}, order)
}

func TestReadinessWaiter_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	w := NewReadinessWaiter(time.Millisecond).Add("down", func(context.Context) error {
		return errors.New("down")
	})
	assert.ErrorIs(t, w.WaitForDependencies(ctx), context.DeadlineExceeded)
}

func TestKafkaCheck_NoBrokers(t *testing.T) {
	assert.Error(t, KafkaCheck(nil, "movie_articles")(context.Background()))
}
