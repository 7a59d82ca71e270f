package runinput_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/dyluth/parley/internal/metrics"
	"github.com/dyluth/parley/pkg/runinput"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoller_NeverReturnsARecordTwice(t *testing.T) {
	ctx := context.Background()
	sender, recipient := newPair(t)
	_, err := recipient.PublishKeyset(ctx, "", approvalInput)
	require.NoError(t, err)

	_, err = runinput.Send(ctx, sender, approvalInput, Approval{Approved: true}, recipient.RunID())
	require.NoError(t, err)

	poller := runinput.Receive(recipient, approvalInput, runinput.WithTimeout(0))

	env, err := poller.Next(ctx)
	require.NoError(t, err)
	assert.True(t, env.Value.Approved)

	// The record is still in the store but this poller has seen it
	_, err = poller.Next(ctx)
	assert.ErrorIs(t, err, runinput.ErrTimeout)

	t.Run("a fresh poller starts over", func(t *testing.T) {
		other := runinput.Receive(recipient, approvalInput, runinput.WithTimeout(0))
		again, err := other.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, env.Key, again.Key)
	})
}

func TestPoller_ReturnsInCreationOrder(t *testing.T) {
	ctx := context.Background()
	sender, recipient := newPair(t)
	greeting := uniqueInput[Greeting](t, "Greeting")
	_, err := recipient.PublishKeyset(ctx, "", greeting)
	require.NoError(t, err)

	for _, msg := range []string{"one", "two", "three"} {
		_, err := runinput.Send(ctx, sender, greeting, Greeting{Message: msg}, recipient.RunID())
		require.NoError(t, err)
	}

	poller := runinput.Receive(recipient, greeting, runinput.WithTimeout(0))
	var got []string
	for env, err := range poller.All(ctx) {
		require.NoError(t, err)
		got = append(got, env.Value.Message)
	}
	assert.Equal(t, []string{"one", "two", "three"}, got)

	name := greeting.Name()
	assert.Equal(t, 3.0, promtest.ToFloat64(metrics.InputsReceived.WithLabelValues(name)))
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.PollTimeouts.WithLabelValues(name)))
	assert.Equal(t, 4.0, promtest.ToFloat64(metrics.PollQueries.WithLabelValues(name)))
}

func TestPoller_TimesOut(t *testing.T) {
	ctx := context.Background()
	_, recipient := newPair(t)
	_, err := recipient.PublishKeyset(ctx, "", approvalInput)
	require.NoError(t, err)

	poller := runinput.Receive(recipient, approvalInput,
		runinput.WithTimeout(100*time.Millisecond),
		runinput.WithPollInterval(20*time.Millisecond))

	start := time.Now()
	_, err = poller.Next(ctx)
	elapsed := time.Since(start)

	assert.True(t, runinput.IsTimeout(err))
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, 500*time.Millisecond)
}

func TestPoller_PicksUpLateArrivals(t *testing.T) {
	ctx := context.Background()
	sender, recipient := newPair(t)
	_, err := recipient.PublishKeyset(ctx, "", approvalInput)
	require.NoError(t, err)

	poller := runinput.Receive(recipient, approvalInput,
		runinput.WithTimeout(2*time.Second),
		runinput.WithPollInterval(10*time.Millisecond))

	sent := make(chan error, 1)
	time.AfterFunc(50*time.Millisecond, func() {
		_, err := runinput.Send(ctx, sender, approvalInput, Approval{Reason: "late"}, recipient.RunID())
		sent <- err
	})

	start := time.Now()
	env, err := poller.Next(ctx)
	require.NoError(t, err)
	require.NoError(t, <-sent)
	assert.Equal(t, "late", env.Value.Reason)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPoller_InitialDelayPolicy(t *testing.T) {
	assert.Equal(t, 5*time.Second, runinput.HalfTimeoutCapped(10*time.Second, 30*time.Second))
	assert.Equal(t, 10*time.Second, runinput.HalfTimeoutCapped(time.Hour, 10*time.Second))
	assert.Equal(t, time.Millisecond, runinput.FixedDelay(time.Millisecond)(time.Hour, time.Minute))

	t.Run("custom policy governs the first re-check", func(t *testing.T) {
		ctx := context.Background()
		sender, recipient := newPair(t)
		_, err := recipient.PublishKeyset(ctx, "", approvalInput)
		require.NoError(t, err)

		// The default policy would first re-check after five seconds
		poller := runinput.Receive(recipient, approvalInput,
			runinput.WithTimeout(10*time.Second),
			runinput.WithPollInterval(time.Hour),
			runinput.WithInitialDelay(runinput.FixedDelay(100*time.Millisecond)))

		time.AfterFunc(20*time.Millisecond, func() {
			_, _ = runinput.Send(ctx, sender, approvalInput, Approval{Approved: true}, recipient.RunID())
		})

		start := time.Now()
		env, err := poller.Next(ctx)
		require.NoError(t, err)
		assert.True(t, env.Value.Approved)
		assert.Less(t, time.Since(start), 2*time.Second)
	})
}

func TestPoller_ContextCancellation(t *testing.T) {
	_, recipient := newPair(t)
	_, err := recipient.PublishKeyset(context.Background(), "", approvalInput)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	poller := runinput.Receive(recipient, approvalInput,
		runinput.WithTimeout(time.Hour),
		runinput.WithPollInterval(10*time.Millisecond))

	_, err = poller.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPoller_UnknownInputType(t *testing.T) {
	ctx := context.Background()
	_, recipient := newPair(t)
	_, err := recipient.PublishKeyset(ctx, "", approvalInput)
	require.NoError(t, err)

	greeting := uniqueInput[Greeting](t, "Greeting")
	_, err = runinput.Receive(recipient, greeting, runinput.WithTimeout(0)).Next(ctx)

	var unknown *runinput.UnknownInputTypeError
	assert.True(t, errors.As(err, &unknown))
}

func TestPoller_InvalidRecord(t *testing.T) {
	ctx := context.Background()
	sender, recipient := newPair(t)
	keysets, err := recipient.PublishKeyset(ctx, "", approvalInput)
	require.NoError(t, err)

	bad := keysets["Approval"].Response + "-bad"
	require.NoError(t, recipient.CreateInput(ctx, bad,
		json.RawMessage(`{"value":{"approved":true,"root":true},"sending_flow_run_id":null}`), ""))
	_, err = runinput.Send(ctx, sender, approvalInput, Approval{Approved: true}, recipient.RunID())
	require.NoError(t, err)

	poller := runinput.Receive(recipient, approvalInput, runinput.WithTimeout(0))

	_, err = poller.Next(ctx)
	require.True(t, runinput.IsValidationError(err))
	assert.Contains(t, err.Error(), bad)
	assert.True(t, poller.Consumed(bad))

	// The bad record does not block the channel
	env, err := poller.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, sender.RunID(), env.SendingRunID)
}

func TestPoller_MissingEnvelopeValue(t *testing.T) {
	ctx := context.Background()
	_, recipient := newPair(t)
	keysets, err := recipient.PublishKeyset(ctx, "", approvalInput)
	require.NoError(t, err)

	require.NoError(t, recipient.CreateInput(ctx, keysets["Approval"].Response+"-x",
		json.RawMessage(`{"sending_flow_run_id":"someone"}`), ""))

	_, err = runinput.Receive(recipient, approvalInput, runinput.WithTimeout(0)).Next(ctx)

	var ve *runinput.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "value", ve.Problems[0].Field)
}

func TestPoller_All(t *testing.T) {
	ctx := context.Background()

	t.Run("ends quietly on timeout", func(t *testing.T) {
		_, recipient := newPair(t)
		_, err := recipient.PublishKeyset(ctx, "", approvalInput)
		require.NoError(t, err)

		count := 0
		for range runinput.Receive(recipient, approvalInput, runinput.WithTimeout(0)).All(ctx) {
			count++
		}
		assert.Zero(t, count)
	})

	t.Run("yields the timeout when asked to", func(t *testing.T) {
		_, recipient := newPair(t)
		_, err := recipient.PublishKeyset(ctx, "", approvalInput)
		require.NoError(t, err)

		var errs []error
		poller := runinput.Receive(recipient, approvalInput,
			runinput.WithTimeout(0),
			runinput.WithRaiseTimeoutError(true))
		for _, err := range poller.All(ctx) {
			errs = append(errs, err)
		}
		require.Len(t, errs, 1)
		assert.ErrorIs(t, errs[0], runinput.ErrTimeout)
	})

	t.Run("stops when the caller breaks", func(t *testing.T) {
		sender, recipient := newPair(t)
		_, err := recipient.PublishKeyset(ctx, "", approvalInput)
		require.NoError(t, err)
		for i := 0; i < 3; i++ {
			_, err := runinput.Send(ctx, sender, approvalInput, Approval{}, recipient.RunID())
			require.NoError(t, err)
		}

		poller := runinput.Receive(recipient, approvalInput, runinput.WithTimeout(0))
		for range poller.All(ctx) {
			break
		}

		// Two records remain for the next iteration
		remaining := 0
		for range poller.All(ctx) {
			remaining++
		}
		assert.Equal(t, 2, remaining)
	})
}

func TestPoller_Subscribe(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers events", func(t *testing.T) {
		sender, recipient := newPair(t)
		_, err := recipient.PublishKeyset(ctx, "", approvalInput)
		require.NoError(t, err)

		sub := runinput.Receive(recipient, approvalInput,
			runinput.WithTimeout(time.Second),
			runinput.WithPollInterval(10*time.Millisecond)).Subscribe(ctx)
		defer sub.Close()

		_, err = runinput.Send(ctx, sender, approvalInput, Approval{Reason: "async"}, recipient.RunID())
		require.NoError(t, err)

		select {
		case env := <-sub.Events():
			require.NotNil(t, env)
			assert.Equal(t, "async", env.Value.Reason)
		case err := <-sub.Errors():
			t.Fatalf("unexpected error: %v", err)
		case <-time.After(2 * time.Second):
			t.Fatal("Timeout waiting for event")
		}
	})

	t.Run("reports timeout when asked to", func(t *testing.T) {
		_, recipient := newPair(t)
		_, err := recipient.PublishKeyset(ctx, "", approvalInput)
		require.NoError(t, err)

		sub := runinput.Receive(recipient, approvalInput,
			runinput.WithTimeout(20*time.Millisecond),
			runinput.WithPollInterval(5*time.Millisecond),
			runinput.WithRaiseTimeoutError(true)).Subscribe(ctx)
		defer sub.Close()

		select {
		case err := <-sub.Errors():
			assert.ErrorIs(t, err, runinput.ErrTimeout)
		case <-time.After(2 * time.Second):
			t.Fatal("Timeout waiting for error")
		}

		_, open := <-sub.Events()
		assert.False(t, open)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		_, recipient := newPair(t)
		_, err := recipient.PublishKeyset(ctx, "", approvalInput)
		require.NoError(t, err)

		sub := runinput.Receive(recipient, approvalInput, runinput.WithTimeout(time.Hour)).Subscribe(ctx)
		assert.NoError(t, sub.Close())
		assert.NoError(t, sub.Close())

		_, open := <-sub.Events()
		assert.False(t, open)
		_, open = <-sub.Errors()
		assert.False(t, open)
	})
}
