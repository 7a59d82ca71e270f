package runinput

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/dyluth/parley/internal/metrics"
)

const (
	// DefaultPollTimeout bounds how long one Next call waits.
	DefaultPollTimeout = time.Hour

	// DefaultPollInterval is the re-check cadence while waiting.
	DefaultPollInterval = 10 * time.Second
)

// InitialDelayPolicy decides how long Next sleeps before its first re-check
// after finding nothing.
type InitialDelayPolicy func(timeout, interval time.Duration) time.Duration

// HalfTimeoutCapped waits min(timeout/2, interval). This is the default.
func HalfTimeoutCapped(timeout, interval time.Duration) time.Duration {
	return min(timeout/2, interval)
}

// FixedDelay always waits d.
func FixedDelay(d time.Duration) InitialDelayPolicy {
	return func(time.Duration, time.Duration) time.Duration { return d }
}

type pollOptions struct {
	timeout      time.Duration
	interval     time.Duration
	initialDelay InitialDelayPolicy
	raiseTimeout bool
}

// PollOption configures a Poller.
type PollOption func(*pollOptions)

// WithTimeout bounds the wall-clock time of one Next call. A timeout <= 0
// makes Next check exactly once.
func WithTimeout(d time.Duration) PollOption {
	return func(o *pollOptions) { o.timeout = d }
}

// WithPollInterval sets the re-check cadence.
func WithPollInterval(d time.Duration) PollOption {
	return func(o *pollOptions) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithInitialDelay replaces the first-wait policy.
func WithInitialDelay(policy InitialDelayPolicy) PollOption {
	return func(o *pollOptions) {
		if policy != nil {
			o.initialDelay = policy
		}
	}
}

// WithRaiseTimeoutError makes All yield ErrTimeout instead of ending quietly,
// and makes subscriptions report it on Errors.
func WithRaiseTimeoutError(raise bool) PollOption {
	return func(o *pollOptions) { o.raiseTimeout = raise }
}

// Poller consumes one input type from the client's own run inbox. It never
// returns the same record twice; that guarantee is per Poller and is not
// persisted. A Poller is not safe for concurrent use: run parallel consumers
// on separate pollers and expect possible duplicates across them.
type Poller[T any] struct {
	client *Client
	input  *RunInput[T]
	opts   pollOptions

	keyset   *Keyset
	consumed map[string]struct{}
	excluded []string
}

// Receive creates a poller for input on the client's run.
func Receive[T any](c *Client, input *RunInput[T], opts ...PollOption) *Poller[T] {
	o := pollOptions{
		timeout:      DefaultPollTimeout,
		interval:     DefaultPollInterval,
		initialDelay: HalfTimeoutCapped,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Poller[T]{
		client:   c,
		input:    input,
		opts:     o,
		consumed: make(map[string]struct{}),
	}
}

// Consumed reports whether the poller already returned the record at key.
func (p *Poller[T]) Consumed(key string) bool {
	_, ok := p.consumed[key]
	return ok
}

// Next returns the next unseen input, waiting up to the configured timeout.
// It returns ErrTimeout if nothing arrived and ctx.Err() if ctx ends first.
// A record that fails validation is still marked consumed.
func (p *Poller[T]) Next(ctx context.Context) (*Envelope[T], error) {
	keyset, err := p.resolveKeyset(ctx)
	if err != nil {
		return nil, err
	}

	env, err := p.fetch(ctx, keyset)
	if env != nil || err != nil {
		return env, err
	}
	if p.opts.timeout <= 0 {
		return nil, p.timedOut()
	}

	deadline := time.NewTimer(p.opts.timeout)
	defer deadline.Stop()

	wait := time.NewTimer(p.opts.initialDelay(p.opts.timeout, p.opts.interval))
	defer wait.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-deadline.C:
			return nil, p.timedOut()

		case <-wait.C:
			env, err := p.fetch(ctx, keyset)
			if env != nil || err != nil {
				return env, err
			}
			wait.Reset(p.opts.interval)
		}
	}
}

// All iterates over inputs as they arrive. The sequence ends when a Next call
// times out, unless WithRaiseTimeoutError was set, in which case ErrTimeout is
// yielded first. Any other error is yielded and ends the sequence.
func (p *Poller[T]) All(ctx context.Context) iter.Seq2[*Envelope[T], error] {
	return func(yield func(*Envelope[T], error) bool) {
		for {
			env, err := p.Next(ctx)
			if err != nil {
				if IsTimeout(err) && !p.opts.raiseTimeout {
					return
				}
				yield(nil, err)
				return
			}
			if !yield(env, nil) {
				return
			}
		}
	}
}

// resolveKeyset reads the client's published keyset once per poller.
func (p *Poller[T]) resolveKeyset(ctx context.Context) (Keyset, error) {
	if p.keyset != nil {
		return *p.keyset, nil
	}

	keysets, err := p.client.ReadKeyset(ctx, "")
	if err != nil {
		return Keyset{}, err
	}

	keyset, ok := keysets[p.input.Name()]
	if !ok {
		return Keyset{}, &UnknownInputTypeError{Name: p.input.Name(), RunID: p.client.RunID()}
	}

	p.keyset = &keyset
	return keyset, nil
}

func (p *Poller[T]) fetch(ctx context.Context, keyset Keyset) (*Envelope[T], error) {
	metrics.PollQueries.WithLabelValues(p.input.Name()).Inc()

	records, err := p.client.FilterInputs(ctx, keyset.Response, 1, p.excluded, "")
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	record := records[0]
	p.consumed[record.Key] = struct{}{}
	p.excluded = append(p.excluded, record.Key)

	env, err := decodeEnvelope(p.input, record.Key, record.Value)
	if err != nil {
		return nil, fmt.Errorf("run input '%s': %w", record.Key, err)
	}

	metrics.InputsReceived.WithLabelValues(p.input.Name()).Inc()
	p.client.logger.Info("received run input",
		"input", p.input.Name(),
		"run_id", p.client.RunID(),
		"sending_run_id", env.SendingRunID,
		"key", record.Key,
	)
	return env, nil
}

func (p *Poller[T]) timedOut() error {
	metrics.PollTimeouts.WithLabelValues(p.input.Name()).Inc()
	p.client.logger.Debug("timed out waiting for run input",
		"input", p.input.Name(),
		"run_id", p.client.RunID(),
		"timeout", p.opts.timeout,
	)
	return ErrTimeout
}

// Subscription delivers a poller's inputs on channels from a background
// goroutine. Caller must call Close() when done.
type Subscription[T any] struct {
	events <-chan *Envelope[T]
	errors <-chan error
	cancel func()
	done   <-chan struct{}
	once   sync.Once
}

// Events returns the channel of received envelopes. It is closed when the
// subscription ends.
func (s *Subscription[T]) Events() <-chan *Envelope[T] {
	return s.events
}

// Errors returns the channel carrying the error that ended the subscription,
// if any. Timeouts are only reported with WithRaiseTimeoutError.
func (s *Subscription[T]) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription and waits for the polling goroutine to exit.
// Safe to call multiple times.
func (s *Subscription[T]) Close() error {
	s.once.Do(s.cancel)
	<-s.done
	return nil
}

// Subscribe drives the poller from a goroutine. The poller must not be used
// directly while the subscription is open.
//
// Events are delivered on a buffered channel (size 10).
func (p *Poller[T]) Subscribe(ctx context.Context) *Subscription[T] {
	eventsChan := make(chan *Envelope[T], 10)
	errorsChan := make(chan error, 1)
	done := make(chan struct{})

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(done)
		defer close(errorsChan)
		defer close(eventsChan)

		for env, err := range p.All(subCtx) {
			if err != nil {
				if subCtx.Err() == nil {
					errorsChan <- err
				}
				return
			}

			select {
			case eventsChan <- env:
			case <-subCtx.Done():
				return
			}
		}
	}()

	return &Subscription[T]{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
		done:   done,
	}
}
