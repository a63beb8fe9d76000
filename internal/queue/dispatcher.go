package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"golang.org/x/time/rate"

	"newsflow/internal/config"
	"newsflow/internal/ports"
)

const (
	publishRetryBase = 5 * time.Second
	publishTimeout   = 30 * time.Second
)

// Dispatcher is the single publishing loop: it releases non-urgent entries
// with a uniform random delay in [minDelay, maxDelay] and urgent entries
// immediately, subject only to the channel's own rate limit. Exactly one
// publish is in flight at a time.
type Dispatcher struct {
	queue     *Queue
	publisher ports.Publisher
	published ports.PublishedStore
	clock     ports.Clock
	limiter   *rate.Limiter
	logger    *slog.Logger

	minDelay    time.Duration
	maxDelay    time.Duration
	maxAttempts int

	jitterFn func() time.Duration
}

// NewDispatcher wires the loop; clock may be nil for wall-clock time.
func NewDispatcher(cfg config.PostingConfig, q *Queue, publisher ports.Publisher, published ports.PublishedStore, clock ports.Clock, logger *slog.Logger) *Dispatcher {
	if clock == nil {
		clock = RealClock{}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if gap := cfg.MinGap(); gap > 0 {
		limiter = rate.NewLimiter(rate.Every(gap), 1)
	}

	d := &Dispatcher{
		queue:       q,
		publisher:   publisher,
		published:   published,
		clock:       clock,
		limiter:     limiter,
		logger:      logger,
		minDelay:    cfg.MinDelay(),
		maxDelay:    cfg.MaxDelay(),
		maxAttempts: cfg.MaxAttempts,
	}
	d.jitterFn = d.uniformJitter
	return d
}

// Run drives the loop until the context is canceled. An in-flight publish
// is allowed to finish on shutdown; unpublished backlog is discarded (the
// published-id store makes the next run safe).
func (d *Dispatcher) Run(ctx context.Context) error {
	var paceUntil time.Time

	for {
		entry, ok := d.queue.Pop()
		if !ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-d.queue.Notify():
				continue
			}
		}

		if !entry.Result.Urgent {
			if now := d.clock.Now(); now.Before(paceUntil) {
				select {
				case <-ctx.Done():
					d.requeue(entry)
					return ctx.Err()
				case <-d.clock.After(paceUntil.Sub(now)):
				case <-d.queue.Urgent():
					// An urgent entry arrived mid-wait; put this one back
					// and let the heap surface the urgent entry first.
					d.requeue(entry)
					continue
				}
			}
		}

		if err := d.limiter.Wait(ctx); err != nil {
			d.requeue(entry)
			return err
		}

		if err := d.publishWithRetry(ctx, entry); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			d.logger.Error("entry dropped after failed publish",
				"item", entry.Item.ID, "source", entry.Item.SourceTag, "reason", err)
			continue
		}

		if !entry.Result.Urgent {
			paceUntil = d.clock.Now().Add(d.jitterFn())
		}
	}
}

// requeue puts a popped entry back and records the outcome: a backlog that
// refilled while the entry was held may reject or displace on its behalf.
func (d *Dispatcher) requeue(entry Entry) {
	outcome := d.queue.Requeue(entry)
	if !outcome.Accepted {
		d.logger.Warn("entry dropped on requeue",
			"item", entry.Item.ID, "source", entry.Item.SourceTag, "reason", outcome.DropReason)
		return
	}
	if outcome.Evicted != nil {
		d.logger.Warn("backlog entry evicted on requeue",
			"item", outcome.Evicted.Item.ID, "evicted_by", entry.Item.ID)
	}
}

func (d *Dispatcher) publishWithRetry(ctx context.Context, entry Entry) error {
	backoff := publishRetryBase

	for attempt := 1; ; attempt++ {
		// The send itself is detached from cancellation so shutdown never
		// truncates a message; the timeout bounds how long draining takes.
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		err := d.publisher.Publish(sendCtx, entry.Item, entry.Result)
		cancel()

		if err == nil {
			d.markPublished(ctx, entry)
			d.logger.Info("published",
				"item", entry.Item.ID, "source", entry.Item.SourceTag,
				"tier", entry.Result.Tier, "urgent", entry.Result.Urgent)
			return nil
		}

		if attempt >= d.maxAttempts {
			return fmt.Errorf("giving up after %d attempts: %w", attempt, err)
		}

		wait := backoff
		var limited *ports.RateLimitedError
		if errors.As(err, &limited) && limited.RetryAfter > 0 {
			wait = limited.RetryAfter
		}

		d.logger.Warn("publish failed, retrying",
			"item", entry.Item.ID, "attempt", attempt, "wait", wait, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.clock.After(wait):
		}
		backoff *= 2
	}
}

func (d *Dispatcher) markPublished(ctx context.Context, entry Entry) {
	if d.published == nil {
		return
	}

	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := d.published.MarkPublished(storeCtx, entry.Item); err != nil {
		d.logger.Error("failed to record published id",
			"item", entry.Item.ID, "error", err)
	}
}

func (d *Dispatcher) uniformJitter() time.Duration {
	span := d.maxDelay - d.minDelay
	if span <= 0 {
		return d.minDelay
	}
	return d.minDelay + time.Duration(rand.Int63n(int64(span)+1))
}

// RealClock is the wall-clock implementation of ports.Clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
