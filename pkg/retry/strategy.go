package retry

import (
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/DecentraGuild/escrow-go/pkg/retry/backoff"
)

// Strategy decides whether a failed action should be attempted again.
// A strategy may sleep or produce other side effects before answering.
type Strategy func(attempts uint, err error) bool

// Limit returns a strategy that caps the total number of attempts.
// maxAttempts should be >= 1, since the action always runs once.
func Limit(maxAttempts uint) Strategy {
	return func(attempts uint, err error) bool {
		return attempts < maxAttempts
	}
}

// RetriableErrors returns a strategy that only permits retries for the
// provided errors. Wrapped errors are matched via errors.Is.
func RetriableErrors(retriableErrors ...error) Strategy {
	return func(attempts uint, err error) bool {
		for _, e := range retriableErrors {
			if errors.Is(err, e) {
				return true
			}
		}

		return false
	}
}

// NonRetriableErrors returns a strategy that halts retries for the
// provided errors. Wrapped errors are matched via errors.Is.
func NonRetriableErrors(nonRetriableErrors ...error) Strategy {
	return func(attempts uint, err error) bool {
		for _, e := range nonRetriableErrors {
			if errors.Is(err, e) {
				return false
			}
		}

		return true
	}
}

// Backoff returns a strategy that sleeps before the next attempt, with
// the delay chosen by the backoff strategy and capped at maxBackoff.
func Backoff(strategy backoff.Strategy, maxBackoff time.Duration) Strategy {
	return func(attempts uint, err error) bool {
		delay := strategy(attempts)
		cappedDelay := time.Duration(math.Min(float64(maxBackoff), float64(delay)))
		sleeperImpl.Sleep(cappedDelay)
		return true
	}
}

// BackoffWithJitter behaves like Backoff, with the final delay spread
// uniformly across a window around the capped delay. The jitter parameter
// is the half-width of that window as a fraction of the delay: a capped
// delay of 100ms with jitter 0.1 sleeps 100ms +/- 10ms.
func BackoffWithJitter(strategy backoff.Strategy, maxBackoff time.Duration, jitter float64) Strategy {
	return func(attempts uint, err error) bool {
		delay := strategy(attempts)
		cappedDelay := time.Duration(math.Min(float64(maxBackoff), float64(delay)))

		cappedDelayWithJitter := time.Duration(float64(cappedDelay) * (1 + (rand.Float64()*jitter*2 - jitter)))
		sleeperImpl.Sleep(cappedDelayWithJitter)
		return true
	}
}

type sleeper interface {
	Sleep(time.Duration)
}

type realSleeper struct{}

func (r *realSleeper) Sleep(d time.Duration) { time.Sleep(d) }

// sleeperImpl is swapped out in tests to observe sleep durations.
var sleeperImpl sleeper = &realSleeper{}
