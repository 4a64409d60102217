// Package retry provides composable strategies for retrying fallible
// actions, such as RPC submissions against congested nodes.
package retry

// Action is a function that can be retried.
type Action func() error

// Retrier retries actions using a fixed set of strategies.
type Retrier interface {
	Retry(action Action) (uint, error)
}

type retrier struct {
	strategies []Strategy
}

// NewRetrier returns a Retrier bound to the provided strategies. With no
// strategies the retrier loops until the action succeeds.
func NewRetrier(strategies ...Strategy) Retrier {
	return &retrier{
		strategies: strategies,
	}
}

func (r *retrier) Retry(action Action) (uint, error) {
	return Retry(action, r.strategies...)
}

// Retry executes the action until it succeeds or any strategy declines a
// further attempt, returning the number of attempts made.
//
// Strategies run in the provided order on every failure, so strategies
// that sleep should be placed after strategies that filter.
func Retry(action Action, strategies ...Strategy) (uint, error) {
	for i := uint(1); ; i++ {
		err := action()
		if err == nil {
			return i, nil
		}

		for _, s := range strategies {
			if !s(i, err) {
				return i, err
			}
		}
	}
}
