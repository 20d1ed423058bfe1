package validation

import (
	"context"
	"errors"

	"go.uber.org/multierr"
)

// ErrSkipped marks checks a fail-fast run never reached.
var ErrSkipped = errors.New("not run")

// Chain is an ordered list of checks.
type Chain struct {
	checks []Check
}

// NewChain builds a Chain that runs checks in the given order.
func NewChain(checks ...Check) *Chain {
	return &Chain{checks: checks}
}

// Len returns the number of checks.
func (c *Chain) Len() int { return len(c.checks) }

// Run executes the checks and returns one Result per check. In FailFast mode
// the first failure is returned unchanged so typed errors survive; checks
// after it are reported as skipped. In CollectAll mode every check runs and
// the failures are combined. A cancelled context stops either mode.
func (c *Chain) Run(ctx context.Context, mode Mode) ([]Result, error) {
	results := make([]Result, 0, len(c.checks))
	var combined error

	for i, check := range c.checks {
		if err := ctx.Err(); err != nil {
			return append(results, skipped(c.checks[i:])...), err
		}

		result := Result{Check: check.Name}
		if err := check.Run(ctx); err != nil {
			result.Message = err.Error()
			result.Err = err
			results = append(results, result)

			if mode == FailFast {
				return append(results, skipped(c.checks[i+1:])...), err
			}
			combined = multierr.Append(combined, err)
			continue
		}

		result.Passed = true
		result.Message = "passed"
		results = append(results, result)
	}

	return results, combined
}

func skipped(checks []Check) []Result {
	out := make([]Result, len(checks))
	for i, check := range checks {
		out[i] = Result{Check: check.Name, Message: ErrSkipped.Error(), Err: ErrSkipped}
	}
	return out
}
