package validation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

var (
	errFirst  = errors.New("first failed")
	errSecond = errors.New("second failed")
)

func checks(calls *[]string) []Check {
	step := func(name string, err error) Check {
		return Check{Name: name, Run: func(context.Context) error {
			*calls = append(*calls, name)
			return err
		}}
	}
	return []Check{
		step("ok", nil),
		step("first", errFirst),
		step("second", errSecond),
	}
}

func TestChainFailFastStopsAtFirstFailure(t *testing.T) {
	t.Parallel()

	var calls []string
	results, err := NewChain(checks(&calls)...).Run(context.Background(), FailFast)

	require.ErrorIs(t, err, errFirst)
	require.Equal(t, errFirst, err)
	require.Equal(t, []string{"ok", "first"}, calls)
	require.Len(t, results, 3)
	require.True(t, results[0].Passed)
	require.Equal(t, "passed", results[0].Message)
	require.False(t, results[1].Passed)
	require.ErrorIs(t, results[2].Err, ErrSkipped)
}

func TestChainCollectAllAggregatesResults(t *testing.T) {
	t.Parallel()

	var calls []string
	results, err := NewChain(checks(&calls)...).Run(context.Background(), CollectAll)

	require.Error(t, err)
	require.Len(t, multierr.Errors(err), 2)
	require.ErrorIs(t, err, errFirst)
	require.ErrorIs(t, err, errSecond)
	require.Equal(t, []string{"ok", "first", "second"}, calls)

	var failedCount int
	for _, r := range results {
		if !r.Passed {
			failedCount++
			require.NotEmpty(t, r.Message)
		}
	}
	require.Equal(t, 2, failedCount)
}

func TestChainStopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls []string
	results, err := NewChain(checks(&calls)...).Run(ctx, CollectAll)
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, calls)
	require.Len(t, results, 3)
}

func TestChainWithoutChecksPasses(t *testing.T) {
	t.Parallel()

	results, err := NewChain().Run(context.Background(), FailFast)
	require.NoError(t, err)
	require.Empty(t, results)
}
