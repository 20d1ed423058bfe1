package validation

import "context"

// Check is one named validation step.
type Check struct {
	Name string
	Run  func(ctx context.Context) error
}

// Result captures the outcome of executing a single check.
type Result struct {
	Check   string
	Passed  bool
	Message string
	Err     error
}

// Mode controls how a Chain reacts to a failing check.
type Mode int

const (
	// FailFast stops at the first failing check and returns its error as is.
	FailFast Mode = iota
	// CollectAll runs every check and combines the failures.
	CollectAll
)
