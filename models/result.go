package models

import (
	"fmt"
	"strconv"
	"time"
)

// Status is the persisted verdict of a check.
type Status string

const (
	StatusPassed Status = "PASSED"
	StatusFailed Status = "FAILED"
)

// TestResult is one row of the test_results table. Timestamp is assigned by
// the store on insert and only populated on reads.
type TestResult struct {
	Name      string
	Status    Status
	Details   string
	Timestamp time.Time
}

// Outcome is the terminal state of a single check execution.
type Outcome string

const (
	OutcomePassed  Outcome = "passed"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// Result is what a check returns to the runner.
type Result struct {
	Check    string
	Outcome  Outcome
	Details  string
	Err      error
	Duration time.Duration
}

// Pass builds a passed result.
func Pass(details string) Result {
	return Result{Outcome: OutcomePassed, Details: details}
}

// Fail builds a failed result whose details are the error message.
func Fail(err error) Result {
	return Result{Outcome: OutcomeFailed, Details: err.Error(), Err: err}
}

// Skip builds a skipped result. Skipped results are never recorded.
func Skip(reason string) Result {
	return Result{Outcome: OutcomeSkipped, Details: reason}
}

// Status maps a non-skipped outcome to its persisted status.
func (r Result) Status() Status {
	if r.Outcome == OutcomePassed {
		return StatusPassed
	}
	return StatusFailed
}

// StorageTarget selects which relational store(s) receive each TestResult.
type StorageTarget int

const (
	TargetPrimary StorageTarget = iota
	TargetSecondary
	TargetBoth
)

func (t StorageTarget) String() string {
	switch t {
	case TargetPrimary:
		return "primary"
	case TargetSecondary:
		return "secondary"
	case TargetBoth:
		return "both"
	default:
		return "unknown(" + strconv.Itoa(int(t)) + ")"
	}
}

// Primary reports whether the primary store is selected.
func (t StorageTarget) Primary() bool { return t == TargetPrimary || t == TargetBoth }

// Secondary reports whether the secondary store is selected.
func (t StorageTarget) Secondary() bool { return t == TargetSecondary || t == TargetBoth }

// ParseStorageTarget parses the STORAGE_TARGET value. Anything other than
// 0, 1 or 2 is a configuration error.
func ParseStorageTarget(v string) (StorageTarget, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, NewConfigurationError(
			fmt.Sprintf("unsupported STORAGE_TARGET %q: use 0 (primary), 1 (secondary) or 2 (both)", v),
			err,
		)
	}
	t := StorageTarget(n)
	if t < TargetPrimary || t > TargetBoth {
		return 0, NewConfigurationError(
			fmt.Sprintf("unsupported STORAGE_TARGET %d: use 0 (primary), 1 (secondary) or 2 (both)", n),
			nil,
		)
	}
	return t, nil
}
