package domain

import "errors"

// ErrExecutionTimeout is returned by script executors when a run exceeds its time limit.
var ErrExecutionTimeout = errors.New("script execution timed out")
