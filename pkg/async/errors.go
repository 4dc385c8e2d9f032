package async

import "errors"

// ErrTimeout is returned when an operation exceeds its time budget.
var ErrTimeout = errors.New("async: operation timed out")
