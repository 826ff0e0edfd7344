package timeline

import "errors"

var (
	ErrValidation        = errors.New("validation failed")
	ErrInvalidTransition = errors.New("invalid milestone transition")
	ErrMilestoneNotFound = errors.New("milestone not found")
	ErrBusy              = errors.New("operation already in progress")
	ErrNotTracking       = errors.New("time tracking is not running")
	ErrClosed            = errors.New("timeline closed")
)
