package service

import "errors"

var (
	// ErrQueueFull is returned when the detection queue rejects a request.
	ErrQueueFull = errors.New("detection queue is full")

	// ErrTimeout is returned when a detection request exceeds its deadline.
	ErrTimeout = errors.New("detection timed out")
)
