package models

import (
	"errors"
	"fmt"
)

// ErrInsufficientData is returned when a computation does not have enough
// bars (or overlapping dates) to proceed.
var ErrInsufficientData = errors.New("insufficient data")

// ErrUnsortedSeries is returned when a Series violates the ordering invariant.
var ErrUnsortedSeries = errors.New("series is not strictly increasing by date")

// InsufficientDataError describes which computation lacked data.
type InsufficientDataError struct {
	Op   string
	Need int
	Have int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: insufficient data: need %d, have %d", e.Op, e.Need, e.Have)
}

// Unwrap lets errors.Is match ErrInsufficientData.
func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }

// ComputationError wraps an unexpected fault recovered at a component boundary.
type ComputationError struct {
	Component string
	Cause     any
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("%s: computation failed: %v", e.Component, e.Cause)
}

// Unwrap returns the cause when it is an error.
func (e *ComputationError) Unwrap() error {
	if err, ok := e.Cause.(error); ok {
		return err
	}
	return nil
}
