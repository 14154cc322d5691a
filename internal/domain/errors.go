package domain

import "errors"

var (
	// ErrConnectionFailed means the venue was unreachable or timed out.
	// Transient; aborts the current cycle only.
	ErrConnectionFailed = errors.New("venue connection failed")
	// ErrVenueError means the venue responded but rejected or errored the
	// call (non-2xx status or an error payload).
	ErrVenueError = errors.New("venue returned error")
	// ErrInsufficientFunds means the local pre-trade balance check failed.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrOrderRejected means the venue declined the order itself.
	ErrOrderRejected = errors.New("order rejected")
	// ErrLotSizeTooSmall means the computed volume is below the tradable
	// minimum for the venue pair.
	ErrLotSizeTooSmall = errors.New("volume below minimum lot size")
	// ErrHalted means the solvency guard tripped and the engine is in its
	// terminal halted state.
	ErrHalted = errors.New("engine halted by solvency guard")
)
