package knee

import "errors"

var (
	// ErrUnknownState indicates a value outside the five gait states.
	ErrUnknownState = errors.New("knee: unknown gait state")

	// ErrInvalidTable indicates a parameter table that cannot drive the controller.
	ErrInvalidTable = errors.New("knee: invalid state parameter table")
)
