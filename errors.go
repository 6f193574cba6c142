package xypower

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Controller operations. Returned errors wrap
// one of these with operation context; match with errors.Is.
var (
	// ErrClosed is returned for any operation on a Controller that was
	// never opened or has been closed.
	ErrClosed = errors.New("xypower: connection closed")

	// ErrBusy is returned when the bus transaction lock could not be
	// acquired within Config.LockTimeout. Nothing was written to the bus;
	// the caller can simply retry on its next cycle.
	ErrBusy = errors.New("xypower: bus transaction in progress")

	// ErrNoResponse is returned when the device sent nothing at all
	// within Config.ResponseTimeout.
	ErrNoResponse = errors.New("xypower: no response from device")

	// ErrInvalidResponse is returned when bytes arrived but failed
	// length, address, function, byte count, CRC or echo validation.
	ErrInvalidResponse = errors.New("xypower: invalid response")

	// ErrInvalidArgument is returned when a request is rejected before
	// any wire traffic, e.g. a set-point outside the permitted range.
	ErrInvalidArgument = errors.New("xypower: invalid argument")
)

// ErrInputVoltageUnknown rejects set-point validation while the supply's
// input voltage is still unknown (0 V); every bound check against it would
// be meaningless. Matches ErrInvalidArgument.
var ErrInputVoltageUnknown = fmt.Errorf("%w: input voltage unknown, refresh device data first", ErrInvalidArgument)
