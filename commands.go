package xypower

import (
	"fmt"
	"math"
)

// SetVoltageAndCurrent programs both set-points. Both values are
// validated against the supply's limits before anything is written, so an
// impossible request costs no bus traffic. The voltage register is
// written first; the current register only after the voltage write was
// confirmed.
func (c *Controller) SetVoltageAndCurrent(voltage, current float64) error {
	if err := c.validateVoltage(voltage); err != nil {
		return err
	}
	if err := validateCurrent(current); err != nil {
		return err
	}
	if err := c.WriteSingleRegister(RegVoltageSet, uint16(math.Round(voltage*100))); err != nil {
		return fmt.Errorf("xypower: set voltage: %w", err)
	}
	if err := c.WriteSingleRegister(RegCurrentSet, uint16(math.Round(current*1000))); err != nil {
		return fmt.Errorf("xypower: set current: %w", err)
	}
	c.infof("set-points written: %.2fV %.3fA", voltage, current)
	return nil
}

// validateVoltage checks v against the last measured input voltage. A
// buck converter cannot exceed its input; while that input is still
// unknown (0 V) no bound holds, so the request is rejected outright.
func (c *Controller) validateVoltage(v float64) error {
	if v < 0 {
		return fmt.Errorf("%w: voltage %.2fV is negative", ErrInvalidArgument, v)
	}
	vin := c.Snapshot().VoltageIn
	if vin <= 0 {
		return ErrInputVoltageUnknown
	}
	if v > vin {
		return fmt.Errorf("%w: voltage %.2fV above input %.2fV", ErrInvalidArgument, v, vin)
	}
	return nil
}

func validateCurrent(i float64) error {
	if i < 0 || i > MaxCurrent {
		return fmt.Errorf("%w: current %.3fA out of range 0-%.1fA", ErrInvalidArgument, i, MaxCurrent)
	}
	return nil
}

func boolToReg(on bool) uint16 {
	if on {
		return 1
	}
	return 0
}

// SetOutputSwitch turns the output stage on or off.
func (c *Controller) SetOutputSwitch(on bool) error {
	return c.WriteSingleRegister(RegOutputSwitch, boolToReg(on))
}

// SetBeepSwitch enables or disables the key beeper.
func (c *Controller) SetBeepSwitch(on bool) error {
	return c.WriteSingleRegister(RegBeeper, boolToReg(on))
}

// SetKeyLock locks or unlocks the front panel keys.
func (c *Controller) SetKeyLock(locked bool) error {
	return c.WriteSingleRegister(RegKeyLock, boolToReg(locked))
}

// SetSleepMode enables or disables the display sleep timer.
func (c *Controller) SetSleepMode(on bool) error {
	return c.WriteSingleRegister(RegSleepDelay, boolToReg(on))
}

// SetBacklight sets the display brightness, 0 (dimmest) through 5.
func (c *Controller) SetBacklight(level int) error {
	if level < 0 || level > 5 {
		return fmt.Errorf("%w: backlight level %d out of range 0-5", ErrInvalidArgument, level)
	}
	return c.WriteSingleRegister(RegBacklight, uint16(level))
}
