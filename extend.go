package xypower

import (
	"fmt"
	"time"
)

// EnergyStats holds the supply's accumulating counters. The charge and
// energy words live in adjacent register pairs, low word first.
type EnergyStats struct {
	Charge     uint32        // accumulated charge, mAh
	Energy     uint32        // accumulated energy, mWh
	OutputTime time.Duration // how long the output has been switched on
}

// EnergyStats reads the charge and energy accumulators and the output-on
// timer in a single block.
func (c *Controller) EnergyStats() (EnergyStats, error) {
	regs, err := c.ReadHoldingRegisters(RegAmpHourLow, 7)
	if err != nil {
		return EnergyStats{}, fmt.Errorf("xypower: read energy stats: %w", err)
	}
	return EnergyStats{
		Charge: uint32(regs[1])<<16 | uint32(regs[0]),
		Energy: uint32(regs[3])<<16 | uint32(regs[2]),
		OutputTime: time.Duration(regs[4])*time.Hour +
			time.Duration(regs[5])*time.Minute +
			time.Duration(regs[6])*time.Second,
	}, nil
}

// Temperatures reads the internal and external probe temperatures, in
// whichever unit the supply is configured for (RegTempUnit).
func (c *Controller) Temperatures() (internal, external float64, err error) {
	regs, err := c.ReadHoldingRegisters(RegTempInternal, 2)
	if err != nil {
		return 0, 0, fmt.Errorf("xypower: read temperatures: %w", err)
	}
	return float64(regs[0]) / 10, float64(regs[1]) / 10, nil
}

// DeviceInfo reads the product model and firmware version words.
func (c *Controller) DeviceInfo() (model, version uint16, err error) {
	regs, err := c.ReadHoldingRegisters(RegModel, 2)
	if err != nil {
		return 0, 0, fmt.Errorf("xypower: read device info: %w", err)
	}
	return regs[0], regs[1], nil
}

// ProtectionState reads the supply's protection latch. ProtectionNone
// means normal operation.
func (c *Controller) ProtectionState() (Protection, error) {
	v, err := c.readSingle(RegProtection)
	if err != nil {
		return ProtectionNone, fmt.Errorf("xypower: read protection state: %w", err)
	}
	return Protection(v), nil
}

// RegulationMode reports whether the supply is regulating voltage (CV) or
// current (CC).
func (c *Controller) RegulationMode() (RegulationMode, error) {
	v, err := c.readSingle(RegCVCC)
	if err != nil {
		return ModeConstantVoltage, fmt.Errorf("xypower: read regulation mode: %w", err)
	}
	return RegulationMode(v), nil
}
