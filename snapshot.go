package xypower

import (
	"fmt"
	"time"
)

// DeviceSnapshot is one coherent view of the supply's live state, scaled
// to engineering units. Valid is true only when every read of the refresh
// that produced it succeeded.
type DeviceSnapshot struct {
	VoltageSet float64 // programmed voltage, V
	CurrentSet float64 // programmed current limit, A
	VoltageOut float64 // measured output voltage, V
	CurrentOut float64 // measured output current, A
	PowerOut   float64 // measured output power, W
	VoltageIn  float64 // measured input voltage, V

	OutputOn  bool
	KeyLocked bool
	SleepMode bool
	BeepOn    bool

	Valid     bool
	UpdatedAt time.Time
}

// Refresh reads the six-register measurement block and the four control
// switches and replaces the snapshot in one go. The switch reads are all
// attempted even when one fails, so one dead register does not hide the
// state of the others on the bus. If any read failed the previous
// snapshot stays in place with Valid forced false, so consumers keep the
// last good values but know not to trust them.
func (c *Controller) Refresh() (DeviceSnapshot, error) {
	regs, err := c.ReadHoldingRegisters(RegVoltageSet, 6)
	if err != nil {
		c.invalidateSnapshot()
		return c.Snapshot(), fmt.Errorf("xypower: refresh measurements: %w", err)
	}

	next := DeviceSnapshot{
		VoltageSet: float64(regs[0]) / 100,
		CurrentSet: float64(regs[1]) / 1000,
		VoltageOut: float64(regs[2]) / 100,
		CurrentOut: float64(regs[3]) / 1000,
		PowerOut:   float64(regs[4]) / 100,
		VoltageIn:  float64(regs[5]) / 100,
	}

	switches := []struct {
		reg  uint16
		dst  *bool
		name string
	}{
		{RegKeyLock, &next.KeyLocked, "key lock"},
		{RegSleepDelay, &next.SleepMode, "sleep"},
		{RegOutputSwitch, &next.OutputOn, "output"},
		{RegBeeper, &next.BeepOn, "beeper"},
	}
	var readErr error
	for _, s := range switches {
		v, err := c.readSingle(s.reg)
		if err != nil {
			if readErr == nil {
				readErr = fmt.Errorf("xypower: refresh %s: %w", s.name, err)
			}
			continue
		}
		*s.dst = v != 0
	}
	if readErr != nil {
		c.invalidateSnapshot()
		return c.Snapshot(), readErr
	}

	next.Valid = true
	next.UpdatedAt = time.Now()

	c.snapMu.Lock()
	c.snapshot = next
	c.snapMu.Unlock()
	c.debugf("refresh: %.2fV %.3fA set, %.2fV %.3fA out, input %.2fV", next.VoltageSet, next.CurrentSet, next.VoltageOut, next.CurrentOut, next.VoltageIn)
	return next, nil
}

func (c *Controller) invalidateSnapshot() {
	c.snapMu.Lock()
	c.snapshot.Valid = false
	c.snapMu.Unlock()
}

// Snapshot returns the latest snapshot without touching the bus.
func (c *Controller) Snapshot() DeviceSnapshot {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	return c.snapshot
}

// IsCommunicationHealthy reports whether the last refresh succeeded
// recently enough for the snapshot to be trusted.
func (c *Controller) IsCommunicationHealthy() bool {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	return c.snapshot.Valid && time.Since(c.snapshot.UpdatedAt) < c.cfg.StaleAfter
}
