package xypower

import (
	"testing"
	"time"
)

func TestEnergyStats(t *testing.T) {
	sim := newXYSim(1)
	c := newTestController(t, sim)

	stats, err := c.EnergyStats()
	if err != nil {
		t.Fatalf("EnergyStats: %v", err)
	}
	// 低字节在前: the high word 1 carries 65536 mAh on top of the low 500.
	if stats.Charge != 66036 {
		t.Errorf("Charge = %d mAh, expected 66036", stats.Charge)
	}
	if stats.Energy != 2500 {
		t.Errorf("Energy = %d mWh, expected 2500", stats.Energy)
	}
	want := time.Hour + 2*time.Minute + 3*time.Second
	if stats.OutputTime != want {
		t.Errorf("OutputTime = %v, expected %v", stats.OutputTime, want)
	}
	// The whole block comes back in one read.
	if n := sim.frameCount(); n != 1 {
		t.Errorf("frames on the wire = %d, expected 1", n)
	}
}

func TestTemperatures(t *testing.T) {
	sim := newXYSim(1)
	c := newTestController(t, sim)

	internal, external, err := c.Temperatures()
	if err != nil {
		t.Fatalf("Temperatures: %v", err)
	}
	if !almostEqual(internal, 23.5) || !almostEqual(external, 0) {
		t.Errorf("temperatures = %.1f/%.1f, expected 23.5/0.0", internal, external)
	}
}

func TestDeviceInfo(t *testing.T) {
	sim := newXYSim(1)
	c := newTestController(t, sim)

	model, version, err := c.DeviceInfo()
	if err != nil {
		t.Fatalf("DeviceInfo: %v", err)
	}
	if model != 6506 || version != 11 {
		t.Errorf("model/version = %d/%d, expected 6506/11", model, version)
	}
}

func TestProtectionState(t *testing.T) {
	sim := newXYSim(1)
	c := newTestController(t, sim)

	p, err := c.ProtectionState()
	if err != nil {
		t.Fatalf("ProtectionState: %v", err)
	}
	if p != ProtectionNone || p.Faulted() {
		t.Errorf("protection = %v, expected none", p)
	}

	sim.setRegister(RegProtection, 3)
	p, err = c.ProtectionState()
	if err != nil {
		t.Fatalf("ProtectionState: %v", err)
	}
	if !p.Faulted() {
		t.Error("latched protection code 3 not reported as faulted")
	}
	if p.String() != "protection 3" {
		t.Errorf("String() = %q, expected %q", p.String(), "protection 3")
	}
}

func TestRegulationMode(t *testing.T) {
	sim := newXYSim(1)
	c := newTestController(t, sim)

	mode, err := c.RegulationMode()
	if err != nil {
		t.Fatalf("RegulationMode: %v", err)
	}
	if mode != ModeConstantVoltage || mode.String() != "CV" {
		t.Errorf("mode = %v, expected CV", mode)
	}

	sim.setRegister(RegCVCC, 1)
	mode, err = c.RegulationMode()
	if err != nil {
		t.Fatalf("RegulationMode: %v", err)
	}
	if mode != ModeConstantCurrent || mode.String() != "CC" {
		t.Errorf("mode = %v, expected CC", mode)
	}
}
