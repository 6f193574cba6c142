// Copyright (C) 2024  wwhai
//
// This program is free software; you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License along
// with this program; if not, see <https://www.gnu.org/licenses/>.

package xypower

import "fmt"

// Holding register map of the XY6506S power supply. All registers are
// 16-bit, read with function 0x03 and written with function 0x06. Scaled
// values store fixed-point integers; the divisor is noted per register.
const (
	RegVoltageSet uint16 = 0x0000 // set voltage, V*100
	RegCurrentSet uint16 = 0x0001 // set current, A*1000

	RegVoltageOut uint16 = 0x0002 // measured output voltage, V*100
	RegCurrentOut uint16 = 0x0003 // measured output current, A*1000
	RegPowerOut   uint16 = 0x0004 // measured output power, W*100
	RegVoltageIn  uint16 = 0x0005 // measured input voltage, V*100

	RegAmpHourLow   uint16 = 0x0006 // accumulated charge low word, mAh
	RegAmpHourHigh  uint16 = 0x0007 // accumulated charge high word, mAh
	RegWattHourLow  uint16 = 0x0008 // accumulated energy low word, mWh
	RegWattHourHigh uint16 = 0x0009 // accumulated energy high word, mWh

	RegOutputHours   uint16 = 0x000A // output-on time, hours part
	RegOutputMinutes uint16 = 0x000B // output-on time, minutes part
	RegOutputSeconds uint16 = 0x000C // output-on time, seconds part

	RegTempInternal uint16 = 0x000D // internal temperature, value*10
	RegTempExternal uint16 = 0x000E // external probe temperature, value*10

	RegKeyLock      uint16 = 0x000F // front panel lock, 0 unlocked / 1 locked
	RegProtection   uint16 = 0x0010 // protection latch, see Protection
	RegCVCC         uint16 = 0x0011 // regulation state, 0 CV / 1 CC
	RegOutputSwitch uint16 = 0x0012 // output stage, 0 off / 1 on
	RegTempUnit     uint16 = 0x0013 // temperature unit, 0 Celsius / 1 Fahrenheit
	RegBacklight    uint16 = 0x0014 // backlight brightness, 0-5
	RegSleepDelay   uint16 = 0x0015 // display sleep delay, minutes

	RegModel   uint16 = 0x0016 // product model word
	RegVersion uint16 = 0x0017 // firmware version word

	RegSlaveAddress uint16 = 0x0018 // bus address, 1-247
	RegBaudRate     uint16 = 0x0019 // baud rate code

	RegBeeper uint16 = 0x001C // key beeper, 0 off / 1 on
)

// MaxCurrent is the highest programmable output current in amperes.
const MaxCurrent = 9.1

// Protection is the fault latch reported in RegProtection. Zero means
// normal operation; the supply latches codes 1-11 for its various
// protections (over-voltage, over-current, over-temperature, ...).
type Protection uint16

// ProtectionNone is the unlatched state.
const ProtectionNone Protection = 0

// Faulted reports whether any protection has tripped.
func (p Protection) Faulted() bool { return p != ProtectionNone }

func (p Protection) String() string {
	if p == ProtectionNone {
		return "none"
	}
	return fmt.Sprintf("protection %d", uint16(p))
}

// RegulationMode is the supply's active regulation loop, from RegCVCC.
type RegulationMode uint16

const (
	ModeConstantVoltage RegulationMode = 0
	ModeConstantCurrent RegulationMode = 1
)

func (m RegulationMode) String() string {
	switch m {
	case ModeConstantVoltage:
		return "CV"
	case ModeConstantCurrent:
		return "CC"
	}
	return fmt.Sprintf("RegulationMode(%d)", uint16(m))
}
