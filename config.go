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

import (
	"fmt"
	"time"
)

// Config holds the link parameters for one XY6506S. The zero value of
// every field except Address is replaced by the default noted below, so a
// partially filled Config works. The wire format itself is fixed 8N1.
type Config struct {
	// Address is the serial device, e.g. "/dev/ttyUSB0" or "COM6".
	Address string
	// BaudRate of the link. The supply ships at 115200.
	BaudRate int
	// SlaveAddress of the supply, factory default 1.
	SlaveAddress byte
	// ResponseTimeout bounds the wait for a reply frame. Default 200ms.
	ResponseTimeout time.Duration
	// FrameInterval is the minimum quiet time between frames. Default 1ms.
	FrameInterval time.Duration
	// LockTimeout bounds the wait for the bus transaction lock.
	// Default 50ms.
	LockTimeout time.Duration
	// StaleAfter is how long a refreshed snapshot counts as healthy.
	// Default 5s.
	StaleAfter time.Duration
	// ScanMaxAddress is the last address ScanForDevices probes.
	// Default 10.
	ScanMaxAddress byte
	// ScanTimeout bounds the wait for a probe reply. Default 300ms.
	ScanTimeout time.Duration
	// ScanInterval is the pause between probes. Default 100ms.
	ScanInterval time.Duration
}

// DefaultConfig returns the settings for a factory-fresh XY6506S on the
// given serial device.
func DefaultConfig(address string) Config {
	return Config{
		Address:         address,
		BaudRate:        115200,
		SlaveAddress:    0x01,
		ResponseTimeout: 200 * time.Millisecond,
		FrameInterval:   time.Millisecond,
		LockTimeout:     50 * time.Millisecond,
		StaleAfter:      5 * time.Second,
		ScanMaxAddress:  10,
		ScanTimeout:     300 * time.Millisecond,
		ScanInterval:    100 * time.Millisecond,
	}
}

// withDefaults fills every zero field from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig(c.Address)
	if c.BaudRate == 0 {
		c.BaudRate = def.BaudRate
	}
	if c.SlaveAddress == 0 {
		c.SlaveAddress = def.SlaveAddress
	}
	if c.ResponseTimeout == 0 {
		c.ResponseTimeout = def.ResponseTimeout
	}
	if c.FrameInterval == 0 {
		c.FrameInterval = def.FrameInterval
	}
	if c.LockTimeout == 0 {
		c.LockTimeout = def.LockTimeout
	}
	if c.StaleAfter == 0 {
		c.StaleAfter = def.StaleAfter
	}
	if c.ScanMaxAddress == 0 {
		c.ScanMaxAddress = def.ScanMaxAddress
	}
	if c.ScanTimeout == 0 {
		c.ScanTimeout = def.ScanTimeout
	}
	if c.ScanInterval == 0 {
		c.ScanInterval = def.ScanInterval
	}
	return c
}

// Validate reports the first problem with the configuration.
func (c Config) Validate() error {
	if c.BaudRate <= 0 {
		return fmt.Errorf("%w: baud rate %d", ErrInvalidArgument, c.BaudRate)
	}
	if c.SlaveAddress < 1 || c.SlaveAddress > 247 {
		return fmt.Errorf("%w: slave address %d out of range 1-247", ErrInvalidArgument, c.SlaveAddress)
	}
	if c.ScanMaxAddress > 247 {
		return fmt.Errorf("%w: scan max address %d out of range 1-247", ErrInvalidArgument, c.ScanMaxAddress)
	}
	if c.ResponseTimeout <= 0 || c.LockTimeout <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidArgument)
	}
	return nil
}
