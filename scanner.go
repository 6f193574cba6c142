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

import "time"

// ScanForDevices probes bus addresses 1 through cfg.ScanMaxAddress with a
// one-register read each and reports whether anything answered. A hit
// only requires the address and function code echoed back; the CRC is
// deliberately not checked, because a mangled reply still proves a device
// is listening. Probes are spaced by cfg.ScanInterval so slow devices get
// quiet bus time between them.
func (c *Controller) ScanForDevices() bool {
	found := 0
	for addr := byte(1); addr <= c.cfg.ScanMaxAddress; addr++ {
		if c.probeAddress(addr) {
			found++
		}
		time.Sleep(c.cfg.ScanInterval)
	}
	c.infof("scan finished: %d device(s) answered", found)
	return found > 0
}

// probeAddress sends one read request to addr and loosely checks whatever
// comes back within cfg.ScanTimeout.
func (c *Controller) probeAddress(addr byte) bool {
	request := BuildReadRequest(addr, 0x0000, 1)
	resp := make([]byte, rtuMaxFrameLen)
	n, err := c.transact(request, resp, c.cfg.ScanTimeout)
	if err != nil {
		c.debugf("probe address %d: %v", addr, err)
		return false
	}
	if n < rtuMinFrameLen || resp[0] != addr || resp[1] != FuncCodeReadHoldingRegisters {
		return false
	}
	c.infof("device at address %d, register 0 reads 0x%04X", addr, uint16(resp[3])<<8|uint16(resp[4]))
	return true
}
