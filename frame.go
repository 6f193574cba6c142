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
	"encoding/binary"
	"fmt"
)

// Function codes used by the XY6506S.
const (
	FuncCodeReadHoldingRegisters byte = 0x03
	FuncCodeWriteSingleRegister  byte = 0x06
)

const (
	// rtuMinFrameLen is the shortest frame worth parsing: address,
	// function, one payload byte and the two CRC bytes.
	rtuMinFrameLen = 5
	// rtuMaxFrameLen caps the receive buffer, matching the UART buffer
	// of the device firmware.
	rtuMaxFrameLen = 256
	// writeEchoLen is the exact length of a write-single-register
	// exchange in both directions.
	writeEchoLen = 8
	// exceptionRespLen is the fixed length of an exception response.
	exceptionRespLen = 5
)

// BuildReadRequest builds a complete read-holding-registers request:
// [slave, 0x03, start hi, start lo, quantity hi, quantity lo, crc lo, crc hi].
func BuildReadRequest(slave byte, start, quantity uint16) []byte {
	frame := make([]byte, 6, 8)
	frame[0] = slave
	frame[1] = FuncCodeReadHoldingRegisters
	binary.BigEndian.PutUint16(frame[2:4], start)
	binary.BigEndian.PutUint16(frame[4:6], quantity)
	return AppendCRC(frame)
}

// BuildWriteRequest builds a complete write-single-register request:
// [slave, 0x06, register hi, register lo, value hi, value lo, crc lo, crc hi].
func BuildWriteRequest(slave byte, register, value uint16) []byte {
	frame := make([]byte, 6, 8)
	frame[0] = slave
	frame[1] = FuncCodeWriteSingleRegister
	binary.BigEndian.PutUint16(frame[2:4], register)
	binary.BigEndian.PutUint16(frame[4:6], value)
	return AppendCRC(frame)
}

// ExpectedResponseLength predicts the total length of the response frame
// accumulating in buf, or -1 while too little has arrived to tell. For a
// read response the length comes from the byte-count field, so a receiver
// can stop as soon as the frame is complete instead of waiting out the
// timeout.
func ExpectedResponseLength(buf []byte) int {
	if len(buf) < 2 {
		return -1
	}
	fc := buf[1]
	if fc&0x80 != 0 {
		return exceptionRespLen
	}
	switch fc {
	case FuncCodeReadHoldingRegisters:
		if len(buf) < 3 {
			return -1
		}
		return 3 + int(buf[2]) + 2
	case FuncCodeWriteSingleRegister:
		return writeEchoLen
	}
	return -1
}

// ValidateReadResponse checks a read-holding-registers response against
// the request parameters and returns the register payload bytes.
func ValidateReadResponse(resp []byte, slave byte, quantity uint16) ([]byte, error) {
	if len(resp) < rtuMinFrameLen {
		return nil, fmt.Errorf("%w: %d bytes is below the minimum frame length", ErrInvalidResponse, len(resp))
	}
	if resp[0] != slave {
		return nil, fmt.Errorf("%w: reply from address %d, expected %d", ErrInvalidResponse, resp[0], slave)
	}
	if resp[1]&0x80 != 0 {
		return nil, fmt.Errorf("%w: exception %d (%s)", ErrInvalidResponse, resp[2], exceptionMessage(resp[2]))
	}
	if resp[1] != FuncCodeReadHoldingRegisters {
		return nil, fmt.Errorf("%w: function %02X, expected %02X", ErrInvalidResponse, resp[1], FuncCodeReadHoldingRegisters)
	}
	if int(resp[2]) != 2*int(quantity) {
		return nil, fmt.Errorf("%w: byte count %d, expected %d", ErrInvalidResponse, resp[2], 2*quantity)
	}
	if len(resp) != 3+int(resp[2])+2 {
		return nil, fmt.Errorf("%w: frame length %d, expected %d", ErrInvalidResponse, len(resp), 3+int(resp[2])+2)
	}
	if !VerifyCRC(resp) {
		return nil, fmt.Errorf("%w: CRC mismatch", ErrInvalidResponse)
	}
	return resp[3 : 3+int(resp[2])], nil
}

// ValidateWriteEcho checks a write-single-register response. The device
// answers a correct write by repeating the request byte for byte, which
// also revalidates the CRC for free.
func ValidateWriteEcho(request, response []byte) error {
	if len(response) != writeEchoLen {
		return fmt.Errorf("%w: echo length %d, expected %d", ErrInvalidResponse, len(response), writeEchoLen)
	}
	for i := range request {
		if request[i] != response[i] {
			return fmt.Errorf("%w: echo differs from request at byte %d", ErrInvalidResponse, i)
		}
	}
	return nil
}

// DecodeRegisters converts a register payload into values, one big-endian
// word per register.
func DecodeRegisters(payload []byte) []uint16 {
	regs := make([]uint16, len(payload)/2)
	for i := range regs {
		regs[i] = binary.BigEndian.Uint16(payload[2*i:])
	}
	return regs
}

// exceptionMessage translates a Modbus exception code.
func exceptionMessage(code byte) string {
	switch code {
	case 0x01:
		return "illegal function"
	case 0x02:
		return "illegal data address"
	case 0x03:
		return "illegal data value"
	case 0x04:
		return "server device failure"
	case 0x05:
		return "acknowledge"
	case 0x06:
		return "server device busy"
	case 0x08:
		return "memory parity error"
	case 0x0A:
		return "gateway path unavailable"
	case 0x0B:
		return "gateway target device failed to respond"
	}
	return "unknown exception"
}
