package xypower

import (
	"encoding/binary"
	"io"
	"sync"
	"time"
)

// chunkGap is the pause between response chunks when a simulated device
// delivers a frame in pieces.
const chunkGap = 15 * time.Millisecond

// xySim emulates the serial side of an XY6506S: a register store behind a
// Modbus-RTU slave, speaking through the Transport interface. Responses
// are queued synchronously inside Write, so by the time the controller
// starts polling the reply is already arriving. Fault hooks simulate a
// silent bus, mangled frames and chunked delivery.
type xySim struct {
	mu   sync.Mutex
	addr byte
	regs map[uint16]uint16

	pending []byte   // response bytes the controller has not read yet
	frames  [][]byte // every frame the controller wrote
	closed  bool

	silent        bool            // answer nothing at all
	failRegs      map[uint16]bool // start addresses that get no reply
	failNextWrite bool            // swallow the next write request

	mutate  func(resp []byte) []byte   // response tamper hook
	chunker func(resp []byte) [][]byte // split response into delayed chunks

	flushedLive int // flushes that discarded unread bytes
}

func newXYSim(addr byte) *xySim {
	return &xySim{
		addr: addr,
		regs: map[uint16]uint16{
			RegVoltageSet:    500,  // 5.00 V
			RegCurrentSet:    2000, // 2.000 A
			RegVoltageOut:    499,
			RegCurrentOut:    1234,
			RegPowerOut:      616,
			RegVoltageIn:     1200, // 12.00 V
			RegAmpHourLow:    500,
			RegAmpHourHigh:   1,
			RegWattHourLow:   2500,
			RegWattHourHigh:  0,
			RegOutputHours:   1,
			RegOutputMinutes: 2,
			RegOutputSeconds: 3,
			RegTempInternal:  235, // 23.5
			RegTempExternal:  0,
			RegKeyLock:       0,
			RegProtection:    0,
			RegCVCC:          0,
			RegOutputSwitch:  1,
			RegTempUnit:      0,
			RegBacklight:     4,
			RegSleepDelay:    0,
			RegModel:         6506,
			RegVersion:       11,
			RegBeeper:        1,
		},
		failRegs: map[uint16]bool{},
	}
}

func (s *xySim) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, io.ErrClosedPipe
	}
	frame := append([]byte(nil), p...)
	s.frames = append(s.frames, frame)
	if s.silent {
		return len(p), nil
	}
	resp := s.respond(frame)
	if resp == nil {
		return len(p), nil
	}
	if s.mutate != nil {
		resp = s.mutate(resp)
	}
	if s.chunker != nil {
		go s.feedChunks(s.chunker(resp))
	} else {
		s.pending = append(s.pending, resp...)
	}
	return len(p), nil
}

// respond parses one request frame and produces the reply, or nil for
// frames the device would ignore. Called with s.mu held.
func (s *xySim) respond(req []byte) []byte {
	if len(req) != 8 || !VerifyCRC(req) {
		return nil
	}
	if req[0] != s.addr {
		return nil
	}
	start := binary.BigEndian.Uint16(req[2:4])
	if s.failRegs[start] {
		return nil
	}
	switch req[1] {
	case FuncCodeReadHoldingRegisters:
		quantity := binary.BigEndian.Uint16(req[4:6])
		resp := make([]byte, 3, 3+2*int(quantity)+2)
		resp[0] = s.addr
		resp[1] = FuncCodeReadHoldingRegisters
		resp[2] = byte(2 * quantity)
		for i := uint16(0); i < quantity; i++ {
			var word [2]byte
			binary.BigEndian.PutUint16(word[:], s.regs[start+i])
			resp = append(resp, word[0], word[1])
		}
		return AppendCRC(resp)
	case FuncCodeWriteSingleRegister:
		if s.failNextWrite {
			s.failNextWrite = false
			return nil
		}
		s.regs[start] = binary.BigEndian.Uint16(req[4:6])
		return append([]byte(nil), req...) // 回显
	}
	return nil
}

func (s *xySim) feedChunks(parts [][]byte) {
	for i, part := range parts {
		if i > 0 {
			time.Sleep(chunkGap)
		}
		s.mu.Lock()
		s.pending = append(s.pending, part...)
		s.mu.Unlock()
	}
}

func (s *xySim) WaitTxDone(time.Duration) error { return nil }

func (s *xySim) Available() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *xySim) ReadAvailable(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

func (s *xySim) FlushInput() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) > 0 {
		s.flushedLive++
		s.pending = nil
	}
	return nil
}

func (s *xySim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *xySim) setSilent(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.silent = v
}

func (s *xySim) setMutate(fn func([]byte) []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mutate = fn
}

func (s *xySim) setChunker(fn func([]byte) [][]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunker = fn
}

func (s *xySim) setFailReg(start uint16, fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failRegs[start] = fail
}

func (s *xySim) setFailNextWrite() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNextWrite = true
}

func (s *xySim) frameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func (s *xySim) lastFrame() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

func (s *xySim) register(reg uint16) uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regs[reg]
}

func (s *xySim) setRegister(reg, value uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regs[reg] = value
}

// liveFlushes reports how many times stale unread bytes had to be
// discarded. With the transaction lock doing its job this stays zero:
// every reply is fully consumed before the next request goes out.
func (s *xySim) liveFlushes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushedLive
}
