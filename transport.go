package xypower

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	serial "github.com/hootrhino/goserial"
)

// portReadTimeout paces the pump's blocking reads on a real port. It
// bounds how long Close waits for the pump to notice, not how long a
// reply may take; that is Config.ResponseTimeout's job.
const portReadTimeout = 100 * time.Millisecond

// Transport is the byte stream a Controller talks through. It carries
// bytes both ways and answers "how many arrived so far" without blocking;
// framing and timing stay with the Controller.
type Transport interface {
	// Write queues p for transmission.
	Write(p []byte) (int, error)
	// WaitTxDone blocks until previously written bytes are fully on the
	// wire, or fails when that cannot happen within timeout.
	WaitTxDone(timeout time.Duration) error
	// Available returns the number of received bytes not yet read.
	Available() int
	// ReadAvailable copies received bytes into p without blocking.
	ReadAvailable(p []byte) (int, error)
	// FlushInput discards received bytes not yet read.
	FlushInput() error
	Close() error
}

// SerialTransport adapts a serial port (or any byte pipe) to Transport.
// A pump goroutine keeps a blocking Read pending on the port and buffers
// whatever arrives, so the Controller can poll without blocking.
type SerialTransport struct {
	port io.ReadWriteCloser
	baud int

	mu     sync.Mutex
	buf    []byte
	rdErr  error
	closed bool

	lastWrite    time.Time
	lastWriteLen int

	done chan struct{}
}

// NewSerialTransport wraps an open byte pipe. baud models how fast writes
// drain onto the wire; pass the real port speed. The port must either
// fail idle reads with serial.ErrTimeout or wake a pending Read on
// Close, or Close will wait for the next byte.
func NewSerialTransport(port io.ReadWriteCloser, baud int) *SerialTransport {
	t := &SerialTransport{
		port: port,
		baud: baud,
		done: make(chan struct{}),
	}
	go t.pump()
	return t
}

// openSerialTransport opens the device named in cfg with the fixed
// 8N1 frame format of the XY6506S.
func openSerialTransport(cfg Config) (*SerialTransport, error) {
	port, err := serial.Open(&serial.Config{
		Address:  cfg.Address,
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  portReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("xypower: open %s: %w", cfg.Address, err)
	}
	return NewSerialTransport(port, cfg.BaudRate), nil
}

// pump moves bytes from the port into the buffer. Idle read timeouts
// just re-arm the read; any other error stops the pump, as does Close,
// which the pump notices within one read timeout.
func (t *SerialTransport) pump() {
	defer close(t.done)
	chunk := make([]byte, rtuMaxFrameLen)
	for {
		n, err := t.port.Read(chunk)
		t.mu.Lock()
		if n > 0 {
			t.buf = append(t.buf, chunk[:n]...)
		}
		if t.closed {
			t.mu.Unlock()
			return
		}
		if err != nil && !errors.Is(err, serial.ErrTimeout) {
			t.rdErr = err
			t.mu.Unlock()
			return
		}
		t.mu.Unlock()
	}
}

func (t *SerialTransport) Write(p []byte) (int, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0, ErrClosed
	}
	t.mu.Unlock()

	n, err := t.port.Write(p)

	t.mu.Lock()
	t.lastWrite = time.Now()
	t.lastWriteLen = n
	t.mu.Unlock()
	return n, err
}

// WaitTxDone waits until the last write has left the UART at the
// configured baud rate, using the Modbus character time of 11 bit times.
func (t *SerialTransport) WaitTxDone(timeout time.Duration) error {
	t.mu.Lock()
	last, n := t.lastWrite, t.lastWriteLen
	t.mu.Unlock()
	if n == 0 {
		return nil
	}
	txTime := time.Duration(n) * charTime(t.baud)
	if txTime > timeout {
		return fmt.Errorf("xypower: %d bytes cannot drain at %d baud within %v", n, t.baud, timeout)
	}
	if remaining := txTime - time.Since(last); remaining > 0 {
		time.Sleep(remaining)
	}
	return nil
}

func (t *SerialTransport) Available() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.buf)
}

func (t *SerialTransport) ReadAvailable(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.buf) == 0 {
		if t.closed {
			return 0, ErrClosed
		}
		if t.rdErr != nil {
			return 0, t.rdErr
		}
		return 0, nil
	}
	n := copy(p, t.buf)
	t.buf = t.buf[n:]
	return n, nil
}

func (t *SerialTransport) FlushInput() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	t.buf = nil
	return nil
}

// Close closes the port and waits for the pump to stop, at most one read
// timeout on an idle port. Safe to call more than once.
func (t *SerialTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	err := t.port.Close()
	<-t.done
	return err
}

// charTime is the wire time of one character: start bit, eight data bits,
// parity slot and stop bit.
func charTime(baud int) time.Duration {
	if baud <= 0 {
		baud = 115200
	}
	return time.Duration(11 * int64(time.Second) / int64(baud))
}
