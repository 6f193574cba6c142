package xypower

import (
	"fmt"
	"io"
	"sync"
	"time"
)

const (
	// txDoneTimeout bounds the wait for the UART to drain after a write.
	txDoneTimeout = 100 * time.Millisecond
	// rxPollInterval is the sleep between polls while a reply trickles in.
	rxPollInterval = time.Millisecond
)

// Controller is a single-master Modbus-RTU client bound to one XY6506S
// power supply. All methods are safe for concurrent use; the bus itself
// carries one transaction at a time, guarded by a lock with a bounded
// wait, so a collision surfaces as ErrBusy instead of corrupted frames.
type Controller struct {
	cfg Config

	mu        sync.Mutex
	transport Transport
	opened    bool

	// txn is the bus transaction slot. Holding the one token means
	// owning the wire from request to reply.
	txn chan struct{}

	// lastActivity is touched only with the transaction slot held.
	lastActivity time.Time

	snapMu   sync.RWMutex
	snapshot DeviceSnapshot

	logMu  sync.Mutex
	logger io.Writer
}

// Open connects to the supply on the serial device named in cfg.
func Open(cfg Config) (*Controller, error) {
	cfg = cfg.withDefaults()
	if cfg.Address == "" {
		return nil, fmt.Errorf("%w: serial device address required", ErrInvalidArgument)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tr, err := openSerialTransport(cfg)
	if err != nil {
		return nil, err
	}
	return newController(cfg, tr), nil
}

// OpenTransport connects through an existing byte stream, for tests and
// RTU-over-anything setups. The Controller owns tr from here on; Close
// closes it.
func OpenTransport(cfg Config, tr Transport) (*Controller, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newController(cfg, tr), nil
}

func newController(cfg Config, tr Transport) *Controller {
	return &Controller{
		cfg:       cfg,
		transport: tr,
		opened:    true,
		txn:       make(chan struct{}, 1),
	}
}

// Close releases the transport. Further operations fail with ErrClosed.
// Safe to call more than once.
func (c *Controller) Close() error {
	c.mu.Lock()
	if !c.opened {
		c.mu.Unlock()
		return nil
	}
	c.opened = false
	tr := c.transport
	c.mu.Unlock()
	return tr.Close()
}

// SetLogger directs the controller's log lines to w. Lines are prefixed
// with their level so a SimpleLogger can filter them; nil silences
// logging again.
func (c *Controller) SetLogger(w io.Writer) {
	c.logMu.Lock()
	c.logger = w
	c.logMu.Unlock()
}

func (c *Controller) logf(level, format string, args ...any) {
	c.logMu.Lock()
	w := c.logger
	c.logMu.Unlock()
	if w == nil {
		return
	}
	fmt.Fprintf(w, level+" "+format+"\n", args...)
}

func (c *Controller) debugf(format string, args ...any) { c.logf("[DEBUG]", format, args...) }
func (c *Controller) infof(format string, args ...any)  { c.logf("[INFO]", format, args...) }
func (c *Controller) warnf(format string, args ...any)  { c.logf("[WARN]", format, args...) }

// getTransport returns the live transport, or ErrClosed.
func (c *Controller) getTransport() (Transport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.opened || c.transport == nil {
		return nil, ErrClosed
	}
	return c.transport, nil
}

// acquireBus takes the transaction slot, waiting at most cfg.LockTimeout.
func (c *Controller) acquireBus() error {
	select {
	case c.txn <- struct{}{}:
		return nil
	default:
	}
	timer := time.NewTimer(c.cfg.LockTimeout)
	defer timer.Stop()
	select {
	case c.txn <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrBusy
	}
}

func (c *Controller) releaseBus() {
	<-c.txn
}

// sendFrame writes one request frame: honour the minimum quiet time since
// the last frame, drop stale input, write, and wait for the bytes to
// drain. Called with the transaction slot held.
func (c *Controller) sendFrame(tr Transport, frame []byte) error {
	if !c.lastActivity.IsZero() {
		if elapsed := time.Since(c.lastActivity); elapsed < c.cfg.FrameInterval {
			time.Sleep(c.cfg.FrameInterval - elapsed)
		}
	}
	if err := tr.FlushInput(); err != nil {
		return fmt.Errorf("xypower: flush input: %w", err)
	}
	n, err := tr.Write(frame)
	if err != nil {
		return fmt.Errorf("xypower: write frame: %w", err)
	}
	if n != len(frame) {
		return fmt.Errorf("xypower: short write: %d of %d bytes", n, len(frame))
	}
	if err := tr.WaitTxDone(txDoneTimeout); err != nil {
		return err
	}
	c.lastActivity = time.Now()
	c.debugf("TX % X", frame)
	return nil
}

// receiveFrame assembles a reply into buf and returns how many bytes
// arrived. It stops early once the predicted frame length is reached or
// buf is full; whatever arrived by the deadline is returned as is, the
// caller classifies it.
func (c *Controller) receiveFrame(tr Transport, buf []byte, timeout time.Duration) (int, error) {
	deadline := time.Now().Add(timeout)
	received := 0
	for {
		if received > 0 {
			if want := ExpectedResponseLength(buf[:received]); want > 0 && received >= want {
				break
			}
			if received >= len(buf) {
				break
			}
		}
		if !time.Now().Before(deadline) {
			break
		}
		if tr.Available() == 0 {
			time.Sleep(rxPollInterval)
			continue
		}
		n, err := tr.ReadAvailable(buf[received:])
		if err != nil {
			return received, fmt.Errorf("xypower: read: %w", err)
		}
		received += n
	}
	if received > 0 {
		c.debugf("RX % X", buf[:received])
	}
	return received, nil
}

// transact runs one request/reply exchange under the transaction lock.
// respBuf sizes the receive window; the reply byte count is returned.
func (c *Controller) transact(request, respBuf []byte, timeout time.Duration) (int, error) {
	tr, err := c.getTransport()
	if err != nil {
		return 0, err
	}
	if err := c.acquireBus(); err != nil {
		return 0, err
	}
	defer c.releaseBus()
	if err := c.sendFrame(tr, request); err != nil {
		return 0, err
	}
	return c.receiveFrame(tr, respBuf, timeout)
}

// ReadHoldingRegisters reads quantity registers starting at start from
// the configured slave. Values are returned raw, unscaled.
func (c *Controller) ReadHoldingRegisters(start, quantity uint16) ([]uint16, error) {
	if quantity < 1 || quantity > 125 {
		return nil, fmt.Errorf("%w: quantity %d out of range 1-125", ErrInvalidArgument, quantity)
	}
	request := BuildReadRequest(c.cfg.SlaveAddress, start, quantity)
	resp := make([]byte, rtuMaxFrameLen)
	n, err := c.transact(request, resp, c.cfg.ResponseTimeout)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: read %d@0x%04X", ErrNoResponse, quantity, start)
	}
	payload, err := ValidateReadResponse(resp[:n], c.cfg.SlaveAddress, quantity)
	if err != nil {
		c.warnf("read %d@0x%04X: %v", quantity, start, err)
		return nil, err
	}
	return DecodeRegisters(payload), nil
}

// readSingle reads one holding register.
func (c *Controller) readSingle(reg uint16) (uint16, error) {
	regs, err := c.ReadHoldingRegisters(reg, 1)
	if err != nil {
		return 0, err
	}
	return regs[0], nil
}

// WriteSingleRegister writes value to register reg. The device confirms a
// write by echoing the request frame byte for byte; anything else fails
// the write.
func (c *Controller) WriteSingleRegister(reg, value uint16) error {
	request := BuildWriteRequest(c.cfg.SlaveAddress, reg, value)
	resp := make([]byte, writeEchoLen)
	n, err := c.transact(request, resp, c.cfg.ResponseTimeout)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: write 0x%04X=0x%04X", ErrNoResponse, reg, value)
	}
	if err := ValidateWriteEcho(request, resp[:n]); err != nil {
		c.warnf("write 0x%04X=0x%04X: %v", reg, value, err)
		return err
	}
	return nil
}
