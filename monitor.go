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
	"sync"
	"sync/atomic"
	"time"
)

// OnDataFunc is a callback type for pushing fresh snapshots.
type OnDataFunc func(DeviceSnapshot)

// OnErrorFunc is a callback type for error reporting.
type OnErrorFunc func(error)

// DefaultMonitorInterval matches the refresh cadence of the supply's
// front panel display.
const DefaultMonitorInterval = 300 * time.Millisecond

// Monitor refreshes a Controller's snapshot on a fixed cadence. A tick
// whose refresh fails (including ErrBusy while a foreground transaction
// holds the bus) is simply skipped; the previous snapshot stays in place
// and the next tick tries again.
type Monitor struct {
	controller *Controller
	interval   time.Duration

	onData  atomic.Value // OnDataFunc
	onError atomic.Value // OnErrorFunc

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewMonitor wraps c. An interval of zero or less selects
// DefaultMonitorInterval.
func NewMonitor(c *Controller, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultMonitorInterval
	}
	return &Monitor{
		controller: c,
		interval:   interval,
		stopCh:     make(chan struct{}),
	}
}

// SetOnData sets the callback receiving each successful refresh.
func (m *Monitor) SetOnData(fn OnDataFunc) {
	m.onData.Store(fn)
}

// SetOnError sets the callback receiving refresh failures.
func (m *Monitor) SetOnError(fn OnErrorFunc) {
	m.onError.Store(fn)
}

// Start launches the refresh loop. The first refresh runs after one full
// interval.
func (m *Monitor) Start() {
	m.wg.Add(1)
	go m.loop()
}

func (m *Monitor) loop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			snapshot, err := m.controller.Refresh()
			if err != nil {
				if cb := m.onError.Load(); cb != nil {
					cb.(OnErrorFunc)(err)
				}
				continue
			}
			if cb := m.onData.Load(); cb != nil {
				cb.(OnDataFunc)(snapshot)
			}
		}
	}
}

// Stop halts the loop and waits for it to exit. Safe to call more than
// once.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.wg.Wait()
}
