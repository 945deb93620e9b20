// Copyright 2026 The TagTagTag Ears Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ears

import (
	"sync"
	"time"
)

// fakeClock is a synthetic Clock. Advance moves time forward and fires the
// due timers, so watchdog behavior can be tested without real delays.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	c        *fakeClock
	deadline time.Time
	f        func()
	stopped  bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{c: c, deadline: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward and runs expired timers. The callbacks
// are invoked without holding the clock lock, like real timer goroutines.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.deadline.After(c.now) {
			t.stopped = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

func (t *fakeTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// fakeMotor records the commands it receives, in the spirit of
// i2ctest.Record.
type fakeMotor struct {
	mu  sync.Mutex
	ops []string
}

func (m *fakeMotor) Forward() error  { return m.add("forward") }
func (m *fakeMotor) Backward() error { return m.add("backward") }
func (m *fakeMotor) Stop() error     { return m.add("stop") }

func (m *fakeMotor) add(op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, op)
	return nil
}

func (m *fakeMotor) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = nil
}

func (m *fakeMotor) count(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, o := range m.ops {
		if o == op {
			n++
		}
	}
	return n
}

func (m *fakeMotor) last() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.ops) == 0 {
		return ""
	}
	return m.ops[len(m.ops)-1]
}
