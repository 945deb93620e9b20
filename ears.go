// Copyright 2026 The TagTagTag Ears Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ears

import (
	"fmt"
	"log"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
)

const (
	// NumHoles is the number of encoder holes per revolution.
	NumHoles = 17

	// PositionUnknown is the position of an ear that lost track of where
	// it is, typically after being rotated by hand or after a timeout.
	PositionUnknown = -1

	// Moved is the result byte published when the ear is rotated by hand
	// while idle.
	Moved byte = 'm'

	// offZero is the offset, in holes, between the raw gap marker and the
	// logical zero position.
	offZero = 3

	// defaultTimeout is one full revolution on a healthy ear.
	defaultTimeout = 4 * time.Second
)

// Motor drives one ear's DC motor. Commands are idempotent, there is no
// feedback, and they are assumed to take effect before the next encoder
// edge can physically occur.
type Motor interface {
	Forward() error
	Backward() error
	Stop() error
}

// Opts holds the options for an ear.
type Opts struct {
	// Name prefixes log messages and String(). Defaults to "ear".
	Name string

	// Timeout is how long the ear may go without an encoder edge while
	// calibrating, detecting or running before the watchdog gives up.
	// Defaults to 4s, the duration of a revolution.
	Timeout time.Duration

	// Clock overrides the time source. nil means the system clock.
	Clock Clock
}

// Dev is one independently driven ear. The two ears of a rabbit are two
// fully independent Devs.
//
// All events of one ear (encoder edges, watchdog expiry, commands) are
// serialized on a single mutex, so no two of them ever overlap.
type Dev struct {
	name    string
	encoder gpio.PinIO
	motor   Motor
	clock   Clock
	timeout time.Duration

	mu    sync.Mutex
	rcond *sync.Cond // readers wait for a pending result
	wcond *sync.Cond // writers wait for idle or broken
	st    state

	boundary   time.Duration // learned threshold separating a hole from the gap
	calDeltas  [NumHoles]time.Duration
	calibrated bool

	resultPending bool
	result        byte

	partial    byte // buffered command byte awaiting its parameter
	hasPartial bool

	opened bool
	halted bool

	wdTimer Timer
	wdGen   uint64
}

// New configures the encoder pin for falling edges and starts the ear's
// calibration run. The returned Dev is usable immediately; commands block
// until calibration finishes.
func New(encoder gpio.PinIO, m Motor, opts *Opts) (*Dev, error) {
	d := &Dev{
		name:    "ear",
		encoder: encoder,
		motor:   m,
		clock:   SystemClock(),
		timeout: defaultTimeout,
	}
	if opts != nil {
		if opts.Name != "" {
			d.name = opts.Name
		}
		if opts.Timeout != 0 {
			d.timeout = opts.Timeout
		}
		if opts.Clock != nil {
			d.clock = opts.Clock
		}
	}
	d.rcond = sync.NewCond(&d.mu)
	d.wcond = sync.NewCond(&d.mu)
	if err := encoder.In(gpio.PullNoChange, gpio.FallingEdge); err != nil {
		return nil, fmt.Errorf("ears: failed to watch encoder %s: %v", encoder, err)
	}
	d.mu.Lock()
	d.toTesting()
	d.mu.Unlock()
	go d.pump()
	return d, nil
}

// String implements conn.Resource.
func (d *Dev) String() string {
	return fmt.Sprintf("ears.Dev{%s}", d.name)
}

// Halt stops the motor and permanently disables the ear.
//
// Halt implements conn.Resource.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.halted {
		return nil
	}
	d.halted = true
	d.cancelWatchdog()
	d.motorStop()
	d.toBroken()
	return nil
}

// WaitCalibrated blocks until the startup calibration has finished. It
// returns ErrBroken if the ear failed calibration.
func (d *Dev) WaitCalibrated() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for {
		if _, ok := d.st.(*stateTesting); !ok {
			break
		}
		d.wcond.Wait()
	}
	if _, ok := d.st.(stateBroken); ok {
		return ErrBroken
	}
	return nil
}

// Position returns the ear's position, or PositionUnknown. Querying an
// idle ear also checks whether it was rotated by hand since it stopped.
func (d *Dev) Position() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch st := d.st.(type) {
	case *stateIdle:
		d.idleMovedCheck(st)
		return st.position
	case *stateRunning:
		return st.position
	}
	return PositionUnknown
}

// Broken reports whether the ear is latched in the broken state.
func (d *Dev) Broken() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.st.(stateBroken)
	return ok
}

// Calibration returns the 17 inter-hole timing deltas measured at startup
// and the learned boundary separating a normal interval from the gap. It
// returns nil before the forward calibration run has completed.
func (d *Dev) Calibration() ([]time.Duration, time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.calibrated {
		return nil, 0
	}
	deltas := make([]time.Duration, NumHoles)
	copy(deltas, d.calDeltas[:])
	return deltas, d.boundary
}

// pump forwards encoder edges into the state machine. It polls with a
// timeout so Halt can stop it.
func (d *Dev) pump() {
	for {
		if !d.encoder.WaitForEdge(time.Second) {
			d.mu.Lock()
			halted := d.halted
			d.mu.Unlock()
			if halted {
				return
			}
			continue
		}
		d.edge(d.clock.Now())
	}
}

func (d *Dev) motorForward() {
	if err := d.motor.Forward(); err != nil {
		log.Printf("%s: motor forward: %v", d.name, err)
	}
}

func (d *Dev) motorBackward() {
	if err := d.motor.Backward(); err != nil {
		log.Printf("%s: motor backward: %v", d.name, err)
	}
}

func (d *Dev) motorStop() {
	if err := d.motor.Stop(); err != nil {
		log.Printf("%s: motor stop: %v", d.name, err)
	}
}

var _ conn.Resource = &Dev{}
var _ fmt.Stringer = &Dev{}
