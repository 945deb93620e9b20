// Copyright 2026 The TagTagTag Ears Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package motor drives a small DC motor through the two direction inputs
// of an H-bridge.
//
// Driving one input high turns the motor in that direction; releasing
// both lets it coast to a stop. The two inputs are never driven high at
// the same time.
package motor

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
)

// Opts holds the options for a motor.
type Opts struct {
	// Name prefixes error messages and String(). Defaults to "motor".
	Name string
}

// Dev is an open-loop DC motor. It has no feedback of its own; position
// tracking is the caller's business.
type Dev struct {
	name     string
	forward  gpio.PinOut
	backward gpio.PinOut
}

// New returns a motor driving the two H-bridge inputs. The motor starts
// stopped.
func New(forward, backward gpio.PinOut, opts *Opts) (*Dev, error) {
	if forward == nil || backward == nil {
		return nil, errors.New("motor: both direction pins are required")
	}
	d := &Dev{name: "motor", forward: forward, backward: backward}
	if opts != nil && opts.Name != "" {
		d.name = opts.Name
	}
	if err := d.Stop(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("motor.Dev{%s}", d.name)
}

// Forward turns the motor forward. The opposite input is released first.
func (d *Dev) Forward() error {
	if err := d.backward.Out(gpio.Low); err != nil {
		return d.wrap(err)
	}
	return d.wrap(d.forward.Out(gpio.High))
}

// Backward turns the motor backward. The opposite input is released
// first.
func (d *Dev) Backward() error {
	if err := d.forward.Out(gpio.Low); err != nil {
		return d.wrap(err)
	}
	return d.wrap(d.backward.Out(gpio.High))
}

// Stop releases both inputs and lets the motor coast.
func (d *Dev) Stop() error {
	if err := d.forward.Out(gpio.Low); err != nil {
		return d.wrap(err)
	}
	return d.wrap(d.backward.Out(gpio.Low))
}

// Halt stops the motor.
//
// Halt implements conn.Resource.
func (d *Dev) Halt() error {
	return d.Stop()
}

func (d *Dev) wrap(err error) error {
	if err != nil {
		return fmt.Errorf("motor: %s: %v", d.name, err)
	}
	return nil
}

var _ conn.Resource = &Dev{}
var _ fmt.Stringer = &Dev{}
