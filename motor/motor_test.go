// Copyright 2026 The TagTagTag Ears Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package motor

import (
	"testing"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

func TestNew(t *testing.T) {
	fwd := &gpiotest.Pin{N: "FWD", L: gpio.High}
	bwd := &gpiotest.Pin{N: "BWD", L: gpio.High}
	d, err := New(fwd, bwd, nil)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if fwd.L != gpio.Low || bwd.L != gpio.Low {
		t.Errorf("New() must stop the motor, pins %v/%v", fwd.L, bwd.L)
	}
	if got, want := d.String(), "motor.Dev{motor}"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestNewMissingPin(t *testing.T) {
	if _, err := New(&gpiotest.Pin{N: "FWD"}, nil, nil); err == nil {
		t.Fatal("New() with a nil pin should fail")
	}
}

func TestDirections(t *testing.T) {
	fwd := &gpiotest.Pin{N: "FWD"}
	bwd := &gpiotest.Pin{N: "BWD"}
	d, err := New(fwd, bwd, &Opts{Name: "left"})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := d.Forward(); err != nil {
		t.Fatalf("Forward() failed: %v", err)
	}
	if fwd.L != gpio.High || bwd.L != gpio.Low {
		t.Errorf("Forward() pins %v/%v, want High/Low", fwd.L, bwd.L)
	}
	if err := d.Backward(); err != nil {
		t.Fatalf("Backward() failed: %v", err)
	}
	if fwd.L != gpio.Low || bwd.L != gpio.High {
		t.Errorf("Backward() pins %v/%v, want Low/High", fwd.L, bwd.L)
	}
	if err := d.Stop(); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
	if fwd.L != gpio.Low || bwd.L != gpio.Low {
		t.Errorf("Stop() pins %v/%v, want Low/Low", fwd.L, bwd.L)
	}
	if err := d.Halt(); err != nil {
		t.Fatalf("Halt() failed: %v", err)
	}
}
