// Copyright 2026 The TagTagTag Ears Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ears_test

import (
	"log"

	"github.com/nabaztag-hw/ears"
	"github.com/nabaztag-hw/ears/motor"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

func Example() {
	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}
	m, err := motor.New(gpioreg.ByName("GPIO12"), gpioreg.ByName("GPIO13"), &motor.Opts{Name: "left"})
	if err != nil {
		log.Fatal(err)
	}
	d, err := ears.New(gpioreg.ByName("GPIO24"), m, &ears.Opts{Name: "left"})
	if err != nil {
		log.Fatal(err)
	}
	defer d.Halt()
	if err := d.WaitCalibrated(); err != nil {
		log.Fatal(err)
	}
	c, err := d.Open()
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()
	// Turn the ear forward to position 5, then ask where it is. The query
	// blocks until the motion completes.
	if _, err := c.Write([]byte{'>', 5}); err != nil {
		log.Fatal(err)
	}
	if _, err := c.Write([]byte{'?'}); err != nil {
		log.Fatal(err)
	}
	buf := make([]byte, 1)
	if _, err := c.Read(buf); err != nil {
		log.Fatal(err)
	}
	log.Printf("ear is at position %d", buf[0])
}
