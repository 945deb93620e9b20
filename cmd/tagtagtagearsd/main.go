// Copyright 2026 The TagTagTag Ears Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// tagtagtagearsd drives the two ears of a Nabaztag fitted with a
// tagtagtag board and serves each one on a Unix socket speaking the byte
// command protocol of package ears.
package main

import (
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/nabaztag-hw/ears"
	"github.com/nabaztag-hw/ears/earplot"
	"github.com/nabaztag-hw/ears/internal/config"
	"github.com/nabaztag-hw/ears/motor"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

func mustPin(name string) gpio.PinIO {
	p := gpioreg.ByName(name)
	if p == nil {
		log.Fatalf("no such pin %q", name)
	}
	return p
}

func newEar(name string, ec config.EarConfig) *ears.Dev {
	m, err := motor.New(mustPin(ec.MotorForward), mustPin(ec.MotorBackward), &motor.Opts{Name: name})
	if err != nil {
		log.Fatalf("%s: %v", name, err)
	}
	d, err := ears.New(mustPin(ec.Encoder), m, &ears.Opts{Name: name})
	if err != nil {
		log.Fatalf("%s: %v", name, err)
	}
	return d
}

// serve accepts one client at a time; the ear enforces that itself.
func serve(l net.Listener, d *ears.Dev) {
	for {
		nc, err := l.Accept()
		if err != nil {
			return
		}
		c, err := d.Open()
		if err != nil {
			nc.Close()
			continue
		}
		bridge(nc, c)
	}
}

// bridge pumps bytes between a socket client and an ear session until
// either side goes away.
func bridge(nc net.Conn, c *ears.Conn) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 1)
		for {
			if _, err := c.Read(buf); err != nil {
				return
			}
			if _, err := nc.Write(buf); err != nil {
				return
			}
		}
	}()
	buf := make([]byte, 64)
loop:
	for {
		n, err := nc.Read(buf)
		if err != nil {
			break
		}
		// A command and its parameter may straddle two reads; the session
		// buffers the partial command and reports how much it consumed.
		for off := 0; off < n; {
			m, err := c.Write(buf[off:n])
			if err != nil {
				break loop
			}
			off += m
		}
	}
	c.Close()
	nc.Close()
	<-done
}

func writeCalTrace(dir, name string, d *ears.Dev) {
	deltas, boundary := d.Calibration()
	if deltas == nil {
		return
	}
	f, err := os.Create(filepath.Join(dir, name+".png"))
	if err != nil {
		log.Printf("%s: calibration chart: %v", name, err)
		return
	}
	defer f.Close()
	if err := earplot.Calibration(f, deltas, boundary); err != nil {
		log.Printf("%s: calibration chart: %v", name, err)
	}
}

func main() {
	configPath := flag.String("config", "", "YAML configuration file (stock wiring when empty)")
	calTrace := flag.String("caltrace", "", "directory to write calibration charts to")
	flag.Parse()

	cfg := &config.Default
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatal(err)
		}
	}

	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}

	left := newEar("left", cfg.Left)
	right := newEar("right", cfg.Right)

	// A broken ear keeps being served: clients learn about it through
	// the hang-up semantics instead of a missing socket.
	for _, e := range []struct {
		name string
		d    *ears.Dev
	}{
		{"left", left},
		{"right", right},
	} {
		if err := e.d.WaitCalibrated(); err != nil {
			log.Printf("%s: %v", e.name, err)
			continue
		}
		log.Printf("%s: calibrated at position %d", e.name, e.d.Position())
		if *calTrace != "" {
			writeCalTrace(*calTrace, e.name, e.d)
		}
	}

	var listeners []net.Listener
	for _, e := range []struct {
		d      *ears.Dev
		socket string
	}{
		{left, cfg.Left.Socket},
		{right, cfg.Right.Socket},
	} {
		os.Remove(e.socket)
		l, err := net.Listen("unix", e.socket)
		if err != nil {
			log.Fatal(err)
		}
		listeners = append(listeners, l)
		go serve(l, e.d)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	for _, l := range listeners {
		l.Close()
	}
	left.Halt()
	right.Halt()
}
