// Copyright 2026 The TagTagTag Ears Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// earmon watches one ear through its daemon socket and draws its
// position as a colored dial in the terminal.
package main

import (
	"flag"
	"log"
	"net"
	"time"

	"github.com/nabaztag-hw/ears"
	"github.com/nabaztag-hw/ears/earterm"
)

func main() {
	socket := flag.String("socket", "/var/run/ear0", "ear socket to watch")
	interval := flag.Duration("interval", 500*time.Millisecond, "poll interval")
	flag.Parse()

	nc, err := net.Dial("unix", *socket)
	if err != nil {
		log.Fatal(err)
	}
	defer nc.Close()

	term := earterm.New(nil)
	defer term.Halt()

	buf := make([]byte, 1)
	for {
		if _, err := nc.Write([]byte{'?'}); err != nil {
			log.Fatal(err)
		}
		if _, err := nc.Read(buf); err != nil {
			log.Fatal(err)
		}
		pos := int(buf[0])
		switch buf[0] {
		case 0xFF:
			pos = ears.PositionUnknown
		case ears.Moved:
			// Somebody turned the ear by hand; the next query reports the
			// fresh state.
			continue
		}
		if err := term.Draw(pos); err != nil {
			log.Fatal(err)
		}
		time.Sleep(*interval)
	}
}
