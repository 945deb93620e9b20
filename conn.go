// Copyright 2026 The TagTagTag Ears Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ears

import "io"

// Conn is an ear's single client session. Its Read and Write are blocking;
// Poll reports readiness without blocking.
type Conn struct {
	d      *Dev
	closed bool
}

// Open claims the ear's command channel. Only one session may be open at a
// time; a second Open returns ErrBusy until Close is called. Ear state is
// not affected either way.
func (d *Dev) Open() (*Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.opened {
		return nil, ErrBusy
	}
	d.opened = true
	return &Conn{d: d}, nil
}

// Close releases the session and wakes any blocked Read or Write.
func (c *Conn) Close() error {
	d := c.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.closed = true
	d.opened = false
	d.rcond.Broadcast()
	d.wcond.Broadcast()
	return nil
}

// Write submits one command. It blocks until the ear is idle or broken; a
// broken ear fails the write with ErrBroken and consumes nothing. On an
// idle ear it consumes the command byte and, for '+', '-', '>' and '<',
// the parameter byte. A command byte arriving without its parameter is
// buffered and completed by the next Write. Returns the number of bytes
// consumed.
func (c *Conn) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	d := c.d
	d.mu.Lock()
	defer d.mu.Unlock()
	var idle *stateIdle
	for {
		if c.closed {
			return 0, ErrClosed
		}
		if _, ok := d.st.(stateBroken); ok {
			return 0, ErrBroken
		}
		if st, ok := d.st.(*stateIdle); ok {
			idle = st
			break
		}
		d.wcond.Wait()
	}
	d.idleMovedCheck(idle)
	var cmd, arg byte
	n := 1
	if d.hasPartial {
		cmd, arg = d.partial, p[0]
		d.hasPartial = false
	} else {
		cmd = p[0]
		switch cmd {
		case '+', '-', '>', '<':
			if len(p) == 1 {
				d.partial = cmd
				d.hasPartial = true
				return 1, nil
			}
			arg = p[1]
			n = 2
		}
	}
	d.exec(idle, cmd, arg)
	return n, nil
}

// Read delivers one pending result byte: a position 0-16, 0xFF for an
// unknown position, or the Moved marker. It blocks until a result is
// published, and returns io.EOF once the ear is broken.
func (c *Conn) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	d := c.d
	d.mu.Lock()
	defer d.mu.Unlock()
	for {
		if c.closed {
			return 0, ErrClosed
		}
		if _, ok := d.st.(stateBroken); ok {
			return 0, io.EOF
		}
		if d.resultPending {
			break
		}
		d.rcond.Wait()
	}
	p[0] = d.result
	d.resultPending = false
	return 1, nil
}

// Flags describes the readiness of a Conn.
type Flags uint8

const (
	// Writable is set when the ear is idle and a command would not block.
	Writable Flags = 1 << iota
	// Readable is set when a result byte is pending.
	Readable
	// HangUp is set when the ear is broken; it never clears.
	HangUp
)

// Poll reports the session's readiness without blocking.
func (c *Conn) Poll() Flags {
	d := c.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.st.(stateBroken); ok {
		return HangUp
	}
	var f Flags
	if _, ok := d.st.(*stateIdle); ok {
		f |= Writable
	}
	if d.resultPending {
		f |= Readable
	}
	return f
}

// exec runs one decoded command against an idle ear.
func (d *Dev) exec(st *stateIdle, cmd, arg byte) {
	switch cmd {
	case '.':
		// NOP: writing it only waits for idle.
	case '+':
		d.toRunning(st.position, int(arg))
	case '-':
		d.toRunning(st.position, -int(arg))
	case '>':
		if st.position == PositionUnknown {
			d.toDetecting(gotoPosition, 1, int(arg))
			return
		}
		delta := int(arg) - st.position
		for delta < 0 {
			delta += NumHoles
		}
		d.toRunning(st.position, delta)
	case '<':
		if st.position == PositionUnknown {
			d.toDetecting(gotoPosition, -1, int(arg))
			return
		}
		delta := int(arg) - st.position
		for delta > 0 {
			delta -= NumHoles
		}
		// A parameter of P+17k asks for k ceremonial full turns on top.
		delta -= NumHoles * (int(arg) / NumHoles)
		d.toRunning(st.position, delta)
	case '?':
		d.publish(encodePos(st.position))
	case '!':
		if st.position == PositionUnknown {
			d.toDetecting(readPosition, 1, 0)
			return
		}
		d.publish(byte(st.position))
	}
}
