// Copyright 2026 The TagTagTag Ears Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ears

import (
	"log"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// A detect boundary above slowBoundary means the ear turns abnormally
// slowly; the gap typically measures about 800ms.
const slowBoundary = time.Second

// state is the per-ear state machine variant. Exactly one is active at any
// time and transitions replace the value as a whole.
type state interface {
	earState()
}

// stateTesting is the startup calibration: one forward revolution to
// collect the 17 inter-hole deltas, then a single backward step to test
// the other direction.
type stateTesting struct {
	holes      int
	lastEdge   time.Time // zero until the first edge is seen
	deltas     [NumHoles]time.Duration
	forwardPos int
}

type postDetect int

const (
	gotoPosition postDetect = iota
	readPosition
)

// stateDetecting spins the ear until the gap is recognized, to anchor an
// unknown position.
type stateDetecting struct {
	post      postDetect
	direction int // 1 forward, -1 backward
	target    int
	holes     int
	lastEdge  time.Time // zero until the first edge is seen
}

type stateIdle struct {
	position int // 0-16, or PositionUnknown
}

type stateRunning struct {
	position  int // 0-16, or PositionUnknown
	direction int // 1 forward, -1 backward
	count     int // remaining steps
}

type stateBroken struct{}

func (*stateTesting) earState()   {}
func (*stateDetecting) earState() {}
func (*stateIdle) earState()      {}
func (*stateRunning) earState()   {}
func (stateBroken) earState()     {}

// norm maps a step count into [0, NumHoles).
func norm(x int) int {
	x %= NumHoles
	if x < 0 {
		x += NumHoles
	}
	return x
}

// minimize brings a step count into [-9, 9] by whole revolutions, so a
// motion never exceeds about half a turn.
func minimize(steps int) int {
	for steps > 9 {
		steps -= NumHoles
	}
	for steps < -9 {
		steps += NumHoles
	}
	return steps
}

// encodePos encodes a position as a protocol byte, 0xFF for unknown.
func encodePos(position int) byte {
	if position == PositionUnknown {
		return 0xFF
	}
	return byte(position)
}

// publish makes b the pending result and wakes a blocked reader.
func (d *Dev) publish(b byte) {
	d.resultPending = true
	d.result = b
	d.rcond.Broadcast()
}

// idleMovedCheck detects manual rotation while idle: the encoder resting
// high means the ear left the hole it stopped in, so the position is no
// longer trustworthy.
func (d *Dev) idleMovedCheck(st *stateIdle) {
	if st.position == PositionUnknown {
		return
	}
	if d.encoder.Read() != gpio.High {
		return
	}
	st.position = PositionUnknown
	if !d.resultPending {
		d.publish(Moved)
	}
}

// ========================================================================
// Watchdog
// ========================================================================

// armWatchdog (re)arms the per-ear watchdog. Arming cancels the previous
// timer first; the generation counter guarantees that an expiry racing
// with a re-arm is never acted upon.
func (d *Dev) armWatchdog() {
	if d.wdTimer != nil {
		d.wdTimer.Stop()
	}
	d.wdGen++
	gen := d.wdGen
	d.wdTimer = d.clock.AfterFunc(d.timeout, func() {
		d.watchdogExpired(gen)
	})
}

func (d *Dev) cancelWatchdog() {
	if d.wdTimer != nil {
		d.wdTimer.Stop()
		d.wdTimer = nil
	}
	d.wdGen++
}

// watchdogExpired runs when no edge was seen for the whole timeout. During
// calibration that is fatal; during detection or motion the ear merely
// lost track of its position.
func (d *Dev) watchdogExpired(gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.wdGen {
		return
	}
	d.wdTimer = nil
	d.motorStop()
	if _, ok := d.st.(*stateTesting); ok {
		log.Printf("%s: timeout, declaring ear as broken", d.name)
		d.toBroken()
	} else {
		log.Printf("%s: timeout, giving up (position is thereupon unknown)", d.name)
		d.toIdle(PositionUnknown)
	}
}

// ========================================================================
// State transitions
// ========================================================================

// toTesting starts the calibration run.
func (d *Dev) toTesting() {
	d.st = &stateTesting{}
	d.armWatchdog()
	d.motorForward()
}

// toBroken latches the permanent fault state. Blocked writers fail and
// blocked readers get end of stream.
func (d *Dev) toBroken() {
	d.st = stateBroken{}
	d.wcond.Broadcast()
	d.rcond.Broadcast()
}

// toIdle ends a motion. If a result slot is pending and unread, it is
// refreshed with the final position.
func (d *Dev) toIdle(position int) {
	d.st = &stateIdle{position: position}
	if d.resultPending {
		d.result = encodePos(position)
		d.rcond.Broadcast()
	}
	d.wcond.Broadcast()
}

// toRunning starts a bounded motion of delta steps (negative for
// backward) from position. A zero delta means "already there": the result
// is published immediately and the ear goes idle.
func (d *Dev) toRunning(position, delta int) {
	if delta == 0 {
		// Stop whatever a previous detection started.
		d.cancelWatchdog()
		d.motorStop()
		d.publish(encodePos(position))
		d.toIdle(position)
		return
	}
	st := &stateRunning{position: position}
	if delta > 0 {
		st.direction = 1
		st.count = delta
	} else {
		st.direction = -1
		st.count = -delta
	}
	d.st = st
	d.armWatchdog()
	if st.direction > 0 {
		d.motorForward()
	} else {
		d.motorBackward()
	}
}

// toDetecting spins the ear to find the gap and anchor its position.
func (d *Dev) toDetecting(post postDetect, direction, target int) {
	st := &stateDetecting{post: post, direction: direction, target: target}
	if d.encoder.Read() == gpio.Low {
		// Inside a hole: the next edge closes a full interval.
		st.lastEdge = d.clock.Now()
	} else if direction < 0 {
		// Between two holes, spinning backward: the first edge belongs
		// to the previous hole, not the next one. holes only feeds
		// position recovery, which always detects forward today, so this
		// matters only if a backward read-detection ever appears.
		st.holes++
	}
	d.st = st
	d.armWatchdog()
	if direction > 0 {
		d.motorForward()
	} else {
		d.motorBackward()
	}
}

// ========================================================================
// Edge handlers
// ========================================================================

// edge feeds one falling edge of the encoder, timestamped by the pump,
// into the active state.
func (d *Dev) edge(now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch st := d.st.(type) {
	case *stateTesting:
		d.edgeTesting(st, now)
	case *stateDetecting:
		d.edgeDetecting(st, now)
	case *stateIdle:
		d.edgeIdle(st)
	case *stateRunning:
		d.edgeRunning(st)
	case stateBroken:
		// A broken ear stays silent.
	}
}

// edgeTesting collects the 17 forward deltas, analyzes them, then checks
// the single backward step.
func (d *Dev) edgeTesting(st *stateTesting, now time.Time) {
	if st.lastEdge.IsZero() {
		st.lastEdge = now
		d.armWatchdog()
		return
	}
	delta := now.Sub(st.lastEdge)
	if st.holes < NumHoles {
		st.deltas[st.holes] = delta
		st.lastEdge = now
		st.holes++
		if st.holes < NumHoles {
			d.armWatchdog()
			return
		}
		// End of the forward run.
		d.cancelWatchdog()
		d.motorStop()
		max, gap, gapIx := analyze(&st.deltas)
		if gap < max+max/2 {
			log.Printf("%s: gap is not obvious (max = %v, gap = %v), declaring ear as broken", d.name, max, gap)
			d.toBroken()
			return
		}
		// A gap in the last delta means the ear sits right after the
		// marker; earlier gaps put it proportionally further along,
		// minus the fixed offset between the marker and logical zero.
		st.forwardPos = norm(NumHoles - 1 - gapIx - offZero)
		d.boundary = (max + gap) / 2
		d.calDeltas = st.deltas
		d.calibrated = true
		if d.boundary > slowBoundary {
			log.Printf("%s: ear is abnormally slow (gap = %v, typically 800ms)", d.name, gap)
		}
		// Now test the backward direction with a single step.
		d.motorBackward()
		d.armWatchdog()
		return
	}
	// The single backward step.
	d.cancelWatchdog()
	d.motorStop()
	// If the forward run ended exactly on the gap, stepping backward
	// re-enters it and the delta must read wide; anywhere else it must
	// read narrow. The asymmetry is deliberate.
	if st.forwardPos == norm(NumHoles-offZero) {
		if delta < d.boundary {
			log.Printf("%s: incoherent backward delta, got %v, expected more than %v", d.name, delta, d.boundary)
			d.toBroken()
			return
		}
	} else if delta > d.boundary {
		log.Printf("%s: incoherent backward delta, got %v, expected less than %v", d.name, delta, d.boundary)
		d.toBroken()
		return
	}
	d.toIdle(norm(st.forwardPos - 1))
}

// analyze scans a forward calibration run: 16 roughly equal deltas and one
// clearly larger one, the gap. It returns the largest normal delta, the
// gap delta and the gap's index.
func analyze(deltas *[NumHoles]time.Duration) (max, gap time.Duration, gapIx int) {
	for ix, delta := range deltas {
		if delta > gap {
			max = gap
			gap = delta
			gapIx = ix
		} else if delta > max {
			max = delta
		}
	}
	return max, gap, gapIx
}

// edgeDetecting compares each inter-edge delta against the learned
// boundary; crossing it means the gap was found and the ear is anchored.
func (d *Dev) edgeDetecting(st *stateDetecting, now time.Time) {
	if st.lastEdge.IsZero() {
		// The first edge only establishes the timing reference.
		st.lastEdge = now
		d.armWatchdog()
		return
	}
	delta := now.Sub(st.lastEdge)
	st.holes++
	if delta <= d.boundary {
		st.lastEdge = now
		d.armWatchdog()
		return
	}
	// Crossed the gap: the ear now sits at the reference position.
	const ref = NumHoles - offZero
	var steps int
	if st.post == readPosition {
		// The ear moved holes steps from its old position to reach the
		// reference; recover that position, report it, and return the
		// ear to it.
		prev := norm(NumHoles - st.holes - offZero)
		d.publish(byte(prev))
		steps = norm(prev - ref)
	} else if st.direction > 0 {
		steps = norm(st.target - ref)
	} else {
		steps = -norm(ref - st.target)
	}
	d.toRunning(ref, minimize(steps))
}

// edgeIdle means the ear is being rotated by hand.
func (d *Dev) edgeIdle(st *stateIdle) {
	st.position = PositionUnknown
	if !d.resultPending {
		d.publish(Moved)
	}
}

// edgeRunning advances the position and stops the motor when the step
// budget is exhausted, compensating for inertia overshoot.
func (d *Dev) edgeRunning(st *stateRunning) {
	if st.position != PositionUnknown {
		st.position = norm(st.position + st.direction)
	}
	st.count--
	if st.count > 0 {
		d.armWatchdog()
		return
	}
	d.cancelWatchdog()
	d.motorStop()
	if d.encoder.Read() == gpio.High {
		// Inertia carried the ear past the hole. Pull it back one step;
		// the corrective edge will undo the extra increment.
		if st.position != PositionUnknown {
			st.position = norm(st.position + st.direction)
		}
		st.direction = -st.direction
		st.count = 1
		d.armWatchdog()
		if st.direction > 0 {
			d.motorForward()
		} else {
			d.motorBackward()
		}
		return
	}
	d.toIdle(st.position)
}
