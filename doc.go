// Copyright 2026 The TagTagTag Ears Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ears drives the motorized ears of a Nabaztag/tag rabbit fitted
// with a tagtagtag ears board.
//
// Each ear has a DC motor and a single rotary encoder. The encoder signal
// while the ear is turning looks like this:
//
//	0    1    2    3    4    5    6    7    8    9   10   11   12   13   14
//	  __   __   __   __   __   __   __   __   __   __   __   __   __   __   __
//	_|  |_|  |_|  |_|  |_|  |_|  |_|  |_|  |_|  |_|  |_|  |_|  |_|  |_|  |_|  |
//
//	15  16   17                   0    1    2    3    4    5    6    7    8
//	  __   __   _________________   __   __   __   __   __   __   __   __   __
//	_|  |_|  |_|                 |_|  |_|  |_|  |_|  |_|  |_|  |_|  |_|  |_|  |
//
// There are 17 holes per revolution, one of which is about three holes
// wide: the gap. On a healthy ear the signal is high for 0.12-0.15s per
// hole (0.75s over the gap) and a complete turn takes about 4 seconds.
// There is no absolute encoder, so the driver measures each ear's timing
// signature once at startup and afterwards infers the absolute position
// from the relative timing of falling edges.
//
// A Dev calibrates itself on creation, then accepts commands through a
// single-client byte protocol (see Dev.Open). Commands, each optionally
// followed by one parameter byte:
//
//	.    no-op, only blocks until the ear is idle
//	+ N  turn forward N steps
//	- N  turn backward N steps
//	> P  turn forward to position P mod 17, detecting first if unknown
//	< P  turn backward to position P mod 17, detecting first if unknown
//	?    report the position (0-16, or 0xFF if unknown) without moving
//	!    report the position, running a detection first if unknown
//
// Reading delivers exactly one byte per published result. While the ear is
// idle, rotating it by hand voids the position and publishes the 'm' moved
// marker.
package ears
