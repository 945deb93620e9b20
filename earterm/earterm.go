// Copyright 2026 The TagTagTag Ears Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package earterm renders an ear's position as a 17 cell dial in the
// terminal using ANSI color codes.
//
// Useful to watch an ear move without standing next to the rabbit.
package earterm

import (
	"bytes"
	"fmt"
	"image/color"
	"io"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"github.com/nabaztag-hw/ears"
	"periph.io/x/conn/v3"
)

// Opts represents the options available for the dial.
type Opts struct {
	// W is the destination. Defaults to a colorable stdout.
	W io.Writer

	Palette *ansi256.Palette

	_ struct{}
}

// Dev is an ear dial that outputs to the console.
type Dev struct {
	w       io.Writer
	palette ansi256.Palette

	buf bytes.Buffer
}

// New returns a Dev that displays at the console.
func New(opts *Opts) *Dev {
	d := &Dev{w: colorable.NewColorableStdout(), palette: *ansi256.Default}
	if opts != nil {
		if opts.W != nil {
			d.w = opts.W
		}
		if opts.Palette != nil {
			d.palette = *opts.Palette
		}
	}
	return d
}

func (d *Dev) String() string {
	return "EarTerm"
}

// Halt implements conn.Resource.
//
// It resets the terminal attributes so the shell is not corrupted.
func (d *Dev) Halt() error {
	_, err := d.w.Write([]byte("\n\033[0m"))
	return err
}

// Draw redraws the dial in place. The cell at position lights up green;
// ears.PositionUnknown paints the whole dial red.
func (d *Dev) Draw(position int) error {
	// This code is designed to minimize the amount of memory allocated per call.
	d.buf.Reset()
	_, _ = d.buf.WriteString("\r\033[0m")
	for i := 0; i < ears.NumHoles; i++ {
		c := color.NRGBA{0x30, 0x30, 0x30, 255}
		switch {
		case position == ears.PositionUnknown:
			c = color.NRGBA{0xa0, 0x00, 0x00, 255}
		case i == position:
			c = color.NRGBA{0x00, 0xc0, 0x00, 255}
		}
		_, _ = io.WriteString(&d.buf, d.palette.Block(c))
	}
	_, _ = d.buf.WriteString("\033[0m ")
	_, err := d.buf.WriteTo(d.w)
	return err
}

var _ conn.Resource = &Dev{}
var _ fmt.Stringer = &Dev{}
