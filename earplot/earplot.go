// Copyright 2026 The TagTagTag Ears Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package earplot renders an ear's calibration data as a PNG chart.
//
// One bar per inter-hole delta, the gap standing out in red, with the
// learned hole/gap boundary drawn across. Handy to eyeball why an ear
// was declared slow or broken.
package earplot

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fogleman/gg"
	"github.com/nabaztag-hw/ears"
	"golang.org/x/image/font/basicfont"
)

const (
	width  = 640
	height = 240
	margin = 24
)

// Calibration writes a PNG chart of one ear's startup calibration:
// deltas as returned by ears.Calibration and the boundary that was
// learned from them.
func Calibration(w io.Writer, deltas []time.Duration, boundary time.Duration) error {
	if len(deltas) != ears.NumHoles {
		return fmt.Errorf("earplot: expected %d deltas, got %d", ears.NumHoles, len(deltas))
	}
	max := boundary
	for _, d := range deltas {
		if d > max {
			max = d
		}
	}
	if max <= 0 {
		return errors.New("earplot: nothing to plot")
	}

	dc := gg.NewContext(width, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	baseline := float64(height - margin)
	barW := float64(width-2*margin) / float64(len(deltas))
	scale := float64(height-2*margin) / float64(max)

	for i, d := range deltas {
		h := float64(d) * scale
		x := float64(margin) + float64(i)*barW
		if d > boundary {
			dc.SetRGB(0.8, 0.2, 0.2)
		} else {
			dc.SetRGB(0.2, 0.4, 0.8)
		}
		dc.DrawRectangle(x+1, baseline-h, barW-2, h)
		dc.Fill()
		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(strconv.Itoa(i), x+barW/2, baseline+10, 0.5, 0.5)
	}

	by := baseline - float64(boundary)*scale
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(1)
	dc.DrawLine(float64(margin), by, float64(width-margin), by)
	dc.Stroke()
	dc.DrawStringAnchored(boundary.String(), float64(width-margin), by-8, 1, 0.5)

	return dc.EncodePNG(w)
}
