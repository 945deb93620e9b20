// Copyright 2026 The TagTagTag Ears Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ears

import "errors"

var (
	// ErrBroken is returned when writing to an ear that failed calibration
	// or was halted. A broken ear stays broken until the process restarts.
	ErrBroken = errors.New("ears: ear is broken")

	// ErrBusy is returned by Open when the ear already has a client.
	ErrBusy = errors.New("ears: ear is already open")

	// ErrClosed is returned by operations on a closed Conn.
	ErrClosed = errors.New("ears: connection is closed")
)
