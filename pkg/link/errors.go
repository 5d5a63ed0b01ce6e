// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Arkosense Instruments

package link

import "errors"

// Errors returned by Link send operations.
var (
	// ErrClosed is returned when the link has been closed.
	ErrClosed = errors.New("link closed")

	// ErrTimeout is returned when the transmit lock could not be acquired,
	// a prior asynchronous transmission did not complete, or a synchronous
	// write did not finish within the caller's timeout.
	ErrTimeout = errors.New("transmit timeout")

	// ErrPayloadTooLarge is returned when a payload exceeds the maximum
	// frame data size.
	ErrPayloadTooLarge = errors.New("payload exceeds maximum frame size")

	// ErrTransmitFailed is returned when the transport reported a write
	// failure or a short write.
	ErrTransmitFailed = errors.New("transmit failed")
)
