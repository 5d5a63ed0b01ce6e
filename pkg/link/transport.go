// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Arkosense Instruments

package link

import "io"

// Transport is a byte-stream duplex channel: a serial port, a WebSocket
// serial bridge, or an in-memory pipe in tests. Read may block until bytes
// arrive; Write must either write the full buffer or return an error.
type Transport interface {
	io.Reader
	io.Writer
	io.Closer
}

// Handler receives link events. HandleFrame is invoked on the receive
// goroutine the instant a full, valid frame is assembled, so implementations
// must be fast and must not block beyond acquiring the transmit lock.
// HandleTxComplete is invoked from the transmit goroutine after each
// completed transmission and must do minimal work.
type Handler interface {
	// HandleFrame delivers a validated frame payload. The slice is owned by
	// the receiver and remains valid after the call returns.
	HandleFrame(payload []byte)

	// HandleTxComplete reports a finished transmission of n wire bytes.
	HandleTxComplete(n int)

	// HandleLinkError reports a discarded frame or transport fault:
	// *sienna.CRCError, *sienna.FramingError, *sienna.TimeoutError, or a
	// read error from the transport.
	HandleLinkError(err error)
}

// NopHandler is a Handler that ignores all events. Embed it to implement
// only the events of interest.
type NopHandler struct{}

// HandleFrame implements Handler.
func (NopHandler) HandleFrame([]byte) {}

// HandleTxComplete implements Handler.
func (NopHandler) HandleTxComplete(int) {}

// HandleLinkError implements Handler.
func (NopHandler) HandleLinkError(error) {}
