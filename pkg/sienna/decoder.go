// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Arkosense Instruments

package sienna

import (
	"fmt"
	"time"
)

// Decoder implements the Sienna frame decoder state machine. One instance
// serves one link; it is not safe for concurrent use. Bytes must be fed in
// arrival order.
type Decoder struct {
	state          int
	buffer         [MaxFrameData]byte
	bufferIndex    int
	expectedLength int
	crc            uint16
	lastByteTime   time.Time
	timeout        time.Duration

	now func() time.Time
}

// NewDecoder creates a frame decoder with the default inter-byte timeout.
func NewDecoder() *Decoder {
	return &Decoder{
		state:   stateIdle,
		timeout: DefaultRxTimeoutMs * time.Millisecond,
		now:     time.Now,
	}
}

// SetTimeout sets the inter-byte timeout. Zero disables staleness checks.
func (d *Decoder) SetTimeout(timeout time.Duration) {
	d.timeout = timeout
}

// Reset returns the decoder to the idle state, discarding any partial frame.
func (d *Decoder) Reset() {
	d.state = stateIdle
	d.bufferIndex = 0
	d.expectedLength = 0
	d.crc = 0
}

// Idle reports whether the decoder is waiting for a start marker.
func (d *Decoder) Idle() bool {
	return d.state == stateIdle
}

// DecodeByte processes a single byte through the decoder state machine.
// It returns a completed frame, or nil while the frame is incomplete.
// A non-nil error reports a discarded frame (*CRCError, *FramingError or
// *TimeoutError); the decoder has already resynchronized and the caller may
// simply continue feeding bytes.
//
// If the gap since the previous byte exceeds the inter-byte timeout while a
// frame is in progress, the partial frame is discarded first and the current
// byte is then evaluated as a potential fresh start marker. The returned
// *TimeoutError reports the discard; the byte itself has been consumed.
func (d *Decoder) DecodeByte(b byte) (*Frame, error) {
	now := d.now()

	var stale error
	if d.timeout > 0 && d.state != stateIdle {
		if gap := now.Sub(d.lastByteTime); gap > d.timeout {
			d.Reset()
			stale = &TimeoutError{Gap: gap}
		}
	}
	d.lastByteTime = now

	frame, err := d.step(b, now)
	if stale != nil {
		// A single byte after a reset can at most re-enter the length
		// state, so the step outcome cannot shadow the timeout.
		return nil, stale
	}
	return frame, err
}

func (d *Decoder) step(b byte, now time.Time) (*Frame, error) {
	switch d.state {
	case stateIdle:
		if b == StartMarker {
			d.state = stateLengthLow
			d.bufferIndex = 0
		}
		return nil, nil

	case stateLengthLow:
		d.expectedLength = int(b)
		d.state = stateLengthHigh
		return nil, nil

	case stateLengthHigh:
		d.expectedLength |= int(b) << 8
		if d.expectedLength > MaxFrameData {
			length := d.expectedLength
			d.Reset()
			return nil, &FramingError{Reason: fmt.Sprintf("declared length %d exceeds %d", length, MaxFrameData)}
		}
		if d.expectedLength == 0 {
			d.state = stateCRCLow
		} else {
			d.state = stateData
		}
		return nil, nil

	case stateData:
		d.buffer[d.bufferIndex] = b
		d.bufferIndex++
		if d.bufferIndex >= d.expectedLength {
			d.state = stateCRCLow
		}
		return nil, nil

	case stateCRCLow:
		d.crc = uint16(b)
		d.state = stateCRCHigh
		return nil, nil

	case stateCRCHigh:
		d.crc |= uint16(b) << 8
		d.state = stateEnd
		return nil, nil

	case stateEnd:
		defer d.Reset()
		if b != EndMarker {
			return nil, &FramingError{Reason: fmt.Sprintf("invalid end marker 0x%02X", b)}
		}
		calculated := CalculateCRC(d.buffer[:d.bufferIndex])
		if calculated != d.crc {
			return nil, &CRCError{Expected: calculated, Received: d.crc}
		}
		payload := make([]byte, d.bufferIndex)
		copy(payload, d.buffer[:d.bufferIndex])
		return &Frame{payload: payload, crc: d.crc, timestamp: now}, nil

	default:
		d.Reset()
		return nil, &FramingError{Reason: fmt.Sprintf("invalid state %d", d.state)}
	}
}
