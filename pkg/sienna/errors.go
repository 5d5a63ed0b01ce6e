// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Arkosense Instruments

package sienna

import (
	"fmt"
	"time"
)

// CRCError reports a frame whose received CRC does not match the CRC
// computed over its payload. The frame has been discarded.
type CRCError struct {
	Expected uint16 // computed over the received payload
	Received uint16 // carried in the frame
}

func (e *CRCError) Error() string {
	return fmt.Sprintf("CRC mismatch: expected 0x%04X, got 0x%04X", e.Expected, e.Received)
}

// FramingError reports a malformed frame: a declared length exceeding
// MaxFrameData, or a byte other than the end marker where the end marker
// was expected. The decoder has resynchronized to idle.
type FramingError struct {
	Reason string
}

func (e *FramingError) Error() string {
	return "framing error: " + e.Reason
}

// TimeoutError reports a stale partial frame: the gap since the previous
// byte exceeded the decoder's inter-byte timeout. The partial frame has
// been discarded and the triggering byte evaluated as a fresh start.
type TimeoutError struct {
	Gap time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("inter-byte timeout: %v since previous byte", e.Gap)
}
