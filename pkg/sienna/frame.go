// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Arkosense Instruments

package sienna

import (
	"fmt"
	"time"
)

// Frame represents a validated wire frame: the payload carried between the
// start and end markers, plus the CRC it arrived with. Frames are immutable
// once constructed.
type Frame struct {
	payload   []byte
	crc       uint16
	timestamp time.Time
}

// Payload returns the frame's payload bytes.
func (f *Frame) Payload() []byte {
	return f.payload
}

// CRC returns the CRC-16 value the frame was validated against.
func (f *Frame) CRC() uint16 {
	return f.crc
}

// Timestamp returns the time the frame completed decoding.
func (f *Frame) Timestamp() time.Time {
	return f.timestamp
}

// EncodedSize returns the on-wire size of a frame carrying a payload of the
// given length.
func EncodedSize(payloadLen int) int {
	return payloadLen + FrameOverhead
}

// EncodeFrame frames a payload for transmission:
// START(0xAA) LENGTH_LE(2) PAYLOAD CRC16_LE(2) END(0x55).
// The CRC is computed over the payload only.
func EncodeFrame(payload []byte) ([]byte, error) {
	buf := make([]byte, 0, EncodedSize(len(payload)))
	buf, err := AppendFrame(buf, payload)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// AppendFrame appends the encoded frame for payload to dst and returns the
// extended slice. It allows callers with preallocated buffers to frame
// without allocation.
func AppendFrame(dst, payload []byte) ([]byte, error) {
	if len(payload) > MaxFrameData {
		return nil, fmt.Errorf("payload too large: %d bytes (max %d)", len(payload), MaxFrameData)
	}

	dst = append(dst, StartMarker)
	dst = append(dst, byte(len(payload)), byte(len(payload)>>8))
	dst = append(dst, payload...)

	crc := CalculateCRC(payload)
	dst = append(dst, byte(crc), byte(crc>>8))
	dst = append(dst, EndMarker)

	return dst, nil
}
