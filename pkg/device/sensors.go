// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Arkosense Instruments

package device

import "time"

// Collaborator interfaces consumed by the dispatcher. The real board wires
// sensor drivers and the sample store behind these; tests and the CLI's
// device runner provide simulated implementations.

// TemperatureReading is the payload of a temperature-updated event.
type TemperatureReading struct {
	Celsius  float64
	Humidity float64
}

// CurrentSource provides instantaneous current readings, bypassing any
// cache. Called from the streaming goroutine.
type CurrentSource interface {
	// InstantReading returns the present current draw in milliamps.
	InstantReading() (milliamps float64, ok bool)
}

// StatusProvider reports the board's measurement state for GET_STATUS.
type StatusProvider interface {
	MeasurementState() uint8
	LastErrorCode() uint8
	BufferedSamples() uint16
}

// SampleStore is the buffered-sample store; the dispatcher only ever clears
// it.
type SampleStore interface {
	Clear()
}

// Clock is the board's real-time clock.
type Clock interface {
	Now() time.Time
	SetTime(t time.Time) error
}
