// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Arkosense Instruments

package device

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// DeviceConfig is the board configuration exchanged via GET_CONFIG and
// SET_CONFIG. It travels as a CBOR map with integer keys, matching the
// compact int-keyed encoding used elsewhere in the Arkosense ecosystem.
type DeviceConfig struct {
	// StreamIntervalMs is used when START_MEASUREMENT requests interval 0.
	StreamIntervalMs uint32 `cbor:"1,keyasint"`

	// Per-sensor streaming enables.
	TemperatureEnabled bool `cbor:"2,keyasint"`
	CurrentEnabled     bool `cbor:"3,keyasint"`

	// RxTimeoutMs is informational: the link inter-byte timeout the board
	// reports to the host.
	RxTimeoutMs uint32 `cbor:"4,keyasint"`
}

// DefaultDeviceConfig returns the board's power-on configuration.
func DefaultDeviceConfig() DeviceConfig {
	return DeviceConfig{
		StreamIntervalMs:   1000,
		TemperatureEnabled: true,
		CurrentEnabled:     true,
		RxTimeoutMs:        1000,
	}
}

// Validate checks the configuration for values the board cannot honor.
func (c *DeviceConfig) Validate() error {
	if c.StreamIntervalMs == 0 {
		return fmt.Errorf("stream interval must be non-zero")
	}
	if c.StreamIntervalMs > 3600_000 {
		return fmt.Errorf("stream interval %d ms exceeds one hour", c.StreamIntervalMs)
	}
	return nil
}

// Encode serializes the configuration to CBOR.
func (c *DeviceConfig) Encode() ([]byte, error) {
	return cbor.Marshal(c)
}

// DecodeDeviceConfig deserializes a configuration from CBOR.
func DecodeDeviceConfig(data []byte) (DeviceConfig, error) {
	var cfg DeviceConfig
	if err := cbor.Unmarshal(data, &cfg); err != nil {
		return DeviceConfig{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}
