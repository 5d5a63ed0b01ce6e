// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Arkosense Instruments

// Package sienna provides a reference Go implementation of the Sienna link
// protocol.
//
// Sienna is the binary protocol spoken between an Arkosense sensor
// acquisition board and its host controller over a point-to-point serial
// link. This package provides frame encoding/decoding, CRC validation,
// protocol packet marshalling and payload formatting. It is transport-free;
// see pkg/link for the transport binding.
package sienna

// Frame markers
const (
	StartMarker = 0xAA
	EndMarker   = 0x55
)

// Frame size limits.
//
// FrameOverhead is START(1) + LENGTH(2) + CRC(2) + END(1). The declared
// frame payload length may never exceed MaxFrameSize - FrameOverhead.
const (
	MaxFrameSize  = 512
	FrameOverhead = 6
	MaxFrameData  = MaxFrameSize - FrameOverhead
)

// Protocol packet limits.
//
// A protocol packet travels inside a frame's payload:
// TYPE(1) + CMD_ID(1) + SEQ(1) + STATUS(1) + LENGTH_LE(2) + PAYLOAD.
const (
	HeaderSize     = 6
	MaxPayloadSize = 256
)

// CRC-16-CCITT configuration
const (
	crcPolynomial = 0x1021
	crcInitial    = 0xFFFF
)

// Link defaults shared by both ends
const (
	DefaultBaudRate      = 921600
	DefaultRxTimeoutMs   = 1000
	DefaultLockTimeoutMs = 1000
)

// PacketType identifies the role of a protocol packet.
type PacketType uint8

// Packet types
const (
	TypeCommand      PacketType = 0x01
	TypeResponse     PacketType = 0x02
	TypeNotification PacketType = 0x03
)

// Command IDs (host → board), notification IDs from 0x80
const (
	CmdGetBufferData    = 0x01
	CmdStartMeasurement = 0x02
	CmdStopMeasurement  = 0x03
	CmdSetRtc           = 0x04
	CmdGetStatus        = 0x05
	CmdClearBuffer      = 0x06
	CmdGetConfig        = 0x07
	CmdSetConfig        = 0x08

	NotifySensorData = 0x80
)

// Status represents a response status code.
type Status uint8

// Response status codes
const (
	StatusOK           Status = 0x00
	StatusError        Status = 0x01
	StatusInvalidCmd   Status = 0x02
	StatusInvalidParam Status = 0x03
	StatusBusy         Status = 0x04
	StatusTimeout      Status = 0x05
	StatusNoData       Status = 0x06
)

// SensorType identifies a sensor on the board.
type SensorType uint8

// Sensor types
const (
	SensorTemperature SensorType = 0x01
	SensorCurrent     SensorType = 0x02
)

// Decoder states (internal)
const (
	stateIdle = iota
	stateLengthLow
	stateLengthHigh
	stateData
	stateCRCLow
	stateCRCHigh
	stateEnd
)
