// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Arkosense Instruments

package sienna

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Command payload codecs and host-side command builders. The builders create
// Packet structs ready for Marshal + EncodeFrame; the codecs cover the fixed
// little-endian payload layouts shared with the board firmware.

// Sample is a single sensor measurement as carried in buffered data and
// streaming notifications. Value is a scaled integer: centi-degrees for
// temperature, microamps for current.
type Sample struct {
	Sensor    SensorType
	Timestamp uint32 // milliseconds since boot
	Value     int32
}

// SampleSize is the encoded size of a Sample: SENSOR(1) TS_LE(4) VALUE_LE(4).
const SampleSize = 9

// Marshal encodes the sample to its wire layout.
func (s *Sample) Marshal() []byte {
	buf := make([]byte, SampleSize)
	buf[0] = byte(s.Sensor)
	binary.LittleEndian.PutUint32(buf[1:5], s.Timestamp)
	binary.LittleEndian.PutUint32(buf[5:9], uint32(s.Value))
	return buf
}

// ParseSample decodes a sample from a notification payload.
func ParseSample(data []byte) (*Sample, error) {
	if len(data) < SampleSize {
		return nil, fmt.Errorf("sample payload too short: %d bytes (want %d)", len(data), SampleSize)
	}
	return &Sample{
		Sensor:    SensorType(data[0]),
		Timestamp: binary.LittleEndian.Uint32(data[1:5]),
		Value:     int32(binary.LittleEndian.Uint32(data[5:9])),
	}, nil
}

// StatusReply is the GET_STATUS response payload:
// STATE(1) ERROR(1) BUFFER_COUNT_LE(2) UPTIME_SEC_LE(4).
type StatusReply struct {
	State       uint8
	ErrorCode   uint8
	BufferCount uint16
	UptimeSec   uint32
}

// StatusReplySize is the encoded size of a StatusReply.
const StatusReplySize = 8

// Marshal encodes the status reply to its wire layout.
func (r *StatusReply) Marshal() []byte {
	buf := make([]byte, StatusReplySize)
	buf[0] = r.State
	buf[1] = r.ErrorCode
	binary.LittleEndian.PutUint16(buf[2:4], r.BufferCount)
	binary.LittleEndian.PutUint32(buf[4:8], r.UptimeSec)
	return buf
}

// ParseStatusReply decodes a GET_STATUS response payload.
func ParseStatusReply(data []byte) (*StatusReply, error) {
	if len(data) < StatusReplySize {
		return nil, fmt.Errorf("status payload too short: %d bytes (want %d)", len(data), StatusReplySize)
	}
	return &StatusReply{
		State:       data[0],
		ErrorCode:   data[1],
		BufferCount: binary.LittleEndian.Uint16(data[2:4]),
		UptimeSec:   binary.LittleEndian.Uint32(data[4:8]),
	}, nil
}

// StartStreamRequest is the START_MEASUREMENT command payload:
// SENSOR(1) INTERVAL_MS_LE(4).
type StartStreamRequest struct {
	Sensor     SensorType
	IntervalMs uint32
}

// StartStreamRequestSize is the encoded size of a StartStreamRequest.
const StartStreamRequestSize = 5

// Marshal encodes the start-stream request to its wire layout.
func (r *StartStreamRequest) Marshal() []byte {
	buf := make([]byte, StartStreamRequestSize)
	buf[0] = byte(r.Sensor)
	binary.LittleEndian.PutUint32(buf[1:5], r.IntervalMs)
	return buf
}

// ParseStartStreamRequest decodes a START_MEASUREMENT command payload.
func ParseStartStreamRequest(data []byte) (*StartStreamRequest, error) {
	if len(data) < StartStreamRequestSize {
		return nil, fmt.Errorf("start stream payload too short: %d bytes (want %d)", len(data), StartStreamRequestSize)
	}
	return &StartStreamRequest{
		Sensor:     SensorType(data[0]),
		IntervalMs: binary.LittleEndian.Uint32(data[1:5]),
	}, nil
}

// SetRtcRequestSize is the encoded size of a SET_RTC payload: UNIX_TIME_LE(4).
const SetRtcRequestSize = 4

// ParseSetRtcRequest decodes a SET_RTC command payload into a Unix timestamp.
func ParseSetRtcRequest(data []byte) (uint32, error) {
	if len(data) < SetRtcRequestSize {
		return 0, fmt.Errorf("set RTC payload too short: %d bytes (want %d)", len(data), SetRtcRequestSize)
	}
	return binary.LittleEndian.Uint32(data[0:4]), nil
}

// BufferDataRequest is the GET_BUFFER_DATA command payload:
// START_INDEX_LE(4) COUNT_LE(4).
type BufferDataRequest struct {
	StartIndex uint32
	Count      uint32
}

// BufferDataRequestSize is the encoded size of a BufferDataRequest.
const BufferDataRequestSize = 8

// Marshal encodes the buffer data request to its wire layout.
func (r *BufferDataRequest) Marshal() []byte {
	buf := make([]byte, BufferDataRequestSize)
	binary.LittleEndian.PutUint32(buf[0:4], r.StartIndex)
	binary.LittleEndian.PutUint32(buf[4:8], r.Count)
	return buf
}

// ParseBufferDataRequest decodes a GET_BUFFER_DATA command payload.
func ParseBufferDataRequest(data []byte) (*BufferDataRequest, error) {
	if len(data) < BufferDataRequestSize {
		return nil, fmt.Errorf("buffer data payload too short: %d bytes (want %d)", len(data), BufferDataRequestSize)
	}
	return &BufferDataRequest{
		StartIndex: binary.LittleEndian.Uint32(data[0:4]),
		Count:      binary.LittleEndian.Uint32(data[4:8]),
	}, nil
}

// NewGetStatusCommand creates a GET_STATUS command (0x05).
func NewGetStatusCommand(seq uint8) *Packet {
	return NewCommand(CmdGetStatus, seq, nil)
}

// NewSetRtcCommand creates a SET_RTC command (0x04) carrying a Unix timestamp.
func NewSetRtcCommand(seq uint8, t time.Time) *Packet {
	payload := make([]byte, SetRtcRequestSize)
	binary.LittleEndian.PutUint32(payload, uint32(t.Unix()))
	return NewCommand(CmdSetRtc, seq, payload)
}

// NewStartMeasurementCommand creates a START_MEASUREMENT command (0x02).
// The board begins streaming NOTIFY_SENSOR_DATA notifications for the
// requested sensor at the given interval.
func NewStartMeasurementCommand(seq uint8, sensor SensorType, interval time.Duration) *Packet {
	req := StartStreamRequest{Sensor: sensor, IntervalMs: uint32(interval.Milliseconds())}
	return NewCommand(CmdStartMeasurement, seq, req.Marshal())
}

// NewStopMeasurementCommand creates a STOP_MEASUREMENT command (0x03).
func NewStopMeasurementCommand(seq uint8) *Packet {
	return NewCommand(CmdStopMeasurement, seq, nil)
}

// NewGetBufferDataCommand creates a GET_BUFFER_DATA command (0x01).
func NewGetBufferDataCommand(seq uint8, startIndex, count uint32) *Packet {
	req := BufferDataRequest{StartIndex: startIndex, Count: count}
	return NewCommand(CmdGetBufferData, seq, req.Marshal())
}

// NewClearBufferCommand creates a CLEAR_BUFFER command (0x06).
func NewClearBufferCommand(seq uint8) *Packet {
	return NewCommand(CmdClearBuffer, seq, nil)
}

// NewGetConfigCommand creates a GET_CONFIG command (0x07). The response
// payload is a CBOR-encoded device configuration.
func NewGetConfigCommand(seq uint8) *Packet {
	return NewCommand(CmdGetConfig, seq, nil)
}

// NewSetConfigCommand creates a SET_CONFIG command (0x08) from an already
// CBOR-encoded device configuration.
func NewSetConfigCommand(seq uint8, encodedConfig []byte) *Packet {
	return NewCommand(CmdSetConfig, seq, encodedConfig)
}
