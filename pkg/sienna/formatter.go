// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Arkosense Instruments

package sienna

import (
	"fmt"
	"time"
)

// FormatPacket formats a packet into a human-readable string for logging.
func FormatPacket(ts time.Time, p *Packet) string {
	timestamp := ts.Format("15:04:05.000")

	result := fmt.Sprintf("[%s] %s %s (0x%02X) seq=%d", timestamp,
		FormatPacketType(p.Type), FormatCommandName(p.CmdID), p.CmdID, p.Seq)
	if p.Type == TypeResponse {
		result += fmt.Sprintf(" status=%s", FormatStatusName(p.Status))
	}
	result += fmt.Sprintf(" len=%d\n", len(p.Payload))
	result += formatPayload(p)

	return result
}

// FormatPacketType returns the human-readable name for a packet type.
func FormatPacketType(t PacketType) string {
	switch t {
	case TypeCommand:
		return "CMD"
	case TypeResponse:
		return "RESP"
	case TypeNotification:
		return "NOTIFY"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02X)", uint8(t))
	}
}

// FormatCommandName returns the human-readable name for a command ID.
func FormatCommandName(cmdID uint8) string {
	switch cmdID {
	case CmdGetBufferData:
		return "GET_BUFFER_DATA"
	case CmdStartMeasurement:
		return "START_MEASUREMENT"
	case CmdStopMeasurement:
		return "STOP_MEASUREMENT"
	case CmdSetRtc:
		return "SET_RTC"
	case CmdGetStatus:
		return "GET_STATUS"
	case CmdClearBuffer:
		return "CLEAR_BUFFER"
	case CmdGetConfig:
		return "GET_CONFIG"
	case CmdSetConfig:
		return "SET_CONFIG"
	case NotifySensorData:
		return "NOTIFY_SENSOR_DATA"
	default:
		return "UNKNOWN"
	}
}

// FormatStatusName returns the human-readable name for a response status.
func FormatStatusName(s Status) string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusError:
		return "ERROR"
	case StatusInvalidCmd:
		return "INVALID_CMD"
	case StatusInvalidParam:
		return "INVALID_PARAM"
	case StatusBusy:
		return "BUSY"
	case StatusTimeout:
		return "TIMEOUT"
	case StatusNoData:
		return "NO_DATA"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02X)", uint8(s))
	}
}

// FormatSensorName returns the human-readable name for a sensor type.
func FormatSensorName(s SensorType) string {
	switch s {
	case SensorTemperature:
		return "TEMPERATURE"
	case SensorCurrent:
		return "CURRENT"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02X)", uint8(s))
	}
}

// FormatSample formats a sensor sample with its scaled value decoded.
func FormatSample(s *Sample) string {
	switch s.Sensor {
	case SensorTemperature:
		return fmt.Sprintf("  %s t=%dms %.2f C\n", FormatSensorName(s.Sensor), s.Timestamp, float64(s.Value)/100)
	case SensorCurrent:
		return fmt.Sprintf("  %s t=%dms %.3f mA\n", FormatSensorName(s.Sensor), s.Timestamp, float64(s.Value)/1000)
	default:
		return fmt.Sprintf("  %s t=%dms value=%d\n", FormatSensorName(s.Sensor), s.Timestamp, s.Value)
	}
}

// formatPayload formats known payload layouts, falling back to a hex dump.
func formatPayload(p *Packet) string {
	if len(p.Payload) == 0 {
		return ""
	}

	switch {
	case p.Type == TypeNotification && p.CmdID == NotifySensorData:
		if sample, err := ParseSample(p.Payload); err == nil {
			return FormatSample(sample)
		}

	case p.Type == TypeResponse && p.CmdID == CmdGetStatus:
		if status, err := ParseStatusReply(p.Payload); err == nil {
			return fmt.Sprintf("  state=%d error=%d buffered=%d uptime=%ds\n",
				status.State, status.ErrorCode, status.BufferCount, status.UptimeSec)
		}

	case p.Type == TypeCommand && p.CmdID == CmdStartMeasurement:
		if req, err := ParseStartStreamRequest(p.Payload); err == nil {
			return fmt.Sprintf("  sensor=%s interval=%dms\n", FormatSensorName(req.Sensor), req.IntervalMs)
		}

	case p.Type == TypeCommand && p.CmdID == CmdSetRtc:
		if unix, err := ParseSetRtcRequest(p.Payload); err == nil {
			return fmt.Sprintf("  time=%s\n", time.Unix(int64(unix), 0).UTC().Format(time.RFC3339))
		}
	}

	// Default: hex dump
	result := "  Payload: "
	for i, b := range p.Payload {
		if i > 0 && i%16 == 0 {
			result += "\n           "
		}
		result += fmt.Sprintf("%02X ", b)
	}
	return result + "\n"
}
