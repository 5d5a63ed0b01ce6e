// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Arkosense Instruments

package sienna

import (
	"strings"
	"testing"
	"time"
)

func TestFormatPacket(t *testing.T) {
	ts := time.Date(2026, 8, 28, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name   string
		packet *Packet
		want   []string
	}{
		{
			name:   "get status command",
			packet: NewGetStatusCommand(7),
			want:   []string{"CMD", "GET_STATUS", "seq=7"},
		},
		{
			name:   "status response",
			packet: NewResponse(CmdGetStatus, 7, StatusOK, (&StatusReply{State: 1, BufferCount: 3, UptimeSec: 60}).Marshal()),
			want:   []string{"RESP", "status=OK", "state=1", "buffered=3", "uptime=60s"},
		},
		{
			name:   "temperature notification",
			packet: NewNotification(NotifySensorData, 2, (&Sample{Sensor: SensorTemperature, Timestamp: 500, Value: 2345}).Marshal()),
			want:   []string{"NOTIFY", "NOTIFY_SENSOR_DATA", "TEMPERATURE", "23.45 C"},
		},
		{
			name:   "start measurement command",
			packet: NewStartMeasurementCommand(1, SensorCurrent, 250*time.Millisecond),
			want:   []string{"START_MEASUREMENT", "sensor=CURRENT", "interval=250ms"},
		},
		{
			name:   "unknown payload hex dump",
			packet: NewCommand(0x7E, 0, []byte{0xDE, 0xAD}),
			want:   []string{"UNKNOWN", "DE AD"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := FormatPacket(ts, tt.packet)
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("Output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestFormatSample_CurrentScaling(t *testing.T) {
	out := FormatSample(&Sample{Sensor: SensorCurrent, Timestamp: 10, Value: 12500})
	if !strings.Contains(out, "12.500 mA") {
		t.Errorf("Output missing scaled current: %s", out)
	}
}
