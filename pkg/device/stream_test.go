// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Arkosense Instruments

package device

import (
	"errors"
	"testing"
	"time"

	"github.com/arkosense/sienna/pkg/sienna"
)

// collectNotifications waits for n notification packets and parses their
// samples.
func collectNotifications(t *testing.T, sender *fakeSender, n int) []*sienna.Sample {
	t.Helper()
	samples := make([]*sienna.Sample, 0, n)
	for len(samples) < n {
		pkt := sender.waitPacket(t)
		if pkt.Type != sienna.TypeNotification {
			continue
		}
		if pkt.CmdID != sienna.NotifySensorData {
			t.Fatalf("Notification CmdID = 0x%02X, want 0x%02X", pkt.CmdID, sienna.NotifySensorData)
		}
		sample, err := sienna.ParseSample(pkt.Payload)
		if err != nil {
			t.Fatalf("Parse sample: %v", err)
		}
		samples = append(samples, sample)
	}
	return samples
}

func TestStream_Lifecycle(t *testing.T) {
	d, sender := newTestDispatcher(t, Config{})
	d.SetTemperature(TemperatureReading{Celsius: 21.0})

	if err := d.StartStream(sienna.SensorTemperature, 50*time.Millisecond); err != nil {
		t.Fatalf("StartStream error: %v", err)
	}
	if !d.Streaming() {
		t.Fatal("Streaming = false after start")
	}

	samples := collectNotifications(t, sender, 4)
	for i, s := range samples {
		if s.Sensor != sienna.SensorTemperature {
			t.Errorf("Sample %d: sensor = 0x%02X", i, uint8(s.Sensor))
		}
		if s.Value != 2100 {
			t.Errorf("Sample %d: value = %d, want 2100", i, s.Value)
		}
		if i > 0 && s.Timestamp < samples[i-1].Timestamp {
			t.Errorf("Sample %d: timestamp went backwards (%d < %d)", i, s.Timestamp, samples[i-1].Timestamp)
		}
	}

	if err := d.StopStream(); err != nil {
		t.Fatalf("StopStream error: %v", err)
	}
	if d.Streaming() {
		t.Fatal("Streaming = true after stop")
	}

	// No notifications after the stop acknowledgement.
	for len(sender.ch) > 0 {
		<-sender.ch
	}
	time.Sleep(150 * time.Millisecond)
	if len(sender.ch) != 0 {
		t.Errorf("%d notifications arrived after stop", len(sender.ch))
	}
}

func TestStream_StopIdempotent(t *testing.T) {
	d, _ := newTestDispatcher(t, Config{})

	if err := d.StopStream(); err != nil {
		t.Errorf("StopStream on idle dispatcher: %v", err)
	}

	d.SetTemperature(TemperatureReading{Celsius: 20})
	if err := d.StartStream(sienna.SensorTemperature, 50*time.Millisecond); err != nil {
		t.Fatalf("StartStream error: %v", err)
	}
	if err := d.StopStream(); err != nil {
		t.Fatalf("First StopStream error: %v", err)
	}
	if err := d.StopStream(); err != nil {
		t.Errorf("Second StopStream error: %v", err)
	}
}

func TestStream_RestartReplacesSession(t *testing.T) {
	d, sender := newTestDispatcher(t, Config{Current: &fakeCurrent{milliamps: 5}})
	d.SetTemperature(TemperatureReading{Celsius: 20})

	if err := d.StartStream(sienna.SensorTemperature, 50*time.Millisecond); err != nil {
		t.Fatalf("StartStream error: %v", err)
	}
	collectNotifications(t, sender, 1)

	// Starting the other sensor stops the temperature session first.
	if err := d.StartStream(sienna.SensorCurrent, 50*time.Millisecond); err != nil {
		t.Fatalf("Restart error: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case pkt := <-sender.ch:
			if pkt.Type != sienna.TypeNotification {
				continue
			}
			sample, err := sienna.ParseSample(pkt.Payload)
			if err != nil {
				t.Fatalf("Parse sample: %v", err)
			}
			if sample.Sensor == sienna.SensorCurrent {
				if sample.Value != 5000 {
					t.Errorf("Current value = %d, want 5000", sample.Value)
				}
				d.StopStream()
				return
			}
		case <-deadline:
			t.Fatal("No current-sensor notification after restart")
		}
	}
}

func TestStream_InvalidArguments(t *testing.T) {
	d, _ := newTestDispatcher(t, Config{})

	if err := d.StartStream(sienna.SensorTemperature, 0); err == nil {
		t.Error("Zero interval accepted")
	}
	if err := d.StartStream(sienna.SensorType(0x7F), 100*time.Millisecond); err == nil {
		t.Error("Unknown sensor accepted")
	}
	if d.Streaming() {
		t.Error("Session started despite rejected arguments")
	}
}

func TestStream_DisabledByConfig(t *testing.T) {
	d, _ := newTestDispatcher(t, Config{})

	cfg := d.Config()
	cfg.TemperatureEnabled = false
	d.cfgMu.Lock()
	d.cfg = cfg
	d.cfgMu.Unlock()

	if err := d.StartStream(sienna.SensorTemperature, 100*time.Millisecond); err == nil {
		t.Error("Disabled sensor accepted")
	}
	if err := d.StartStream(sienna.SensorCurrent, 100*time.Millisecond); err != nil {
		t.Errorf("Enabled sensor rejected: %v", err)
	}
	d.StopStream()
}

func TestStream_AbandonedOnBlockedSend(t *testing.T) {
	sender := newFakeSender()
	sender.gate = make(chan struct{})
	d, err := New(Config{Sender: sender, StopWait: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	if err := d.StartStream(sienna.SensorTemperature, 10*time.Millisecond); err != nil {
		t.Fatalf("StartStream error: %v", err)
	}

	// The first send is stuck in the transport, so the session cannot
	// acknowledge the stop within the bounded wait.
	err = d.StopStream()
	if !errors.Is(err, ErrStreamAbandoned) {
		t.Errorf("StopStream error = %v, want ErrStreamAbandoned", err)
	}
	if d.Streaming() {
		t.Error("Abandoned session still attached")
	}

	// A new session can start immediately even though the old goroutine is
	// still blocked.
	if err := d.StartStream(sienna.SensorCurrent, 10*time.Millisecond); err != nil {
		t.Fatalf("StartStream after abandonment: %v", err)
	}

	// Unstick the old goroutine and shut down.
	close(sender.gate)
	d.StopStream()
}

func TestStream_HandlerPath(t *testing.T) {
	d, sender := newTestDispatcher(t, Config{})
	d.SetTemperature(TemperatureReading{Celsius: 25})

	dispatch(t, d, sienna.NewStartMeasurementCommand(1, sienna.SensorTemperature, 50*time.Millisecond))

	resp := sender.waitPacket(t)
	if resp.Type != sienna.TypeResponse || resp.Status != sienna.StatusOK {
		t.Fatalf("Start response = %+v", resp)
	}
	if !d.Streaming() {
		t.Fatal("Not streaming after START_MEASUREMENT")
	}

	collectNotifications(t, sender, 2)

	dispatch(t, d, sienna.NewStopMeasurementCommand(2))
	// The stop response arrives among trailing notifications.
	for {
		pkt := sender.waitPacket(t)
		if pkt.Type == sienna.TypeResponse {
			if pkt.CmdID != sienna.CmdStopMeasurement || pkt.Status != sienna.StatusOK {
				t.Fatalf("Stop response = %+v", pkt)
			}
			break
		}
	}
	if d.Streaming() {
		t.Error("Still streaming after STOP_MEASUREMENT")
	}
}

func TestStream_ZeroIntervalUsesConfigDefault(t *testing.T) {
	d, sender := newTestDispatcher(t, Config{})
	d.SetTemperature(TemperatureReading{Celsius: 20})

	cfg := DefaultDeviceConfig()
	cfg.StreamIntervalMs = 20
	payload, _ := cfg.Encode()
	dispatch(t, d, sienna.NewSetConfigCommand(1, payload))
	if resp := sender.waitPacket(t); resp.Status != sienna.StatusOK {
		t.Fatalf("SetConfig status = %d", resp.Status)
	}

	// Interval 0 requests the configured default.
	dispatch(t, d, sienna.NewStartMeasurementCommand(2, sienna.SensorTemperature, 0))
	resp := sender.waitPacket(t)
	if resp.Type != sienna.TypeResponse || resp.Status != sienna.StatusOK {
		t.Fatalf("Start response = %+v", resp)
	}

	// At 20 ms per cycle, several notifications arrive well within the
	// collection deadline.
	collectNotifications(t, sender, 3)
	d.StopStream()
}

func TestStream_NotificationSequenceIncrements(t *testing.T) {
	d, sender := newTestDispatcher(t, Config{})
	d.SetTemperature(TemperatureReading{Celsius: 20})

	if err := d.StartStream(sienna.SensorTemperature, 20*time.Millisecond); err != nil {
		t.Fatalf("StartStream error: %v", err)
	}
	defer d.StopStream()

	var seqs []uint8
	for len(seqs) < 3 {
		pkt := sender.waitPacket(t)
		if pkt.Type == sienna.TypeNotification {
			seqs = append(seqs, pkt.Seq)
		}
	}

	for i := 1; i < len(seqs); i++ {
		if seqs[i] != seqs[i-1]+1 {
			t.Errorf("Sequence not consecutive: %v", seqs)
		}
	}
}
