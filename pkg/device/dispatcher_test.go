// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Arkosense Instruments

package device

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/arkosense/sienna/pkg/sienna"
)

// fakeSender captures everything the dispatcher transmits, already parsed
// back into packets, and delivers them over a channel so tests can wait.
type fakeSender struct {
	mu      sync.Mutex
	packets []*sienna.Packet
	ch      chan *sienna.Packet

	// When non-nil, SendFrameAsync blocks until a token is received.
	gate chan struct{}
}

func newFakeSender() *fakeSender {
	return &fakeSender{ch: make(chan *sienna.Packet, 64)}
}

func (s *fakeSender) SendFrameAsync(payload []byte) error {
	if s.gate != nil {
		<-s.gate
	}
	pkt, err := sienna.ParsePacket(payload)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.packets = append(s.packets, pkt)
	s.mu.Unlock()
	s.ch <- pkt
	return nil
}

func (s *fakeSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.packets)
}

func (s *fakeSender) waitPacket(t *testing.T) *sienna.Packet {
	t.Helper()
	select {
	case pkt := <-s.ch:
		return pkt
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for a transmitted packet")
		panic("unreachable")
	}
}

type fakeClock struct {
	mu  sync.Mutex
	set time.Time
	err error
}

func (c *fakeClock) Now() time.Time { return time.Now() }
func (c *fakeClock) SetTime(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.set = t
	return nil
}

type fakeStatus struct {
	state    uint8
	errCode  uint8
	buffered uint16
}

func (s *fakeStatus) MeasurementState() uint8 { return s.state }
func (s *fakeStatus) LastErrorCode() uint8    { return s.errCode }
func (s *fakeStatus) BufferedSamples() uint16 { return s.buffered }

type fakeStore struct {
	mu      sync.Mutex
	cleared int
}

func (s *fakeStore) Clear() {
	s.mu.Lock()
	s.cleared++
	s.mu.Unlock()
}

type fakeCurrent struct{ milliamps float64 }

func (c *fakeCurrent) InstantReading() (float64, bool) { return c.milliamps, true }

func newTestDispatcher(t *testing.T, cfg Config) (*Dispatcher, *fakeSender) {
	t.Helper()
	sender := newFakeSender()
	cfg.Sender = sender
	d, err := New(cfg)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return d, sender
}

// dispatch feeds a command packet to the dispatcher as the link would.
func dispatch(t *testing.T, d *Dispatcher, cmd *sienna.Packet) {
	t.Helper()
	data, err := cmd.Marshal()
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	d.HandleFrame(data)
}

// ============================================================
// Dispatch Tests
// ============================================================

func TestDispatcher_GetStatus(t *testing.T) {
	d, sender := newTestDispatcher(t, Config{})

	dispatch(t, d, sienna.NewGetStatusCommand(7))

	resp := sender.waitPacket(t)
	if resp.Type != sienna.TypeResponse {
		t.Errorf("Type = 0x%02X, want response", uint8(resp.Type))
	}
	if resp.CmdID != sienna.CmdGetStatus || resp.Seq != 7 {
		t.Errorf("CmdID/Seq = 0x%02X/%d, want 0x05/7", resp.CmdID, resp.Seq)
	}
	if resp.Status != sienna.StatusOK {
		t.Errorf("Status = %d, want OK", resp.Status)
	}

	reply, err := sienna.ParseStatusReply(resp.Payload)
	if err != nil {
		t.Fatalf("Parse reply: %v", err)
	}
	if reply.State != 0 || reply.ErrorCode != 0 || reply.BufferCount != 0 {
		t.Errorf("Idle status reply = %+v", reply)
	}

	if sender.count() != 1 {
		t.Errorf("Sent %d packets, want exactly 1", sender.count())
	}
}

func TestDispatcher_GetStatus_FromProvider(t *testing.T) {
	d, sender := newTestDispatcher(t, Config{
		Status: &fakeStatus{state: 2, errCode: 3, buffered: 512},
	})

	dispatch(t, d, sienna.NewGetStatusCommand(1))

	reply, err := sienna.ParseStatusReply(sender.waitPacket(t).Payload)
	if err != nil {
		t.Fatalf("Parse reply: %v", err)
	}
	if reply.State != 2 || reply.ErrorCode != 3 || reply.BufferCount != 512 {
		t.Errorf("Status reply = %+v", reply)
	}
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	d, sender := newTestDispatcher(t, Config{})

	dispatch(t, d, sienna.NewCommand(0xEE, 9, nil))

	resp := sender.waitPacket(t)
	if resp.Status != sienna.StatusInvalidCmd {
		t.Errorf("Status = %d, want INVALID_CMD", resp.Status)
	}
	if resp.CmdID != 0xEE || resp.Seq != 9 {
		t.Errorf("CmdID/Seq = 0x%02X/%d, want 0xEE/9", resp.CmdID, resp.Seq)
	}
	if len(resp.Payload) != 0 {
		t.Errorf("Payload length = %d, want 0", len(resp.Payload))
	}
}

func TestDispatcher_MalformedPacketDropped(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"short header", []byte{0x01, 0x05, 0x00}},
		{"declared length exceeds available", []byte{0x01, 0x05, 0x00, 0x00, 0x10, 0x00}},
		{"response type", []byte{0x02, 0x05, 0x00, 0x00, 0x00, 0x00}},
		{"notification type", []byte{0x03, 0x80, 0x00, 0x00, 0x00, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, sender := newTestDispatcher(t, Config{})
			d.HandleFrame(tt.data)
			time.Sleep(50 * time.Millisecond)
			if sender.count() != 0 {
				t.Errorf("Sent %d packets, want none", sender.count())
			}
		})
	}
}

func TestDispatcher_SetRtc(t *testing.T) {
	clock := &fakeClock{}
	d, sender := newTestDispatcher(t, Config{RTC: clock})

	want := time.Unix(1767225600, 0)
	dispatch(t, d, sienna.NewSetRtcCommand(3, want))

	resp := sender.waitPacket(t)
	if resp.Status != sienna.StatusOK {
		t.Fatalf("Status = %d, want OK", resp.Status)
	}
	clock.mu.Lock()
	got := clock.set
	clock.mu.Unlock()
	if !got.Equal(want) {
		t.Errorf("Clock set to %v, want %v", got, want)
	}
}

func TestDispatcher_SetRtc_ShortPayload(t *testing.T) {
	d, sender := newTestDispatcher(t, Config{})

	dispatch(t, d, sienna.NewCommand(sienna.CmdSetRtc, 4, []byte{0x01, 0x02}))

	if resp := sender.waitPacket(t); resp.Status != sienna.StatusInvalidParam {
		t.Errorf("Status = %d, want INVALID_PARAM", resp.Status)
	}
}

func TestDispatcher_SetRtc_ClockError(t *testing.T) {
	clock := &fakeClock{err: errors.New("rtc bus fault")}
	d, sender := newTestDispatcher(t, Config{RTC: clock})

	dispatch(t, d, sienna.NewSetRtcCommand(5, time.Now()))

	if resp := sender.waitPacket(t); resp.Status != sienna.StatusError {
		t.Errorf("Status = %d, want ERROR", resp.Status)
	}
}

func TestDispatcher_GetBufferData(t *testing.T) {
	d, sender := newTestDispatcher(t, Config{})

	dispatch(t, d, sienna.NewGetBufferDataCommand(6, 0, 100))

	if resp := sender.waitPacket(t); resp.Status != sienna.StatusNoData {
		t.Errorf("Status = %d, want NO_DATA", resp.Status)
	}
}

func TestDispatcher_ClearBuffer(t *testing.T) {
	store := &fakeStore{}
	d, sender := newTestDispatcher(t, Config{Store: store})

	dispatch(t, d, sienna.NewClearBufferCommand(8))

	if resp := sender.waitPacket(t); resp.Status != sienna.StatusOK {
		t.Errorf("Status = %d, want OK", resp.Status)
	}
	store.mu.Lock()
	cleared := store.cleared
	store.mu.Unlock()
	if cleared != 1 {
		t.Errorf("Clear called %d times, want 1", cleared)
	}
}

// ============================================================
// Configuration Command Tests
// ============================================================

func TestDispatcher_GetConfig(t *testing.T) {
	d, sender := newTestDispatcher(t, Config{})

	dispatch(t, d, sienna.NewGetConfigCommand(2))

	resp := sender.waitPacket(t)
	if resp.Status != sienna.StatusOK {
		t.Fatalf("Status = %d, want OK", resp.Status)
	}
	cfg, err := DecodeDeviceConfig(resp.Payload)
	if err != nil {
		t.Fatalf("Decode config: %v", err)
	}
	if cfg != DefaultDeviceConfig() {
		t.Errorf("Config = %+v, want defaults", cfg)
	}
}

func TestDispatcher_SetConfig(t *testing.T) {
	d, sender := newTestDispatcher(t, Config{})

	want := DeviceConfig{
		StreamIntervalMs:   250,
		TemperatureEnabled: true,
		CurrentEnabled:     false,
		RxTimeoutMs:        500,
	}
	payload, err := want.Encode()
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	dispatch(t, d, sienna.NewSetConfigCommand(3, payload))

	if resp := sender.waitPacket(t); resp.Status != sienna.StatusOK {
		t.Fatalf("Status = %d, want OK", resp.Status)
	}
	if got := d.Config(); got != want {
		t.Errorf("Config = %+v, want %+v", got, want)
	}
}

func TestDispatcher_SetConfig_Rejected(t *testing.T) {
	badInterval, _ := (&DeviceConfig{StreamIntervalMs: 0}).Encode()

	tests := []struct {
		name    string
		payload []byte
	}{
		{"not CBOR", []byte{0xFF, 0xFE, 0xFD}},
		{"zero interval", badInterval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, sender := newTestDispatcher(t, Config{})
			dispatch(t, d, sienna.NewSetConfigCommand(1, tt.payload))

			if resp := sender.waitPacket(t); resp.Status != sienna.StatusInvalidParam {
				t.Errorf("Status = %d, want INVALID_PARAM", resp.Status)
			}
			if d.Config() != DefaultDeviceConfig() {
				t.Error("Rejected config was applied")
			}
		})
	}
}

func TestDeviceConfig_RoundTrip(t *testing.T) {
	cfg := DeviceConfig{
		StreamIntervalMs:   100,
		TemperatureEnabled: false,
		CurrentEnabled:     true,
		RxTimeoutMs:        2000,
	}
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	got, err := DecodeDeviceConfig(data)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if got != cfg {
		t.Errorf("Round trip mismatch: %+v != %+v", got, cfg)
	}
}

// ============================================================
// Temperature Cache Tests
// ============================================================

func TestDispatcher_TemperatureCache(t *testing.T) {
	d, _ := newTestDispatcher(t, Config{})

	if s := d.buildSample(sienna.SensorTemperature); s.Value != 0 {
		t.Errorf("Value before first reading = %d, want 0", s.Value)
	}

	d.SetTemperature(TemperatureReading{Celsius: 23.5, Humidity: 40})
	if s := d.buildSample(sienna.SensorTemperature); s.Value != 2350 {
		t.Errorf("Value = %d, want 2350 centi-degrees", s.Value)
	}

	d.SetTemperature(TemperatureReading{Celsius: -5.25})
	if s := d.buildSample(sienna.SensorTemperature); s.Value != -525 {
		t.Errorf("Value = %d, want -525 centi-degrees", s.Value)
	}

	d.InvalidateTemperature()
	if s := d.buildSample(sienna.SensorTemperature); s.Value != 0 {
		t.Errorf("Value after invalidation = %d, want 0", s.Value)
	}
}

func TestDispatcher_CurrentSample(t *testing.T) {
	d, _ := newTestDispatcher(t, Config{Current: &fakeCurrent{milliamps: 12.5}})

	if s := d.buildSample(sienna.SensorCurrent); s.Value != 12500 {
		t.Errorf("Value = %d, want 12500 microamps", s.Value)
	}
}
