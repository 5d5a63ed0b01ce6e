// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Arkosense Instruments

// Package device implements the board side of the Sienna protocol: the
// command dispatcher and the streaming session that emits periodic sensor
// notifications.
package device

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/arkosense/sienna/pkg/sienna"
)

// Sender is the transmit capability the dispatcher needs from the link.
// Responses and notifications both use the asynchronous path so that
// dispatch never blocks the receive goroutine.
type Sender interface {
	SendFrameAsync(payload []byte) error
}

// Config wires the dispatcher's collaborators. Sender is required; the
// rest are optional and default to inert implementations.
type Config struct {
	Sender Sender

	Current CurrentSource
	Status  StatusProvider
	Store   SampleStore
	RTC     Clock

	// StopWait bounds the wait for a streaming session to acknowledge a
	// stop request. Defaults to one second.
	StopWait time.Duration
}

// Dispatcher interprets validated frames as commands, produces responses,
// and owns the streaming session. It implements link.Handler; commands are
// handled on the link's receive goroutine, so handlers stay non-blocking
// beyond the asynchronous send call.
type Dispatcher struct {
	sender Sender

	current CurrentSource
	status  StatusProvider
	store   SampleStore
	rtc     Clock

	boot     time.Time
	stopWait time.Duration

	// notifySeq is the device-originated sequence counter for notifications.
	notifySeq atomic.Uint32

	// temp is the latest-temperature cache: written by the sensor event
	// callback, read by the streaming goroutine. A nil pointer means no
	// valid reading. The pointer swap is atomic, so a reader never observes
	// a half-updated sample.
	temp atomic.Pointer[TemperatureReading]

	cfgMu sync.Mutex
	cfg   DeviceConfig

	streamMu sync.Mutex
	stream   *session
}

// handlerFunc handles one decoded command packet.
type handlerFunc func(d *Dispatcher, cmd *sienna.Packet)

// handlers is the static command registry. It is never mutated at runtime.
var handlers = map[uint8]handlerFunc{
	sienna.CmdGetStatus:        (*Dispatcher).handleGetStatus,
	sienna.CmdSetRtc:           (*Dispatcher).handleSetRtc,
	sienna.CmdStartMeasurement: (*Dispatcher).handleStartMeasurement,
	sienna.CmdStopMeasurement:  (*Dispatcher).handleStopMeasurement,
	sienna.CmdGetBufferData:    (*Dispatcher).handleGetBufferData,
	sienna.CmdClearBuffer:      (*Dispatcher).handleClearBuffer,
	sienna.CmdGetConfig:        (*Dispatcher).handleGetConfig,
	sienna.CmdSetConfig:        (*Dispatcher).handleSetConfig,
}

// New creates a dispatcher. Sender must be non-nil.
func New(cfg Config) (*Dispatcher, error) {
	if cfg.Sender == nil {
		return nil, fmt.Errorf("device: nil sender")
	}
	if cfg.StopWait <= 0 {
		cfg.StopWait = time.Second
	}

	return &Dispatcher{
		sender:   cfg.Sender,
		current:  cfg.Current,
		status:   cfg.Status,
		store:    cfg.Store,
		rtc:      cfg.RTC,
		boot:     time.Now(),
		stopWait: cfg.StopWait,
		cfg:      DefaultDeviceConfig(),
	}, nil
}

// HandleFrame implements link.Handler. Malformed packets are dropped
// silently: answering garbage from a misbehaving peer would only amplify it.
func (d *Dispatcher) HandleFrame(payload []byte) {
	pkt, err := sienna.ParsePacket(payload)
	if err != nil {
		glog.Warningf("device: dropping malformed packet: %v", err)
		return
	}
	if pkt.Type != sienna.TypeCommand {
		glog.Warningf("device: unexpected packet type 0x%02X", uint8(pkt.Type))
		return
	}

	if glog.V(2) {
		glog.Infof("device: cmd=0x%02X seq=%d len=%d", pkt.CmdID, pkt.Seq, len(pkt.Payload))
	}

	h, ok := handlers[pkt.CmdID]
	if !ok {
		glog.Warningf("device: unknown command 0x%02X", pkt.CmdID)
		d.sendResponse(pkt.CmdID, pkt.Seq, sienna.StatusInvalidCmd, nil)
		return
	}
	h(d, pkt)
}

// HandleTxComplete implements link.Handler.
func (d *Dispatcher) HandleTxComplete(int) {}

// HandleLinkError implements link.Handler. Codec-level errors carry no
// request context to answer; they are observable via link statistics only.
func (d *Dispatcher) HandleLinkError(error) {}

// SetTemperature updates the latest-temperature cache. Intended to be wired
// to the board's temperature-updated event stream.
func (d *Dispatcher) SetTemperature(r TemperatureReading) {
	d.temp.Store(&r)
}

// InvalidateTemperature marks the cache invalid, e.g. on a sensor fault.
func (d *Dispatcher) InvalidateTemperature() {
	d.temp.Store(nil)
}

// Uptime returns the time since the dispatcher was created.
func (d *Dispatcher) Uptime() time.Duration {
	return time.Since(d.boot)
}

// Config returns a copy of the active device configuration.
func (d *Dispatcher) Config() DeviceConfig {
	d.cfgMu.Lock()
	defer d.cfgMu.Unlock()
	return d.cfg
}

// ============================================================
// Command handlers
// ============================================================

func (d *Dispatcher) handleGetStatus(cmd *sienna.Packet) {
	d.sendResponse(cmd.CmdID, cmd.Seq, sienna.StatusOK, d.statusReply().Marshal())
}

// statusReply builds the GET_STATUS payload from the dispatcher's
// collaborators and session state.
func (d *Dispatcher) statusReply() *sienna.StatusReply {
	reply := &sienna.StatusReply{
		UptimeSec: uint32(d.Uptime() / time.Second),
	}
	if d.status != nil {
		reply.State = d.status.MeasurementState()
		reply.ErrorCode = d.status.LastErrorCode()
		reply.BufferCount = d.status.BufferedSamples()
	} else if d.Streaming() {
		reply.State = 1
	}
	return reply
}

func (d *Dispatcher) handleSetRtc(cmd *sienna.Packet) {
	unix, err := sienna.ParseSetRtcRequest(cmd.Payload)
	if err != nil {
		d.sendResponse(cmd.CmdID, cmd.Seq, sienna.StatusInvalidParam, nil)
		return
	}

	t := time.Unix(int64(unix), 0)
	if d.rtc != nil {
		if err := d.rtc.SetTime(t); err != nil {
			glog.Warningf("device: set RTC: %v", err)
			d.sendResponse(cmd.CmdID, cmd.Seq, sienna.StatusError, nil)
			return
		}
	}
	glog.Infof("device: RTC set to %s", t.UTC().Format(time.RFC3339))
	d.sendResponse(cmd.CmdID, cmd.Seq, sienna.StatusOK, nil)
}

func (d *Dispatcher) handleStartMeasurement(cmd *sienna.Packet) {
	req, err := sienna.ParseStartStreamRequest(cmd.Payload)
	if err != nil {
		d.sendResponse(cmd.CmdID, cmd.Seq, sienna.StatusInvalidParam, nil)
		return
	}

	interval := time.Duration(req.IntervalMs) * time.Millisecond
	if req.IntervalMs == 0 {
		interval = time.Duration(d.Config().StreamIntervalMs) * time.Millisecond
	}

	if err := d.StartStream(req.Sensor, interval); err != nil {
		glog.Warningf("device: start stream: %v", err)
		d.sendResponse(cmd.CmdID, cmd.Seq, sienna.StatusError, nil)
		return
	}
	d.sendResponse(cmd.CmdID, cmd.Seq, sienna.StatusOK, nil)
}

func (d *Dispatcher) handleStopMeasurement(cmd *sienna.Packet) {
	if err := d.StopStream(); err != nil {
		// The session was abandoned, not stopped; the peer still gets OK
		// since no further notifications will be accepted from it.
		glog.Warningf("device: stop stream: %v", err)
	}
	d.sendResponse(cmd.CmdID, cmd.Seq, sienna.StatusOK, nil)
}

func (d *Dispatcher) handleGetBufferData(cmd *sienna.Packet) {
	// Buffered retrieval is not implemented on this board revision.
	d.sendResponse(cmd.CmdID, cmd.Seq, sienna.StatusNoData, nil)
}

func (d *Dispatcher) handleClearBuffer(cmd *sienna.Packet) {
	if d.store != nil {
		d.store.Clear()
	}
	d.sendResponse(cmd.CmdID, cmd.Seq, sienna.StatusOK, nil)
}

func (d *Dispatcher) handleGetConfig(cmd *sienna.Packet) {
	cfg := d.Config()
	payload, err := cfg.Encode()
	if err != nil {
		glog.Errorf("device: encode config: %v", err)
		d.sendResponse(cmd.CmdID, cmd.Seq, sienna.StatusError, nil)
		return
	}
	d.sendResponse(cmd.CmdID, cmd.Seq, sienna.StatusOK, payload)
}

func (d *Dispatcher) handleSetConfig(cmd *sienna.Packet) {
	cfg, err := DecodeDeviceConfig(cmd.Payload)
	if err != nil {
		d.sendResponse(cmd.CmdID, cmd.Seq, sienna.StatusInvalidParam, nil)
		return
	}
	if err := cfg.Validate(); err != nil {
		glog.Warningf("device: rejecting config: %v", err)
		d.sendResponse(cmd.CmdID, cmd.Seq, sienna.StatusInvalidParam, nil)
		return
	}

	d.cfgMu.Lock()
	d.cfg = cfg
	d.cfgMu.Unlock()

	glog.Infof("device: config updated: interval=%dms temp=%t current=%t",
		cfg.StreamIntervalMs, cfg.TemperatureEnabled, cfg.CurrentEnabled)
	d.sendResponse(cmd.CmdID, cmd.Seq, sienna.StatusOK, nil)
}

// ============================================================
// Transmit helpers
// ============================================================

func (d *Dispatcher) sendResponse(cmdID, seq uint8, status sienna.Status, payload []byte) {
	resp := sienna.NewResponse(cmdID, seq, status, payload)
	if err := d.sendPacket(resp); err != nil {
		glog.Errorf("device: send response cmd=0x%02X seq=%d: %v", cmdID, seq, err)
		return
	}
	if glog.V(2) {
		glog.Infof("device: resp cmd=0x%02X seq=%d status=%s", cmdID, seq, sienna.FormatStatusName(status))
	}
}

func (d *Dispatcher) sendNotification(cmdID uint8, payload []byte) error {
	seq := uint8(d.notifySeq.Add(1) - 1)
	return d.sendPacket(sienna.NewNotification(cmdID, seq, payload))
}

func (d *Dispatcher) sendPacket(p *sienna.Packet) error {
	data, err := p.Marshal()
	if err != nil {
		return err
	}
	return d.sender.SendFrameAsync(data)
}
