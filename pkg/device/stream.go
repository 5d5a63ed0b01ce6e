// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Arkosense Instruments

package device

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/arkosense/sienna/pkg/sienna"
)

// ErrStreamAbandoned is returned when a streaming session did not
// acknowledge its stop request within the bounded wait. The session is
// detached either way and no new notifications from it are accepted, but
// the goroutine may still be finishing a final blocked send.
var ErrStreamAbandoned = errors.New("stream did not acknowledge stop request")

// session is one streaming run. stop is closed to request termination;
// done is closed by the loop on exit.
type session struct {
	sensor   sienna.SensorType
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// StartStream begins periodic emission of sensor notifications. At most one
// session is active; starting while one is running fully stops the old
// session first. interval must be positive.
func (d *Dispatcher) StartStream(sensor sienna.SensorType, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("invalid stream interval %v", interval)
	}

	cfg := d.Config()
	switch sensor {
	case sienna.SensorTemperature:
		if !cfg.TemperatureEnabled {
			return fmt.Errorf("temperature streaming disabled by configuration")
		}
	case sienna.SensorCurrent:
		if !cfg.CurrentEnabled {
			return fmt.Errorf("current streaming disabled by configuration")
		}
	default:
		return fmt.Errorf("unknown sensor type 0x%02X", uint8(sensor))
	}

	d.streamMu.Lock()
	defer d.streamMu.Unlock()

	if d.stream != nil {
		if err := d.stopLocked(); err != nil {
			return err
		}
	}

	s := &session{
		sensor:   sensor,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	d.stream = s
	go d.streamLoop(s)

	glog.Infof("device: streaming %s every %v", sienna.FormatSensorName(sensor), interval)
	return nil
}

// StopStream requests the active session to stop and waits, bounded, for it
// to acknowledge. Stopping an idle dispatcher is a no-op. Returns
// ErrStreamAbandoned if the bounded wait expired; the session is detached
// in that case too.
func (d *Dispatcher) StopStream() error {
	d.streamMu.Lock()
	defer d.streamMu.Unlock()
	return d.stopLocked()
}

// Streaming reports whether a session is active.
func (d *Dispatcher) Streaming() bool {
	d.streamMu.Lock()
	defer d.streamMu.Unlock()
	return d.stream != nil
}

func (d *Dispatcher) stopLocked() error {
	s := d.stream
	if s == nil {
		return nil
	}
	d.stream = nil

	close(s.stop)
	select {
	case <-s.done:
		glog.Infof("device: streaming stopped")
		return nil
	case <-time.After(d.stopWait):
		return ErrStreamAbandoned
	}
}

// streamLoop runs on its own goroutine until the stop channel closes. Each
// cycle builds a sample, sends it through the asynchronous transmit path,
// then yields for the full interval.
func (d *Dispatcher) streamLoop(s *session) {
	defer close(s.done)

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		sample := d.buildSample(s.sensor)
		if err := d.sendNotification(sienna.NotifySensorData, sample.Marshal()); err != nil {
			glog.Warningf("device: send sample: %v", err)
		}

		select {
		case <-s.stop:
			return
		case <-timer.C:
			timer.Reset(s.interval)
		}
	}
}

// buildSample reads the appropriate source for the sensor. An invalid or
// unavailable reading yields a zero value rather than failing the loop.
func (d *Dispatcher) buildSample(sensor sienna.SensorType) *sienna.Sample {
	sample := &sienna.Sample{
		Sensor:    sensor,
		Timestamp: uint32(d.Uptime() / time.Millisecond),
	}

	switch sensor {
	case sienna.SensorTemperature:
		// Latest-reading cache, updated asynchronously by the sensor event
		// callback. Centi-degrees.
		if r := d.temp.Load(); r != nil {
			sample.Value = int32(r.Celsius * 100)
		}

	case sienna.SensorCurrent:
		// Direct instantaneous hardware read, no cache. Microamps.
		if d.current != nil {
			if milliamps, ok := d.current.InstantReading(); ok {
				sample.Value = int32(milliamps * 1000)
			}
		}
	}

	return sample
}
