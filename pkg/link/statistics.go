// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Arkosense Instruments

package link

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/arkosense/sienna/pkg/sienna"
)

// Statistics tracks link-level frame counters and error rates. All methods
// are safe for concurrent use.
type Statistics struct {
	mu sync.Mutex

	startTime time.Time

	framesSent     uint64
	framesReceived uint64
	crcErrors      uint64
	framingErrors  uint64
	timeoutErrors  uint64
	txFailures     uint64
}

// Snapshot is a point-in-time copy of the link counters.
type Snapshot struct {
	StartTime time.Time

	FramesSent     uint64
	FramesReceived uint64
	CRCErrors      uint64
	FramingErrors  uint64
	TimeoutErrors  uint64
	TxFailures     uint64

	// Rates (calculated at snapshot time)
	FrameRate float64 // frames/sec received
	ErrorRate float64 // errors/sec
}

// NewStatistics creates a statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{startTime: time.Now()}
}

func (s *Statistics) addSent() {
	s.mu.Lock()
	s.framesSent++
	s.mu.Unlock()
}

func (s *Statistics) addReceived() {
	s.mu.Lock()
	s.framesReceived++
	s.mu.Unlock()
}

func (s *Statistics) addTxFailure() {
	s.mu.Lock()
	s.txFailures++
	s.mu.Unlock()
}

// classify counts a receive-path error under the matching counter.
func (s *Statistics) classify(err error) {
	var crcErr *sienna.CRCError
	var framingErr *sienna.FramingError
	var timeoutErr *sienna.TimeoutError

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case errors.As(err, &crcErr):
		s.crcErrors++
	case errors.As(err, &framingErr):
		s.framingErrors++
	case errors.As(err, &timeoutErr):
		s.timeoutErrors++
	}
}

// Snapshot returns a copy of the counters with rates calculated.
func (s *Statistics) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		StartTime:      s.startTime,
		FramesSent:     s.framesSent,
		FramesReceived: s.framesReceived,
		CRCErrors:      s.crcErrors,
		FramingErrors:  s.framingErrors,
		TimeoutErrors:  s.timeoutErrors,
		TxFailures:     s.txFailures,
	}

	elapsed := time.Since(s.startTime).Seconds()
	if elapsed > 0 {
		snap.FrameRate = float64(snap.FramesReceived) / elapsed
		errorCount := snap.CRCErrors + snap.FramingErrors + snap.TimeoutErrors + snap.TxFailures
		snap.ErrorRate = float64(errorCount) / elapsed
	}

	return snap
}

// Reset resets all counters.
func (s *Statistics) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.startTime = time.Now()
	s.framesSent = 0
	s.framesReceived = 0
	s.crcErrors = 0
	s.framingErrors = 0
	s.timeoutErrors = 0
	s.txFailures = 0
}

// String returns a formatted statistics summary.
func (s *Statistics) String() string {
	snap := s.Snapshot()
	elapsed := time.Since(snap.StartTime)

	result := fmt.Sprintf("=== Link Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Frames Sent:     %8d\n", snap.FramesSent)
	result += fmt.Sprintf("Frames Received: %8d\n", snap.FramesReceived)

	if snap.CRCErrors > 0 {
		result += fmt.Sprintf("CRC Errors:      %8d\n", snap.CRCErrors)
	}
	if snap.FramingErrors > 0 {
		result += fmt.Sprintf("Framing Errors:  %8d\n", snap.FramingErrors)
	}
	if snap.TimeoutErrors > 0 {
		result += fmt.Sprintf("Timeout Errors:  %8d\n", snap.TimeoutErrors)
	}
	if snap.TxFailures > 0 {
		result += fmt.Sprintf("TX Failures:     %8d\n", snap.TxFailures)
	}

	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", snap.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", snap.ErrorRate)
	result += "==================================\n"

	return result
}
