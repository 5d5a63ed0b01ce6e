// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Arkosense Instruments

// Package link binds the Sienna frame codec to a byte-stream transport.
//
// A Link owns the receive pump (one goroutine feeding the decoder state
// machine in arrival order) and the transmit path (a single writer goroutine
// so that concurrent senders can never interleave frames at the byte level).
// Asynchronous sends share one fixed transmit buffer; the at-most-one-in-
// flight invariant is enforced by waiting for the prior transmission's
// completion signal before the buffer is reused.
package link

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/arkosense/sienna/pkg/sienna"
)

const rxChunkSize = 64

// Config holds link parameters.
type Config struct {
	// RxTimeout is the inter-byte staleness timeout for the receive state
	// machine. Zero disables staleness checks.
	RxTimeout time.Duration

	// LockTimeout bounds the wait for the transmit lock and for a prior
	// asynchronous transmission to complete.
	LockTimeout time.Duration

	// Handler receives frames, transmit completions and link errors.
	// Nil installs a no-op handler.
	Handler Handler
}

// DefaultConfig returns the link defaults shared with the board firmware.
func DefaultConfig() Config {
	return Config{
		RxTimeout:   sienna.DefaultRxTimeoutMs * time.Millisecond,
		LockTimeout: sienna.DefaultLockTimeoutMs * time.Millisecond,
	}
}

type txJob struct {
	data  []byte
	async bool
	done  chan error
}

// Link is a framed Sienna connection over a Transport.
type Link struct {
	transport Transport
	handler   Handler
	stats     *Statistics

	lockTimeout time.Duration

	decoderMu sync.Mutex
	decoder   *sienna.Decoder

	// txLock holds one token; receiving it acquires the transmit lock.
	txLock chan struct{}
	txBuf  [sienna.MaxFrameSize]byte // shared async transmit buffer
	txCh   chan *txJob

	// txMu guards the in-flight async transmission state.
	txMu       sync.Mutex
	inProgress bool
	txDone     chan struct{}

	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Open starts a link on the given transport. The receive pump and transmit
// writer run until Close.
func Open(transport Transport, cfg Config) (*Link, error) {
	if transport == nil {
		return nil, fmt.Errorf("link: nil transport")
	}
	if cfg.Handler == nil {
		cfg.Handler = NopHandler{}
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = sienna.DefaultLockTimeoutMs * time.Millisecond
	}

	l := &Link{
		transport:   transport,
		handler:     cfg.Handler,
		stats:       NewStatistics(),
		lockTimeout: cfg.LockTimeout,
		decoder:     sienna.NewDecoder(),
		txLock:      make(chan struct{}, 1),
		txCh:        make(chan *txJob, 1),
		closed:      make(chan struct{}),
	}
	l.decoder.SetTimeout(cfg.RxTimeout)
	l.txLock <- struct{}{}

	l.wg.Add(2)
	go l.rxLoop()
	go l.txWorker()

	return l, nil
}

// Close stops the link and closes the transport. Safe to call more than once.
func (l *Link) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.closed)
		err = l.transport.Close()
		l.wg.Wait()
	})
	return err
}

// Stats returns the link's statistics tracker.
func (l *Link) Stats() *Statistics {
	return l.stats
}

// SendFrame frames the payload and transmits it synchronously, waiting up to
// timeout for the write to finish. The frame is built in a local buffer, so
// the shared asynchronous buffer is untouched; any in-flight asynchronous
// transmission is still waited for so frames never interleave.
func (l *Link) SendFrame(payload []byte, timeout time.Duration) error {
	if len(payload) > sienna.MaxFrameData {
		return fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(payload))
	}

	if err := l.acquireTx(); err != nil {
		return err
	}
	defer l.releaseTx()

	if err := l.waitPriorLocked(); err != nil {
		return err
	}

	frame, err := sienna.EncodeFrame(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPayloadTooLarge, err)
	}
	return l.submitAndWait(frame, timeout)
}

// SendFrameAsync frames the payload into the shared transmit buffer and
// starts the write, returning as soon as the transmission is underway. The
// caller's payload buffer is free to reuse immediately. If a prior
// asynchronous transmission is still in flight, SendFrameAsync first waits
// for its completion, bounded by the link's lock timeout.
//
// Completion is observable via WaitTxComplete and the handler's
// HandleTxComplete event.
func (l *Link) SendFrameAsync(payload []byte) error {
	if len(payload) > sienna.MaxFrameData {
		return fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(payload))
	}

	if err := l.acquireTx(); err != nil {
		return err
	}
	defer l.releaseTx()

	if err := l.waitPriorLocked(); err != nil {
		return err
	}

	frame, err := sienna.AppendFrame(l.txBuf[:0], payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPayloadTooLarge, err)
	}

	l.txMu.Lock()
	l.inProgress = true
	l.txDone = make(chan struct{})
	l.txMu.Unlock()

	job := &txJob{data: frame, async: true, done: make(chan error, 1)}
	select {
	case l.txCh <- job:
		return nil
	case <-l.closed:
		l.txMu.Lock()
		l.inProgress = false
		close(l.txDone)
		l.txMu.Unlock()
		return ErrClosed
	}
}

// SendRaw transmits bytes without framing through the same serialized
// writer. Use with caution.
func (l *Link) SendRaw(data []byte, timeout time.Duration) error {
	if err := l.acquireTx(); err != nil {
		return err
	}
	defer l.releaseTx()

	if err := l.waitPriorLocked(); err != nil {
		return err
	}
	return l.submitAndWait(data, timeout)
}

// TxBusy reports whether an asynchronous transmission is in flight.
func (l *Link) TxBusy() bool {
	l.txMu.Lock()
	defer l.txMu.Unlock()
	return l.inProgress
}

// WaitTxComplete blocks until the current asynchronous transmission
// completes, or returns ErrTimeout.
func (l *Link) WaitTxComplete(timeout time.Duration) error {
	l.txMu.Lock()
	inProgress, done := l.inProgress, l.txDone
	l.txMu.Unlock()

	if !inProgress {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-l.closed:
		return ErrClosed
	case <-time.After(timeout):
		return ErrTimeout
	}
}

// FlushRx discards any partially assembled frame, returning the receive
// state machine to idle.
func (l *Link) FlushRx() {
	l.decoderMu.Lock()
	l.decoder.Reset()
	l.decoderMu.Unlock()
}

func (l *Link) acquireTx() error {
	select {
	case <-l.closed:
		return ErrClosed
	default:
	}
	select {
	case <-l.txLock:
		return nil
	case <-l.closed:
		return ErrClosed
	case <-time.After(l.lockTimeout):
		return fmt.Errorf("%w: transmit lock", ErrTimeout)
	}
}

func (l *Link) releaseTx() {
	l.txLock <- struct{}{}
}

// waitPriorLocked waits for an in-flight async transmission while holding
// the transmit lock, so the shared buffer is safe to reuse afterwards.
func (l *Link) waitPriorLocked() error {
	l.txMu.Lock()
	inProgress, done := l.inProgress, l.txDone
	l.txMu.Unlock()

	if !inProgress {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-l.closed:
		return ErrClosed
	case <-time.After(l.lockTimeout):
		return fmt.Errorf("%w: previous transmission did not complete", ErrTimeout)
	}
}

func (l *Link) submitAndWait(data []byte, timeout time.Duration) error {
	job := &txJob{data: data, done: make(chan error, 1)}
	select {
	case l.txCh <- job:
	case <-l.closed:
		return ErrClosed
	case <-time.After(timeout):
		return ErrTimeout
	}

	select {
	case err := <-job.done:
		return err
	case <-l.closed:
		return ErrClosed
	case <-time.After(timeout):
		return ErrTimeout
	}
}

func (l *Link) txWorker() {
	defer l.wg.Done()

	for {
		select {
		case <-l.closed:
			return
		case job := <-l.txCh:
			n, err := l.transport.Write(job.data)
			if err == nil && n != len(job.data) {
				err = fmt.Errorf("%w: wrote %d of %d bytes", ErrTransmitFailed, n, len(job.data))
			} else if err != nil {
				err = fmt.Errorf("%w: %v", ErrTransmitFailed, err)
			}

			if err == nil {
				l.stats.addSent()
			} else {
				l.stats.addTxFailure()
				glog.Warningf("link tx: %v", err)
			}

			if job.async {
				l.txMu.Lock()
				l.inProgress = false
				close(l.txDone)
				l.txMu.Unlock()
			}
			job.done <- err

			if err == nil {
				l.handler.HandleTxComplete(len(job.data))
			}
		}
	}
}

func (l *Link) rxLoop() {
	defer l.wg.Done()

	buf := make([]byte, rxChunkSize)
	for {
		n, err := l.transport.Read(buf)
		for i := 0; i < n; i++ {
			l.feed(buf[i])
		}
		if err != nil {
			select {
			case <-l.closed:
			default:
				glog.Warningf("link rx: read: %v", err)
				l.handler.HandleLinkError(err)
			}
			return
		}
	}
}

func (l *Link) feed(b byte) {
	l.decoderMu.Lock()
	frame, err := l.decoder.DecodeByte(b)
	l.decoderMu.Unlock()

	if err != nil {
		l.stats.classify(err)
		if glog.V(1) {
			glog.Infof("link rx: %v", err)
		}
		l.handler.HandleLinkError(err)
		return
	}
	if frame != nil {
		l.stats.addReceived()
		if glog.V(2) {
			glog.Infof("link rx: frame, %d bytes", len(frame.Payload()))
		}
		l.handler.HandleFrame(frame.Payload())
	}
}
