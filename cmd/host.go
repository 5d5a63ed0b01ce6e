// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Arkosense Instruments

package cmd

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/arkosense/sienna/pkg/link"
	"github.com/arkosense/sienna/pkg/sienna"
)

// hostSeq is the host-originated command sequence counter, shared by all
// subcommands within one invocation.
var hostSeq atomic.Uint32

func nextSeq() uint8 {
	return uint8(hostSeq.Add(1) - 1)
}

// hostHandler collects decoded packets from the link for the host commands.
type hostHandler struct {
	packets chan *sienna.Packet
}

func newHostHandler() *hostHandler {
	return &hostHandler{packets: make(chan *sienna.Packet, 64)}
}

func (h *hostHandler) HandleFrame(payload []byte) {
	pkt, err := sienna.ParsePacket(payload)
	if err != nil {
		fmt.Printf("[ERROR] malformed packet: %v\n", err)
		return
	}
	select {
	case h.packets <- pkt:
	default:
		// Drop under backpressure rather than stall the receive pump.
	}
}

func (h *hostHandler) HandleTxComplete(int) {}

func (h *hostHandler) HandleLinkError(err error) {
	fmt.Printf("[ERROR] %v\n", err)
}

// openLink opens the configured transport and starts a framed link on it.
func openLink(handler link.Handler) (*link.Link, string, error) {
	transport, connInfo, err := OpenTransport()
	if err != nil {
		return nil, "", err
	}

	cfg := link.DefaultConfig()
	cfg.Handler = handler
	l, err := link.Open(transport, cfg)
	if err != nil {
		transport.Close()
		return nil, "", err
	}
	return l, connInfo, nil
}

// hostLink pairs an open link with its packet-collecting handler.
type hostLink struct {
	link    *link.Link
	handler *hostHandler
}

func (hl *hostLink) Close() error {
	return hl.link.Close()
}

// openHostLink opens the configured transport, starts a link and prints the
// connection banner.
func openHostLink() (*hostLink, error) {
	handler := newHostHandler()
	l, connInfo, err := openLink(handler)
	if err != nil {
		return nil, err
	}
	fmt.Printf("Connection: %s\n", connInfo)
	return &hostLink{link: l, handler: handler}, nil
}

// roundTrip sends a command and waits for the matching response, identified
// by command ID and sequence number. Unrelated packets received in the
// meantime (usually streaming notifications) are printed as they arrive.
func roundTrip(l *link.Link, h *hostHandler, cmd *sienna.Packet, timeout time.Duration) (*sienna.Packet, error) {
	data, err := cmd.Marshal()
	if err != nil {
		return nil, err
	}
	if err := l.SendFrame(data, timeout); err != nil {
		return nil, fmt.Errorf("send %s: %w", sienna.FormatCommandName(cmd.CmdID), err)
	}

	deadline := time.After(timeout)
	for {
		select {
		case pkt := <-h.packets:
			if pkt.Type == sienna.TypeResponse && pkt.CmdID == cmd.CmdID && pkt.Seq == cmd.Seq {
				return pkt, nil
			}
			fmt.Print(sienna.FormatPacket(time.Now(), pkt))

		case <-deadline:
			return nil, fmt.Errorf("no response to %s within %v", sienna.FormatCommandName(cmd.CmdID), timeout)
		}
	}
}

// expectOK fails with the decoded status name when the response is not OK.
func expectOK(resp *sienna.Packet) error {
	if resp.Status != sienna.StatusOK {
		return fmt.Errorf("board replied %s", sienna.FormatStatusName(resp.Status))
	}
	return nil
}
