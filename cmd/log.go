// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Arkosense Instruments

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/arkosense/sienna/pkg/sienna"
)

var logShowStats bool

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Display decoded packets in human-readable format",
	Long: `Continuously decode and display Sienna protocol packets as they arrive.

Each packet is shown with timestamp, type, command name and decoded payload.
Codec errors (CRC failures, framing errors, inter-byte timeouts) are shown
inline; link statistics are printed on exit.

Supports both serial and WebSocket connections.`,
	RunE: runLog,
}

func init() {
	rootCmd.AddCommand(logCmd)
	logCmd.Flags().BoolVar(&logShowStats, "stats", true, "Print link statistics on exit")
}

// logHandler prints every decoded packet and codec error as it arrives.
type logHandler struct{}

func (logHandler) HandleFrame(payload []byte) {
	pkt, err := sienna.ParsePacket(payload)
	if err != nil {
		fmt.Printf("[ERROR] malformed packet: %v\n", err)
		return
	}
	fmt.Print(sienna.FormatPacket(time.Now(), pkt))
}

func (logHandler) HandleTxComplete(int) {}

func (logHandler) HandleLinkError(err error) {
	fmt.Printf("[ERROR] %v\n", err)
}

func runLog(cmd *cobra.Command, args []string) error {
	l, connInfo, err := openLink(logHandler{})
	if err != nil {
		return err
	}
	defer l.Close()

	fmt.Printf("Sienna - Packet Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	if logShowStats {
		fmt.Println()
		fmt.Print(l.Stats().String())
	}
	return nil
}
