// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Arkosense Instruments

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/arkosense/sienna/pkg/sienna"
)

var probeTimeout int

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Test connectivity by querying the board",
	Long: `Send a GET_STATUS command and wait for any valid reply.

Exit codes:
  0 - Valid response received before timeout
  1 - Timeout reached without a valid response
  2 - Connection error

Useful for testing connectivity to a board or a WebSocket bridge from
scripts and health checks.`,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().IntVar(&probeTimeout, "timeout", 10, "Timeout in seconds to wait for a response")
}

func runProbe(cmd *cobra.Command, args []string) error {
	handler := newHostHandler()
	l, connInfo, err := openLink(handler)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer l.Close()

	fmt.Printf("Sienna - Probe\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", probeTimeout)
	fmt.Printf("Waiting for board response...\n\n")

	start := time.Now()
	resp, err := roundTrip(l, handler, sienna.NewGetStatusCommand(nextSeq()),
		time.Duration(probeTimeout)*time.Second)
	if err != nil {
		snap := l.Stats().Snapshot()
		fmt.Fprintf(os.Stderr, "TIMEOUT: %v\n", err)
		if n := snap.CRCErrors + snap.FramingErrors + snap.TimeoutErrors; n > 0 {
			fmt.Fprintf(os.Stderr, "(%d codec errors seen; check baud rate and wiring)\n", n)
		}
		os.Exit(1)
	}

	fmt.Printf("SUCCESS: Response in %v\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("  Status: %s\n", sienna.FormatStatusName(resp.Status))
	if reply, err := sienna.ParseStatusReply(resp.Payload); err == nil {
		fmt.Printf("  State: %d, uptime %s\n", reply.State, time.Duration(reply.UptimeSec)*time.Second)
	}
	return nil
}
