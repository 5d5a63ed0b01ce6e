// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Arkosense Instruments

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/arkosense/sienna/pkg/sienna"
)

var statusTimeout int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query the board's measurement status",
	Long: `Send a GET_STATUS command and display the decoded reply.

The reply carries the board's measurement state, last error code, buffered
sample count and uptime.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().IntVar(&statusTimeout, "timeout", 3, "Response timeout in seconds")
}

func runStatus(cmd *cobra.Command, args []string) error {
	handler := newHostHandler()
	l, connInfo, err := openLink(handler)
	if err != nil {
		return err
	}
	defer l.Close()

	fmt.Printf("Connection: %s\n", connInfo)

	resp, err := roundTrip(l, handler, sienna.NewGetStatusCommand(nextSeq()),
		time.Duration(statusTimeout)*time.Second)
	if err != nil {
		return err
	}
	if err := expectOK(resp); err != nil {
		return err
	}

	reply, err := sienna.ParseStatusReply(resp.Payload)
	if err != nil {
		return fmt.Errorf("decode status reply: %v", err)
	}

	fmt.Printf("State:            %d\n", reply.State)
	fmt.Printf("Last error:       %d\n", reply.ErrorCode)
	fmt.Printf("Buffered samples: %d\n", reply.BufferCount)
	fmt.Printf("Uptime:           %s\n", (time.Duration(reply.UptimeSec) * time.Second).String())
	return nil
}
