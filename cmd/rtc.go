// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Arkosense Instruments

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/arkosense/sienna/pkg/sienna"
)

var (
	rtcTimeout int
	rtcTime    string
)

var rtcCmd = &cobra.Command{
	Use:   "set-rtc",
	Short: "Set the board's real-time clock",
	Long: `Send a SET_RTC command carrying a Unix timestamp.

By default the host's current time is used. An explicit time may be given
with --time in RFC 3339 format (e.g. 2026-08-28T10:30:00Z).`,
	RunE: runSetRtc,
}

func init() {
	rootCmd.AddCommand(rtcCmd)
	rtcCmd.Flags().IntVar(&rtcTimeout, "timeout", 3, "Response timeout in seconds")
	rtcCmd.Flags().StringVar(&rtcTime, "time", "", "Time to set (RFC 3339), default now")
}

func runSetRtc(cmd *cobra.Command, args []string) error {
	t := time.Now()
	if rtcTime != "" {
		var err error
		t, err = time.Parse(time.RFC3339, rtcTime)
		if err != nil {
			return fmt.Errorf("invalid --time: %v", err)
		}
	}

	handler := newHostHandler()
	l, connInfo, err := openLink(handler)
	if err != nil {
		return err
	}
	defer l.Close()

	fmt.Printf("Connection: %s\n", connInfo)

	resp, err := roundTrip(l, handler, sienna.NewSetRtcCommand(nextSeq(), t),
		time.Duration(rtcTimeout)*time.Second)
	if err != nil {
		return err
	}
	if err := expectOK(resp); err != nil {
		return err
	}

	fmt.Printf("RTC set to %s\n", t.UTC().Format(time.RFC3339))
	return nil
}
