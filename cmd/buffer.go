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
	bufferTimeout int
	bufferStart   uint32
	bufferCount   uint32
)

var clearBufferCmd = &cobra.Command{
	Use:   "clear-buffer",
	Short: "Clear the board's sample buffer",
	RunE:  runClearBuffer,
}

var getBufferCmd = &cobra.Command{
	Use:   "get-buffer",
	Short: "Request buffered samples from the board",
	Long: `Send GET_BUFFER_DATA and display the returned samples.

Current board revisions reply NO_DATA; the command is still useful to probe
which revision is connected.`,
	RunE: runGetBuffer,
}

func init() {
	rootCmd.AddCommand(clearBufferCmd)
	rootCmd.AddCommand(getBufferCmd)
	clearBufferCmd.Flags().IntVar(&bufferTimeout, "timeout", 3, "Response timeout in seconds")
	getBufferCmd.Flags().IntVar(&bufferTimeout, "timeout", 3, "Response timeout in seconds")
	getBufferCmd.Flags().Uint32Var(&bufferStart, "start", 0, "First sample index")
	getBufferCmd.Flags().Uint32Var(&bufferCount, "count", 64, "Number of samples to request")
}

func runClearBuffer(cmd *cobra.Command, args []string) error {
	handler := newHostHandler()
	l, connInfo, err := openLink(handler)
	if err != nil {
		return err
	}
	defer l.Close()

	fmt.Printf("Connection: %s\n", connInfo)

	resp, err := roundTrip(l, handler, sienna.NewClearBufferCommand(nextSeq()),
		time.Duration(bufferTimeout)*time.Second)
	if err != nil {
		return err
	}
	if err := expectOK(resp); err != nil {
		return err
	}

	fmt.Println("Buffer cleared")
	return nil
}

func runGetBuffer(cmd *cobra.Command, args []string) error {
	handler := newHostHandler()
	l, connInfo, err := openLink(handler)
	if err != nil {
		return err
	}
	defer l.Close()

	fmt.Printf("Connection: %s\n", connInfo)

	resp, err := roundTrip(l, handler,
		sienna.NewGetBufferDataCommand(nextSeq(), bufferStart, bufferCount),
		time.Duration(bufferTimeout)*time.Second)
	if err != nil {
		return err
	}

	if resp.Status == sienna.StatusNoData {
		fmt.Println("Board has no buffered data")
		return nil
	}
	if err := expectOK(resp); err != nil {
		return err
	}

	for offset := 0; offset+sienna.SampleSize <= len(resp.Payload); offset += sienna.SampleSize {
		sample, err := sienna.ParseSample(resp.Payload[offset : offset+sienna.SampleSize])
		if err != nil {
			return fmt.Errorf("decode sample at offset %d: %v", offset, err)
		}
		fmt.Print(sienna.FormatSample(sample))
	}
	return nil
}
