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

var (
	streamSensor   string
	streamInterval int
	streamCount    int
	streamTimeout  int
)

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Start a measurement stream and display samples",
	Long: `Send START_MEASUREMENT and display incoming sensor notifications.

The stream runs until --count samples have arrived or Ctrl+C is pressed,
then STOP_MEASUREMENT is sent before exiting.

An interval of 0 asks the board to use its configured default.`,
	RunE: runStream,
}

func init() {
	rootCmd.AddCommand(streamCmd)
	streamCmd.Flags().StringVar(&streamSensor, "sensor", "temperature", "Sensor to stream (temperature or current)")
	streamCmd.Flags().IntVar(&streamInterval, "interval", 1000, "Sample interval in milliseconds (0 = board default)")
	streamCmd.Flags().IntVar(&streamCount, "count", 0, "Stop after this many samples (0 = until Ctrl+C)")
	streamCmd.Flags().IntVar(&streamTimeout, "timeout", 3, "Response timeout in seconds")
}

func parseSensorFlag(name string) (sienna.SensorType, error) {
	switch name {
	case "temperature", "temp":
		return sienna.SensorTemperature, nil
	case "current":
		return sienna.SensorCurrent, nil
	default:
		return 0, fmt.Errorf("unknown sensor %q (use temperature or current)", name)
	}
}

func runStream(cmd *cobra.Command, args []string) error {
	sensor, err := parseSensorFlag(streamSensor)
	if err != nil {
		return err
	}

	handler := newHostHandler()
	l, connInfo, err := openLink(handler)
	if err != nil {
		return err
	}
	defer l.Close()

	fmt.Printf("Connection: %s\n", connInfo)

	timeout := time.Duration(streamTimeout) * time.Second
	start := sienna.NewStartMeasurementCommand(nextSeq(), sensor,
		time.Duration(streamInterval)*time.Millisecond)
	resp, err := roundTrip(l, handler, start, timeout)
	if err != nil {
		return err
	}
	if err := expectOK(resp); err != nil {
		return err
	}

	fmt.Printf("Streaming %s, press Ctrl+C to stop\n\n", sienna.FormatSensorName(sensor))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	received := 0
loop:
	for {
		select {
		case pkt := <-handler.packets:
			if pkt.Type != sienna.TypeNotification || pkt.CmdID != sienna.NotifySensorData {
				fmt.Print(sienna.FormatPacket(time.Now(), pkt))
				continue
			}
			sample, err := sienna.ParseSample(pkt.Payload)
			if err != nil {
				fmt.Printf("[ERROR] bad sample: %v\n", err)
				continue
			}
			fmt.Print(sienna.FormatSample(sample))
			received++
			if streamCount > 0 && received >= streamCount {
				break loop
			}

		case <-sigCh:
			fmt.Println()
			break loop
		}
	}

	// Best effort: the board also stops cleanly on link loss.
	stop := sienna.NewStopMeasurementCommand(nextSeq())
	if resp, err := roundTrip(l, handler, stop, timeout); err != nil {
		fmt.Fprintf(os.Stderr, "stop: %v\n", err)
	} else if err := expectOK(resp); err != nil {
		fmt.Fprintf(os.Stderr, "stop: %v\n", err)
	}

	fmt.Printf("Received %d samples\n", received)
	return nil
}
