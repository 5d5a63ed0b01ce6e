// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Arkosense Instruments

package cmd

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/arkosense/sienna/pkg/device"
	"github.com/arkosense/sienna/pkg/link"
)

var deviceUpdateMs int

var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Run a simulated sensor board on the connection",
	Long: `Act as the board side of the protocol: answer commands and serve
measurement streams with simulated sensor data.

The simulated temperature drifts around 22 C and the simulated current draw
follows a slow sine wave around 15 mA. Useful for exercising host tooling
without hardware, typically over a WebSocket bridge or a pseudo-terminal
pair (socat -d -d pty,raw,echo=0 pty,raw,echo=0).`,
	RunE: runDevice,
}

func init() {
	rootCmd.AddCommand(deviceCmd)
	deviceCmd.Flags().IntVar(&deviceUpdateMs, "update", 200, "Simulated sensor update period in milliseconds")
}

// simCurrent synthesizes a slowly varying current draw.
type simCurrent struct {
	start time.Time
}

func (c *simCurrent) InstantReading() (float64, bool) {
	t := time.Since(c.start).Seconds()
	return 15.0 + 5.0*math.Sin(t/10) + rand.Float64(), true
}

// simClock accepts SET_RTC by tracking an offset from the host clock.
type simClock struct {
	offset time.Duration
}

func (c *simClock) Now() time.Time { return time.Now().Add(c.offset) }
func (c *simClock) SetTime(t time.Time) error {
	c.offset = time.Until(t)
	return nil
}

type simStore struct{}

func (simStore) Clear() {}

// forwardingHandler breaks the construction cycle between the link and the
// dispatcher: the link is opened with this handler first, then the
// dispatcher (which needs the link as its sender) is attached. Frames that
// arrive before attachment are dropped.
type forwardingHandler struct {
	target atomic.Pointer[device.Dispatcher]
}

func (f *forwardingHandler) HandleFrame(payload []byte) {
	if d := f.target.Load(); d != nil {
		d.HandleFrame(payload)
	}
}

func (f *forwardingHandler) HandleTxComplete(n int) {
	if d := f.target.Load(); d != nil {
		d.HandleTxComplete(n)
	}
}

func (f *forwardingHandler) HandleLinkError(err error) {
	if d := f.target.Load(); d != nil {
		d.HandleLinkError(err)
	}
}

func runDevice(cmd *cobra.Command, args []string) error {
	transport, connInfo, err := OpenTransport()
	if err != nil {
		return err
	}

	fwd := &forwardingHandler{}
	cfg := link.DefaultConfig()
	cfg.Handler = fwd
	l, err := link.Open(transport, cfg)
	if err != nil {
		transport.Close()
		return err
	}
	defer l.Close()

	d, err := device.New(device.Config{
		Sender:  l,
		Current: &simCurrent{start: time.Now()},
		RTC:     &simClock{},
		Store:   simStore{},
	})
	if err != nil {
		return err
	}
	fwd.target.Store(d)

	fmt.Printf("Sienna - Simulated Board\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// Simulated temperature: a bounded random walk around 22 C, pushed into
	// the dispatcher's latest-reading cache the way a sensor driver would.
	ticker := time.NewTicker(time.Duration(deviceUpdateMs) * time.Millisecond)
	defer ticker.Stop()

	temp := 22.0
	for {
		select {
		case <-ticker.C:
			temp += (rand.Float64() - 0.5) * 0.2
			if temp < 15 {
				temp = 15
			} else if temp > 30 {
				temp = 30
			}
			d.SetTemperature(device.TemperatureReading{
				Celsius:  temp,
				Humidity: 40 + 10*rand.Float64(),
			})

		case <-sigCh:
			fmt.Println()
			d.StopStream()
			fmt.Print(l.Stats().String())
			return nil
		}
	}
}
