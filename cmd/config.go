// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Arkosense Instruments

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/arkosense/sienna/pkg/device"
	"github.com/arkosense/sienna/pkg/sienna"
)

var (
	configTimeout    int
	configInterval   uint32
	configTempEnable bool
	configCurrEnable bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read or update the board configuration",
}

var configGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Display the board's active configuration",
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update the board configuration",
	Long: `Read the active configuration, apply the given flags, and send the
result back with SET_CONFIG. Flags that are not given keep the board's
current values.`,
	RunE: runConfigSet,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)

	configCmd.PersistentFlags().IntVar(&configTimeout, "timeout", 3, "Response timeout in seconds")
	configSetCmd.Flags().Uint32Var(&configInterval, "interval", 0, "Default stream interval in milliseconds")
	configSetCmd.Flags().BoolVar(&configTempEnable, "temperature", true, "Allow temperature streaming")
	configSetCmd.Flags().BoolVar(&configCurrEnable, "current", true, "Allow current streaming")
}

func fetchConfig(l *hostLink) (device.DeviceConfig, error) {
	resp, err := roundTrip(l.link, l.handler, sienna.NewGetConfigCommand(nextSeq()),
		time.Duration(configTimeout)*time.Second)
	if err != nil {
		return device.DeviceConfig{}, err
	}
	if err := expectOK(resp); err != nil {
		return device.DeviceConfig{}, err
	}
	return device.DecodeDeviceConfig(resp.Payload)
}

func printConfig(cfg device.DeviceConfig) {
	fmt.Printf("Stream interval:     %d ms\n", cfg.StreamIntervalMs)
	fmt.Printf("Temperature enabled: %t\n", cfg.TemperatureEnabled)
	fmt.Printf("Current enabled:     %t\n", cfg.CurrentEnabled)
	fmt.Printf("RX timeout:          %d ms\n", cfg.RxTimeoutMs)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	l, err := openHostLink()
	if err != nil {
		return err
	}
	defer l.Close()

	cfg, err := fetchConfig(l)
	if err != nil {
		return err
	}
	printConfig(cfg)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	l, err := openHostLink()
	if err != nil {
		return err
	}
	defer l.Close()

	cfg, err := fetchConfig(l)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("interval") {
		cfg.StreamIntervalMs = configInterval
	}
	if cmd.Flags().Changed("temperature") {
		cfg.TemperatureEnabled = configTempEnable
	}
	if cmd.Flags().Changed("current") {
		cfg.CurrentEnabled = configCurrEnable
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	payload, err := cfg.Encode()
	if err != nil {
		return err
	}
	resp, err := roundTrip(l.link, l.handler, sienna.NewSetConfigCommand(nextSeq(), payload),
		time.Duration(configTimeout)*time.Second)
	if err != nil {
		return err
	}
	if err := expectOK(resp); err != nil {
		return err
	}

	fmt.Println("Configuration updated")
	printConfig(cfg)
	return nil
}
