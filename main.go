// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Arkosense Instruments
//
// Sienna - host-side tooling for the Arkosense sensor acquisition board.

package main

import (
	"flag"
	"os"

	"github.com/golang/glog"

	"github.com/arkosense/sienna/cmd"
)

func main() {
	// glog registers its flags on the standard flag set; parse it so
	// -logtostderr, -v and friends keep working alongside cobra.
	flag.CommandLine.Parse([]string{})
	defer glog.Flush()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
