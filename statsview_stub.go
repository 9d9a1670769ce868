//go:build !statsview

package main

import (
	"fmt"
	"os"
)

func statsViewAvailable() bool { return false }

func launchStatsView(_ *Spectrum, addr string) {
	if addr != "" {
		fmt.Fprintln(os.Stderr, "statsview: not available, rebuild with -tags statsview")
	}
}
