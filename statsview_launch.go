//go:build statsview

// statsview_launch.go - Optional runtime statistics server
//
// Built only with the statsview tag. Charts are served at
// http://<addr>/debug/statsview and pprof at http://<addr>/debug/pprof/.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

const statsViewPath = "/debug/statsview"

func statsViewAvailable() bool { return true }

// launchStatsView runs the statistics server as a machine worker.
func launchStatsView(m *Spectrum, addr string) {
	if addr == "" {
		return
	}
	m.Go(func(ctx context.Context) error {
		viewer.SetConfiguration(viewer.WithAddr(addr))
		mgr := statsview.New()
		go func() {
			<-ctx.Done()
			mgr.Stop()
		}()
		fmt.Fprintf(os.Stderr, "stats server available at http://%s%s\n", addr, statsViewPath)
		mgr.Start()
		return nil
	})
}
