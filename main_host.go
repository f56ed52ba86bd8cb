//go:build !tinygo

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"ember/app"
	"ember/emberos/kernel"
	"ember/hal"
	"ember/internal/config"
)

func main() {
	var hc hal.HeadlessConfig
	var cfgPath string
	flag.BoolVar(&hc.Enabled, "headless", false, "Run without a window.")
	flag.IntVar(&hc.Hz, "hz", 0, "Tick rate in headless mode (0 = use config).")
	flag.Uint64Var(&hc.Ticks, "ticks", 0, "Stop after N ticks in headless mode (0 = run forever).")
	flag.BoolVar(&hc.NoTTY, "no-tty", false, "Headless mode without terminal key input.")
	flag.StringVar(&cfgPath, "config", "ember.yaml", "Path to the boot config file.")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if hc.Hz == 0 {
		hc.Hz = cfg.TickHz
	}

	if hc.Enabled {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if err := hal.RunHeadless(ctx, func(h hal.HAL) func() error {
			return app.NewWithConfig(h, cfg)
		}, hc); err != nil {
			if err == context.Canceled {
				dumpTrace(cfg.TracePath)
				return
			}
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		dumpTrace(cfg.TracePath)
		return
	}

	if err := hal.RunWindow(func(h hal.HAL) func() error {
		return app.NewWithConfig(h, cfg)
	}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	dumpTrace(cfg.TracePath)
}

// dumpTrace writes the kernel trace ring to path so it can be fed to
// cmd/embertrace. Empty path disables the dump.
func dumpTrace(path string) {
	if path == "" {
		return
	}
	f, err := os.Create(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "trace dump:", err)
		return
	}
	defer f.Close()
	if err := kernel.Trace().Dump(f); err != nil {
		fmt.Fprintln(os.Stderr, "trace dump:", err)
	}
}
