// Package blinker is the heartbeat workload: toggle the LED, sleep, repeat.
// It exists to exercise the sleep path end to end, from SleepCurrent through
// the Timer bottom half back to Ready.
package blinker

import (
	"ember/emberos/kernel"
	"ember/hal"
)

// New returns a task entry that toggles led every period ticks.
func New(led hal.LED, period uint64) kernel.TaskFunc {
	if period == 0 {
		period = 50
	}
	on := false
	return func(rc *kernel.RunContext) {
		if led != nil {
			if on {
				led.Low()
			} else {
				led.High()
			}
			on = !on
		}
		_ = rc.Sleep(period)
	}
}
