//go:build !tinygo

package hal

import (
	"context"
	"fmt"
	"time"

	"github.com/mattn/go-tty"
)

// HeadlessConfig controls the no-window host runner.
type HeadlessConfig struct {
	Enabled bool
	Hz      int
	Ticks   uint64
	NoTTY   bool
}

func (k *hostKeyboard) inject(ev KeyEvent) {
	select {
	case k.ch <- ev:
	default:
	}
}

// RunHeadless runs the OS without opening a window. Keyboard input comes
// from the controlling terminal in raw mode, so the same key-driven
// injection paths work with and without a window.
func RunHeadless(ctx context.Context, newApp func(HAL) func() error, cfg HeadlessConfig) error {
	if cfg.Hz <= 0 {
		cfg.Hz = 60
	}

	h := New().(*hostHAL)
	step := newApp(h)

	if !cfg.NoTTY {
		if t, err := tty.Open(); err == nil {
			defer t.Close()
			go func() {
				for {
					r, err := t.ReadRune()
					if err != nil {
						return
					}
					h.kbd.inject(KeyEvent{Press: true, Rune: r})
				}
			}()
		}
	}

	d := time.Second / time.Duration(cfg.Hz)
	if d <= 0 {
		return fmt.Errorf("invalid headless hz: %d", cfg.Hz)
	}
	t := time.NewTicker(d)
	defer t.Stop()

	var tick uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			h.t.step(1)
			if step != nil {
				if err := step(); err != nil {
					return err
				}
			}
			tick++
			if cfg.Ticks > 0 && tick >= cfg.Ticks {
				return nil
			}
		}
	}
}
