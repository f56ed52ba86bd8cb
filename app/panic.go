package app

import (
	"fmt"
	"image/color"
	"strings"

	"ember/emberos/console"
	"ember/emberos/kernel"
	"ember/hal"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

// installPanicHandler routes a recovered task panic to the logger and, when
// a framebuffer exists, paints it on screen. The step loop freezes once the
// handler has run; there is no recovery story beyond reading the report.
func installPanicHandler(h hal.HAL) {
	kernel.SetPanicHandler(func(info kernel.PanicInfo) {
		lines := []string{
			"EmberOS panic:",
			fmt.Sprintf("task: %d", uint32(info.TaskID)),
			fmt.Sprintf("panic: %v", info.Value),
		}
		if len(info.Stack) > 0 {
			lines = append(lines, "stack:")
			for _, line := range strings.Split(string(info.Stack), "\n") {
				if line == "" {
					continue
				}
				lines = append(lines, line)
			}
		} else {
			lines = append(lines, "stack: unavailable")
		}

		if l := h.Logger(); l != nil {
			for _, line := range lines {
				l.WriteLineString(line)
			}
		}

		disp := h.Display()
		if disp == nil {
			return
		}
		fb := disp.Framebuffer()
		if fb == nil {
			return
		}

		fb.ClearRGB(90, 10, 10)
		d := console.NewDisplay(fb)
		font := &proggy.TinySZ8pt7b
		fg := color.RGBA{R: 255, G: 240, B: 230, A: 255}

		const lineHeight = 10
		y := int16(lineHeight)
		_, maxH := d.Size()
		for _, line := range lines {
			if y+lineHeight > maxH {
				break
			}
			tinyfont.WriteLine(d, font, 2, y, line, fg)
			y += lineHeight
		}
		_ = fb.Present()
	})
}
