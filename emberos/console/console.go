// Package console renders the kernel's diagnostic text onto a framebuffer.
// It is a read-only consumer of kernel state: the app writes log lines and a
// status header into it, and Render paints them with tinyfont.
package console

import (
	"image/color"
	"sync"

	"ember/hal"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

const maxLines = 64

const lineHeight = 10

var (
	colorBG     = color.RGBA{R: 12, G: 8, B: 8, A: 255}
	colorText   = color.RGBA{R: 230, G: 220, B: 200, A: 255}
	colorHeader = color.RGBA{R: 255, G: 140, B: 40, A: 255}
)

// Console is a scrollback of recent lines plus a one-line status header.
// Old lines fall off the top; nothing allocates per frame beyond tinyfont's
// glyph walk.
type Console struct {
	mu     sync.Mutex
	d      *Display
	header string
	lines  [maxLines]string
	next   int
	count  int
}

// New builds a console over fb. A nil framebuffer is fine; Render then does
// nothing, which is the headless case.
func New(fb hal.Framebuffer) *Console {
	return &Console{d: NewDisplay(fb)}
}

// SetHeader replaces the status line shown above the scrollback.
func (c *Console) SetHeader(s string) {
	c.mu.Lock()
	c.header = s
	c.mu.Unlock()
}

// WriteLineString appends one line to the scrollback. Console implements
// hal.Logger so the app can tee kernel logging onto the screen.
func (c *Console) WriteLineString(s string) {
	c.mu.Lock()
	c.lines[c.next%maxLines] = s
	c.next++
	if c.count < maxLines {
		c.count++
	}
	c.mu.Unlock()
}

// WriteLineBytes appends one line to the scrollback.
func (c *Console) WriteLineBytes(b []byte) {
	c.WriteLineString(string(b))
}

// Render repaints the console: header on top, then as many of the newest
// lines as fit.
func (c *Console) Render() error {
	c.mu.Lock()
	header := c.header
	_, fbh := c.d.Size()
	rows := int(fbh)/lineHeight - 2
	if rows < 0 {
		rows = 0
	}
	if rows > c.count {
		rows = c.count
	}
	visible := make([]string, rows)
	for i := 0; i < rows; i++ {
		visible[i] = c.lines[(c.next-rows+i)%maxLines]
	}
	c.mu.Unlock()

	if fbh == 0 {
		return nil
	}

	fbw, _ := c.d.Size()
	c.d.FillRect(0, 0, fbw, fbh, colorBG)

	font := &proggy.TinySZ8pt7b
	tinyfont.WriteLine(c.d, font, 2, lineHeight, header, colorHeader)

	y := int16(lineHeight * 2)
	for _, line := range visible {
		tinyfont.WriteLine(c.d, font, 2, y+lineHeight, line, colorText)
		y += lineHeight
	}
	return c.d.Display()
}
