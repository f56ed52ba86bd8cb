//go:build tinygo

package kernel

// Stack capture is unavailable on TinyGo targets; the panic value alone has
// to do.
func captureStack() []byte {
	return nil
}
