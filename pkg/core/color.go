// pkg/core/color.go
package core

import "fmt"

// Color is a packed RGBA value: red in the high byte, alpha in the low byte.
// It is display metadata only and never affects geometry.
type Color uint32

// RGB packs an opaque colour.
func RGB(r, g, b uint8) Color {
	return RGBA(r, g, b, 0xFF)
}

// RGBA packs a colour with an explicit alpha channel.
func RGBA(r, g, b, a uint8) Color {
	return Color(uint32(r)<<24 | uint32(g)<<16 | uint32(b)<<8 | uint32(a))
}

func (c Color) Red() uint8   { return uint8(c >> 24) }
func (c Color) Green() uint8 { return uint8(c >> 16) }
func (c Color) Blue() uint8  { return uint8(c >> 8) }
func (c Color) Alpha() uint8 { return uint8(c) }

// Hex renders the colour as #RRGGBBAA.
func (c Color) Hex() string {
	return fmt.Sprintf("#%08X", uint32(c))
}

func (c Color) String() string {
	return fmt.Sprintf("r: %d, g: %d, b: %d, a: %d", c.Red(), c.Green(), c.Blue(), c.Alpha())
}
