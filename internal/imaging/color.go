package imaging

import (
	"fmt"
	"image/color"
)

// RGB is an 8-bit per channel color in canonical R, G, B order.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// RGBOf converts any color to RGB, dropping alpha.
func RGBOf(c color.Color) RGB {
	r, g, b, _ := c.RGBA()
	// Convert from 16-bit to 8-bit
	return RGB{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8)}
}

// Hex formats the color as "#RRGGBB".
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// RGBA returns the color as an opaque color.RGBA.
func (c RGB) RGBA() color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

func (c RGB) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.R, c.G, c.B)
}

// clampChannel rounds v to the nearest integer within 0-255.
func clampChannel(v float64) uint8 {
	v += 0.5
	if v < 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}
