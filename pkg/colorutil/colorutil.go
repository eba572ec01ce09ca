// Package colorutil provides shared colors for debug rendering.
package colorutil

import (
	"image/color"
)

// Common overlay colors.
var (
	Black   = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Red     = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	Cyan    = color.RGBA{R: 0, G: 255, B: 255, A: 255}
	Magenta = color.RGBA{R: 255, G: 0, B: 255, A: 255}
	Blue    = color.RGBA{R: 0, G: 0, B: 255, A: 255}
	Green   = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Yellow  = color.RGBA{R: 255, G: 255, B: 0, A: 255}
	Orange  = color.RGBA{R: 255, G: 160, B: 0, A: 255}
)

// Palette is the cycle of layer colors used when nothing else is chosen.
var Palette = []color.RGBA{Green, Magenta, Cyan, Yellow, Orange, Blue, Red, White}

// Cycle returns the i-th palette color, wrapping around.
func Cycle(i int) color.RGBA {
	if i < 0 {
		i = -i
	}
	return Palette[i%len(Palette)]
}

// Darken reduces the brightness of a color by factor (0..1).
func Darken(c color.RGBA, factor float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * (1 - factor)),
		G: uint8(float64(c.G) * (1 - factor)),
		B: uint8(float64(c.B) * (1 - factor)),
		A: c.A,
	}
}

// WithAlpha returns c with its alpha channel replaced.
func WithAlpha(c color.RGBA, a uint8) color.RGBA {
	c.A = a
	return c
}

// ToFloat returns the components of c scaled to 0..1.
func ToFloat(c color.RGBA) (r, g, b, a float64) {
	return float64(c.R) / 255, float64(c.G) / 255, float64(c.B) / 255, float64(c.A) / 255
}
