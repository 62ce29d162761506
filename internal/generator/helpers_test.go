package generator

import (
	"image/color"
	"math/rand/v2"

	"github.com/lucasb-eyer/go-colorful"
)

func newTestRand() *rand.Rand {
	return rand.New(rand.NewPCG(3, 4))
}

func toNRGBA(c colorful.Color) color.NRGBA {
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}
