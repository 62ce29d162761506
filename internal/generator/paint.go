package generator

import (
	"image"
	"image/color"
	"math"
	"math/rand/v2"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

const (
	// Inner gradient radius at the reference size of 256px.
	innerRadiusRatio = 20.0 / 256.0

	dotCount    = 1000
	dotSize     = 2
	dotMaxAlpha = 0.3

	cloudBlobs     = 20
	cloudSpecks    = 2000
	specksMaxAlpha = 0.3
)

// gradientStops returns the three sky colors for frame index; later frames
// drift toward a darker, bluer tint.
func gradientStops(index int) [3]colorful.Color {
	i := float64(index)
	return [3]colorful.Color{
		hsl(200+10*i, 0.70, (85-5*i)/100),
		hsl(210+5*i, 0.60, (75-3*i)/100),
		hsl(220+3*i, 0.50, (65-2*i)/100),
	}
}

func hsl(h, s, l float64) colorful.Color {
	return colorful.Hsl(math.Mod(h, 360), s, math.Max(0, math.Min(1, l)))
}

// gradientLUT samples the three-stop gradient at 256 evenly spaced offsets.
func gradientLUT(index int) [256]color.NRGBA {
	stops := gradientStops(index)
	var lut [256]color.NRGBA
	for i := range lut {
		t := float64(i) / 255
		var c colorful.Color
		if t < 0.5 {
			c = stops[0].BlendRgb(stops[1], t*2)
		} else {
			c = stops[1].BlendRgb(stops[2], (t-0.5)*2)
		}
		r, g, b := c.Clamped().RGB255()
		lut[i] = color.NRGBA{R: r, G: g, B: b, A: 255}
	}
	return lut
}

// paintGradient fills img with a radial gradient centered on the canvas.
func paintGradient(img *image.NRGBA, index int) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	edge := math.Min(float64(w), float64(h))
	cx, cy := float64(w)/2, float64(h)/2
	inner := edge * innerRadiusRatio
	outer := edge / 2
	lut := gradientLUT(index)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			d := math.Hypot(float64(x)+0.5-cx, float64(y)+0.5-cy)
			t := (d - inner) / (outer - inner)
			t = math.Max(0, math.Min(1, t))
			img.SetNRGBA(b.Min.X+x, b.Min.Y+y, lut[int(t*255+0.5)])
		}
	}
}

// blendWhite composites white at the given alpha over an opaque pixel.
func blendWhite(img *image.NRGBA, x, y int, alpha float64) {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return
	}
	i := img.PixOffset(x, y)
	p := img.Pix[i : i+4 : i+4]
	for c := 0; c < 3; c++ {
		p[c] = uint8(float64(p[c])*(1-alpha) + 255*alpha + 0.5)
	}
}

func drawDots(img *image.NRGBA, rng *rand.Rand) {
	b := img.Bounds()
	for n := 0; n < dotCount; n++ {
		x := b.Min.X + rng.IntN(b.Dx())
		y := b.Min.Y + rng.IntN(b.Dy())
		alpha := rng.Float64() * dotMaxAlpha
		for dy := 0; dy < dotSize; dy++ {
			for dx := 0; dx < dotSize; dx++ {
				blendWhite(img, x+dx, y+dy, alpha)
			}
		}
	}
}

// drawClouds paints soft white blobs on a transparent layer, blurs it and
// overlays it on img, then sprinkles single-pixel specks.
func drawClouds(img *image.NRGBA, rng *rand.Rand) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	edge := math.Min(float64(w), float64(h))

	layer := imaging.New(w, h, color.NRGBA{})
	for n := 0; n < cloudBlobs; n++ {
		cx := rng.Float64() * float64(w)
		cy := rng.Float64() * float64(h)
		radius := edge * (0.08 + rng.Float64()*0.17)
		opacity := 0.2 + rng.Float64()*0.3
		paintBlob(layer, cx, cy, radius, opacity)
	}

	sigma := math.Max(1, edge/64)
	out := imaging.Overlay(img, imaging.Blur(layer, sigma), b.Min, 1.0)

	ob := out.Bounds()
	for n := 0; n < cloudSpecks; n++ {
		x := ob.Min.X + rng.IntN(ob.Dx())
		y := ob.Min.Y + rng.IntN(ob.Dy())
		blendWhite(out, x, y, rng.Float64()*specksMaxAlpha)
	}
	return out
}

// paintBlob adds a white disc whose opacity falls off linearly to its rim.
func paintBlob(layer *image.NRGBA, cx, cy, radius, opacity float64) {
	b := layer.Bounds()
	x0 := max(b.Min.X, int(cx-radius))
	x1 := min(b.Max.X, int(cx+radius)+1)
	y0 := max(b.Min.Y, int(cy-radius))
	y1 := min(b.Max.Y, int(cy+radius)+1)

	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			d := math.Hypot(float64(x)+0.5-cx, float64(y)+0.5-cy)
			if d >= radius {
				continue
			}
			a := opacity * (1 - d/radius)
			i := layer.PixOffset(x, y)
			p := layer.Pix[i : i+4 : i+4]
			prev := float64(p[3]) / 255
			next := a + prev*(1-a)
			p[0], p[1], p[2] = 255, 255, 255
			p[3] = uint8(next*255 + 0.5)
		}
	}
}
