// Package generator produces the predicted frames of a run.
//
// The Mock generator is a non-functional simulation: it ignores its inputs and
// draws a sky-like radial gradient with a random cloud texture. It exists so the
// rest of the pipeline can be exercised without a model. A real predictor only
// has to satisfy PredictionGenerator.
package generator

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"math/rand/v2"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"

	"github.com/raphaelgruber/cloudcast/internal/dataurl"
	"github.com/raphaelgruber/cloudcast/internal/models"
)

// PredictionGenerator turns a batch of input images into count predicted frames.
type PredictionGenerator interface {
	Predict(ctx context.Context, inputs []models.UploadedImage, count int) ([]models.PredictedFrame, error)
}

// Texture selects the noise drawn over the gradient.
type Texture string

const (
	TextureDots   Texture = "dots"
	TextureClouds Texture = "clouds"
)

// ParseTexture validates a texture name. Empty means dots.
func ParseTexture(s string) (Texture, error) {
	switch Texture(strings.ToLower(strings.TrimSpace(s))) {
	case "", TextureDots:
		return TextureDots, nil
	case TextureClouds:
		return TextureClouds, nil
	}
	return "", fmt.Errorf("unknown texture %q (want %q or %q)", s, TextureDots, TextureClouds)
}

// DefaultSize is the edge length of a predicted frame in pixels.
const DefaultSize = 256

// SurfaceFunc allocates an opaque drawing surface.
type SurfaceFunc func(width, height int) (*image.NRGBA, error)

func defaultSurface(width, height int) (*image.NRGBA, error) {
	return imaging.New(width, height, color.NRGBA{A: 255}), nil
}

// Mock draws placeholder frames. It is safe for concurrent use.
type Mock struct {
	size    int
	texture Texture
	seed    uint64
	surface SurfaceFunc
}

// Option configures a Mock.
type Option func(*Mock)

// WithSize sets the frame edge length.
func WithSize(size int) Option {
	return func(m *Mock) {
		m.size = size
	}
}

// WithTexture sets the texture variant.
func WithTexture(t Texture) Option {
	return func(m *Mock) {
		m.texture = t
	}
}

// WithSeed fixes the random seed. Zero draws a fresh seed per Predict call.
func WithSeed(seed uint64) Option {
	return func(m *Mock) {
		m.seed = seed
	}
}

// WithSurface overrides the surface allocator.
func WithSurface(fn SurfaceFunc) Option {
	return func(m *Mock) {
		m.surface = fn
	}
}

// NewMock creates a mock generator.
func NewMock(opts ...Option) *Mock {
	m := &Mock{
		size:    DefaultSize,
		texture: TextureDots,
		surface: defaultSurface,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Size returns the configured frame edge length.
func (m *Mock) Size() int {
	return m.size
}

// Texture returns the configured texture variant.
func (m *Mock) Texture() Texture {
	return m.texture
}

// Predict renders count frames in parallel. The inputs are not looked at.
func (m *Mock) Predict(ctx context.Context, _ []models.UploadedImage, count int) ([]models.PredictedFrame, error) {
	if count <= 0 {
		return []models.PredictedFrame{}, nil
	}

	seed := m.seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	frames := make([]models.PredictedFrame, count)
	g, gctx := errgroup.WithContext(ctx)
	for i := range count {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			frame, err := m.RenderFrame(i, seed)
			if err != nil {
				return err
			}
			frames[i] = frame
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return frames, nil
}

// RenderFrame draws and encodes frame index using seed. The same (index, seed)
// pair always yields the same bytes.
func (m *Mock) RenderFrame(index int, seed uint64) (models.PredictedFrame, error) {
	img, err := m.Render(index, seed)
	if err != nil {
		return models.PredictedFrame{}, err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return models.PredictedFrame{}, fmt.Errorf("encode frame %d: %v: %w", index, err, models.ErrRenderFailure)
	}

	b := img.Bounds()
	return models.PredictedFrame{
		Index:   index,
		DataURL: dataurl.Encode("image/png", buf.Bytes()),
		Width:   b.Dx(),
		Height:  b.Dy(),
	}, nil
}

// Render draws frame index without encoding it.
func (m *Mock) Render(index int, seed uint64) (*image.NRGBA, error) {
	if m.size <= 0 {
		return nil, fmt.Errorf("canvas size %d: %w", m.size, models.ErrRenderFailure)
	}

	canvas, err := m.surface(m.size, m.size)
	if err != nil {
		return nil, fmt.Errorf("allocate %dx%d surface: %v: %w", m.size, m.size, err, models.ErrRenderFailure)
	}
	if canvas == nil {
		return nil, fmt.Errorf("allocate %dx%d surface: %w", m.size, m.size, models.ErrRenderFailure)
	}

	paintGradient(canvas, index)

	rng := rand.New(rand.NewPCG(seed, uint64(index)))
	switch m.texture {
	case TextureClouds:
		return drawClouds(canvas, rng), nil
	default:
		drawDots(canvas, rng)
		return canvas, nil
	}
}
