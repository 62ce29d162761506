package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/cloudcast/internal/config"
	"github.com/raphaelgruber/cloudcast/internal/evaluation"
	"github.com/raphaelgruber/cloudcast/internal/generator"
	"github.com/raphaelgruber/cloudcast/internal/metrics"
	"github.com/raphaelgruber/cloudcast/internal/sequencer"
	"github.com/raphaelgruber/cloudcast/internal/service"
)

// renderFlags are the prediction overrides shared by run, watch and generate.
type renderFlags struct {
	seed    uint64
	texture string
	size    int
}

func (f *renderFlags) register(cmd *cobra.Command) {
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "fix the random seed (0 = random)")
	cmd.Flags().StringVar(&f.texture, "texture", "", "cloud texture: dots or clouds")
	cmd.Flags().IntVar(&f.size, "size", 0, "edge length of predicted frames in pixels")
}

// apply returns c with every explicitly set flag applied.
func (f *renderFlags) apply(cmd *cobra.Command, c config.Config) (config.Config, error) {
	if cmd.Flags().Changed("seed") {
		c.Seed = f.seed
	}
	if cmd.Flags().Changed("texture") {
		c.Texture = f.texture
	}
	if cmd.Flags().Changed("size") {
		c.CanvasSize = f.size
	}
	if err := c.Validate(); err != nil {
		return config.Config{}, err
	}
	return c, nil
}

func newGenerator(c config.Config) (*generator.Mock, error) {
	texture, err := generator.ParseTexture(c.Texture)
	if err != nil {
		return nil, err
	}
	return generator.NewMock(
		generator.WithSize(c.CanvasSize),
		generator.WithTexture(texture),
		generator.WithSeed(c.Seed),
	), nil
}

func newEngine(c config.Config, log *slog.Logger) (*service.Engine, error) {
	gen, err := newGenerator(c)
	if err != nil {
		return nil, err
	}
	return service.NewEngine(service.Options{
		Sequencer:      sequencer.New(c.DelayWindow()),
		Generator:      gen,
		Synthesizer:    evaluation.NewSynthesizer(c.Metrics),
		Collector:      metrics.NewCollector(),
		Logger:         log,
		MaxUploads:     c.MaxUploads,
		MaxPredictions: c.MaxPredictions,
		Seed:           c.Seed,
	}), nil
}
