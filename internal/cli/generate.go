package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Print placeholder prediction frames as data URLs",
	Long: `Render predicted frames without running the staged pipeline and print
one data URL per line (or a JSON array with --json).

Examples:
  cloudcast generate --count 3 --seed 7
  cloudcast generate --texture clouds --size 128 --json`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

var (
	generateCount  int
	generateJSON   bool
	generateRender renderFlags
)

func init() {
	generateCmd.Flags().IntVarP(&generateCount, "count", "n", 3, "number of frames")
	generateCmd.Flags().BoolVar(&generateJSON, "json", false, "print frames as JSON")
	generateRender.register(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if generateCount < 1 {
		return fmt.Errorf("count must be positive, got %d", generateCount)
	}

	c, err := generateRender.apply(cmd, cfg)
	if err != nil {
		return err
	}
	gen, err := newGenerator(c)
	if err != nil {
		return err
	}

	slog.Debug("generating frames", "count", generateCount, "size", gen.Size(), "texture", gen.Texture())
	frames, err := gen.Predict(cmd.Context(), nil, generateCount)
	if err != nil {
		return fmt.Errorf("generate frames: %w", err)
	}

	out := cmd.OutOrStdout()
	if generateJSON {
		return writeJSON(out, frames)
	}
	for _, f := range frames {
		fmt.Fprintln(out, f.DataURL)
	}
	return nil
}
