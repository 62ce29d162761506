package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/cloudcast/internal/config"
	"github.com/raphaelgruber/cloudcast/internal/intake"
	"github.com/raphaelgruber/cloudcast/internal/models"
	"github.com/raphaelgruber/cloudcast/internal/service"
)

// noImagesNotice is shown when filtering leaves nothing to process.
const noImagesNotice = "No PNG or JPEG images to process. Supported formats: png, jpeg, jpg."

var runCmd = &cobra.Command{
	Use:   "run <images...>",
	Short: "Process a sequence of satellite images",
	Long: `Run the simulated cloud-motion pipeline over 1-5 sequential images.

Files that are not PNG or JPEG are skipped; only the first 5 remaining images
are used. Up to 3 predicted frames are generated.

Examples:
  cloudcast run t0.png t1.png t2.png
  cloudcast run --json frames/*.jpg > results.json
  cloudcast run --texture clouds --seed 42 --plain *.png`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

var (
	runJSON   bool
	runPlain  bool
	runStats  bool
	runRender renderFlags
)

func init() {
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the results record as JSON")
	runCmd.Flags().BoolVar(&runPlain, "plain", false, "print progress as plain lines instead of a progress bar")
	runCmd.Flags().BoolVar(&runStats, "stats", false, "print runtime statistics after the run")
	runRender.register(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	c, err := runRender.apply(cmd, cfg)
	if err != nil {
		return err
	}

	files := intake.LoadFiles(args)
	batch, err := intake.Select(files, c.MaxUploads)
	if errors.Is(err, models.ErrInvalidInput) {
		fmt.Fprintln(out, noImagesNotice)
		return nil
	}
	if err != nil {
		return err
	}
	if skipped := len(args) - len(batch); skipped > 0 && !runJSON {
		fmt.Fprintf(out, "Using %d of %d files (png/jpeg only, at most %d).\n", len(batch), len(args), c.MaxUploads)
	}

	interactive := !runPlain && !runJSON && config.IsTerminal(os.Stdout)

	var (
		eng *service.Engine
		rec *models.ResultsRecord
	)
	if interactive {
		// The progress UI owns the terminal; log to file only
		uiLogger, cleanup := config.SetupLogger(io.Discard, c.LogFile, c.LogLevel)
		defer cleanup()

		eng, err = newEngine(c, uiLogger)
		if err != nil {
			return err
		}
		defer eng.Close()

		rec, err = runWithProgress(eng, func() (models.RunSnapshot, error) {
			return eng.Submit(ctx, batch)
		})
		if err != nil {
			return err
		}
		if rec == nil {
			return nil
		}
	} else {
		eng, err = newEngine(c, logger)
		if err != nil {
			return err
		}
		defer eng.Close()

		var progressOut io.Writer = out
		if runJSON {
			progressOut = io.Discard
		}
		rec, err = runPlainProgress(ctx, eng, batch, progressOut)
		if err != nil {
			return err
		}
	}

	if runJSON {
		if err := writeJSON(out, rec); err != nil {
			return fmt.Errorf("encode results: %w", err)
		}
	} else {
		fmt.Fprint(out, "\n"+renderSummary(rec, defaultTheme))
	}

	if runStats {
		fmt.Fprint(cmd.ErrOrStderr(), "\n"+renderStats(eng.Collector().Snapshot()))
	}
	return nil
}

// runPlainProgress submits batch and prints one line per stage until the run
// reaches a terminal event.
func runPlainProgress(ctx context.Context, eng *service.Engine, batch []models.UploadedImage, w io.Writer) (*models.ResultsRecord, error) {
	done := make(chan models.Event, 1)
	unsubscribe := eng.Subscribe(func(ev models.Event) {
		if ev.Type == models.EventProgress {
			fmt.Fprintf(w, "[%d/%d] %3.0f%% %s\n", ev.Run.StageIndex+1, ev.Run.TotalStages, ev.Run.Percent, ev.Run.StageLabel)
			return
		}
		select {
		case done <- ev:
		default:
		}
	})
	defer unsubscribe()

	if _, err := eng.Submit(ctx, batch); err != nil {
		return nil, err
	}

	select {
	case ev := <-done:
		if ev.Type == models.EventFailed {
			return nil, fmt.Errorf("run %s failed: %s", ev.Run.ID, ev.Error)
		}
		return ev.Results, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
