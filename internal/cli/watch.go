package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/raphaelgruber/cloudcast/internal/intake"
	"github.com/raphaelgruber/cloudcast/internal/models"
	"github.com/raphaelgruber/cloudcast/internal/service"
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Re-run whenever the images in a directory change",
	Long: `Watch a directory and process its first 5 PNG/JPEG images (by file name).

Every change to the directory re-selects the images and starts a new run; a
run still in progress is cancelled and its results are discarded.

Examples:
  cloudcast watch ./frames
  cloudcast watch --debounce 1s --texture clouds ./frames`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

var (
	watchDebounce time.Duration
	watchRender   renderFlags
)

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 300*time.Millisecond, "quiet period before a change triggers a run")
	watchRender.register(watchCmd)
}

// syncWriter serializes writes from the engine goroutine and the watch loop.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	dir := args[0]
	out := &syncWriter{w: cmd.OutOrStdout()}

	c, err := watchRender.apply(cmd, cfg)
	if err != nil {
		return err
	}

	eng, err := newEngine(c, logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	eng.Subscribe(func(ev models.Event) {
		switch ev.Type {
		case models.EventProgress:
			fmt.Fprintf(out, "[%s %d/%d] %3.0f%% %s\n", ev.Run.ID, ev.Run.StageIndex+1, ev.Run.TotalStages, ev.Run.Percent, ev.Run.StageLabel)
		case models.EventCompleted:
			fmt.Fprint(out, "\n"+renderSummary(ev.Results, defaultTheme)+"\n")
		case models.EventFailed:
			fmt.Fprintf(out, "Run %s failed: %s\n", ev.Run.ID, ev.Error)
		}
	})

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	slog.Info("watching directory", "dir", dir, "debounce", watchDebounce)
	resubmit(ctx, eng, dir, c.MaxUploads, out)

	return watchLoop(ctx, watcher, watchDebounce, func() {
		resubmit(ctx, eng, dir, c.MaxUploads, out)
	})
}

// watchLoop calls trigger once the directory has been quiet for debounce
// after a relevant event. It returns when ctx is done or the watcher closes.
func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, debounce time.Duration, trigger func()) error {
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			slog.Debug("directory changed", "name", ev.Name, "op", ev.Op.String())
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", "error", err)
		case <-timer.C:
			trigger()
		}
	}
}

func relevant(ev fsnotify.Event) bool {
	return ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
}

// resubmit re-selects the directory's images and starts a new run.
func resubmit(ctx context.Context, eng *service.Engine, dir string, limit int, out io.Writer) {
	batch, err := intake.ScanDir(dir, limit)
	if errors.Is(err, models.ErrInvalidInput) {
		fmt.Fprintln(out, noImagesNotice)
		return
	}
	if err != nil {
		slog.Warn("scan directory", "dir", dir, "error", err)
		return
	}

	run, err := eng.Submit(ctx, batch)
	if err != nil {
		slog.Warn("submit run", "dir", dir, "error", err)
		return
	}
	fmt.Fprintf(out, "Started run %s with %d images\n", run.ID, run.ImageCount)
}
