package cli

import (
	"bytes"
	"context"
	"image/color"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/disintegration/imaging"
	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/cloudcast/internal/config"
	"github.com/raphaelgruber/cloudcast/internal/metrics"
	"github.com/raphaelgruber/cloudcast/internal/models"
)

func testConfig() config.Config {
	c := config.Default()
	c.StageDelayMin = 0
	c.StageDelayMax = 0
	c.CanvasSize = 16
	c.Seed = 5
	return c
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pngFile(t *testing.T, dir, name string) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(8, 8, color.NRGBA{B: 200, A: 255}), imaging.PNG))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestProgressModel_Events(t *testing.T) {
	start := models.RunSnapshot{ID: "run2", Generation: 2, TotalStages: 8, Active: true, StartedAt: time.Now()}
	m := newProgressModel(start)
	assert.Contains(t, m.renderContent(), "Starting run")

	// stale generation is ignored
	next, _ := m.Update(runEventMsg{Type: models.EventProgress, Run: models.RunSnapshot{ID: "run1", Generation: 1, StageLabel: "old"}})
	m = next.(progressModel)
	assert.Equal(t, "run2", m.run.ID)

	next, _ = m.Update(runEventMsg{Type: models.EventProgress, Run: models.RunSnapshot{
		ID: "run2", Generation: 2, StageIndex: 2, TotalStages: 8, Percent: 37.5,
		StageLabel: "Initializing UNet Conditional Diffusion Model...",
	}})
	m = next.(progressModel)
	view := m.renderContent()
	assert.Contains(t, view, "[3/8]")
	assert.Contains(t, view, "Initializing UNet Conditional Diffusion Model...")

	rec := &models.ResultsRecord{RunID: "run2"}
	next, cmd := m.Update(runEventMsg{Type: models.EventCompleted, Run: models.RunSnapshot{ID: "run2", Generation: 2, TotalStages: 8, Percent: 100}, Results: rec})
	m = next.(progressModel)
	assert.NotNil(t, cmd)
	assert.True(t, m.done)
	assert.Same(t, rec, m.results)
	assert.Contains(t, m.renderContent(), "Processing complete")
}

func TestProgressModel_FailureAndQuit(t *testing.T) {
	m := newProgressModel(models.RunSnapshot{ID: "r", Generation: 1})

	next, _ := m.Update(runEventMsg{Type: models.EventFailed, Run: models.RunSnapshot{ID: "r", Generation: 1}, Error: "render failure"})
	failed := next.(progressModel)
	require.Error(t, failed.err)
	assert.Contains(t, failed.renderContent(), "Run failed: render failure")

	next, _ = m.Update(tea.KeyPressMsg{Code: 'q', Text: "q"})
	quit := next.(progressModel)
	assert.True(t, quit.quitting)
	assert.Contains(t, quit.renderContent(), "cancelled")
}

func TestRenderSummary(t *testing.T) {
	rec := &models.ResultsRecord{
		RunID: "abcd1234",
		InputFrames: []models.InputFrame{
			{Index: 0, Name: "t0.png", Width: 64, Height: 64, DataURL: "data:image/png;base64,AA=="},
			{Index: 1, Name: "t1.png", Error: "decode t1.png: unexpected EOF: decode failure"},
		},
		PredictedFrames: []models.PredictedFrame{{Index: 0, Width: 256, Height: 256}},
		Metrics:         models.Metrics{Similarity: 0.91234, MeanError: 0.0616, PeakSignalRatio: 27.46},
		ProcessingTime:  "3.17",
	}

	out := renderSummary(rec, defaultTheme)
	assert.Contains(t, out, "abcd1234")
	assert.Contains(t, out, "Frame 1/3")
	assert.Contains(t, out, "Frame 3/3")
	assert.Contains(t, out, "PREDICTED")
	assert.Contains(t, out, "0.912")
	assert.Contains(t, out, "0.062")
	assert.Contains(t, out, "27.5 dB")
	assert.Contains(t, out, "3.17s")
	assert.Contains(t, out, "Warnings (1)")
	assert.Contains(t, out, "simulated")
}

func TestRenderStats(t *testing.T) {
	c := metrics.NewCollector()
	c.RecordTiming(metrics.OpStage, 10*time.Millisecond)
	c.Add(metrics.CountRunsCompleted, 1)

	out := renderStats(c.Snapshot())
	assert.Contains(t, out, metrics.OpStage)
	assert.NotContains(t, out, metrics.OpRender+" ")
	assert.Contains(t, out, metrics.CountRunsCompleted+"     1")
}

func TestRunPlainProgress(t *testing.T) {
	dir := t.TempDir()
	var batch []models.UploadedImage
	for _, name := range []string{"a.png", "b.png", "c.png"} {
		batch = append(batch, models.UploadedImage{Name: name, MIMEType: "image/png", Data: mustRead(t, pngFile(t, dir, name))})
	}

	eng, err := newEngine(testConfig(), testLogger())
	require.NoError(t, err)
	defer eng.Close()

	var out bytes.Buffer
	rec, err := runPlainProgress(context.Background(), eng, batch, &out)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Len(t, rec.InputFrames, 3)
	assert.Len(t, rec.PredictedFrames, 3)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 8)
	assert.True(t, strings.HasPrefix(lines[0], "[1/8]"))
	assert.Contains(t, lines[7], "100%")
	assert.Contains(t, lines[7], "Finalizing results...")
}

func TestNewEngine_RejectsUnknownTexture(t *testing.T) {
	c := testConfig()
	c.Texture = "stars"
	_, err := newEngine(c, testLogger())
	assert.Error(t, err)
}

func TestWatchLoop_Debounces(t *testing.T) {
	dir := t.TempDir()
	watcher, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	defer watcher.Close()
	require.NoError(t, watcher.Add(dir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var triggers atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- watchLoop(ctx, watcher, 200*time.Millisecond, func() { triggers.Add(1) })
	}()

	for _, name := range []string{"a.png", "b.png", "c.png"} {
		pngFile(t, dir, name)
	}

	require.Eventually(t, func() bool { return triggers.Load() == 1 }, 3*time.Second, 20*time.Millisecond)
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, int32(1), triggers.Load(), "burst of writes triggers once")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch loop did not stop")
	}
}

func TestRelevant(t *testing.T) {
	assert.True(t, relevant(fsnotify.Event{Name: "a.png", Op: fsnotify.Create}))
	assert.True(t, relevant(fsnotify.Event{Name: "a.png", Op: fsnotify.Remove}))
	assert.False(t, relevant(fsnotify.Event{Name: "a.png", Op: fsnotify.Chmod}))
}

func mustRead(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}
