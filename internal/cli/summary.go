package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/raphaelgruber/cloudcast/internal/metrics"
	"github.com/raphaelgruber/cloudcast/internal/models"
)

// renderSummary formats a results record the way the results viewer shows it:
// the frame strip followed by the four metric cards.
func renderSummary(rec *models.ResultsRecord, theme Theme) string {
	var b strings.Builder

	b.WriteString(theme.completedStyle().Render("Cloud Motion Prediction Results"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "  Run:               %s\n", rec.RunID)

	total := rec.FrameCount()
	for i, f := range rec.InputFrames {
		label := fmt.Sprintf("  Frame %d/%d", i+1, total)
		if f.Failed() {
			fmt.Fprintf(&b, "%-20s %s  %s\n", label, f.Name, theme.errorStyle().Render("undecodable"))
			continue
		}
		fmt.Fprintf(&b, "%-20s %s  %dx%d\n", label, f.Name, f.Width, f.Height)
	}
	for i, f := range rec.PredictedFrames {
		label := fmt.Sprintf("  Frame %d/%d", len(rec.InputFrames)+i+1, total)
		fmt.Fprintf(&b, "%-20s %s  %dx%d\n", label, theme.accentStyle().Render("PREDICTED"), f.Width, f.Height)
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "  SSIM:              %s\n", theme.statusStyle().Render(fmt.Sprintf("%.3f", rec.Metrics.Similarity)))
	fmt.Fprintf(&b, "  MAE:               %s\n", theme.statusStyle().Render(fmt.Sprintf("%.3f", rec.Metrics.MeanError)))
	fmt.Fprintf(&b, "  PSNR:              %s\n", theme.statusStyle().Render(fmt.Sprintf("%.1f dB", rec.Metrics.PeakSignalRatio)))
	fmt.Fprintf(&b, "  Processing time:   %s\n", theme.statusStyle().Render(rec.ProcessingTime+"s"))

	if n := rec.DecodeFailures(); n > 0 {
		b.WriteString("\n")
		b.WriteString(theme.errorStyle().Render(fmt.Sprintf("Warnings (%d):", n)))
		b.WriteString("\n")
		for _, f := range rec.InputFrames {
			if f.Failed() {
				fmt.Fprintf(&b, "  • %s\n", f.Error)
			}
		}
	}

	b.WriteString("\n")
	b.WriteString(theme.hintStyle().Render("Predictions and metrics are simulated; no model was run."))
	b.WriteString("\n")
	return b.String()
}

// renderStats formats a collector snapshot as a small table.
func renderStats(snap metrics.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-10s %6s %10s %10s %10s\n", "OP", "COUNT", "AVG(ms)", "MIN(ms)", "MAX(ms)")
	rows := []struct {
		name string
		op   *metrics.OperationSnapshot
	}{
		{metrics.OpRun, snap.Run},
		{metrics.OpStage, snap.Stage},
		{metrics.OpDecode, snap.Decode},
		{metrics.OpRender, snap.Render},
	}
	for _, r := range rows {
		if r.op == nil {
			continue
		}
		fmt.Fprintf(&b, "%-10s %6d %10.1f %10d %10d\n", r.name, r.op.Count, r.op.AvgTimeMs, r.op.MinTimeMs, r.op.MaxTimeMs)
	}
	for _, name := range []string{
		metrics.CountRunsStarted, metrics.CountRunsCompleted, metrics.CountRunsFailed,
		metrics.CountRunsSuperseded, metrics.CountInputFrames, metrics.CountDecodeFailures,
		metrics.CountPredictedFrames,
	} {
		fmt.Fprintf(&b, "%-18s %d\n", name, snap.Counters[name])
	}
	return b.String()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
