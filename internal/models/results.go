package models

import "time"

// InputFrame is an uploaded image converted to displayable form.
// A non-empty Error marks a frame that could not be decoded; DataURL is then empty.
type InputFrame struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	DataURL  string `json:"data_url,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Failed reports whether the frame carries a decode failure marker.
func (f InputFrame) Failed() bool {
	return f.Error != ""
}

// PredictedFrame is a generated placeholder frame.
type PredictedFrame struct {
	Index   int    `json:"index"`
	DataURL string `json:"data_url"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

// Metrics holds the fabricated evaluation scores of a run.
type Metrics struct {
	Similarity      float64 `json:"ssim"`
	MeanError       float64 `json:"mae"`
	PeakSignalRatio float64 `json:"psnr"`
}

// ResultsRecord is the terminal output of one run. It is never modified
// after being published.
type ResultsRecord struct {
	RunID           string           `json:"run_id"`
	InputFrames     []InputFrame     `json:"input_images"`
	PredictedFrames []PredictedFrame `json:"predicted_frames"`
	Metrics         Metrics          `json:"metrics"`
	ProcessingTime  string           `json:"processing_time"`
	CompletedAt     time.Time        `json:"completed_at"`
}

// FrameCount returns the length of the combined input + predicted sequence.
func (r *ResultsRecord) FrameCount() int {
	return len(r.InputFrames) + len(r.PredictedFrames)
}

// DecodeFailures returns the number of input frames with a failure marker.
func (r *ResultsRecord) DecodeFailures() int {
	n := 0
	for _, f := range r.InputFrames {
		if f.Failed() {
			n++
		}
	}
	return n
}
