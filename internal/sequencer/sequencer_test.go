package sequencer

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/raphaelgruber/cloudcast/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func noSleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

func TestRun_ReportsEveryStageInOrder(t *testing.T) {
	s := New(DelayWindow{}, WithSleep(noSleep))

	var events []Progress
	err := s.Run(context.Background(), 3, testRand(), func(p Progress) {
		events = append(events, p)
	})
	require.NoError(t, err)
	require.Len(t, events, len(DefaultStages))

	last := 0.0
	for i, ev := range events {
		assert.Equal(t, i, ev.Index)
		assert.Equal(t, len(DefaultStages), ev.Total)
		assert.Equal(t, DefaultStages[i], ev.Stage)
		assert.Greater(t, ev.Percent, last, "percent must increase at stage %d", i)
		last = ev.Percent
	}
	assert.Equal(t, 100.0, events[len(events)-1].Percent)
	assert.True(t, events[len(events)-1].Final())
	assert.Equal(t, 12.5, events[0].Percent)
}

func TestRun_ZeroImagesNeverStarts(t *testing.T) {
	s := New(DelayWindow{}, WithSleep(noSleep))

	called := false
	err := s.Run(context.Background(), 0, testRand(), func(Progress) { called = true })

	require.ErrorIs(t, err, models.ErrInvalidInput)
	assert.False(t, called, "no progress may be reported for an empty batch")
}

func TestRun_ReportPrecedesPause(t *testing.T) {
	var reported, sleptAfter []int
	s := New(DelayWindow{}, WithSleep(func(ctx context.Context, d time.Duration) error {
		sleptAfter = append(sleptAfter, len(reported))
		return nil
	}))

	err := s.Run(context.Background(), 1, testRand(), func(p Progress) {
		reported = append(reported, p.Index)
	})
	require.NoError(t, err)

	// The i-th pause must see i+1 reports already delivered.
	for i, n := range sleptAfter {
		assert.Equal(t, i+1, n)
	}
}

func TestRun_DelaysStayInsideWindow(t *testing.T) {
	window := DelayWindow{Min: 800 * time.Millisecond, Max: 1200 * time.Millisecond}
	var delays []time.Duration
	s := New(window, WithSleep(func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}))

	require.NoError(t, s.Run(context.Background(), 5, testRand(), nil))
	require.Len(t, delays, len(DefaultStages))
	for _, d := range delays {
		assert.GreaterOrEqual(t, d, window.Min)
		assert.LessOrEqual(t, d, window.Max)
	}
}

func TestRun_CancelReleasesTimer(t *testing.T) {
	s := New(DelayWindow{Min: time.Hour, Max: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	var seen []Progress
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, 2, testRand(), func(p Progress) { seen = append(seen, p) })
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop after cancellation")
	}
	assert.Len(t, seen, 1, "only the first stage should have been reported")
}

func TestDelayWindow_Validate(t *testing.T) {
	tests := []struct {
		name    string
		window  DelayWindow
		wantErr bool
	}{
		{"default", DefaultDelayWindow, false},
		{"zero", DelayWindow{}, false},
		{"fixed", DelayWindow{Min: time.Second, Max: time.Second}, false},
		{"inverted", DelayWindow{Min: 2 * time.Second, Max: time.Second}, true},
		{"negative", DelayWindow{Min: -time.Second, Max: time.Second}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.window.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 25.0, Percent(1, 8))
	assert.Equal(t, 100.0, Percent(7, 8))
	assert.Equal(t, 100.0, Percent(2, 3), "last stage of an uneven split is exactly 100")
	assert.Equal(t, 100.0, Percent(0, 1))
}

func TestStages_ReturnsCopy(t *testing.T) {
	s := New(DefaultDelayWindow)
	stages := s.Stages()
	stages[0].Label = "changed"
	assert.Equal(t, "Loading images...", s.Stages()[0].Label)
}
