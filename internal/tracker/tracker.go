// Package tracker runs the per-frame loop: read a frame, estimate the pose,
// advance the exercise session, and publish the result.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/andresmejia3/reptrack/internal/exercise"
	"github.com/andresmejia3/reptrack/internal/metrics"
	"github.com/andresmejia3/reptrack/internal/pose"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Display receives a snapshot after every processed frame.
type Display interface {
	Render(exercise.Snapshot)
}

// DisplayFunc adapts a function to Display.
type DisplayFunc func(exercise.Snapshot)

func (f DisplayFunc) Render(s exercise.Snapshot) { f(s) }

type Options struct {
	// EveryNth processes one frame out of every N read. Values below 1 mean every frame.
	EveryNth int
	// MaxConsecutiveErrors aborts the run after this many estimator failures
	// in a row. Zero never aborts.
	MaxConsecutiveErrors int
	Metrics              *metrics.Manager
	Display              Display
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Summary is the end-of-session report.
type Summary struct {
	SessionID       string
	Exercise        string
	Reps            int
	Stage           string
	Elapsed         time.Duration
	Calories        float64
	TotalWeightKg   *int
	FramesRead      int
	FramesProcessed int
	FramesSkipped   int
}

type Tracker struct {
	source    FrameSource
	estimator pose.Estimator
	session   *exercise.Session
	opts      Options
	logger    zerolog.Logger
}

func New(source FrameSource, estimator pose.Estimator, session *exercise.Session, opts Options) *Tracker {
	if opts.EveryNth < 1 {
		opts.EveryNth = 1
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Tracker{
		source:    source,
		estimator: estimator,
		session:   session,
		opts:      opts,
		logger: log.With().
			Str("session", session.ID).
			Str("exercise", session.Variant.Key).
			Logger(),
	}
}

// Run processes frames until the source ends, ctx is cancelled, or the
// source fails. Cancellation is a normal stop and returns a nil error. The
// summary is valid in every case.
func (t *Tracker) Run(ctx context.Context) (Summary, error) {
	var (
		read, processed, skipped int
		consecutiveErrors        int
		runErr                   error
	)

	t.logger.Info().Int("every_nth", t.opts.EveryNth).Msg("tracking started")

	for {
		if ctx.Err() != nil {
			break
		}

		data, err := t.source.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			runErr = fmt.Errorf("read frame %d: %w", read+1, err)
			break
		}
		read++

		if read%t.opts.EveryNth != 0 {
			t.countFrame(metrics.FrameDropped)
			continue
		}

		started := time.Now()
		frame, err := t.estimator.Estimate(ctx, data)
		t.observeEstimate(time.Since(started))
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			skipped++
			consecutiveErrors++
			t.countFrame(metrics.FrameFailed)
			t.logger.Warn().Err(err).Int("frame", read).Msg("pose estimation failed, skipping frame")
			if t.opts.MaxConsecutiveErrors > 0 && consecutiveErrors >= t.opts.MaxConsecutiveErrors {
				runErr = fmt.Errorf("pose estimation failed %d times in a row: %w", consecutiveErrors, err)
				break
			}
			continue
		}
		consecutiveErrors = 0
		processed++

		if len(frame) == 0 {
			t.countFrame(metrics.FrameNoPerson)
		} else {
			t.countFrame(metrics.FrameProcessed)
		}

		if t.session.Update(frame) {
			t.logger.Info().
				Int("reps", t.session.Counter()).
				Float64("angle", t.session.LastAngle()).
				Int("frame", read).
				Msg("rep counted")
			if t.opts.Metrics != nil {
				t.opts.Metrics.CounterReps.WithLabelValues(t.session.Variant.Key).Inc()
			}
		}

		snap := t.session.Snapshot(t.opts.Clock())
		t.publish(snap)
	}

	snap := t.session.Snapshot(t.opts.Clock())
	summary := Summary{
		SessionID:       snap.SessionID,
		Exercise:        snap.Exercise,
		Reps:            snap.Counter,
		Stage:           snap.StageLabel,
		Elapsed:         snap.Elapsed,
		Calories:        snap.Calories,
		TotalWeightKg:   snap.TotalWeightKg,
		FramesRead:      read,
		FramesProcessed: processed,
		FramesSkipped:   skipped,
	}

	t.logger.Info().
		Int("reps", summary.Reps).
		Int("frames_read", read).
		Int("frames_processed", processed).
		Int("frames_skipped", skipped).
		Dur("elapsed", summary.Elapsed).
		Msg("tracking stopped")

	return summary, runErr
}

func (t *Tracker) publish(snap exercise.Snapshot) {
	if m := t.opts.Metrics; m != nil {
		m.GaugeStage.Set(float64(snap.Stage))
		m.GaugeCalories.Set(snap.Calories)
		if !math.IsNaN(snap.Angle) {
			m.GaugeAngle.Set(snap.Angle)
		}
	}
	if t.opts.Display != nil {
		t.opts.Display.Render(snap)
	}
}

func (t *Tracker) countFrame(result string) {
	if t.opts.Metrics != nil {
		t.opts.Metrics.CounterFrames.WithLabelValues(result).Inc()
	}
}

func (t *Tracker) observeEstimate(d time.Duration) {
	if t.opts.Metrics != nil {
		t.opts.Metrics.HistEstimateDuration.Observe(d.Seconds())
	}
}
