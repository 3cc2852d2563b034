package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Frame outcomes for CounterFrames.
const (
	FrameProcessed = "processed"
	FrameNoPerson  = "no_person"
	FrameFailed    = "failed"
	FrameDropped   = "dropped"
)

type Manager struct {
	// counters
	CounterFrames *prometheus.CounterVec
	CounterReps   *prometheus.CounterVec

	// gauges
	GaugeStage    prometheus.Gauge
	GaugeAngle    prometheus.Gauge
	GaugeCalories prometheus.Gauge

	// histograms
	HistEstimateDuration prometheus.Histogram
}

func NewTestManager() *Manager {
	return NewManager("reptrack", "test", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("reptrack", "test", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterFrames := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "frames_total",
		Help:      "The total number of frames read, by outcome",
	}, []string{"result"})
	counterReps := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "reps_total",
		Help:      "The total number of counted repetitions",
	}, []string{"exercise"})

	gaugeStage := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "stage",
		Help:      "Current rep latch: 0 undefined, 1 armed, 2 triggered",
	})
	gaugeAngle := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "joint_angle_degrees",
		Help:      "Most recently measured joint angle",
	})
	gaugeCalories := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "calories",
		Help:      "Estimated calories burned in the current session",
	})

	histEstimateDuration := factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "estimate_duration_seconds",
		Help:      "Time spent in the pose estimator per frame",
		Buckets:   []float64{.005, .01, .02, .033, .05, .1, .25, .5, 1, 2.5},
	})

	return &Manager{
		CounterFrames:        counterFrames,
		CounterReps:          counterReps,
		GaugeStage:           gaugeStage,
		GaugeAngle:           gaugeAngle,
		GaugeCalories:        gaugeCalories,
		HistEstimateDuration: histEstimateDuration,
	}
}

// SetupPrometheus returns a registry with the Go runtime and process collectors.
func SetupPrometheus() *prometheus.Registry {
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewBuildInfoCollector(),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promRegistry
}

// Serve exposes reg on addr at /metrics until ctx is done.
func Serve(ctx context.Context, addr string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return <-errCh
	}
}
