package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/andresmejia3/reptrack/internal/config"
	"github.com/andresmejia3/reptrack/internal/exercise"
	"github.com/andresmejia3/reptrack/internal/metrics"
	"github.com/andresmejia3/reptrack/internal/tracker"
	"github.com/andresmejia3/reptrack/internal/utils"
	"github.com/andresmejia3/reptrack/internal/worker"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// TrackOptions holds the configuration for a tracking session
type TrackOptions struct {
	Exercise        string
	InputPath       string
	Device          string
	NthFrame        int
	WorkerTimeout   string
	MinVisibility   float64
	MetricsAddr     string
	PythonBin       string
	WorkerScript    string
	MaxWorkerErrors int
}

var trackOpts TrackOptions

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Count repetitions from the camera or a video file",
	Run: func(cmd *cobra.Command, args []string) {
		opts := trackOpts
		applyConfig(&opts, Cfg, cmd.Flags().Changed)
		runTrack(cmd.Context(), opts)
	},
}

func init() {
	trackCmd.Flags().StringVarP(&trackOpts.Exercise, "exercise", "x", "pushup", "Exercise to count ("+strings.Join(exercise.Keys(), ", ")+")")
	trackCmd.Flags().StringVarP(&trackOpts.InputPath, "input", "i", "", "Path to a video file (default: live camera)")
	trackCmd.Flags().StringVar(&trackOpts.Device, "device", "", "Camera device passed to FFmpeg (default: platform camera)")
	trackCmd.Flags().IntVarP(&trackOpts.NthFrame, "nth-frame", "n", 1, "Run pose estimation on every Nth frame")
	trackCmd.Flags().StringVar(&trackOpts.WorkerTimeout, "worker-timeout", "10s", "Max time to wait for the pose worker on one frame")
	trackCmd.Flags().Float64Var(&trackOpts.MinVisibility, "min-visibility", 0, "Ignore landmarks below this visibility (0 disables)")
	trackCmd.Flags().StringVar(&trackOpts.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	trackCmd.Flags().StringVar(&trackOpts.PythonBin, "python", "python3", "Python interpreter for the pose worker")
	trackCmd.Flags().StringVar(&trackOpts.WorkerScript, "worker-script", "python/pose_worker.py", "Path to the pose worker script")
	trackCmd.Flags().IntVar(&trackOpts.MaxWorkerErrors, "max-worker-errors", 30, "Stop after this many failed frames in a row (0 never stops)")

	rootCmd.AddCommand(trackCmd)
}

// applyConfig fills every flag the user did not set from the config file.
func applyConfig(opts *TrackOptions, cfg *config.Config, changed func(string) bool) {
	if cfg == nil {
		return
	}
	if !changed("device") && cfg.Device != "" {
		opts.Device = cfg.Device
	}
	if !changed("worker-timeout") {
		opts.WorkerTimeout = cfg.WorkerTimeout.String()
	}
	if !changed("min-visibility") {
		opts.MinVisibility = cfg.MinVisibility
	}
	if !changed("metrics-addr") && cfg.MetricsAddr != "" {
		opts.MetricsAddr = cfg.MetricsAddr
	}
	if !changed("python") && cfg.PythonBin != "" {
		opts.PythonBin = cfg.PythonBin
	}
	if !changed("worker-script") && cfg.WorkerScript != "" {
		opts.WorkerScript = cfg.WorkerScript
	}
}

// runTrack wires FFmpeg, the pose worker, and the tracker loop, then prints the session summary.
func runTrack(ctx context.Context, opts TrackOptions) {
	timeout, err := validateTrackFlags(&opts)
	if err != nil {
		utils.Die("Invalid arguments", err, nil)
	}

	// 1. Resolve the exercise before anything is spawned
	variant, err := exercise.Lookup(opts.Exercise)
	if err != nil {
		utils.Die("Unknown exercise", err, nil)
	}

	// runCtx lets us stop FFmpeg when the tracker gives up early
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// 2. Metrics
	reg := metrics.SetupPrometheus()
	m := metrics.NewManager("reptrack", "tracker", reg)
	if opts.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(runCtx, opts.MetricsAddr, reg); err != nil {
				log.Error().Err(err).Str("addr", opts.MetricsAddr).Msg("metrics server failed")
			}
		}()
	}

	// 3. Pose worker
	fmt.Fprintf(os.Stderr, "🏋️  Exercise: %s\n", variant.Name)
	fmt.Fprintf(os.Stderr, "⚙️  Starting pose worker...\n")
	wcfg := worker.DefaultConfig()
	wcfg.PythonBin = opts.PythonBin
	wcfg.Script = opts.WorkerScript
	wcfg.ReadTimeout = timeout
	pw, err := worker.NewPythonPoseWorker(runCtx, 0, wcfg)
	if err != nil {
		utils.Die("Worker startup failed", err, nil)
	}

	// 4. Frame source
	ffmpeg := utils.NewCameraCmd(runCtx, opts.Device)
	if opts.InputPath != "" {
		ffmpeg = utils.NewFFmpegCmd(runCtx, opts.InputPath)
	}
	var stderrBuf bytes.Buffer
	ffmpeg.Stderr = &stderrBuf

	ffmpegOut, err := ffmpeg.StdoutPipe()
	if err != nil {
		utils.Die("Failed to create FFmpeg stdout pipe", err, nil)
	}
	defer ffmpegOut.Close()

	if err := ffmpeg.Start(); err != nil {
		utils.Die("Failed to start FFmpeg", err, nil)
	}

	// 5. Live display: a spinner for the camera, a bar for files with a known length
	total := -1
	if opts.InputPath != "" {
		if frames := utils.GetTotalFrames(ctx, opts.InputPath); frames > 0 {
			total = frames / opts.NthFrame
		}
	}
	session := exercise.NewSession(variant, time.Now(), exercise.WithMinVisibility(opts.MinVisibility))
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription(describe(session.Snapshot(time.Now()))),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)

	t := tracker.New(tracker.NewJpegStreamSource(ffmpegOut), pw, session, tracker.Options{
		EveryNth:             opts.NthFrame,
		MaxConsecutiveErrors: opts.MaxWorkerErrors,
		Metrics:              m,
		Display: tracker.DisplayFunc(func(s exercise.Snapshot) {
			bar.Describe(describe(s))
			bar.Add(1)
		}),
	})

	summary, runErr := t.Run(runCtx)
	bar.Finish()

	// 6. Cleanup. An interrupted or failed run kills FFmpeg, so its exit status is ignored.
	stopped := runErr != nil || ctx.Err() != nil
	if stopped {
		cancel()
	}
	if err := ffmpeg.Wait(); err != nil && !stopped {
		if stderrBuf.Len() > 0 {
			fmt.Fprintf(os.Stderr, "\nFFmpeg Logs:\n%s\n", stderrBuf.String())
		}
		utils.Die("FFmpeg execution failed", err, nil)
	}
	if err := pw.Close(); err != nil && !stopped {
		utils.ShowError("Pose worker exited uncleanly", err, pw.Cmd)
	}

	printSummary(os.Stderr, summary)

	if runErr != nil {
		utils.Die("Tracking stopped", runErr, pw.Cmd)
	}
}

// describe renders the live status line.
func describe(s exercise.Snapshot) string {
	desc := fmt.Sprintf("Reps: %d | Stage: %s", s.Counter, s.StageLabel)
	if s.TotalWeightKg != nil {
		desc += fmt.Sprintf(" | Total Weight: %d kg", *s.TotalWeightKg)
	}
	return desc
}

func printSummary(w io.Writer, s tracker.Summary) {
	fmt.Fprintf(w, "\n---------------------------------------------------------\n")
	fmt.Fprintf(w, "📊 SESSION SUMMARY\n")
	fmt.Fprintf(w, "---------------------------------------------------------\n")
	fmt.Fprintf(w, "🏋️  Exercise:          %s\n", s.Exercise)
	fmt.Fprintf(w, "🔁 Repetitions:       %d\n", s.Reps)
	fmt.Fprintf(w, "⏱️  Duration:          %s\n", fmtTime(s.Elapsed.Seconds()))
	fmt.Fprintf(w, "🔥 Calories Burned:   %.2f\n", s.Calories)
	if s.TotalWeightKg != nil {
		fmt.Fprintf(w, "💪 Total Weight:      %d kg\n", *s.TotalWeightKg)
	}
	fmt.Fprintf(w, "---------------------------------------------------------\n")
	fmt.Fprintf(w, "🎞️  Frames: %d read, %d processed, %d skipped\n", s.FramesRead, s.FramesProcessed, s.FramesSkipped)
	fmt.Fprintf(w, "---------------------------------------------------------\n")
}

// validateTrackFlags ensures all CLI arguments are valid before starting heavy processes.
// It returns the parsed worker timeout.
func validateTrackFlags(opts *TrackOptions) (time.Duration, error) {
	if opts.InputPath != "" {
		info, err := os.Stat(opts.InputPath)
		if err != nil {
			if os.IsNotExist(err) {
				return 0, fmt.Errorf("input file does not exist: %w", err)
			}
			return 0, fmt.Errorf("unable to access input file: %w", err)
		}
		if info.IsDir() {
			return 0, fmt.Errorf("input path %s is a directory, expected a video file", opts.InputPath)
		}
	}
	if opts.NthFrame < 1 {
		return 0, fmt.Errorf("nth-frame must be >= 1, got %d", opts.NthFrame)
	}
	if opts.MinVisibility < 0 || opts.MinVisibility > 1.0 {
		return 0, fmt.Errorf("min-visibility must be between 0.0 and 1.0, got %g", opts.MinVisibility)
	}
	timeout, err := time.ParseDuration(opts.WorkerTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid worker-timeout format (use '10s', '500ms'): %w", err)
	}
	if timeout < 0 {
		return 0, fmt.Errorf("worker-timeout must not be negative, got %s", timeout)
	}
	if opts.MaxWorkerErrors < 0 {
		opts.MaxWorkerErrors = 0
	}
	return timeout, nil
}

func fmtTime(seconds float64) string {
	duration := time.Duration(seconds * float64(time.Second))
	h := int(duration.Hours())
	m := int(duration.Minutes()) % 60
	s := int(duration.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
