package worker

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/andresmejia3/reptrack/internal/pose"
	"github.com/andresmejia3/reptrack/internal/utils" // Using the SafeCommand wrapper
)

const (
	statusOK    = 0
	statusError = 1

	// maxResponseSize caps a single reply; 33 landmarks need well under 1KB.
	maxResponseSize = 1 << 20
)

var _ pose.Estimator = (*PythonPoseWorker)(nil)

// Config controls how the pose worker process is launched.
type Config struct {
	PythonBin              string
	Script                 string
	MinDetectionConfidence float64
	MinTrackingConfidence  float64
	// ReadTimeout bounds how long a single frame may take. Zero disables it.
	ReadTimeout time.Duration
}

// DefaultConfig mirrors the MediaPipe settings the tracker was tuned with.
func DefaultConfig() Config {
	return Config{
		PythonBin:              "python3",
		Script:                 "python/pose_worker.py",
		MinDetectionConfidence: 0.5,
		MinTrackingConfidence:  0.5,
		ReadTimeout:            10 * time.Second,
	}
}

// PythonPoseWorker runs the MediaPipe pose model in a Python subprocess.
// Frames go in on stdin; results come back on a dedicated pipe (FD 3) so
// library noise on the child's stdout cannot corrupt the protocol.
type PythonPoseWorker struct {
	ID          int
	Cmd         *utils.SafeCommand
	Stdin       io.WriteCloser
	DataPipe    io.ReadCloser
	ReadTimeout time.Duration

	// broken is set once the request/reply stream can no longer be trusted.
	broken error
}

func NewPythonPoseWorker(ctx context.Context, id int, cfg Config) (*PythonPoseWorker, error) {
	py := utils.NewSafeCommand(ctx, cfg.PythonBin, "-u", cfg.Script,
		"--min-detection-confidence", fmt.Sprintf("%g", cfg.MinDetectionConfidence),
		"--min-tracking-confidence", fmt.Sprintf("%g", cfg.MinTrackingConfidence),
	)

	// Create a side-channel pipe (FD 3) for clean data transfer
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create pipe: %w", err)
	}
	// Pass the write-end to the child process. It will appear as FD 3.
	py.Cmd.ExtraFiles = []*os.File{w}

	stdin, err := py.StdinPipe()
	if err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	if err := py.Start(); err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("worker %d failed to start: %w", id, err)
	}

	// Close the write-end in the parent so only the child holds it
	w.Close()

	return &PythonPoseWorker{
		ID:          id,
		Cmd:         py,
		Stdin:       stdin,
		DataPipe:    r,
		ReadTimeout: cfg.ReadTimeout,
	}, nil
}

// Estimate sends one JPEG frame and decodes the landmarks of the detected person.
func (w *PythonPoseWorker) Estimate(ctx context.Context, jpeg []byte) (pose.Frame, error) {
	if w.broken != nil {
		return nil, fmt.Errorf("worker %d is unusable: %w", w.ID, w.broken)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w.armDeadline(ctx)

	resp, err := w.communicate(jpeg)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			err = fmt.Errorf("worker %d timed out: %w", w.ID, err)
		}
		w.markBroken(err)
		return nil, err
	}
	return decodePoseResponse(resp)
}

// markBroken retires the worker after a transport failure. A reply that is
// late or half read would otherwise be matched to the next frame, so the
// process is killed and every later Estimate fails with the original cause.
func (w *PythonPoseWorker) markBroken(err error) {
	w.broken = err
	if w.Cmd != nil && w.Cmd.Cmd != nil && w.Cmd.Process != nil {
		_ = w.Cmd.Process.Kill()
	}
}

// armDeadline sets a read deadline on the data pipe when it supports one.
func (w *PythonPoseWorker) armDeadline(ctx context.Context) {
	dl, ok := w.DataPipe.(interface{ SetReadDeadline(time.Time) error })
	if !ok {
		return
	}
	var deadline time.Time
	if w.ReadTimeout > 0 {
		deadline = time.Now().Add(w.ReadTimeout)
	}
	if ctxDeadline, ok := ctx.Deadline(); ok && (deadline.IsZero() || ctxDeadline.Before(deadline)) {
		deadline = ctxDeadline
	}
	_ = dl.SetReadDeadline(deadline)
}

func (w *PythonPoseWorker) communicate(data []byte) ([]byte, error) {
	// Protocol: [Length][Data]
	if err := binary.Write(w.Stdin, binary.BigEndian, uint32(len(data))); err != nil {
		return nil, fmt.Errorf("write frame header: %w", err)
	}
	if _, err := w.Stdin.Write(data); err != nil {
		return nil, fmt.Errorf("write frame body: %w", err)
	}

	header := make([]byte, 4)
	if _, err := io.ReadFull(w.DataPipe, header); err != nil {
		return nil, fmt.Errorf("read response header: %w", err) // a crashed worker surfaces here as EOF
	}

	respLen := binary.BigEndian.Uint32(header)
	if respLen > maxResponseSize {
		return nil, fmt.Errorf("response too large: %d bytes", respLen)
	}
	respBody := make([]byte, respLen)
	if _, err := io.ReadFull(w.DataPipe, respBody); err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return respBody, nil
}

// decodePoseResponse parses a worker reply.
//
//	[Status:u8]
//	  0 -> [Count:u32] Count x [ID:u8][X:f32][Y:f32][Z:f32][Visibility:f32]
//	  1 -> [MsgLen:u32][Msg]
func decodePoseResponse(body []byte) (pose.Frame, error) {
	r := bytes.NewReader(body)

	status, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("empty response")
	}

	switch status {
	case statusOK:
	case statusError:
		var msgLen uint32
		if err := binary.Read(r, binary.BigEndian, &msgLen); err != nil {
			return nil, fmt.Errorf("malformed error response: %w", err)
		}
		if int(msgLen) > r.Len() {
			return nil, fmt.Errorf("malformed error response: message length %d exceeds payload", msgLen)
		}
		msg := make([]byte, msgLen)
		_, _ = io.ReadFull(r, msg)
		return nil, fmt.Errorf("python worker error: %s", msg)
	default:
		return nil, fmt.Errorf("unknown response status %d", status)
	}

	var count uint32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("malformed response: %w", err)
	}

	type record struct {
		ID         uint8
		X, Y, Z    float32
		Visibility float32
	}
	const recordSize = 1 + 4*4
	if int64(count)*recordSize > int64(r.Len()) {
		return nil, fmt.Errorf("malformed response: %d landmarks need %d bytes, have %d", count, int64(count)*recordSize, r.Len())
	}

	frame := make(pose.Frame, count)
	for i := uint32(0); i < count; i++ {
		var rec record
		if err := binary.Read(r, binary.BigEndian, &rec); err != nil {
			return nil, fmt.Errorf("malformed landmark %d: %w", i, err)
		}
		id := pose.LandmarkID(rec.ID)
		if !id.Valid() {
			continue
		}
		frame[id] = pose.Landmark{
			X:          float64(rec.X),
			Y:          float64(rec.Y),
			Z:          float64(rec.Z),
			Visibility: float64(rec.Visibility),
		}
	}
	return frame, nil
}

// Close shuts the worker down and waits for the process to exit.
func (w *PythonPoseWorker) Close() error {
	w.Stdin.Close()
	w.DataPipe.Close()
	if w.Cmd == nil {
		return nil
	}
	if err := w.Cmd.Wait(); err != nil && !isExitAfterClose(err) {
		return fmt.Errorf("worker %d exited: %w", w.ID, err)
	}
	return nil
}

// isExitAfterClose reports whether err is the SIGPIPE/broken pipe exit a
// Python worker produces when its pipes close underneath it.
func isExitAfterClose(err error) bool {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		return code == -1 || code == 141
	}
	return false
}
