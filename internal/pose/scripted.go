package pose

import (
	"context"
	"sync"
)

// ScriptedEstimator replays a fixed list of frames, one per Estimate call,
// and returns empty frames once the script runs out. The image bytes are
// ignored. Errors[i], when set, is returned instead of Frames[i].
type ScriptedEstimator struct {
	Frames []Frame
	Errors map[int]error

	mu     sync.Mutex
	calls  int
	closed bool
}

func (s *ScriptedEstimator) Estimate(ctx context.Context, _ []byte) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.calls
	s.calls++
	if err, ok := s.Errors[i]; ok {
		return nil, err
	}
	if i >= len(s.Frames) {
		return Frame{}, nil
	}
	return s.Frames[i], nil
}

func (s *ScriptedEstimator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Calls returns how many times Estimate ran.
func (s *ScriptedEstimator) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Closed reports whether Close was called.
func (s *ScriptedEstimator) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
