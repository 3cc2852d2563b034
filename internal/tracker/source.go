package tracker

import (
	"bufio"
	"io"

	"github.com/andresmejia3/reptrack/internal/utils"
)

const megabyte = 1024 * 1024

// FrameSource yields encoded frames one at a time. Next returns io.EOF when
// the source is exhausted.
type FrameSource interface {
	Next() ([]byte, error)
}

// JpegStreamSource splits a stream of concatenated JPEG images, such as
// FFmpeg's image2pipe output. The returned slice is only valid until the
// next call to Next.
type JpegStreamSource struct {
	scanner *bufio.Scanner
}

func NewJpegStreamSource(r io.Reader) *JpegStreamSource {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, megabyte), 64*megabyte)
	scanner.Split(utils.SplitJpeg)
	return &JpegStreamSource{scanner: scanner}
}

func (s *JpegStreamSource) Next() ([]byte, error) {
	if s.scanner.Scan() {
		return s.scanner.Bytes(), nil
	}
	if err := s.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// SliceSource replays in-memory frames.
type SliceSource struct {
	Frames [][]byte
	next   int
}

func (s *SliceSource) Next() ([]byte, error) {
	if s.next >= len(s.Frames) {
		return nil, io.EOF
	}
	f := s.Frames[s.next]
	s.next++
	return f, nil
}
