// Package capture provides video frame sources using GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

var (
	// ErrSourceNotOpen is returned when trying to read from a source that is not open.
	ErrSourceNotOpen = errors.New("source is not open")
	// ErrEndOfStream is returned when a finite source has no more frames.
	ErrEndOfStream = errors.New("end of stream")
)

// Frame is a single decoded video frame with its sequence number.
// Image may be nil for sources which carry geometry only (replayed detections).
type Frame struct {
	Image  *gocv.Mat
	Index  int
	Width  int
	Height int
}

// Close releases the frame image.
func (f *Frame) Close() error {
	if f == nil || f.Image == nil {
		return nil
	}
	err := f.Image.Close()
	f.Image = nil
	return err
}

// Source defines the interface for frame producers.
type Source interface {
	Open() error
	Close() error
	// ReadFrame returns the next frame. The caller is responsible for closing it.
	ReadFrame() (*Frame, error)
	FPS() float64
	IsOpen() bool
}

// videoSource reads frames from a video file or a camera device using GoCV.
type videoSource struct {
	// File path (string) or device id (int)
	target  interface{}
	capture *gocv.VideoCapture
	mu      sync.Mutex
	running bool
	index   int
	fps     float64
}

// NewFile creates a Source reading the given video file.
func NewFile(path string) Source {
	return &videoSource{target: path}
}

// NewDevice creates a Source reading the camera with the given device ID.
func NewDevice(deviceID int) Source {
	return &videoSource{target: deviceID}
}

// Open opens the underlying capture.
func (s *videoSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(s.target)
	if err != nil {
		return fmt.Errorf("failed to open video source %v: %w", s.target, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("video source %v could not be opened", s.target)
	}

	s.capture = capture
	s.fps = capture.Get(gocv.VideoCaptureFPS)
	s.index = 0
	s.running = true

	return nil
}

// Close closes the capture and releases resources.
func (s *videoSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.capture == nil {
		s.running = false
		return nil
	}

	err := s.capture.Close()
	s.capture = nil
	s.running = false

	return err
}

// ReadFrame reads a single frame.
// A failed read of a file is reported as ErrEndOfStream.
func (s *videoSource) ReadFrame() (*Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.capture == nil {
		return nil, ErrSourceNotOpen
	}

	mat := gocv.NewMat()
	if ok := s.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		if _, isFile := s.target.(string); isFile {
			return nil, ErrEndOfStream
		}
		return nil, errors.New("failed to read frame from camera")
	}

	frame := &Frame{
		Image:  &mat,
		Index:  s.index,
		Width:  mat.Cols(),
		Height: mat.Rows(),
	}
	s.index++

	return frame, nil
}

// FPS returns frame rate reported by the source. Zero when unknown.
func (s *videoSource) FPS() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.fps
}

// IsOpen returns true if the source is currently open.
func (s *videoSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}
