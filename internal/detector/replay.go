package detector

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/LdDl/footfall/internal/capture"
	"github.com/LdDl/footfall/mot"
)

// ReplayRecord is a single line of a replay file: frame size and detections as [left, top, width, height]
type ReplayRecord struct {
	Width  int          `json:"width"`
	Height int          `json:"height"`
	Boxes  [][4]float64 `json:"boxes"`
}

// Replay plays back precomputed detections from a JSON-lines file.
// It is a frame source and a detector at once: ReadFrame advances to the next record,
// Detect returns boxes of the current one. Frames carry geometry only.
type Replay struct {
	path    string
	file    io.ReadCloser
	scanner *bufio.Scanner
	mu      sync.Mutex
	running bool
	index   int
	current []mot.Rectangle
	fps     float64
}

// NewReplay creates a replay of the given file. fps is reported as the source frame rate.
func NewReplay(path string, fps float64) *Replay {
	return &Replay{path: path, fps: fps}
}

// NewReplayReader creates an already open replay over the given reader
func NewReplayReader(r io.Reader, fps float64) *Replay {
	replay := &Replay{fps: fps}
	replay.attach(io.NopCloser(r))
	return replay
}

func (r *Replay) attach(rc io.ReadCloser) {
	r.file = rc
	r.scanner = bufio.NewScanner(rc)
	r.scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	r.index = 0
	r.running = true
}

// Open opens the replay file
func (r *Replay) Open() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return nil
	}
	file, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("failed to open replay file: %w", err)
	}
	r.attach(file)
	return nil
}

// Close closes the replay file
func (r *Replay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return nil
	}
	r.running = false
	r.current = nil
	return r.file.Close()
}

// ReadFrame advances to the next record. Blank lines are skipped.
func (r *Replay) ReadFrame() (*capture.Frame, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return nil, capture.ErrSourceNotOpen
	}
	for r.scanner.Scan() {
		line := r.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record ReplayRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, fmt.Errorf("replay record %d: %w", r.index, err)
		}
		if record.Height <= 0 {
			return nil, fmt.Errorf("replay record %d: height must be positive, got %d", r.index, record.Height)
		}
		r.current = make([]mot.Rectangle, 0, len(record.Boxes))
		for _, box := range record.Boxes {
			r.current = append(r.current, mot.NewRect(box[0], box[1], box[2], box[3]))
		}
		frame := &capture.Frame{
			Index:  r.index,
			Width:  record.Width,
			Height: record.Height,
		}
		r.index++
		return frame, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read replay file: %w", err)
	}
	return nil, capture.ErrEndOfStream
}

// Detect returns boxes of the current record
func (r *Replay) Detect(frame *capture.Frame) ([]mot.Rectangle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	boxes := make([]mot.Rectangle, len(r.current))
	copy(boxes, r.current)
	return boxes, nil
}

// FPS returns configured frame rate
func (r *Replay) FPS() float64 {
	return r.fps
}

// IsOpen returns true if the replay is open
func (r *Replay) IsOpen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.running
}

// ReplayWriter records detections in replay format
type ReplayWriter struct {
	enc *json.Encoder
}

// NewReplayWriter creates writer on top of w
func NewReplayWriter(w io.Writer) *ReplayWriter {
	return &ReplayWriter{enc: json.NewEncoder(w)}
}

// Write appends a single frame record
func (w *ReplayWriter) Write(width, height int, boxes []mot.Rectangle) error {
	record := ReplayRecord{
		Width:  width,
		Height: height,
		Boxes:  make([][4]float64, 0, len(boxes)),
	}
	for _, box := range boxes {
		record.Boxes = append(record.Boxes, [4]float64{box.X, box.Y, box.Width, box.Height})
	}
	if err := w.enc.Encode(record); err != nil {
		return fmt.Errorf("failed to write replay record: %w", err)
	}
	return nil
}
