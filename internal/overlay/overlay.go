// Package overlay renders counting state on video frames using GoCV (OpenCV).
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gocv.io/x/gocv"

	"github.com/LdDl/footfall/mot"
)

// Key code of ESC returned by WaitKey
const keyEscape = 27

var (
	colorBand     = color.RGBA{R: 255, G: 255, B: 0, A: 255}
	colorZone     = color.RGBA{R: 128, G: 128, B: 128, A: 255}
	colorCentroid = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	colorLost     = color.RGBA{R: 255, G: 165, B: 0, A: 255}
	colorIn       = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	colorOut      = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	colorCrowd    = color.RGBA{R: 0, G: 0, B: 255, A: 255}
)

// Options configures Overlay
type Options struct {
	// Window title. Also used in logs
	Title string
	// Display frames in a window
	ShowWindow bool
	// Output video path. Empty disables recording
	OutputPath string
	// Output video frame rate
	FPS float64
}

// Overlay draws counting state and optionally displays and records the result.
type Overlay struct {
	opts   Options
	mu     sync.Mutex
	window *gocv.Window
	writer *gocv.VideoWriter
}

// New creates new Overlay. The output video is opened lazily with the size of the first frame
func New(opts Options) *Overlay {
	if opts.FPS <= 0 {
		opts.FPS = mot.DefaultAssumedFrameRate
	}
	return &Overlay{opts: opts}
}

// OutputPath returns "<name>_output.avi" next to the source video
func OutputPath(source string) string {
	ext := filepath.Ext(source)
	base := strings.TrimSuffix(source, ext)
	if _, err := strconv.Atoi(source); err == nil {
		base = "camera" + source
	}
	return base + "_output.avi"
}

// Enabled returns true if the overlay has any output
func (o *Overlay) Enabled() bool {
	return o.opts.ShowWindow || o.opts.OutputPath != ""
}

// Draw renders bands, tracks and counters on the image
func Draw(img *gocv.Mat, snapshot mot.Snapshot) {
	width := img.Cols()
	height := img.Rows()

	for _, band := range snapshot.Boundary.Bands {
		y := band.Line(height)
		gocv.Line(img, image.Pt(0, y), image.Pt(width, y), colorBand, 2)
		top, bottom := band.Rows(height)
		gocv.Line(img, image.Pt(0, top), image.Pt(width, top), colorZone, 1)
		gocv.Line(img, image.Pt(0, bottom), image.Pt(width, bottom), colorZone, 1)
	}

	for _, track := range snapshot.Tracks {
		center := track.Position.ToImage()
		c := colorCentroid
		if track.Disappeared > 0 {
			c = colorLost
		}
		gocv.PutText(img, fmt.Sprintf("ID %d", track.ID), image.Pt(center.X-10, center.Y-10), gocv.FontHersheySimplex, 0.5, c, 2)
		gocv.Circle(img, center, 4, c, -1)
	}

	totals := snapshot.Totals
	gocv.PutText(img, fmt.Sprintf("IN : %d", totals.In), image.Pt(10, 55), gocv.FontHersheySimplex, 0.6, colorIn, 2)
	gocv.PutText(img, fmt.Sprintf("OUT : %d", totals.Out), image.Pt(10, 80), gocv.FontHersheySimplex, 0.6, colorOut, 2)
	gocv.PutText(img, fmt.Sprintf("CROWD : %d", totals.Crowd()), image.Pt(10, 105), gocv.FontHersheySimplex, 0.6, colorCrowd, 2)
}

// Render draws the snapshot, shows and records the frame.
// Returns false when the user asked to stop (ESC in the window).
func (o *Overlay) Render(img *gocv.Mat, snapshot mot.Snapshot) (bool, error) {
	if !o.Enabled() || img == nil || img.Empty() {
		return true, nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	Draw(img, snapshot)

	if o.opts.OutputPath != "" {
		if o.writer == nil {
			writer, err := gocv.VideoWriterFile(o.opts.OutputPath, "MJPG", o.opts.FPS, img.Cols(), img.Rows(), true)
			if err != nil {
				return true, fmt.Errorf("failed to open output video %s: %w", o.opts.OutputPath, err)
			}
			o.writer = writer
		}
		if err := o.writer.Write(*img); err != nil {
			return true, fmt.Errorf("failed to write output video: %w", err)
		}
	}

	if o.opts.ShowWindow {
		if o.window == nil {
			o.window = gocv.NewWindow(o.opts.Title)
		}
		o.window.IMShow(*img)
		if o.window.WaitKey(1) == keyEscape {
			return false, nil
		}
	}

	return true, nil
}

// Close releases the window and finalizes the output video
func (o *Overlay) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	var err error
	if o.writer != nil {
		err = o.writer.Close()
		o.writer = nil
	}
	if o.window != nil {
		if werr := o.window.Close(); werr != nil && err == nil {
			err = werr
		}
		o.window = nil
	}
	return err
}
