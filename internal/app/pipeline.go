package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/LdDl/footfall/internal/capture"
	"github.com/LdDl/footfall/internal/detector"
	"github.com/LdDl/footfall/internal/overlay"
	"github.com/LdDl/footfall/mot"
)

// Pipeline counts a single store area: source -> detector -> session -> sinks -> overlay.
type Pipeline struct {
	label    string
	source   capture.Source
	detector detector.Detector
	session  *mot.Session
	sink     EventSink
	overlay  *overlay.Overlay
	logger   *slog.Logger
	frames   int
	events   int
}

// PipelineConfig holds collaborators of a Pipeline. Overlay may be nil.
type PipelineConfig struct {
	Label    string
	Source   capture.Source
	Detector detector.Detector
	Session  *mot.Session
	Sink     EventSink
	Overlay  *overlay.Overlay
	Logger   *slog.Logger
}

// NewPipeline creates a new Pipeline.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		label:    cfg.Label,
		source:   cfg.Source,
		detector: cfg.Detector,
		session:  cfg.Session,
		sink:     cfg.Sink,
		overlay:  cfg.Overlay,
		logger:   logger.With("zone", cfg.Label),
	}
}

// Label returns the store area label.
func (p *Pipeline) Label() string {
	return p.label
}

// Frames returns number of processed frames.
func (p *Pipeline) Frames() int {
	return p.frames
}

// Events returns number of emitted crossing events.
func (p *Pipeline) Events() int {
	return p.events
}

// Run processes frames until the context is cancelled or the source is exhausted.
// Both cases return nil. A source which is not open yet is opened first.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.source.Open(); err != nil {
		return fmt.Errorf("zone %q: %w", p.label, err)
	}
	defer p.source.Close()
	if p.overlay != nil {
		defer p.overlay.Close()
	}

	p.logger.Info("pipeline started", "fps", p.source.FPS())
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopped", "frames", p.frames, "events", p.events)
			return nil
		default:
		}

		frame, err := p.source.ReadFrame()
		if errors.Is(err, capture.ErrEndOfStream) {
			totals := p.session.Totals()
			p.logger.Info("end of stream", "frames", p.frames, "events", p.events, "in", totals.In, "out", totals.Out)
			return nil
		}
		if err != nil {
			return fmt.Errorf("zone %q: read frame: %w", p.label, err)
		}

		keepGoing, err := p.ProcessFrame(ctx, frame)
		frame.Close()
		if err != nil {
			return fmt.Errorf("zone %q: %w", p.label, err)
		}
		if !keepGoing {
			p.logger.Info("pipeline stopped by user", "frames", p.frames, "events", p.events)
			return nil
		}
	}
}

// ProcessFrame pushes a single frame through the pipeline.
// Detector and sink failures are logged and do not stop processing.
func (p *Pipeline) ProcessFrame(ctx context.Context, frame *capture.Frame) (bool, error) {
	p.frames++

	boxes, err := p.detector.Detect(frame)
	if err != nil {
		p.logger.Warn("detection failed, frame skipped", "frame", frame.Index, "error", err)
		return true, nil
	}

	events, err := p.session.ProcessFrame(frame.Height, boxes)
	if err != nil {
		return false, fmt.Errorf("process frame %d: %w", frame.Index, err)
	}
	for _, ev := range events {
		p.events++
		if err := p.sink.Write(ctx, ev); err != nil {
			p.logger.Error("failed to write crossing event", "object_id", ev.ObjectID, "direction", ev.Direction.String(), "error", err)
		}
	}

	if p.overlay != nil && frame.Image != nil {
		keepGoing, err := p.overlay.Render(frame.Image, p.session.Snapshot())
		if err != nil {
			p.logger.Warn("overlay failed", "error", err)
		}
		return keepGoing, nil
	}
	return true, nil
}
