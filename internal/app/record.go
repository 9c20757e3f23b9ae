package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/LdDl/footfall/internal/capture"
	"github.com/LdDl/footfall/internal/detector"
)

// Record runs the detector over every frame of the source and writes detections as replay records.
// It returns number of recorded frames. Frames whose detection fails are recorded without boxes.
func Record(ctx context.Context, source capture.Source, det detector.Detector, w *detector.ReplayWriter, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := source.Open(); err != nil {
		return 0, fmt.Errorf("record: %w", err)
	}
	defer source.Close()

	frames := 0
	for {
		select {
		case <-ctx.Done():
			return frames, nil
		default:
		}

		frame, err := source.ReadFrame()
		if errors.Is(err, capture.ErrEndOfStream) {
			logger.Info("recording finished", "frames", frames)
			return frames, nil
		}
		if err != nil {
			return frames, fmt.Errorf("record: read frame: %w", err)
		}

		boxes, err := det.Detect(frame)
		if err != nil {
			logger.Warn("detection failed, frame recorded empty", "frame", frame.Index, "error", err)
			boxes = nil
		}
		err = w.Write(frame.Width, frame.Height, boxes)
		frame.Close()
		if err != nil {
			return frames, fmt.Errorf("record frame %d: %w", frame.Index, err)
		}
		frames++
	}
}
