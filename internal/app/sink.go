package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/LdDl/footfall/mot"
)

// EventSink receives finalized crossing events.
type EventSink interface {
	Write(ctx context.Context, ev mot.CrossingEvent) error
	Close() error
}

// MultiSink fans every event out to all sinks. A failing sink does not prevent writes to the others.
type MultiSink []EventSink

// Write writes the event to every sink and joins their errors.
func (m MultiSink) Write(ctx context.Context, ev mot.CrossingEvent) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Write(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink and joins their errors.
func (m MultiSink) Close() error {
	var errs []error
	for _, sink := range m {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink reports events to the structured log.
type LogSink struct {
	Logger *slog.Logger
}

// Write logs the event at info level.
func (s LogSink) Write(_ context.Context, ev mot.CrossingEvent) error {
	args := []any{
		"zone", ev.Zone,
		"object_id", ev.ObjectID,
		"direction", ev.Direction.String(),
		"crowd", ev.Crowd,
		"position", ev.Position,
		"band", ev.Band,
	}
	if ev.Dwell != nil {
		args = append(args, "dwell", ev.Dwell.String(), "dwell_matched", ev.Dwell.Matched)
	}
	s.Logger.Info("crossing", args...)
	return nil
}

// Close is a no-op.
func (s LogSink) Close() error {
	return nil
}
