package app

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/LdDl/footfall/internal/capture"
	"github.com/LdDl/footfall/internal/config"
	"github.com/LdDl/footfall/internal/detector"
	"github.com/LdDl/footfall/internal/overlay"
	"github.com/LdDl/footfall/mot"
)

// Deployment is a ready to run set of pipelines and resources shared between them.
type Deployment struct {
	Runner   *Runner
	sink     EventSink
	detector detector.Detector
	sources  []capture.Source
}

// Close releases shared resources. Call after Runner.Run returns.
func (d *Deployment) Close() error {
	var errs []error
	for _, source := range d.sources {
		errs = append(errs, source.Close())
	}
	if d.sink != nil {
		errs = append(errs, d.sink.Close())
	}
	if d.detector != nil {
		errs = append(errs, d.detector.Close())
	}
	return errors.Join(errs...)
}

// DetectorConfig converts configuration section into detector settings.
func DetectorConfig(cfg config.DetectorConfig) detector.Config {
	return detector.Config{
		ModelPath:     cfg.ModelPath,
		ConfigPath:    cfg.ConfigPath,
		ConfThreshold: float32(cfg.ConfThreshold),
		NMSThreshold:  float32(cfg.NMSThreshold),
		InputWidth:    cfg.InputWidth,
		InputHeight:   cfg.InputHeight,
		ClassID:       cfg.ClassID,
	}
}

// Build creates pipelines of every configured zone.
// The neural network is loaded once and shared when at least one zone needs it.
// Sources are opened here: a zone which can not be read fails the whole build.
// Sink is owned by the returned deployment.
func Build(cfg *config.Config, sink EventSink, clock mot.Clock, logger *slog.Logger) (*Deployment, error) {
	if logger == nil {
		logger = slog.Default()
	}
	deployment := &Deployment{sink: sink}

	if cfg.NeedsDetector() {
		yolo, err := detector.NewYOLO(DetectorConfig(cfg.Detector))
		if err != nil {
			deployment.Close()
			return nil, fmt.Errorf("failed to load detector: %w", err)
		}
		deployment.detector = yolo
	}

	// Sources are opened before any session is created
	sources := make([]capture.Source, len(cfg.Zones))
	detectors := make([]detector.Detector, len(cfg.Zones))
	for i := range cfg.Zones {
		zone := &cfg.Zones[i]
		if zone.ReplayPath != "" {
			replay := detector.NewReplay(zone.ReplayPath, cfg.Dwell.AssumedFrameRate)
			sources[i], detectors[i] = replay, replay
		} else {
			if device, ok := zone.Device(); ok {
				sources[i] = capture.NewDevice(device)
			} else {
				sources[i] = capture.NewFile(zone.Source)
			}
			detectors[i] = deployment.detector
		}
		if err := sources[i].Open(); err != nil {
			deployment.Close()
			return nil, fmt.Errorf("zone %q: %w", zone.Label, err)
		}
		deployment.sources = append(deployment.sources, sources[i])
	}

	pipelines := make([]*Pipeline, 0, len(cfg.Zones))
	for i := range cfg.Zones {
		zone := &cfg.Zones[i]
		session, err := cfg.NewSession(zone, clock)
		if err != nil {
			deployment.Close()
			return nil, err
		}

		var ov *overlay.Overlay
		if zone.ShowWindow || zone.OutputVideo {
			opts := overlay.Options{
				Title:      zone.Label,
				ShowWindow: zone.ShowWindow,
				FPS:        cfg.Dwell.AssumedFrameRate,
			}
			if zone.OutputVideo && zone.Source != "" {
				opts.OutputPath = overlay.OutputPath(zone.Source)
			}
			ov = overlay.New(opts)
		}

		pipelines = append(pipelines, NewPipeline(PipelineConfig{
			Label:    zone.Label,
			Source:   sources[i],
			Detector: detectors[i],
			Session:  session,
			Sink:     sink,
			Overlay:  ov,
			Logger:   logger,
		}))
		logger.Info("zone configured",
			"zone", zone.Label,
			"source", zone.Source,
			"replay", zone.ReplayPath,
			"dual", zone.IsDual(),
			"matching", zone.Matching,
		)
	}

	deployment.Runner = NewRunner(pipelines...)
	return deployment, nil
}
