// Package config loads footfall JSON configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/LdDl/footfall/mot"
)

const (
	// DefaultConfigPath is used when no -config flag is given
	DefaultConfigPath = "footfall.json"

	ModeSingle = "single"
	ModeDual   = "dual"

	MatchingGreedy    = "greedy"
	MatchingHungarian = "hungarian"

	PairingPosition = "position"
	PairingTrack    = "track"
)

// Config is the root of footfall configuration
type Config struct {
	LogLevel     string         `json:"log_level"`
	DatabasePath string         `json:"database_path"`
	CSVPath      string         `json:"csv_path,omitempty"`
	ReportPath   string         `json:"report_path"`
	Detector     DetectorConfig `json:"detector"`
	Dwell        DwellConfig    `json:"dwell"`
	Zones        []Zone         `json:"zones"`
}

// DetectorConfig is the neural network person detector configuration
type DetectorConfig struct {
	// Darknet .weights or ONNX model file
	ModelPath string `json:"model_path"`
	// Darknet .cfg file. Empty for ONNX
	ConfigPath    string  `json:"config_path,omitempty"`
	ConfThreshold float64 `json:"conf_threshold"`
	NMSThreshold  float64 `json:"nms_threshold"`
	InputWidth    int     `json:"input_width"`
	InputHeight   int     `json:"input_height"`
	// Class to keep. 0 is "person" in COCO
	ClassID int `json:"class_id"`
}

// DwellConfig is the dwell time measurement configuration
type DwellConfig struct {
	Pairing             string  `json:"pairing"`
	FrameRateCorrection float64 `json:"frame_rate_correction"`
	AssumedFrameRate    float64 `json:"assumed_frame_rate"`
}

// Zone is a single counted store area fed by one video source.
// Optional numeric fields fall back to defaults through getters.
type Zone struct {
	Label string `json:"label"`
	// Video file path or numeric camera device
	Source         string   `json:"source"`
	Mode           string   `json:"mode,omitempty"`
	BandHalfWidth  *int     `json:"band_half_width,omitempty"`
	MaxDisappeared *int     `json:"max_disappeared,omitempty"`
	MaxDistance    *float64 `json:"max_distance,omitempty"`
	Matching       string   `json:"matching,omitempty"`
	// Kalman prediction time step, e.g. 0.04 for 25 fps. Zero disables prediction
	Kalman      float64 `json:"kalman,omitempty"`
	OutputVideo bool    `json:"output_video,omitempty"`
	ShowWindow  bool    `json:"show_window,omitempty"`
	// JSON-lines file with precomputed boxes. When set, the neural network is not used
	ReplayPath string `json:"replay_path,omitempty"`
}

// Default returns configuration with every default filled in and no zones
func Default() *Config {
	return &Config{
		LogLevel:     "info",
		DatabasePath: "footfall.db",
		ReportPath:   "footfall_report.html",
		Detector: DetectorConfig{
			ModelPath:     "yolov3.weights",
			ConfigPath:    "yolov3.cfg",
			ConfThreshold: 0.6,
			NMSThreshold:  0.4,
			InputWidth:    416,
			InputHeight:   416,
			ClassID:       0,
		},
		Dwell: DwellConfig{
			Pairing:             PairingPosition,
			FrameRateCorrection: mot.DefaultFrameRateCorrection,
			AssumedFrameRate:    mot.DefaultAssumedFrameRate,
		},
	}
}

// Load reads configuration from JSON file. Omitted fields keep defaults.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration values
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path must not be empty")
	}
	if c.Detector.ConfThreshold <= 0 || c.Detector.ConfThreshold > 1 {
		return fmt.Errorf("detector.conf_threshold must be in (0, 1], got %f", c.Detector.ConfThreshold)
	}
	if c.Detector.NMSThreshold <= 0 || c.Detector.NMSThreshold > 1 {
		return fmt.Errorf("detector.nms_threshold must be in (0, 1], got %f", c.Detector.NMSThreshold)
	}
	if c.Detector.InputWidth <= 0 || c.Detector.InputHeight <= 0 {
		return fmt.Errorf("detector input size must be positive, got %dx%d", c.Detector.InputWidth, c.Detector.InputHeight)
	}
	if _, err := c.Dwell.PairingPolicy(); err != nil {
		return err
	}
	if c.Dwell.FrameRateCorrection <= 0 {
		return fmt.Errorf("dwell.frame_rate_correction must be positive, got %f", c.Dwell.FrameRateCorrection)
	}
	if c.Dwell.AssumedFrameRate <= 0 {
		return fmt.Errorf("dwell.assumed_frame_rate must be positive, got %f", c.Dwell.AssumedFrameRate)
	}
	if len(c.Zones) == 0 {
		return fmt.Errorf("at least one zone must be configured")
	}
	labels := make(map[string]struct{}, len(c.Zones))
	for i := range c.Zones {
		zone := &c.Zones[i]
		if err := zone.Validate(); err != nil {
			return fmt.Errorf("zones[%d]: %w", i, err)
		}
		if _, ok := labels[zone.Label]; ok {
			return fmt.Errorf("zones[%d]: duplicate label %q", i, zone.Label)
		}
		labels[zone.Label] = struct{}{}
	}
	return nil
}

// NeedsDetector returns true if at least one zone runs neural network inference
func (c *Config) NeedsDetector() bool {
	for _, zone := range c.Zones {
		if zone.ReplayPath == "" {
			return true
		}
	}
	return false
}

// PairingPolicy converts textual pairing into mot.DwellPairing
func (d DwellConfig) PairingPolicy() (mot.DwellPairing, error) {
	switch strings.ToLower(d.Pairing) {
	case "", PairingPosition:
		return mot.PairByPosition, nil
	case PairingTrack:
		return mot.PairByTrack, nil
	default:
		return 0, fmt.Errorf("dwell.pairing must be %q or %q, got %q", PairingPosition, PairingTrack, d.Pairing)
	}
}

// Validate checks zone values
func (z *Zone) Validate() error {
	if z.Label == "" {
		return fmt.Errorf("label must not be empty")
	}
	if z.Source == "" && z.ReplayPath == "" {
		return fmt.Errorf("either source or replay_path must be set")
	}
	switch strings.ToLower(z.Mode) {
	case "", ModeSingle, ModeDual:
	default:
		return fmt.Errorf("mode must be %q or %q, got %q", ModeSingle, ModeDual, z.Mode)
	}
	switch strings.ToLower(z.Matching) {
	case "", MatchingGreedy, MatchingHungarian:
	default:
		return fmt.Errorf("matching must be %q or %q, got %q", MatchingGreedy, MatchingHungarian, z.Matching)
	}
	if z.BandHalfWidth != nil && *z.BandHalfWidth <= 0 {
		return fmt.Errorf("band_half_width must be positive, got %d", *z.BandHalfWidth)
	}
	if z.MaxDisappeared != nil && *z.MaxDisappeared < 0 {
		return fmt.Errorf("max_disappeared must be non-negative, got %d", *z.MaxDisappeared)
	}
	if z.MaxDistance != nil && *z.MaxDistance <= 0 {
		return fmt.Errorf("max_distance must be positive, got %f", *z.MaxDistance)
	}
	if z.Kalman < 0 {
		return fmt.Errorf("kalman must be non-negative, got %f", z.Kalman)
	}
	return nil
}

// IsDual returns true for double-sided entrances
func (z *Zone) IsDual() bool {
	return strings.ToLower(z.Mode) == ModeDual
}

func (z *Zone) GetBandHalfWidth() int {
	if z.BandHalfWidth == nil {
		if z.IsDual() {
			return mot.DefaultDualHalfWidth
		}
		return mot.DefaultSingleHalfWidth
	}
	return *z.BandHalfWidth
}

func (z *Zone) GetMaxDisappeared() int {
	if z.MaxDisappeared == nil {
		return 40 // default
	}
	return *z.MaxDisappeared
}

func (z *Zone) GetMaxDistance() float64 {
	if z.MaxDistance == nil {
		return 50.0 // default
	}
	return *z.MaxDistance
}

// Device returns camera device index when source is numeric
func (z *Zone) Device() (int, bool) {
	id, err := strconv.Atoi(z.Source)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Boundary builds counting configuration for the zone
func (z *Zone) Boundary() mot.Boundary {
	if z.IsDual() {
		return mot.DualLine(z.Label, z.GetBandHalfWidth())
	}
	return mot.SingleLine(z.Label, z.GetBandHalfWidth())
}

// TrackerOptions builds optional tracker settings for the zone
func (z *Zone) TrackerOptions() []mot.TrackerOption {
	var options []mot.TrackerOption
	if strings.ToLower(z.Matching) == MatchingHungarian {
		options = append(options, mot.WithMatchingAlgorithm(mot.MatchingAlgorithmHungarian))
	}
	if z.Kalman > 0 {
		options = append(options, mot.WithKalman(z.Kalman))
	}
	return options
}

// NewSession builds counting session of the zone
func (c *Config) NewSession(zone *Zone, clock mot.Clock) (*mot.Session, error) {
	boundary := zone.Boundary()
	if err := boundary.Validate(); err != nil {
		return nil, fmt.Errorf("zone %q: %w", zone.Label, err)
	}
	pairing, err := c.Dwell.PairingPolicy()
	if err != nil {
		return nil, err
	}
	tracker := mot.NewCentroidTracker(zone.GetMaxDisappeared(), zone.GetMaxDistance(), zone.TrackerOptions()...)
	counter := mot.NewCrossingCounter(boundary, clock)
	dwell := mot.NewDwellMatcher(pairing, c.Dwell.FrameRateCorrection, c.Dwell.AssumedFrameRate, clock)
	return mot.NewSession(tracker, counter, dwell), nil
}
