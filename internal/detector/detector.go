// Package detector turns video frames into person bounding boxes.
package detector

import (
	"github.com/LdDl/footfall/internal/capture"
	"github.com/LdDl/footfall/mot"
)

// Detector defines the interface for person detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns detected boxes in frame pixels.
	// Returns an empty slice if nobody is detected.
	Detect(frame *capture.Frame) ([]mot.Rectangle, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for the neural network detector.
type Config struct {
	// Darknet .weights or ONNX model file
	ModelPath string
	// Darknet .cfg file. Empty for ONNX models
	ConfigPath string
	// Minimum class score (0.0-1.0)
	ConfThreshold float32
	// Non-maximum suppression overlap threshold (0.0-1.0)
	NMSThreshold float32
	// Network input size
	InputWidth  int
	InputHeight int
	// Class to keep (0 is "person" in COCO)
	ClassID int
}

// DefaultConfig returns a Config for YOLOv3 Darknet person detection.
func DefaultConfig() Config {
	return Config{
		ModelPath:     "yolov3.weights",
		ConfigPath:    "yolov3.cfg",
		ConfThreshold: 0.6,
		NMSThreshold:  0.4,
		InputWidth:    416,
		InputHeight:   416,
		ClassID:       0,
	}
}
