package detector

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gocv.io/x/gocv"

	"github.com/LdDl/footfall/internal/capture"
	"github.com/LdDl/footfall/mot"
)

// YOLO detects persons with a YOLO network through OpenCV DNN.
// Darknet (cfg + weights) and YOLOv8 ONNX models are supported.
type YOLO struct {
	net          gocv.Net
	config       Config
	mu           sync.Mutex
	inputSize    image.Point
	outputLayers []string
	onnx         bool
}

// NewYOLO loads the network described by cfg
func NewYOLO(cfg Config) (*YOLO, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	onnx := strings.EqualFold(filepath.Ext(cfg.ModelPath), ".onnx")
	var net gocv.Net
	if onnx {
		net = gocv.ReadNetFromONNX(cfg.ModelPath)
	} else {
		if _, err := os.Stat(cfg.ConfigPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("network config file not found: %s", cfg.ConfigPath)
		}
		net = gocv.ReadNet(cfg.ModelPath, cfg.ConfigPath)
	}
	if net.Empty() {
		return nil, fmt.Errorf("failed to load YOLO model from %s", cfg.ModelPath)
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &YOLO{
		net:          net,
		config:       cfg,
		inputSize:    image.Pt(cfg.InputWidth, cfg.InputHeight),
		outputLayers: outputLayerNames(&net),
		onnx:         onnx,
	}, nil
}

// outputLayerNames returns names of unconnected (output) layers
func outputLayerNames(net *gocv.Net) []string {
	names := net.GetLayerNames()
	var outputs []string
	for _, id := range net.GetUnconnectedOutLayers() {
		if id-1 >= 0 && id-1 < len(names) {
			outputs = append(outputs, names[id-1])
		}
	}
	return outputs
}

// Detect finds persons in the frame
func (d *YOLO) Detect(frame *capture.Frame) ([]mot.Rectangle, error) {
	if frame == nil || frame.Image == nil || frame.Image.Empty() {
		return nil, fmt.Errorf("empty frame")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	img := *frame.Image
	blob := gocv.BlobFromImage(img, 1.0/255.0, d.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")

	var candidates []candidate
	if d.onnx {
		output := d.net.Forward("")
		defer output.Close()
		data, err := output.DataPtrFloat32()
		if err != nil {
			return nil, fmt.Errorf("read network output: %w", err)
		}
		sizes := output.Size()
		if len(sizes) != 3 {
			return nil, fmt.Errorf("unexpected network output shape %v", sizes)
		}
		candidates = parseYOLOv8(data, sizes[1], sizes[2], frame.Width, frame.Height, d.config.InputWidth, d.config.InputHeight, d.config.ConfThreshold)
	} else {
		outputs := d.net.ForwardLayers(d.outputLayers)
		defer func() {
			for i := range outputs {
				outputs[i].Close()
			}
		}()
		for _, output := range outputs {
			data, err := output.DataPtrFloat32()
			if err != nil {
				return nil, fmt.Errorf("read network output: %w", err)
			}
			candidates = append(candidates, parseDarknet(data, output.Rows(), output.Cols(), frame.Width, frame.Height, d.config.ConfThreshold)...)
		}
	}

	return d.suppress(candidates), nil
}

// suppress applies non-maximum suppression and keeps the configured class only
func (d *YOLO) suppress(candidates []candidate) []mot.Rectangle {
	if len(candidates) == 0 {
		return []mot.Rectangle{}
	}
	boxes := make([]image.Rectangle, len(candidates))
	scores := make([]float32, len(candidates))
	for i, c := range candidates {
		boxes[i] = c.box
		scores[i] = c.score
	}
	indices := gocv.NMSBoxes(boxes, scores, d.config.ConfThreshold, d.config.NMSThreshold)
	result := make([]mot.Rectangle, 0, len(indices))
	for _, idx := range indices {
		if candidates[idx].classID != d.config.ClassID {
			continue
		}
		result = append(result, mot.NewRectFrom(candidates[idx].box))
	}
	return result
}

// Close releases the network
func (d *YOLO) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}
