package detector

import (
	"bytes"
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LdDl/footfall/internal/capture"
	"github.com/LdDl/footfall/mot"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, float32(0.6), cfg.ConfThreshold)
	assert.Equal(t, float32(0.4), cfg.NMSThreshold)
	assert.Equal(t, 416, cfg.InputWidth)
	assert.Equal(t, 416, cfg.InputHeight)
	assert.Equal(t, 0, cfg.ClassID)
}

func TestParseDarknet(t *testing.T) {
	// Two classes: person, bicycle
	data := []float32{
		0.5, 0.5, 0.25, 0.5, 0.9, 0.8, 0.1, // person, kept
		0.1, 0.1, 0.1, 0.1, 0.9, 0.3, 0.2, // low score
		0.75, 0.25, 0.1, 0.2, 0.9, 0.1, 0.7, // bicycle, kept
	}
	candidates := parseDarknet(data, 3, 7, 640, 480, 0.6)
	require.Len(t, candidates, 2)
	assert.Equal(t, 0, candidates[0].classID)
	assert.Equal(t, image.Rect(240, 120, 400, 360), candidates[0].box)
	assert.InDelta(t, 0.8, candidates[0].score, 1e-6)
	assert.Equal(t, 1, candidates[1].classID)

	assert.Empty(t, parseDarknet(data, 3, 5, 640, 480, 0.6))
	assert.Empty(t, parseDarknet(data[:10], 3, 7, 640, 480, 0.6))
}

func TestParseYOLOv8(t *testing.T) {
	// features = 4 + 2 classes, proposals = 2, feature-major layout
	data := []float32{
		208, 100, // cx
		208, 100, // cy
		104, 10, // w
		208, 10, // h
		0.9, 0.1, // person score
		0.05, 0.2, // bicycle score
	}
	candidates := parseYOLOv8(data, 6, 2, 832, 416, 416, 416, 0.5)
	require.Len(t, candidates, 1)
	assert.Equal(t, 0, candidates[0].classID)
	assert.Equal(t, image.Rect(312, 104, 520, 312), candidates[0].box)
}

func TestReplay(t *testing.T) {
	input := `{"width": 640, "height": 480, "boxes": [[10, 20, 30, 40], [100, 100, 50, 80]]}

{"width": 640, "height": 480, "boxes": []}
`
	replay := NewReplayReader(strings.NewReader(input), 25)
	var src capture.Source = replay
	var det Detector = replay
	assert.True(t, src.IsOpen())
	assert.Equal(t, 25.0, src.FPS())

	frame, err := src.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, 0, frame.Index)
	assert.Equal(t, 480, frame.Height)
	assert.Nil(t, frame.Image)
	boxes, err := det.Detect(frame)
	require.NoError(t, err)
	expected := []mot.Rectangle{mot.NewRect(10, 20, 30, 40), mot.NewRect(100, 100, 50, 80)}
	if diff := cmp.Diff(expected, boxes); diff != "" {
		t.Errorf("boxes mismatch (-want +got):\n%s", diff)
	}

	frame, err = src.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, 1, frame.Index)
	boxes, err = det.Detect(frame)
	require.NoError(t, err)
	assert.Empty(t, boxes)

	_, err = src.ReadFrame()
	assert.True(t, errors.Is(err, capture.ErrEndOfStream))

	require.NoError(t, src.Close())
	_, err = src.ReadFrame()
	assert.True(t, errors.Is(err, capture.ErrSourceNotOpen))
}

func TestReplayErrors(t *testing.T) {
	t.Run("malformed", func(t *testing.T) {
		replay := NewReplayReader(strings.NewReader("{not json}\n"), 25)
		_, err := replay.ReadFrame()
		require.Error(t, err)
	})

	t.Run("height", func(t *testing.T) {
		replay := NewReplayReader(strings.NewReader(`{"width": 640, "boxes": []}`), 25)
		_, err := replay.ReadFrame()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "height")
	})

	t.Run("missing-file", func(t *testing.T) {
		replay := NewReplay(filepath.Join(t.TempDir(), "absent.jsonl"), 25)
		require.Error(t, replay.Open())
		assert.False(t, replay.IsOpen())
	})
}

func TestReplayRoundTripFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boxes.jsonl")
	var buf bytes.Buffer
	writer := NewReplayWriter(&buf)
	require.NoError(t, writer.Write(640, 480, []mot.Rectangle{mot.NewRect(1, 2, 3, 4)}))
	require.NoError(t, writer.Write(640, 480, nil))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	replay := NewReplay(path, 30)
	require.NoError(t, replay.Open())
	defer replay.Close()

	count := 0
	for {
		frame, err := replay.ReadFrame()
		if errors.Is(err, capture.ErrEndOfStream) {
			break
		}
		require.NoError(t, err)
		boxes, err := replay.Detect(frame)
		require.NoError(t, err)
		if count == 0 {
			assert.Equal(t, []mot.Rectangle{mot.NewRect(1, 2, 3, 4)}, boxes)
		}
		count++
	}
	assert.Equal(t, 2, count)
}

func TestNewYOLOMissingModel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ModelPath = filepath.Join(t.TempDir(), "absent.weights")
	_, err := NewYOLO(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model file not found")
}
