package detector

import (
	"image"
)

// candidate is a single network proposal before non-maximum suppression
type candidate struct {
	box     image.Rectangle
	score   float32
	classID int
}

// parseDarknet reads YOLOv3 output rows: [cx, cy, w, h, objectness, class scores...],
// coordinates normalized to [0, 1]. Rows whose best class score does not exceed
// the threshold are skipped.
func parseDarknet(data []float32, rows, cols int, frameWidth, frameHeight int, confThreshold float32) []candidate {
	if cols <= 5 || len(data) < rows*cols {
		return nil
	}
	var candidates []candidate
	for i := 0; i < rows; i++ {
		row := data[i*cols : (i+1)*cols]
		classID, score := argmax(row[5:])
		if score <= confThreshold {
			continue
		}
		centerX := int(row[0] * float32(frameWidth))
		centerY := int(row[1] * float32(frameHeight))
		width := int(row[2] * float32(frameWidth))
		height := int(row[3] * float32(frameHeight))
		left := int(float32(centerX) - float32(width)/2)
		top := int(float32(centerY) - float32(height)/2)
		candidates = append(candidates, candidate{
			box:     image.Rect(left, top, left+width, top+height),
			score:   score,
			classID: classID,
		})
	}
	return candidates
}

// parseYOLOv8 reads YOLOv8 ONNX output [1, 4+classes, proposals] stored feature-major:
// value of feature f for proposal i is data[f*proposals+i]. Coordinates are in network input pixels.
func parseYOLOv8(data []float32, features, proposals int, frameWidth, frameHeight, inputWidth, inputHeight int, confThreshold float32) []candidate {
	if features <= 4 || len(data) < features*proposals {
		return nil
	}
	scaleX := float32(frameWidth) / float32(inputWidth)
	scaleY := float32(frameHeight) / float32(inputHeight)
	scores := make([]float32, features-4)
	var candidates []candidate
	for i := 0; i < proposals; i++ {
		for c := 4; c < features; c++ {
			scores[c-4] = data[c*proposals+i]
		}
		classID, score := argmax(scores)
		if score <= confThreshold {
			continue
		}
		cx := data[0*proposals+i]
		cy := data[1*proposals+i]
		w := data[2*proposals+i]
		h := data[3*proposals+i]
		x1 := int((cx - w/2) * scaleX)
		y1 := int((cy - h/2) * scaleY)
		x2 := int((cx + w/2) * scaleX)
		y2 := int((cy + h/2) * scaleY)
		candidates = append(candidates, candidate{
			box:     image.Rect(x1, y1, x2, y2),
			score:   score,
			classID: classID,
		})
	}
	return candidates
}

func argmax(values []float32) (int, float32) {
	best := 0
	bestValue := float32(0)
	for i, v := range values {
		if i == 0 || v > bestValue {
			best = i
			bestValue = v
		}
	}
	return best, bestValue
}
