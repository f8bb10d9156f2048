package detector

import (
	"errors"
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"

	"detectserver/internal/logger"
	"detectserver/internal/models"
)

// Sentinel errors surfaced to the request boundary.
var (
	ErrInvalidImage = errors.New("invalid image format")
	ErrInference    = errors.New("inference failed")
)

// SSD MobileNet input geometry.
const inputSize = 300

// Detector wraps a gocv DNN network. A Detector is not safe for concurrent
// use; the service layer runs one per worker.
type Detector struct {
	net           gocv.Net
	modelPath     string
	configPath    string
	confThreshold float64
	logger        *logger.Logger
}

// New loads the detection network from the model and graph config files.
// A load failure is fatal for the process, callers abort startup on error.
func New(modelPath, configPath string, confThreshold float64, logger *logger.Logger) (*Detector, error) {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", modelPath)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}

	net := gocv.ReadNet(modelPath, configPath)

	if net.Empty() {
		return nil, fmt.Errorf("failed to load network from %s", modelPath)
	}
	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)

	if errBackend != nil || errTarget != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set preferable backend or target")
	}

	logger.Info("Detection network initialized from %s", modelPath)

	return &Detector{
		net:           net,
		modelPath:     modelPath,
		configPath:    configPath,
		confThreshold: confThreshold,
		logger:        logger,
	}, nil
}

// Detect decodes imageBytes and runs the network on it, returning raw
// detections above the confidence threshold in image pixel coordinates.
func (d *Detector) Detect(imageBytes []byte) ([]models.Detection, error) {
	mat, err := gocv.IMDecode(imageBytes, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("%w: decoded image is empty", ErrInvalidImage)
	}

	blob := gocv.BlobFromImage(mat, 1.0/127.5, image.Pt(inputSize, inputSize), gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")

	output := d.net.Forward("")
	defer output.Close()

	if output.Empty() {
		return nil, fmt.Errorf("%w: network produced no output", ErrInference)
	}

	cols := float64(mat.Cols())
	rows := float64(mat.Rows())

	var results []models.Detection

	// Each output row is [batchID, classID, confidence, left, top, right, bottom]
	// with normalized coordinates.
	outputReshaped := output.Reshape(1, output.Total()/7)
	defer outputReshaped.Close()
	for i := 0; i < outputReshaped.Rows(); i++ {
		confidence := float64(outputReshaped.GetFloatAt(i, 2))
		if confidence <= d.confThreshold {
			continue
		}

		classID := int(outputReshaped.GetFloatAt(i, 1))
		x1 := float64(outputReshaped.GetFloatAt(i, 3)) * cols
		y1 := float64(outputReshaped.GetFloatAt(i, 4)) * rows
		x2 := float64(outputReshaped.GetFloatAt(i, 5)) * cols
		y2 := float64(outputReshaped.GetFloatAt(i, 6)) * rows
		x1, y1, x2, y2 = clampBox(x1, y1, x2, y2, cols, rows)

		results = append(results, models.Detection{
			ClassID:    classID,
			ClassName:  classLabel(classID),
			Confidence: confidence,
			X1:         x1,
			Y1:         y1,
			X2:         x2,
			Y2:         y2,
		})
	}

	return results, nil
}

// Close releases the underlying network.
func (d *Detector) Close() {
	d.net.Close()
}

// clampBox limits box coordinates to the image and orders the corners so that
// x1 <= x2 and y1 <= y2.
func clampBox(x1, y1, x2, y2, width, height float64) (float64, float64, float64, float64) {
	if x2 < x1 {
		x1, x2 = x2, x1
	}
	if y2 < y1 {
		y1, y2 = y2, y1
	}

	x1 = clamp(x1, 0, width)
	x2 = clamp(x2, 0, width)
	y1 = clamp(y1, 0, height)
	y2 = clamp(y2, 0, height)

	return x1, y1, x2, y2
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
