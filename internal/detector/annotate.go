package detector

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"detectserver/internal/models"
)

// Box and label rendering constants.
var boxColor = color.RGBA{R: 0, G: 255, B: 0, A: 0}

const (
	boxThickness  = 2
	labelScale    = 0.5
	labelPadding  = 10 // label baseline offset above the box's top-left corner
	labelFontFace = gocv.FontHersheySimplex
)

// Annotate draws bounding boxes and "{class}: {confidence}" labels on a copy
// of the image and returns it JPEG-encoded.
func (d *Detector) Annotate(imageBytes []byte, detections []models.Detection) ([]byte, error) {
	mat, err := gocv.IMDecode(imageBytes, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("%w: decoded image is empty", ErrInvalidImage)
	}

	for _, det := range detections {
		rect := image.Rect(int(det.X1), int(det.Y1), int(det.X2), int(det.Y2))
		if err := gocv.Rectangle(&mat, rect, boxColor, boxThickness); err != nil {
			return nil, fmt.Errorf("failed to draw rectangle: %v", err)
		}

		label := fmt.Sprintf("%s: %.2f", det.ClassName, det.Confidence)
		size := gocv.GetTextSize(label, labelFontFace, labelScale, boxThickness)
		origin := clampLabelOrigin(int(det.X1), int(det.Y1)-labelPadding, size.X, size.Y, mat.Cols(), mat.Rows())
		if err := gocv.PutText(&mat, label, origin, labelFontFace, labelScale, boxColor, boxThickness); err != nil {
			return nil, fmt.Errorf("failed to draw label: %v", err)
		}
	}

	buf, err := gocv.IMEncode(".jpg", mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %v", err)
	}
	defer buf.Close()

	annotated := make([]byte, len(buf.GetBytes()))
	copy(annotated, buf.GetBytes())

	return annotated, nil
}

// clampLabelOrigin keeps a text baseline origin on the canvas. The origin is
// the bottom-left corner of the rendered text.
func clampLabelOrigin(x, y, textWidth, textHeight, cols, rows int) image.Point {
	if y < textHeight {
		y = textHeight
	}
	if y > rows-1 {
		y = rows - 1
	}

	if x+textWidth > cols {
		x = cols - textWidth
	}
	if x < 0 {
		x = 0
	}

	return image.Pt(x, y)
}
