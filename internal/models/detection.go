package models

import "time"

// Record types, set by the endpoint that produced the result.
const (
	RecordTypeLive   = "live"
	RecordTypeUpload = "upload"
)

// Detection is a single raw network detection in image pixel coordinates.
type Detection struct {
	ClassID    int
	ClassName  string
	Confidence float64
	X1         float64
	Y1         float64
	X2         float64
	Y2         float64
}

// DetectionBox is one detected object instance as returned to API clients.
// Coordinates are pixel values with X1 <= X2 and Y1 <= Y2.
type DetectionBox struct {
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
	Confidence float64 `json:"confidence"`
	ClassName  string  `json:"class_name"`
}

// DetectionRecord is one completed detection request.
// Objects holds the deduplicated class names appearing in Boxes.
type DetectionRecord struct {
	ID          string         `json:"id"`
	Timestamp   time.Time      `json:"timestamp"`
	Type        string         `json:"type"`
	Objects     []string       `json:"objects"`
	Boxes       []DetectionBox `json:"boxes"`
	ImageURL    string         `json:"imageUrl,omitempty"`
	Base64Image string         `json:"base64_image,omitempty"`
}
