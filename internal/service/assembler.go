package service

import (
	"encoding/base64"
	"time"

	"github.com/google/uuid"

	"detectserver/internal/models"
)

// AssembleRecord builds the API-facing record from raw detections. Objects is
// the deduplicated set of class names in first-occurrence order, boxes keep
// one entry per raw detection. annotated may be nil when no rendered image is
// wanted.
func AssembleRecord(kind string, detections []models.Detection, annotated []byte, imageURL string) models.DetectionRecord {
	boxes := make([]models.DetectionBox, 0, len(detections))
	for _, det := range detections {
		boxes = append(boxes, models.DetectionBox{
			X1:         det.X1,
			Y1:         det.Y1,
			X2:         det.X2,
			Y2:         det.Y2,
			Confidence: det.Confidence,
			ClassName:  det.ClassName,
		})
	}

	record := models.DetectionRecord{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Type:      kind,
		Objects:   uniqueClassNames(detections),
		Boxes:     boxes,
		ImageURL:  imageURL,
	}

	if len(annotated) > 0 {
		record.Base64Image = base64.StdEncoding.EncodeToString(annotated)
	}

	return record
}

// uniqueClassNames deduplicates detection class names, keeping the order in
// which each name first appears.
func uniqueClassNames(detections []models.Detection) []string {
	seen := make(map[string]struct{}, len(detections))
	objects := make([]string, 0, len(detections))

	for _, det := range detections {
		if _, ok := seen[det.ClassName]; ok {
			continue
		}
		seen[det.ClassName] = struct{}{}
		objects = append(objects, det.ClassName)
	}

	return objects
}
