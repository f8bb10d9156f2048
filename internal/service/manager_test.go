package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"detectserver/internal/history"
	"detectserver/internal/logger"
	"detectserver/internal/models"
)

type stubDetector struct {
	detections  []models.Detection
	detectErr   error
	annotateErr error
	delay       time.Duration
}

func (s *stubDetector) Detect(imageBytes []byte) ([]models.Detection, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.detections, s.detectErr
}

func (s *stubDetector) Annotate(imageBytes []byte, detections []models.Detection) ([]byte, error) {
	if s.annotateErr != nil {
		return nil, s.annotateErr
	}
	return append([]byte("annotated:"), imageBytes...), nil
}

func newTestManager(t *testing.T, det Detector, queueSize int, timeout time.Duration) (*Manager, *history.Store) {
	t.Helper()

	log := logger.NewLogger(t.TempDir())
	hist := history.NewStore(nil, log)
	manager := NewManager([]Detector{det}, hist, queueSize, timeout, log)
	t.Cleanup(manager.Stop)

	return manager, hist
}

func TestProcess_Success(t *testing.T) {
	det := &stubDetector{
		detections: []models.Detection{
			{ClassName: "person", Confidence: 0.9},
			{ClassName: "person", Confidence: 0.8},
		},
	}
	manager, hist := newTestManager(t, det, 4, time.Second)

	record, err := manager.Process(context.Background(), []byte("frame"), models.RecordTypeLive, "")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if record.Type != models.RecordTypeLive {
		t.Errorf("Expected type live, got %s", record.Type)
	}
	if len(record.Objects) != 1 || record.Objects[0] != "person" {
		t.Errorf("Expected deduplicated objects [person], got %v", record.Objects)
	}
	if record.Base64Image == "" {
		t.Error("Expected annotated base64 image")
	}
	if hist.Len() != 1 {
		t.Errorf("Expected 1 history record, got %d", hist.Len())
	}
}

func TestProcess_DetectErrorNoHistoryEntry(t *testing.T) {
	detectErr := errors.New("inference exploded")
	manager, hist := newTestManager(t, &stubDetector{detectErr: detectErr}, 4, time.Second)

	_, err := manager.Process(context.Background(), []byte("frame"), models.RecordTypeLive, "")
	if !errors.Is(err, detectErr) {
		t.Fatalf("Expected detect error to propagate, got %v", err)
	}
	if hist.Len() != 0 {
		t.Errorf("Failed request must not create history entries, got %d", hist.Len())
	}
}

func TestProcess_AnnotateFailureOmitsImage(t *testing.T) {
	det := &stubDetector{
		detections:  []models.Detection{{ClassName: "cat", Confidence: 0.7}},
		annotateErr: errors.New("draw failed"),
	}
	manager, _ := newTestManager(t, det, 4, time.Second)

	record, err := manager.Process(context.Background(), []byte("frame"), models.RecordTypeLive, "")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if record.Base64Image != "" {
		t.Error("Expected no base64 image when annotation fails")
	}
	if len(record.Objects) != 1 || record.Objects[0] != "cat" {
		t.Errorf("Expected detections to survive annotation failure, got %v", record.Objects)
	}
}

func TestProcess_Timeout(t *testing.T) {
	manager, _ := newTestManager(t, &stubDetector{delay: 200 * time.Millisecond}, 4, 20*time.Millisecond)

	_, err := manager.Process(context.Background(), []byte("frame"), models.RecordTypeLive, "")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Expected ErrTimeout, got %v", err)
	}
}

func TestProcess_QueueFull(t *testing.T) {
	// Single worker busy with a slow task and a queue of one: the third
	// submission must be rejected immediately.
	manager, _ := newTestManager(t, &stubDetector{delay: 300 * time.Millisecond}, 1, 5*time.Second)

	results := make(chan error, 2)
	go func() {
		_, err := manager.Process(context.Background(), []byte("frame"), models.RecordTypeLive, "")
		results <- err
	}()
	// Let the first task reach the worker before filling the queue.
	time.Sleep(50 * time.Millisecond)

	go func() {
		_, err := manager.Process(context.Background(), []byte("frame"), models.RecordTypeLive, "")
		results <- err
	}()
	time.Sleep(50 * time.Millisecond)

	_, err := manager.Process(context.Background(), []byte("frame"), models.RecordTypeLive, "")
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("Expected ErrQueueFull, got %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := <-results; err != nil {
			t.Errorf("Queued request failed: %v", err)
		}
	}
}

func TestProcess_ContextCancelled(t *testing.T) {
	manager, _ := newTestManager(t, &stubDetector{delay: 300 * time.Millisecond}, 4, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := manager.Process(ctx, []byte("frame"), models.RecordTypeLive, "")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
}

func TestProcess_ConcurrentRequestsDistinctIDs(t *testing.T) {
	det := &stubDetector{detections: []models.Detection{{ClassName: "person", Confidence: 0.9}}}

	log := logger.NewLogger(t.TempDir())
	hist := history.NewStore(nil, log)
	manager := NewManager([]Detector{det, det}, hist, 8, time.Second, log)
	t.Cleanup(manager.Stop)

	const requests = 10
	ids := make(chan string, requests)

	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			record, err := manager.Process(context.Background(), []byte("frame"), models.RecordTypeLive, "")
			if err != nil {
				t.Errorf("Process failed: %v", err)
				return
			}
			ids <- record.ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		if seen[id] {
			t.Errorf("Duplicate record id %s", id)
		}
		seen[id] = true
	}
	if len(seen) != requests {
		t.Errorf("Expected %d distinct ids, got %d", requests, len(seen))
	}
	if hist.Len() != requests {
		t.Errorf("Expected %d history records, got %d", requests, hist.Len())
	}
}
