package service

import (
	"context"
	"sync"
	"time"

	"detectserver/internal/history"
	"detectserver/internal/logger"
	"detectserver/internal/models"
)

// Detector runs object detection on encoded images. gocv-backed detectors are
// not safe for concurrent use, so the Manager gives each worker its own.
type Detector interface {
	Detect(imageBytes []byte) ([]models.Detection, error)
	Annotate(imageBytes []byte, detections []models.Detection) ([]byte, error)
}

type task struct {
	image    []byte
	kind     string
	imageURL string
	reply    chan taskResult
}

type taskResult struct {
	record models.DetectionRecord
	err    error
}

// Manager runs detection requests on a bounded pool of workers. Requests are
// queued and answered synchronously; a full queue or an expired deadline is
// reported to the caller instead of blocking a handler indefinitely.
type Manager struct {
	detectors []Detector
	history   *history.Store
	logger    *logger.Logger

	tasks   chan task
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewManager(detectors []Detector, hist *history.Store, queueSize int, timeout time.Duration, logger *logger.Logger) *Manager {
	manager := &Manager{
		detectors: detectors,
		history:   hist,
		logger:    logger,
		tasks:     make(chan task, queueSize),
		timeout:   timeout,
	}

	for i, d := range detectors {
		manager.wg.Add(1)
		go manager.worker(i, d)
	}

	manager.logger.Info("🔧 %d detection workers started (queue size %d)", len(detectors), queueSize)
	return manager
}

// Process runs one detection request end to end: inference, annotation,
// result assembly and the history append. It blocks until the result is
// ready, the timeout elapses, or ctx is cancelled.
func (m *Manager) Process(ctx context.Context, image []byte, kind, imageURL string) (models.DetectionRecord, error) {
	t := task{
		image:    image,
		kind:     kind,
		imageURL: imageURL,
		reply:    make(chan taskResult, 1),
	}

	select {
	case m.tasks <- t:
	default:
		m.logger.Warning("Detection queue full, rejecting %s request", kind)
		return models.DetectionRecord{}, ErrQueueFull
	}

	select {
	case res := <-t.reply:
		return res.record, res.err
	case <-time.After(m.timeout):
		return models.DetectionRecord{}, ErrTimeout
	case <-ctx.Done():
		return models.DetectionRecord{}, ctx.Err()
	}
}

// Workers returns the number of detection workers.
func (m *Manager) Workers() int {
	return len(m.detectors)
}

// worker consumes tasks until the queue is closed.
func (m *Manager) worker(workerID int, d Detector) {
	defer m.wg.Done()

	for t := range m.tasks {
		t.reply <- m.process(workerID, d, t)
	}
}

func (m *Manager) process(workerID int, d Detector, t task) taskResult {
	detections, err := d.Detect(t.image)
	if err != nil {
		m.logger.Error("Worker %d: detection failed: %v", workerID, err)
		return taskResult{err: err}
	}

	annotated, err := d.Annotate(t.image, detections)
	if err != nil {
		// Only a true annotated image may be reported; the detections
		// themselves are still good.
		m.logger.Warning("Worker %d: annotation failed, omitting annotated image: %v", workerID, err)
		annotated = nil
	}

	record := AssembleRecord(t.kind, detections, annotated, t.imageURL)
	m.history.Append(record)

	m.logger.Info("Worker %d: %s detection completed, found %d unique objects", workerID, t.kind, len(record.Objects))
	return taskResult{record: record}
}

// Stop drains the queue and waits for all workers to finish.
func (m *Manager) Stop() {
	close(m.tasks)
	m.wg.Wait()
	m.logger.Info("🛑 All detection workers stopped")
}
