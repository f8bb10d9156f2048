package history

import (
	"sync"

	"detectserver/internal/database"
	"detectserver/internal/logger"
	"detectserver/internal/models"
)

// Store is the process-wide, append-only record of detection results.
// All access goes through the store's lock so concurrent appends and
// snapshot reads are well-defined. With a database attached, appended
// records are also persisted and reloaded on the next start.
type Store struct {
	mu      sync.RWMutex
	records []models.DetectionRecord
	db      *database.Database
	logger  *logger.Logger
}

// NewStore creates a history store. db may be nil for memory-only history.
func NewStore(db *database.Database, logger *logger.Logger) *Store {
	store := &Store{
		records: make([]models.DetectionRecord, 0),
		db:      db,
		logger:  logger,
	}

	if db != nil {
		records, err := db.GetRecords()
		if err != nil {
			logger.Error("Failed to load history from database: %v", err)
		} else {
			store.records = records
			logger.Info("Loaded %d history records from database", len(records))
		}
	}

	return store
}

// Append adds a record to the history. A persistence failure is logged and
// does not reject the record, the in-memory history stays authoritative.
func (s *Store) Append(rec models.DetectionRecord) {
	s.mu.Lock()
	s.records = append(s.records, rec)
	s.mu.Unlock()

	if s.db != nil {
		if err := s.db.InsertRecord(&rec); err != nil {
			s.logger.Warning("Failed to persist history record %s: %v", rec.ID, err)
		}
	}
}

// Snapshot returns a copy of the history in insertion order.
func (s *Store) Snapshot() []models.DetectionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]models.DetectionRecord, len(s.records))
	copy(records, s.records)
	return records
}

// Len returns the current number of history records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
