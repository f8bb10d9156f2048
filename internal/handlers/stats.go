package handlers

import (
	"net/http"

	"detectserver/internal/history"
	"detectserver/internal/logger"
)

// StatsResponse holds aggregate counts over the detection history.
type StatsResponse struct {
	TotalRecords int            `json:"total_records"`
	PerType      map[string]int `json:"per_type"`
	ObjectCounts map[string]int `json:"object_counts"`
}

// StatsHandler summarizes the history: how many results per endpoint type and
// how often each object class was seen.
func StatsHandler(store *history.Store, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records := store.Snapshot()

		stats := StatsResponse{
			TotalRecords: len(records),
			PerType:      make(map[string]int),
			ObjectCounts: make(map[string]int),
		}

		for _, rec := range records {
			stats.PerType[rec.Type]++
			for _, obj := range rec.Objects {
				stats.ObjectCounts[obj]++
			}
		}

		writeJSON(w, http.StatusOK, stats, logger)
	}
}
