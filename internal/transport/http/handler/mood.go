package handler

import (
	"net/http"
	"time"

	"github.com/wellness-api/internal/application/mood"
	"github.com/wellness-api/internal/domain"
)

// MoodHandler records mood check-ins against the daily quota.
type MoodHandler struct {
	moods mood.Service
	now   func() time.Time
}

func NewMoodHandler(moods mood.Service, now func() time.Time) *MoodHandler {
	if now == nil {
		now = time.Now
	}
	return &MoodHandler{moods: moods, now: now}
}

// Record answers 200 for both accepted and limit-reached results; the
// body's status field tells them apart.
func (h *MoodHandler) Record(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	var req domain.RecordMoodRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.moods.RecordMood(r.Context(), id, req.Value, req.Timezone, h.now().UTC())
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *MoodHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	limit, ok := parseLimit(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	entries, err := h.moods.History(r.Context(), id, limit)
	if err != nil {
		httpError(w, r, err)
		return
	}
	if entries == nil {
		entries = []domain.MoodEntry{}
	}
	writeJSON(w, http.StatusOK, MoodHistoryEnvelope{Data: entries})
}
