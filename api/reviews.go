package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/lessonforge/lessonforge/internal/mastery"
	"github.com/lessonforge/lessonforge/internal/models"
	"github.com/lessonforge/lessonforge/internal/scheduler"
	"github.com/lessonforge/lessonforge/pkg/repository"
)

type ReviewsHandler struct {
	scheduleRepo repository.ScheduleRepo
	aggregator   *mastery.Aggregator

	// nowFn is swappable for tests
	nowFn func() time.Time
}

func NewReviewsHandler(sr repository.ScheduleRepo, agg *mastery.Aggregator) *ReviewsHandler {
	return &ReviewsHandler{scheduleRepo: sr, aggregator: agg, nowFn: time.Now}
}

// gradeRequest targets a schedule directly, or a principle for the first
// grade when no schedule exists yet.
type gradeRequest struct {
	ScheduleID  int64 `json:"schedule_id"`
	PrincipleID int64 `json:"principle_id"`
	Quality     int   `json:"quality"`
}

type gradeResponse struct {
	Schedule         models.ReviewSchedule    `json:"schedule"`
	NextReviewInDays int                      `json:"next_review_in_days"`
	Mastery          *models.PrincipleMastery `json:"mastery,omitempty"`
	Message          string                   `json:"message"`
}

// Grade applies one recall grade. A fractional or out-of-range quality is
// a 400; the first grade of a principle bootstraps its schedule.
func (h *ReviewsHandler) Grade(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := LearnerIDFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var req gradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.Quality < 0 || req.Quality > 5 {
		http.Error(w, scheduler.ErrInvalidQuality.Error(), http.StatusBadRequest)
		return
	}
	if req.ScheduleID <= 0 && req.PrincipleID <= 0 {
		http.Error(w, "schedule_id or principle_id is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	now := h.nowFn()

	var next models.ReviewSchedule
	switch {
	case req.ScheduleID > 0:
		rec, err := h.scheduleRepo.GetSchedule(ctx, req.ScheduleID)
		if err != nil {
			http.Error(w, "failed to load schedule", http.StatusInternalServerError)
			return
		}
		if rec == nil || rec.LearnerID != learnerID {
			http.Error(w, "schedule not found", http.StatusNotFound)
			return
		}
		next, err = scheduler.Grade(*rec, req.Quality, now)
		if errors.Is(err, scheduler.ErrInvalidQuality) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err != nil {
			http.Error(w, "failed to grade review", http.StatusInternalServerError)
			return
		}
	default:
		rec, err := h.scheduleRepo.GetScheduleByPair(ctx, learnerID, req.PrincipleID)
		if err != nil {
			http.Error(w, "failed to load schedule", http.StatusInternalServerError)
			return
		}
		if rec == nil {
			// First contact with this principle.
			next = scheduler.Bootstrap(learnerID, req.PrincipleID, now)
		} else {
			next, err = scheduler.Grade(*rec, req.Quality, now)
			if errors.Is(err, scheduler.ErrInvalidQuality) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if err != nil {
				http.Error(w, "failed to grade review", http.StatusInternalServerError)
				return
			}
		}
	}

	if err := h.scheduleRepo.UpsertSchedule(ctx, &next); err != nil {
		http.Error(w, "failed to store schedule", http.StatusInternalServerError)
		return
	}

	rec, err := h.aggregator.RecordOutcome(ctx, learnerID, next.PrincipleID, req.Quality >= scheduler.PassThreshold)
	if err != nil {
		logger.Error("record mastery outcome", "learner", learnerID, "principle", next.PrincipleID, "err", err)
	}

	writeJSON(w, gradeResponse{
		Schedule:         next,
		NextReviewInDays: next.IntervalDays,
		Mastery:          rec,
		Message:          fmt.Sprintf("next review in %d days", next.IntervalDays),
	}, http.StatusOK)
}

type dueResponse struct {
	Items []models.ReviewSchedule `json:"items"`
	Count int                     `json:"count"`
}

// ListDue returns the authenticated learner's due reviews, soonest first.
func (h *ReviewsHandler) ListDue(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := LearnerIDFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 500 {
			limit = v
		}
	}

	items, err := h.scheduleRepo.ListDue(r.Context(), learnerID, h.nowFn(), limit)
	if err != nil {
		http.Error(w, "failed to list due reviews", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []models.ReviewSchedule{}
	}

	writeJSON(w, dueResponse{Items: items, Count: len(items)}, http.StatusOK)
}
