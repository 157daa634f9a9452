package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/lessonforge/lessonforge/internal/generation"
)

// pollIntervalSeconds is the suggested delay between status polls.
const pollIntervalSeconds = 2

type GenerateHandler struct {
	enqueuer *generation.Enqueuer
	status   *generation.StatusReporter
}

func NewGenerateHandler(enqueuer *generation.Enqueuer, status *generation.StatusReporter) *GenerateHandler {
	return &GenerateHandler{enqueuer: enqueuer, status: status}
}

type generateRequest struct {
	Title string `json:"title"`
}

type generateAcceptedResponse struct {
	JobID               string `json:"job_id"`
	PollIntervalSeconds int    `json:"poll_interval_seconds"`
}

type generateExistsResponse struct {
	TopicID int64  `json:"topic_id"`
	Slug    string `json:"slug"`
	Status  string `json:"status"`
}

// CreateGeneration answers a topic generation request: 200 when the
// content already exists, 202 with a job id to poll otherwise.
func (h *GenerateHandler) CreateGeneration(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	var learnerID *int64
	if id, ok := LearnerIDFromContext(r.Context()); ok {
		learnerID = &id
	}

	out, err := h.enqueuer.Request(r.Context(), learnerID, req.Title)
	switch {
	case errors.Is(err, generation.ErrEmptyTitle):
		http.Error(w, "title is required", http.StatusBadRequest)
		return
	case errors.Is(err, generation.ErrQuotaExceeded):
		http.Error(w, "free generation quota exceeded", http.StatusTooManyRequests)
		return
	case err != nil:
		http.Error(w, "failed to request generation", http.StatusInternalServerError)
		return
	}

	if out.Existing != nil {
		writeJSON(w, generateExistsResponse{
			TopicID: out.Existing.ID,
			Slug:    out.Existing.Slug,
			Status:  "exists",
		}, http.StatusOK)
		return
	}

	writeJSON(w, generateAcceptedResponse{
		JobID:               out.JobID,
		PollIntervalSeconds: pollIntervalSeconds,
	}, http.StatusAccepted)
}

// GetJob answers a status poll for a generation job.
func (h *GenerateHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "job id is required", http.StatusBadRequest)
		return
	}

	st, err := h.status.GetStatus(r.Context(), id)
	if errors.Is(err, generation.ErrJobNotFound) {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "failed to load job", http.StatusInternalServerError)
		return
	}

	writeJSON(w, st, http.StatusOK)
}
