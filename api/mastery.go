package api

import (
	"net/http"

	"github.com/lessonforge/lessonforge/internal/mastery"
	"github.com/lessonforge/lessonforge/internal/models"
	"github.com/lessonforge/lessonforge/pkg/repository"
)

type MasteryHandler struct {
	masteryRepo repository.MasteryRepo
}

func NewMasteryHandler(mr repository.MasteryRepo) *MasteryHandler {
	return &MasteryHandler{masteryRepo: mr}
}

type masteryResponse struct {
	Items []models.PrincipleMastery `json:"items"`
}

// List returns the learner's mastery rows with their analytics labels.
func (h *MasteryHandler) List(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := LearnerIDFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	items, err := h.masteryRepo.ListMasteryByLearner(r.Context(), learnerID)
	if err != nil {
		http.Error(w, "failed to list mastery", http.StatusInternalServerError)
		return
	}
	for i := range items {
		items[i].Level = mastery.Level(items[i].MasteryScore)
	}
	if items == nil {
		items = []models.PrincipleMastery{}
	}

	writeJSON(w, masteryResponse{Items: items}, http.StatusOK)
}
