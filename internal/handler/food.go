package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/savourly/orderflow/internal/domain/food"
)

// ListFoods returns every available menu item.
func (h *Handler) ListFoods(w http.ResponseWriter, r *http.Request) {
	foods, err := h.foods.List(r.Context())
	if err != nil {
		zctx.From(r.Context()).Error("List foods", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"success": true,
		"foods":   newFoodViews(foods),
	})
}

// GetFood returns a single menu item by id.
func (h *Handler) GetFood(w http.ResponseWriter, r *http.Request) {
	f, err := h.foods.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, food.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "food not found")
			return
		}
		zctx.From(r.Context()).Error("Get food", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"success": true,
		"food":    newFoodView(*f),
	})
}

type foodView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Price       string `json:"price"`
	Category    string `json:"category"`
	Image       string `json:"image,omitempty"`
	Description string `json:"description,omitempty"`
}

func newFoodView(f food.Food) foodView {
	return foodView{
		ID:          f.ID,
		Name:        f.Name,
		Price:       f.Price.StringFixed(2),
		Category:    f.Category,
		Image:       f.Image,
		Description: f.Description,
	}
}

func newFoodViews(foods []food.Food) []foodView {
	out := make([]foodView, len(foods))
	for i, f := range foods {
		out[i] = newFoodView(f)
	}
	return out
}
