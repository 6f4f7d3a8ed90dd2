package widgets

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/worldofchami/medusa-mcp/pkg/cart"
)

type instanceKey struct{}

func (h *Hub) withInstance(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.mu.RLock()
		inst, ok := h.instances[chi.URLParam(r, "instance")]
		h.mu.RUnlock()
		if !ok {
			writeError(w, http.StatusNotFound, "unknown widget instance")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), instanceKey{}, inst)))
	})
}

func instanceFrom(r *http.Request) *instance {
	return r.Context().Value(instanceKey{}).(*instance)
}

func (h *Hub) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, instanceFrom(r).state())
}

func (h *Hub) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var in cart.ItemInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid item: "+err.Error())
		return
	}
	if in.ProductID == "" {
		writeError(w, http.StatusBadRequest, "productId is required")
		return
	}
	inst := instanceFrom(r)
	inst.agg.AddItem(r.Context(), in)
	writeJSON(w, http.StatusOK, inst.state())
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Hub) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid quantity: "+err.Error())
		return
	}
	inst := instanceFrom(r)
	inst.agg.UpdateQuantity(r.Context(), chi.URLParam(r, "line"), req.Quantity)
	writeJSON(w, http.StatusOK, inst.state())
}

func (h *Hub) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	inst := instanceFrom(r)
	inst.agg.RemoveItem(r.Context(), chi.URLParam(r, "line"))
	writeJSON(w, http.StatusOK, inst.state())
}

func (h *Hub) handleClear(w http.ResponseWriter, r *http.Request) {
	inst := instanceFrom(r)
	inst.agg.ClearCart(r.Context())
	writeJSON(w, http.StatusOK, inst.state())
}

// Drawer actions accepted by POST /drawer.
const (
	ActionOpen         = "open"
	ActionClose        = "close"
	ActionToggle       = "toggle"
	ActionPointerEnter = "pointer-enter"
)

type drawerRequest struct {
	Action string `json:"action"`
}

func (h *Hub) handleDrawer(w http.ResponseWriter, r *http.Request) {
	var req drawerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid drawer action: "+err.Error())
		return
	}

	inst := instanceFrom(r)
	switch req.Action {
	case ActionOpen:
		inst.drawer.Open()
	case ActionClose:
		inst.drawer.Close()
	case ActionToggle:
		inst.drawer.Toggle()
	case ActionPointerEnter:
		inst.drawer.PointerEnter()
	default:
		writeError(w, http.StatusBadRequest, "unknown drawer action "+req.Action)
		return
	}
	writeJSON(w, http.StatusOK, inst.state())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
