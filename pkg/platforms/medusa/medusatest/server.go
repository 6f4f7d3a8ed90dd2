// Package medusatest provides an in-process fake of the Medusa Store API
// endpoints used by this module.
package medusatest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// Server serves canned products and regions and records order placement.
// Products are raw JSON objects keyed by id.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	products  []json.RawMessage
	regions   []json.RawMessage
	requests  []*http.Request
	lineItems []LineItem
	carts     int
	failNext  map[string]int

	// Complete is the body returned by POST /store/carts/{id}/complete.
	Complete string
}

// LineItem is a line posted to a fake cart.
type LineItem struct {
	CartID    string `json:"-"`
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

// DefaultRegion is served unless WithRegions replaces it.
const DefaultRegion = `{"id":"reg_eu","name":"Europe","currency_code":"eur"}`

func NewServer(t *testing.T) *Server {
	t.Helper()
	s := &Server{
		regions:  []json.RawMessage{json.RawMessage(DefaultRegion)},
		failNext: make(map[string]int),
		Complete: `{"type":"order","order":{"id":"order_1","display_id":42}}`,
	}

	r := chi.NewRouter()
	r.Use(s.record)
	r.Get("/store/regions", s.handleRegions)
	r.Get("/store/products", s.handleProducts)
	r.Post("/store/carts", s.handleCreateCart)
	r.Post("/store/carts/{id}/line-items", s.handleLineItem)
	r.Post("/store/carts/{id}/complete", s.handleComplete)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// AddProduct registers a product given as a raw JSON object.
func (s *Server) AddProduct(raw string) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = append(s.products, json.RawMessage(raw))
	return s
}

// WithRegions replaces the served regions.
func (s *Server) WithRegions(raw ...string) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regions = s.regions[:0]
	for _, r := range raw {
		s.regions = append(s.regions, json.RawMessage(r))
	}
	return s
}

// FailNext makes the next n requests to path answer 500.
func (s *Server) FailNext(path string, n int) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext[path] = n
	return s
}

// Requests returns every request received so far.
func (s *Server) Requests() []*http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*http.Request(nil), s.requests...)
}

// CountRequests counts requests whose path equals path.
func (s *Server) CountRequests(path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.URL.Path == path {
			n++
		}
	}
	return n
}

func (s *Server) LineItems() []LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]LineItem(nil), s.lineItems...)
}

func (s *Server) CartsCreated() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.carts
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Clone(r.Context()))
		fail := s.failNext[r.URL.Path]
		if fail > 0 {
			s.failNext[r.URL.Path] = fail - 1
		}
		s.mu.Unlock()

		if fail > 0 {
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"type":    "unknown_error",
				"message": "An unknown error occurred.",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRegions(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"regions": s.regions})
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := r.URL.Query().Get("id")
	q := strings.ToLower(r.URL.Query().Get("q"))
	out := make([]json.RawMessage, 0, len(s.products))
	for _, raw := range s.products {
		var head struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		}
		_ = json.Unmarshal(raw, &head)
		if id != "" && head.ID != id {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(head.Title), q) {
			continue
		}
		out = append(out, raw)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"products": out,
		"count":    len(out),
		"offset":   0,
		"limit":    len(out),
	})
}

func (s *Server) handleCreateCart(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RegionID string `json:"region_id"`
		Email    string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RegionID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"type": "invalid_data", "message": "region_id is required"})
		return
	}

	s.mu.Lock()
	s.carts++
	id := fmt.Sprintf("cart_%d", s.carts)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"cart": map[string]any{
		"id":        id,
		"email":     body.Email,
		"region_id": body.RegionID,
	}})
}

func (s *Server) handleLineItem(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	var item LineItem
	if err := json.Unmarshal(b, &item); err != nil || item.VariantID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"type": "invalid_data", "message": "variant_id is required"})
		return
	}
	item.CartID = chi.URLParam(r, "id")

	s.mu.Lock()
	s.lineItems = append(s.lineItems, item)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"cart": map[string]any{"id": item.CartID}})
}

func (s *Server) handleComplete(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	body := s.Complete
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Sweatshirt is a product with a calculated price and two sizes.
const Sweatshirt = `{
	"id": "prod_sweatshirt",
	"title": "Medusa Sweatshirt",
	"handle": "sweatshirt",
	"description": "Reimagine the feeling of a classic sweatshirt.",
	"thumbnail": "https://cdn.example.com/sweatshirt.png",
	"images": [{"url": "https://cdn.example.com/sweatshirt.png"}],
	"options": [{"title": "Size", "values": [{"value": "S"}, {"value": "M"}]}],
	"collection": {"title": "Merch"},
	"tags": [{"value": "cotton"}],
	"variants": [
		{"id": "variant_s", "title": "S", "sku": "SWEAT-S", "inventory_quantity": 80,
		 "calculated_price": {"calculated_amount": 3500, "original_amount": 4000, "currency_code": "eur"}},
		{"id": "variant_m", "title": "M", "sku": "SWEAT-M", "inventory_quantity": 4,
		 "calculated_price": {"calculated_amount": 3200, "currency_code": "eur"}}
	]
}`

// Mug is a single-variant product priced through the legacy prices array.
const Mug = `{
	"id": "prod_mug",
	"title": "Medusa Mug",
	"handle": "mug",
	"description": null,
	"thumbnail": null,
	"images": [],
	"variants": [
		{"id": "variant_mug", "title": "Default", "inventory_quantity": 0,
		 "prices": [{"amount": 1200, "currency_code": "eur"}]}
	]
}`
