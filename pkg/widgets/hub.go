// Package widgets serves the cart widget sync channel. Every open event
// stream is one widget instance with its own cart aggregate and drawer;
// instances of the same scope share one stored cart.
package widgets

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/worldofchami/medusa-mcp/pkg/cart"
)

const defaultKeepalive = 30 * time.Second

// State is the payload of a "state" event and of every mutation response.
type State struct {
	InstanceID   string          `json:"instanceId"`
	Scope        string          `json:"scope"`
	Items        []cart.LineItem `json:"items"`
	TotalItems   int             `json:"totalItems"`
	Subtotal     int64           `json:"subtotal"`
	CurrencyCode string          `json:"currencyCode"`
	Open         bool            `json:"open"`
}

type Hub struct {
	carts     cart.Backend
	autoClose time.Duration
	keepalive time.Duration
	log       *logrus.Entry

	mu        sync.RWMutex
	instances map[string]*instance
}

type Option func(*Hub)

// WithAutoClose sets the drawer auto-close delay.
func WithAutoClose(d time.Duration) Option {
	return func(h *Hub) { h.autoClose = d }
}

func WithKeepalive(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.keepalive = d
		}
	}
}

func WithLogger(log *logrus.Entry) Option {
	return func(h *Hub) {
		if log != nil {
			h.log = log
		}
	}
}

func NewHub(carts cart.Backend, opts ...Option) *Hub {
	h := &Hub{
		carts:     carts,
		autoClose: cart.DefaultAutoClose,
		keepalive: defaultKeepalive,
		log:       logrus.NewEntry(logrus.StandardLogger()),
		instances: make(map[string]*instance),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.WithField("component", "widgets")
	return h
}

// Mount registers the widget routes under /widgets/cart.
func (h *Hub) Mount(r chi.Router) {
	r.Route("/widgets/cart", func(r chi.Router) {
		r.Get("/events", h.handleEvents)
		r.Route("/{instance}", func(r chi.Router) {
			r.Use(h.withInstance)
			r.Get("/", h.handleState)
			r.Post("/items", h.handleAddItem)
			r.Delete("/items", h.handleClear)
			r.Patch("/items/{line}", h.handleUpdateItem)
			r.Delete("/items/{line}", h.handleRemoveItem)
			r.Post("/drawer", h.handleDrawer)
		})
	})
}

// Instances is the number of connected widget instances.
func (h *Hub) Instances() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.instances)
}

// instance is one connected widget.
type instance struct {
	id     string
	scope  string
	agg    *cart.Aggregate
	drawer *cart.Drawer
	// changed is signalled whenever the cart or drawer changes. Sends never
	// block; the stream always renders the latest state.
	changed chan struct{}
}

func (h *Hub) open(ctx context.Context, scope string, initial []cart.LineItem) *instance {
	inst := &instance{
		id:      uuid.NewString(),
		scope:   scope,
		changed: make(chan struct{}, 1),
	}
	inst.drawer = cart.NewDrawer(h.autoClose, func(bool) { inst.signal() })
	inst.agg = cart.NewAggregate(ctx, h.carts.Store(scope), cart.Options{
		Initial:       initial,
		OnStateChange: func(cart.State) { inst.signal() },
		Drawer:        inst.drawer,
	})
	if len(initial) > 0 {
		inst.agg.Persist(ctx)
	}

	h.mu.Lock()
	h.instances[inst.id] = inst
	h.mu.Unlock()
	return inst
}

func (h *Hub) close(inst *instance) {
	h.mu.Lock()
	delete(h.instances, inst.id)
	h.mu.Unlock()
	inst.agg.Close()
}

func (i *instance) signal() {
	select {
	case i.changed <- struct{}{}:
	default:
	}
}

func (i *instance) state() State {
	items := i.agg.Items()
	return State{
		InstanceID:   i.id,
		Scope:        i.scope,
		Items:        items,
		TotalItems:   cart.TotalItems(items),
		Subtotal:     cart.Subtotal(items),
		CurrencyCode: cart.CurrencyCode(items),
		Open:         i.drawer.IsOpen(),
	}
}

func (h *Hub) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	var initial []cart.LineItem
	if raw := r.URL.Query().Get("items"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &initial); err != nil {
			writeError(w, http.StatusBadRequest, "items must be a JSON array of cart items")
			return
		}
	}

	scope := r.URL.Query().Get("scope")
	if scope == "" {
		scope = cart.DefaultScope
	}
	inst := h.open(r.Context(), scope, initial)
	defer h.close(inst)

	log := h.log.WithFields(logrus.Fields{"instance_id": inst.id, "scope": scope})
	log.Debug("widget connected")
	defer log.Debug("widget disconnected")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if err := writeState(w, inst.state()); err != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()
	for {
		select {
		case <-inst.changed:
			if err := writeState(w, inst.state()); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func writeState(w http.ResponseWriter, s State) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: state\ndata: %s\n\n", b)
	return err
}
