package cart

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// StorageKey is the fixed slot name holding the serialized cart.
const StorageKey = "medusa-mcp-cart"

// Slot is a persistent string-keyed storage area.
type Slot interface {
	// Load returns ok=false when nothing is stored under key.
	Load(ctx context.Context, key string) (value string, ok bool, err error)
	Save(ctx context.Context, key, value string) error
}

// Change describes a write to a slot. Origin identifies the execution
// context that performed it.
type Change struct {
	Origin string `json:"origin"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}

// Bus delivers slot changes to every subscriber of a key, including the
// writer's own subscriptions. Filtering by origin happens in Store.
type Bus interface {
	Publish(ctx context.Context, key string, change Change) error
	Subscribe(ctx context.Context, key string, fn func(Change)) (unsubscribe func(), err error)
}

// Backend pairs a Slot with the Bus that announces its changes.
type Backend struct {
	Slot Slot
	Bus  Bus
	Log  *logrus.Entry
}

// Store returns the cart store for one scope (the equivalent of a browser
// origin).
func (b Backend) Store(scope string) *Store {
	return NewStore(b.Slot, b.Bus, scope, b.Log)
}

// Store is the best-effort persistence of one cart. None of its methods
// return errors: failures are logged and degrade to an empty cart on read or
// a lost write.
type Store struct {
	slot Slot
	bus  Bus
	key  string
	log  *logrus.Entry
}

func NewStore(slot Slot, bus Bus, scope string, log *logrus.Entry) *Store {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	key := StorageKey
	if scope = strings.TrimSpace(scope); scope != "" {
		key = scope + ":" + StorageKey
	}
	return &Store{
		slot: slot,
		bus:  bus,
		key:  key,
		log:  log.WithField("cart_key", key),
	}
}

// Key is the namespaced slot key.
func (s *Store) Key() string { return s.key }

// Read returns the stored items, or an empty list when nothing usable is
// stored.
func (s *Store) Read(ctx context.Context) []LineItem {
	raw, ok, err := s.slot.Load(ctx, s.key)
	if err != nil {
		s.log.WithError(err).Warn("cart read failed")
		return []LineItem{}
	}
	if !ok {
		return []LineItem{}
	}
	return parseItems(raw)
}

// Write replaces the stored cart and announces the change on behalf of
// origin.
func (s *Store) Write(ctx context.Context, origin string, items []LineItem) {
	value := canonical(items)
	if err := s.slot.Save(ctx, s.key, value); err != nil {
		s.log.WithError(err).Warn("cart write failed")
		return
	}
	if s.bus == nil {
		return
	}
	change := Change{Origin: origin, Key: s.key, Value: value}
	if err := s.bus.Publish(ctx, s.key, change); err != nil {
		s.log.WithError(err).Warn("cart change publish failed")
	}
}

// Subscribe calls fn with the new items whenever a context other than
// origin writes the cart. The returned function stops delivery.
func (s *Store) Subscribe(origin string, fn func([]LineItem)) func() {
	if s.bus == nil {
		return func() {}
	}
	unsubscribe, err := s.bus.Subscribe(context.Background(), s.key, func(c Change) {
		if c.Origin == origin {
			return
		}
		fn(parseItems(c.Value))
	})
	if err != nil {
		s.log.WithError(err).Warn("cart subscribe failed")
		return func() {}
	}
	return unsubscribe
}

// NewItemID returns a line id that stays unique across independent contexts
// without coordination: a millisecond timestamp plus a random suffix.
func NewItemID() string {
	return fmt.Sprintf("cart_%d_%s", time.Now().UnixMilli(), randomSuffix(5))
}

// NewOrigin identifies a new execution context.
func NewOrigin() string {
	return uuid.NewString()
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

func randomSuffix(n int) string {
	var b strings.Builder
	b.Grow(n)
	for range n {
		b.WriteByte(base36[rand.IntN(len(base36))])
	}
	return b.String()
}
