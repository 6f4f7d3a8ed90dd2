package cart

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worldofchami/medusa-mcp/pkg/logging"
)

func strPtr(s string) *string { return &s }
func pricePtr(p int64) *int64 { return &p }

func newMemoryStore(t *testing.T) (*Store, *MemoryBackend) {
	t.Helper()
	backend := NewMemoryBackend()
	return NewStore(backend, backend, "test", logging.Discard()), backend
}

func sampleItems() []LineItem {
	return []LineItem{
		{
			ID:           "cart_1_aaaaa",
			ProductID:    "prod_1",
			VariantID:    strPtr("variant_1"),
			Title:        "Sweatshirt",
			VariantTitle: strPtr("L"),
			Thumbnail:    strPtr("https://cdn.example.com/s.png"),
			Quantity:     2,
			Price:        pricePtr(1950),
			CurrencyCode: "eur",
		},
		{
			ID:           "cart_2_bbbbb",
			ProductID:    "prod_2",
			Title:        "Gift card",
			Quantity:     1,
			CurrencyCode: "eur",
		},
	}
}

func TestStore_RoundTrip(t *testing.T) {
	store, _ := newMemoryStore(t)
	ctx := context.Background()

	store.Write(ctx, "ctx-a", sampleItems())
	assert.Equal(t, sampleItems(), store.Read(ctx))

	store.Write(ctx, "ctx-a", []LineItem{})
	assert.Equal(t, []LineItem{}, store.Read(ctx))
}

func TestStore_ReadEmptySlot(t *testing.T) {
	store, _ := newMemoryStore(t)
	items := store.Read(context.Background())
	require.NotNil(t, items)
	assert.Empty(t, items)
}

func TestStore_ReadMalformed(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"not json", "{{{"},
		{"object", `{"items":[]}`},
		{"number", `42`},
		{"null", `null`},
		{"blank", `   `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, backend := newMemoryStore(t)
			require.NoError(t, backend.Save(context.Background(), store.Key(), tt.value))
			assert.Equal(t, []LineItem{}, store.Read(context.Background()))
		})
	}
}

type failingSlot struct{}

func (failingSlot) Load(context.Context, string) (string, bool, error) {
	return "", false, errors.New("storage disabled")
}

func (failingSlot) Save(context.Context, string, string) error {
	return errors.New("quota exceeded")
}

func TestStore_FailuresAreAbsorbed(t *testing.T) {
	bus := NewMemoryBackend()
	store := NewStore(failingSlot{}, bus, "test", logging.Discard())

	notified := make(chan []LineItem, 1)
	unsubscribe := store.Subscribe("ctx-b", func(items []LineItem) { notified <- items })
	defer unsubscribe()

	assert.NotPanics(t, func() { store.Write(context.Background(), "ctx-a", sampleItems()) })
	assert.Equal(t, []LineItem{}, store.Read(context.Background()))

	select {
	case <-notified:
		t.Fatal("a rejected write must not be announced")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStore_SubscribeSkipsOwnWrites(t *testing.T) {
	store, _ := newMemoryStore(t)
	ctx := context.Background()

	var mu sync.Mutex
	var selfCalls int
	var otherItems []LineItem

	unsubA := store.Subscribe("ctx-a", func([]LineItem) {
		mu.Lock()
		selfCalls++
		mu.Unlock()
	})
	defer unsubA()
	unsubB := store.Subscribe("ctx-b", func(items []LineItem) {
		mu.Lock()
		otherItems = items
		mu.Unlock()
	})
	defer unsubB()

	store.Write(ctx, "ctx-a", sampleItems())

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return otherItems != nil
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, sampleItems(), otherItems)
	assert.Zero(t, selfCalls)
}

func TestStore_MalformedChangeDeliversEmptyList(t *testing.T) {
	store, backend := newMemoryStore(t)
	got := make(chan []LineItem, 1)
	unsubscribe := store.Subscribe("ctx-b", func(items []LineItem) { got <- items })
	defer unsubscribe()

	require.NoError(t, backend.Publish(context.Background(), store.Key(), Change{Origin: "ctx-a", Value: "not json"}))

	select {
	case items := <-got:
		assert.Equal(t, []LineItem{}, items)
	case <-time.After(time.Second):
		t.Fatal("expected a notification")
	}
}

func TestStore_Unsubscribe(t *testing.T) {
	store, _ := newMemoryStore(t)
	got := make(chan []LineItem, 1)
	unsubscribe := store.Subscribe("ctx-b", func(items []LineItem) { got <- items })
	unsubscribe()
	unsubscribe()

	store.Write(context.Background(), "ctx-a", sampleItems())
	select {
	case <-got:
		t.Fatal("unsubscribed callback fired")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStore_ScopesAreIsolated(t *testing.T) {
	backend := NewMemoryBackend()
	b := Backend{Slot: backend, Bus: backend, Log: logging.Discard()}
	ctx := context.Background()

	b.Store("alice").Write(ctx, "x", sampleItems())
	assert.Empty(t, b.Store("bob").Read(ctx))
	assert.Len(t, b.Store("alice").Read(ctx), 2)
	assert.Equal(t, "alice:"+StorageKey, b.Store("alice").Key())
	assert.Equal(t, StorageKey, b.Store("").Key())
}

func TestNewItemID(t *testing.T) {
	pattern := regexp.MustCompile(`^cart_\d+_[0-9a-z]{5}$`)
	seen := make(map[string]struct{})
	for range 1000 {
		id := NewItemID()
		assert.Regexp(t, pattern, id)
		seen[id] = struct{}{}
	}
	// Same-millisecond ids only differ by their random suffix; a handful of
	// collisions out of 36^5 would indicate a broken generator.
	assert.Greater(t, len(seen), 990)
}

func TestNewOrigin_Unique(t *testing.T) {
	assert.NotEqual(t, NewOrigin(), NewOrigin())
}

func TestScopeFrom(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, DefaultScope, ScopeFrom(ctx))
	assert.Equal(t, DefaultScope, ScopeFrom(WithScope(ctx, "  ")))
	assert.Equal(t, "session-1", ScopeFrom(WithScope(ctx, "session-1")))
}
