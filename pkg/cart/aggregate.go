package cart

import (
	"context"
	"sync"
)

// State is the snapshot handed to OnStateChange observers.
type State struct {
	Items []LineItem `json:"items"`
}

type Options struct {
	// Initial is an authoritative item list supplied by the host, merged
	// with what is already stored (stored lines win).
	Initial []LineItem
	// OnStateChange mirrors every new item list. It runs without the
	// aggregate's lock held.
	OnStateChange func(State)
	// Drawer, when set, is opened by AddItem and tracks total quantity.
	Drawer *Drawer
}

// Aggregate is one widget instance's view of the shared cart. Mutations
// update memory first, then persist the full list to the Store. Writes made
// by other instances are picked up through the Store subscription.
type Aggregate struct {
	mu     sync.Mutex
	store  *Store
	origin string
	items  []LineItem

	onChange    func(State)
	drawer      *Drawer
	unsubscribe func()
}

func NewAggregate(ctx context.Context, store *Store, opts Options) *Aggregate {
	stored := store.Read(ctx)
	used := make(map[string]struct{}, len(stored)+len(opts.Initial))
	for _, item := range stored {
		used[item.ID] = struct{}{}
	}

	// Incoming lines only enter the cart with a positive quantity and an id
	// no other line holds.
	initial := make([]LineItem, 0, len(opts.Initial))
	for _, item := range opts.Initial {
		if item.Quantity <= 0 {
			continue
		}
		if _, taken := used[item.ID]; item.ID == "" || taken {
			item.ID = NewItemID()
		}
		used[item.ID] = struct{}{}
		item.CurrencyCode = NormalizeCurrency(item.CurrencyCode)
		initial = append(initial, item)
	}

	a := &Aggregate{
		store:    store,
		origin:   NewOrigin(),
		items:    MergeInitial(stored, initial),
		onChange: opts.OnStateChange,
		drawer:   opts.Drawer,
	}
	a.track(a.items)
	a.unsubscribe = store.Subscribe(a.origin, a.applyExternal)
	return a
}

// Origin identifies this instance on the Store's change channel.
func (a *Aggregate) Origin() string { return a.origin }

// AddItem increments the quantity of the matching product/variant line, or
// appends a new line. Frozen fields of an existing line are kept.
func (a *Aggregate) AddItem(ctx context.Context, in ItemInput) {
	if in.Quantity <= 0 {
		return
	}
	if a.drawer != nil {
		a.drawer.Open()
	}
	a.update(ctx, func(prev []LineItem) ([]LineItem, bool) {
		candidate := in.withID("")
		for i := range prev {
			if SameLine(prev[i], candidate) {
				next := cloneItems(prev)
				next[i].Quantity += in.Quantity
				return next, true
			}
		}
		return append(cloneItems(prev), in.withID(NewItemID())), true
	})
}

// RemoveItem deletes the line with id. Unknown ids are ignored.
func (a *Aggregate) RemoveItem(ctx context.Context, id string) {
	a.update(ctx, func(prev []LineItem) ([]LineItem, bool) {
		next := make([]LineItem, 0, len(prev))
		for _, i := range prev {
			if i.ID != id {
				next = append(next, i)
			}
		}
		return next, len(next) != len(prev)
	})
}

// UpdateQuantity sets a line's quantity; quantity <= 0 removes the line.
func (a *Aggregate) UpdateQuantity(ctx context.Context, id string, quantity int) {
	if quantity <= 0 {
		a.RemoveItem(ctx, id)
		return
	}
	a.update(ctx, func(prev []LineItem) ([]LineItem, bool) {
		for i := range prev {
			if prev[i].ID == id {
				next := cloneItems(prev)
				next[i].Quantity = quantity
				return next, true
			}
		}
		return prev, false
	})
}

func (a *Aggregate) ClearCart(ctx context.Context) {
	a.update(ctx, func([]LineItem) ([]LineItem, bool) {
		return []LineItem{}, true
	})
}

// Persist writes the current items to the Store, announcing them to other
// instances. Used after merging an authoritative snapshot.
func (a *Aggregate) Persist(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.store.Write(ctx, a.origin, a.items)
}

func (a *Aggregate) Items() []LineItem {
	a.mu.Lock()
	defer a.mu.Unlock()
	return cloneItems(a.items)
}

func (a *Aggregate) State() State {
	return State{Items: a.Items()}
}

func (a *Aggregate) TotalItems() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return TotalItems(a.items)
}

func (a *Aggregate) Subtotal() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Subtotal(a.items)
}

func (a *Aggregate) CurrencyCode() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return CurrencyCode(a.items)
}

// Close stops listening for external writes and cancels the drawer timer.
func (a *Aggregate) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	if a.drawer != nil {
		a.drawer.Stop()
	}
}

// update applies fn under the lock and persists while still holding it, so
// one instance's writes reach the Store in invocation order.
func (a *Aggregate) update(ctx context.Context, fn func([]LineItem) ([]LineItem, bool)) {
	a.mu.Lock()
	next, changed := fn(a.items)
	if !changed {
		a.mu.Unlock()
		return
	}
	a.items = next
	a.store.Write(ctx, a.origin, next)
	snapshot := cloneItems(next)
	a.mu.Unlock()

	a.track(snapshot)
	a.notify(snapshot)
}

func (a *Aggregate) applyExternal(items []LineItem) {
	a.mu.Lock()
	if canonical(items) == canonical(a.items) {
		a.mu.Unlock()
		return
	}
	a.items = items
	snapshot := cloneItems(items)
	a.mu.Unlock()

	a.track(snapshot)
	a.notify(snapshot)
}

func (a *Aggregate) track(items []LineItem) {
	if a.drawer != nil {
		a.drawer.Track(TotalItems(items))
	}
}

func (a *Aggregate) notify(items []LineItem) {
	if a.onChange != nil {
		a.onChange(State{Items: items})
	}
}
