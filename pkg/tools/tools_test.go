package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worldofchami/medusa-mcp/pkg/cart"
	"github.com/worldofchami/medusa-mcp/pkg/logging"
	"github.com/worldofchami/medusa-mcp/pkg/models"
	"github.com/worldofchami/medusa-mcp/pkg/notify"
	"github.com/worldofchami/medusa-mcp/pkg/platforms/medusa"
	"github.com/worldofchami/medusa-mcp/pkg/platforms/medusa/medusatest"
)

type recordingNotifier struct {
	mu     sync.Mutex
	orders []notify.Order
	err    error
}

func (n *recordingNotifier) OrderPlaced(_ context.Context, o notify.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.orders = append(n.orders, o)
	return n.err
}

type fixture struct {
	tools    []Tool
	srv      *medusatest.Server
	backend  *cart.MemoryBackend
	carts    cart.Backend
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := medusatest.NewServer(t).AddProduct(medusatest.Sweatshirt).AddProduct(medusatest.Mug)
	backend := cart.NewMemoryBackend()
	f := &fixture{
		srv:      srv,
		backend:  backend,
		carts:    cart.Backend{Slot: backend, Bus: backend, Log: logging.Discard()},
		notifier: &recordingNotifier{},
	}
	f.tools = All(Deps{
		Catalog:    medusa.NewClient(srv.URL, medusa.WithLogger(logging.Discard())),
		Carts:      f.carts,
		OrderEmail: "orders@example.com",
		Notifier:   f.notifier,
		Log:        logging.Discard(),
	})
	return f
}

func (f *fixture) call(t *testing.T, ctx context.Context, name, args string) models.ToolResult {
	t.Helper()
	tool, ok := Find(f.tools, name)
	require.True(t, ok, "tool %s", name)
	res, err := tool.Call(ctx, json.RawMessage(args))
	require.NoError(t, err)
	return res
}

func (f *fixture) items(scope string) []cart.LineItem {
	return f.carts.Store(scope).Read(context.Background())
}

const addSweatshirt = `{"productId":"prod_sweatshirt","variantId":"variant_s","title":"Medusa Sweatshirt",
	"variantTitle":"S","quantity":2,"price":3500,"currencyCode":"eur"}`

const addMug = `{"productId":"prod_mug","variantId":"variant_mug","title":"Medusa Mug",
	"variantTitle":null,"quantity":1,"price":1200,"currencyCode":"EUR"}`

func TestAll_Schemas(t *testing.T) {
	f := newFixture(t)

	names := make([]string, 0, len(f.tools))
	for _, tool := range f.tools {
		names = append(names, tool.Name)
		assert.Equal(t, "object", tool.InputSchema["type"], tool.Name)
		assert.Equal(t, false, tool.InputSchema["additionalProperties"], tool.Name)
		assert.NotContains(t, tool.InputSchema, "$schema", tool.Name)
		assert.Contains(t, tool.InputSchema, "properties", tool.Name)
	}
	assert.Equal(t, []string{
		"search-products", "get-product-details", "add-to-cart", "view-cart",
		"update-cart-item", "remove-cart-item", "clear-cart", "place-order",
	}, names)

	add, _ := Find(f.tools, "add-to-cart")
	assert.ElementsMatch(t,
		[]any{"productId", "variantId", "title", "variantTitle", "quantity", "price", "currencyCode"},
		add.InputSchema["required"])

	search, _ := Find(f.tools, "search-products")
	assert.NotContains(t, search.InputSchema, "required")
	assert.Equal(t, map[string]any{"readOnlyHint": true}, search.Annotations)
	assert.Equal(t, "ui://widget/product-search-result.html", search.Meta["openai/outputTemplate"])
	assert.Equal(t, "Searching products...", search.Meta["openai/toolInvocation/invoking"])

	view, _ := Find(f.tools, "view-cart")
	assert.Equal(t, "Cart loaded", view.Meta["openai/toolInvocation/invoked"])
	assert.Nil(t, add.Annotations)
	assert.Nil(t, add.Meta)
}

func TestInvalidArguments(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		tool string
		args string
	}{
		{"search-products", `{"limit":0}`},
		{"search-products", `{"limit":101}`},
		{"search-products", `{"query":42}`},
		{"search-products", `{"unexpected":true}`},
		{"get-product-details", `{}`},
		{"add-to-cart", `{"productId":"p","title":"t","quantity":1,"currencyCode":"usd"}`},
		{"add-to-cart", `{"productId":"p","variantId":null,"title":"t","variantTitle":null,"quantity":0,"price":null,"currencyCode":"usd"}`},
		{"update-cart-item", `{"id":"x"}`},
		{"place-order", `{"items":[{"variantId":"v","title":"t"}]}`},
		{"view-cart", `{"items":[` + hostLine("h1", "prod_mug", 0) + `]}`},
		{"view-cart", `{"items":[` + hostLine("h1", "prod_mug", -3) + `]}`},
		{"search-products", `[1,2]`},
	}
	for _, tt := range tests {
		t.Run(tt.tool+" "+tt.args, func(t *testing.T) {
			tool, _ := Find(f.tools, tt.tool)
			_, err := tool.Call(context.Background(), json.RawMessage(tt.args))
			assert.ErrorIs(t, err, ErrInvalidArguments)
		})
	}
}

func TestEmptyArgumentsAreAnEmptyObject(t *testing.T) {
	f := newFixture(t)
	for _, args := range []string{"", "null", "  "} {
		res := f.call(t, context.Background(), "view-cart", args)
		assert.Equal(t, "Your shopping cart is empty", res.FirstText())
	}
}

func TestSearchProducts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.call(t, ctx, "search-products", `{"query":"sweat"}`)
	assert.False(t, res.IsError)
	assert.Equal(t, `Found 1 product matching "sweat"`, res.FirstText())
	props, ok := res.StructuredContent.(models.SearchResultProps)
	require.True(t, ok)
	assert.Equal(t, "sweat", props.Query)
	require.Len(t, props.Results, 1)
	assert.Equal(t, int64(3200), *props.Results[0].Price)
	assert.Equal(t, "ui://widget/product-search-result.html", res.Meta["openai/outputTemplate"])

	res = f.call(t, ctx, "search-products", `{}`)
	assert.Equal(t, `Found 2 products matching "all"`, res.FirstText())
	assert.Equal(t, "", res.StructuredContent.(models.SearchResultProps).Query)

	res = f.call(t, ctx, "search-products", `{"query":"nothing here"}`)
	assert.Equal(t, `Found 0 products matching "nothing here"`, res.FirstText())
}

func TestSearchProducts_BackendFailure(t *testing.T) {
	f := newFixture(t)
	f.srv.FailNext("/store/products", 1)

	res := f.call(t, context.Background(), "search-products", `{"query":"mug","limit":5}`)
	assert.True(t, res.IsError)
	assert.Equal(t,
		"Failed to fetch products from Medusa: Medusa API 500: An unknown error occurred.. Make sure MEDUSA_BACKEND_URL is set correctly.",
		res.FirstText())
}

func TestGetProductDetails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.call(t, ctx, "get-product-details", `{"product_id":"prod_sweatshirt"}`)
	assert.Equal(t, "Product: Medusa Sweatshirt (Merch) - 2 variant(s)", res.FirstText())
	detail, ok := res.StructuredContent.(*models.ProductDetail)
	require.True(t, ok)
	assert.Equal(t, "variant_s", detail.Variants[0].ID)

	res = f.call(t, ctx, "get-product-details", `{"product_id":"prod_mug"}`)
	assert.Equal(t, "Product: Medusa Mug - 1 variant(s)", res.FirstText())

	res = f.call(t, ctx, "get-product-details", `{"product_id":"prod_missing"}`)
	assert.True(t, res.IsError)
	assert.Equal(t, "Product prod_missing not found", res.FirstText())

	f.srv.FailNext("/store/products", 1)
	res = f.call(t, ctx, "get-product-details", `{"product_id":"prod_mug"}`)
	assert.True(t, res.IsError)
	assert.Equal(t, "Failed to retrieve product prod_mug: Medusa API 500: An unknown error occurred.", res.FirstText())
}

func TestAddToCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.call(t, ctx, "add-to-cart", addSweatshirt)
	assert.Equal(t, `Added 2x "Medusa Sweatshirt" (S) to the cart. Price: €35.00`, res.FirstText())
	f.call(t, ctx, "add-to-cart", addSweatshirt)
	res = f.call(t, ctx, "add-to-cart", addMug)
	assert.Equal(t, `Added 1x "Medusa Mug" to the cart. Price: €12.00`, res.FirstText())

	items := f.items(cart.DefaultScope)
	require.Len(t, items, 2)
	assert.Equal(t, 4, items[0].Quantity)
	assert.Equal(t, "eur", items[1].CurrencyCode)

	props := res.StructuredContent.(CartProps)
	assert.Equal(t, items, props.Items)
	assert.Equal(t, "eur", props.CurrencyCode)

	res = f.call(t, ctx, "add-to-cart", `{"productId":"prod_gift","variantId":null,"title":"Gift",
		"variantTitle":null,"quantity":1,"price":null,"currencyCode":"usd"}`)
	assert.Equal(t, `Added 1x "Gift" to the cart.`, res.FirstText())
}

func TestCartScopesAreIsolated(t *testing.T) {
	f := newFixture(t)

	f.call(t, cart.WithScope(context.Background(), "alice"), "add-to-cart", addSweatshirt)
	f.call(t, cart.WithScope(context.Background(), "bob"), "add-to-cart", addMug)

	require.Len(t, f.items("alice"), 1)
	assert.Equal(t, "prod_sweatshirt", f.items("alice")[0].ProductID)
	require.Len(t, f.items("bob"), 1)
	assert.Equal(t, "prod_mug", f.items("bob")[0].ProductID)
	assert.Empty(t, f.items(cart.DefaultScope))
}

func TestAddToCart_ReachesOpenWidgets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	widget := cart.NewAggregate(ctx, f.carts.Store(cart.DefaultScope), cart.Options{})
	defer widget.Close()

	f.call(t, ctx, "add-to-cart", addSweatshirt)
	assert.Eventually(t, func() bool {
		return widget.TotalItems() == 2
	}, time.Second, 5*time.Millisecond)
}

func TestViewCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.call(t, ctx, "view-cart", `{}`)
	assert.Equal(t, "Your shopping cart is empty", res.FirstText())
	assert.Equal(t, CartProps{Items: []cart.LineItem{}, CurrencyCode: "usd"}, res.StructuredContent)
	assert.Equal(t, "ui://widget/cart.html", res.Meta["openai/outputTemplate"])

	f.call(t, ctx, "add-to-cart", addSweatshirt)
	res = f.call(t, ctx, "view-cart", `{"items":[
		{"id":"host_1","productId":"prod_mug","variantId":"variant_mug","title":"Medusa Mug","variantTitle":null,
		 "thumbnail":null,"quantity":1,"price":1200,"currencyCode":"EUR"},
		{"id":"host_2","productId":"prod_sweatshirt","variantId":"variant_s","title":"Stale","variantTitle":"S",
		 "thumbnail":null,"quantity":9,"price":1,"currencyCode":"eur"}
	]}`)

	assert.Equal(t, "Shopping cart (3 items):\n"+
		"- 2x \"Medusa Sweatshirt\" (S): €70.00\n"+
		"- 1x \"Medusa Mug\": €12.00\n"+
		"Total: €82.00", res.FirstText())

	// The merged cart is persisted.
	items := f.items(cart.DefaultScope)
	require.Len(t, items, 2)
	assert.Equal(t, "host_1", items[1].ID)
	assert.Equal(t, "eur", items[1].CurrencyCode)

	res = f.call(t, ctx, "view-cart", `{"currencyCode":"USD"}`)
	assert.Equal(t, "usd", res.StructuredContent.(CartProps).CurrencyCode)
	assert.Contains(t, res.FirstText(), "Total: $82.00")
}

// hostLine is a cart line as a host sends it to view-cart.
func hostLine(id, productID string, quantity int) string {
	return fmt.Sprintf(`{"id":%q,"productId":%q,"variantId":null,"title":"Host item","variantTitle":null,
		"thumbnail":null,"quantity":%d,"price":500,"currencyCode":"usd"}`, id, productID, quantity)
}

func TestViewCart_InvalidLinesLeaveCartUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.call(t, ctx, "add-to-cart", addMug)

	tool, _ := Find(f.tools, "view-cart")
	_, err := tool.Call(ctx, json.RawMessage(`{"items":[`+hostLine("h1", "prod_other", 0)+`]}`))
	require.ErrorIs(t, err, ErrInvalidArguments)

	items := f.items(cart.DefaultScope)
	require.Len(t, items, 1)
	assert.Equal(t, "prod_mug", items[0].ProductID)
}

func TestViewCart_IncomingIDCollision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.call(t, ctx, "add-to-cart", addSweatshirt)
	taken := f.items(cart.DefaultScope)[0].ID

	f.call(t, ctx, "view-cart", `{"items":[`+hostLine(taken, "prod_other", 1)+`]}`)
	items := f.items(cart.DefaultScope)
	require.Len(t, items, 2)
	assert.Equal(t, taken, items[0].ID)
	assert.NotEqual(t, taken, items[1].ID)
	assert.Equal(t, "prod_other", items[1].ProductID)

	res := f.call(t, ctx, "remove-cart-item", `{"id":"`+taken+`"}`)
	require.False(t, res.IsError)
	items = f.items(cart.DefaultScope)
	require.Len(t, items, 1)
	assert.Equal(t, "prod_other", items[0].ProductID)
}

func TestUpdateAndRemoveCartItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.call(t, ctx, "add-to-cart", addSweatshirt)
	f.call(t, ctx, "add-to-cart", addMug)
	items := f.items(cart.DefaultScope)

	res := f.call(t, ctx, "update-cart-item", `{"id":"`+items[0].ID+`","quantity":5}`)
	assert.Equal(t, `Updated "Medusa Sweatshirt" (S) to quantity 5.`, res.FirstText())
	assert.Equal(t, 5, f.items(cart.DefaultScope)[0].Quantity)

	res = f.call(t, ctx, "update-cart-item", `{"id":"`+items[1].ID+`","quantity":0}`)
	assert.Equal(t, `Removed "Medusa Mug" from the cart.`, res.FirstText())
	assert.Len(t, f.items(cart.DefaultScope), 1)

	res = f.call(t, ctx, "remove-cart-item", `{"id":"`+items[0].ID+`"}`)
	assert.Equal(t, `Removed "Medusa Sweatshirt" (S) from the cart.`, res.FirstText())
	assert.Empty(t, f.items(cart.DefaultScope))

	res = f.call(t, ctx, "remove-cart-item", `{"id":"missing"}`)
	assert.True(t, res.IsError)
	assert.Equal(t, "Cart item missing not found", res.FirstText())

	res = f.call(t, ctx, "update-cart-item", `{"id":"missing","quantity":2}`)
	assert.True(t, res.IsError)
}

func TestClearCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.call(t, ctx, "add-to-cart", addSweatshirt)
	res := f.call(t, ctx, "clear-cart", `{}`)
	assert.Equal(t, "Your shopping cart has been cleared", res.FirstText())
	assert.Empty(t, f.items(cart.DefaultScope))
}

func TestPlaceOrder_FromCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.call(t, ctx, "add-to-cart", addSweatshirt)
	f.call(t, ctx, "add-to-cart", addMug)

	res := f.call(t, ctx, "place-order", `{}`)
	require.False(t, res.IsError, res.FirstText())
	assert.Equal(t, "Order placed successfully! Order #42. A confirmation will be sent to orders@example.com.", res.FirstText())

	assert.Equal(t, []medusatest.LineItem{
		{CartID: "cart_1", VariantID: "variant_s", Quantity: 2},
		{CartID: "cart_1", VariantID: "variant_mug", Quantity: 1},
	}, f.srv.LineItems())
	assert.Empty(t, f.items(cart.DefaultScope))

	require.Len(t, f.notifier.orders, 1)
	order := f.notifier.orders[0]
	assert.Equal(t, "#42", order.Reference)
	assert.Equal(t, "eur", order.CurrencyCode)
	assert.Equal(t, "New order #42 from orders@example.com\n- 2x Medusa Sweatshirt\n- 1x Medusa Mug\nTotal: €82.00",
		notify.Message(order))
}

func TestPlaceOrder_ExplicitItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.call(t, ctx, "place-order", `{"items":[
		{"variantId":null,"quantity":1,"title":"Gift card"},
		{"variantId":"variant_m","quantity":3,"title":"Medusa Sweatshirt"}
	]}`)
	require.False(t, res.IsError, res.FirstText())
	assert.Equal(t, []medusatest.LineItem{{CartID: "cart_1", VariantID: "variant_m", Quantity: 3}}, f.srv.LineItems())

	require.Len(t, f.notifier.orders, 1)
	assert.Equal(t, "usd", f.notifier.orders[0].CurrencyCode)
}

func TestPlaceOrder_ExplicitItemsTakeCurrencyFromOrderedLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// The cart's first line is priced in usd, the ordered variant in eur.
	f.call(t, ctx, "add-to-cart", `{"productId":"prod_tote","variantId":"variant_tote","title":"Tote",
		"variantTitle":null,"quantity":1,"price":900,"currencyCode":"usd"}`)
	f.call(t, ctx, "add-to-cart", addSweatshirt)

	res := f.call(t, ctx, "place-order", `{"items":[{"variantId":"variant_s","quantity":2,"title":"Medusa Sweatshirt"}]}`)
	require.False(t, res.IsError, res.FirstText())

	require.Len(t, f.notifier.orders, 1)
	order := f.notifier.orders[0]
	assert.Equal(t, "eur", order.CurrencyCode)
	assert.Equal(t, "New order #42 from orders@example.com\n- 2x Medusa Sweatshirt\nTotal: €70.00", notify.Message(order))
}

func TestPlaceOrder_ClearReachesOpenWidgets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	widget := cart.NewAggregate(ctx, f.carts.Store(cart.DefaultScope), cart.Options{})
	defer widget.Close()

	f.call(t, ctx, "add-to-cart", addMug)
	require.Eventually(t, func() bool { return widget.TotalItems() == 1 }, time.Second, 5*time.Millisecond)

	res := f.call(t, ctx, "place-order", `{}`)
	require.False(t, res.IsError, res.FirstText())
	assert.Eventually(t, func() bool { return widget.TotalItems() == 0 }, time.Second, 5*time.Millisecond)
}

func TestPlaceOrder_Failures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*medusatest.Server)
		args  string
		want  string
	}{
		{
			name: "no variants",
			args: `{"items":[{"variantId":null,"quantity":1,"title":"Gift card"}]}`,
			want: "No items with valid variant IDs. Cannot create an order without product variants.",
		},
		{
			name:  "no region",
			setup: func(s *medusatest.Server) { s.WithRegions() },
			want:  "Could not determine store region. Check Medusa configuration.",
		},
		{
			name:  "incomplete",
			setup: func(s *medusatest.Server) { s.Complete = `{"type":"cart","error":"Payment required"}` },
			want:  "Cart was created but could not be completed. Payment required",
		},
		{
			name:  "backend error",
			setup: func(s *medusatest.Server) { s.FailNext("/store/carts", 1) },
			want:  "Failed to place order: Medusa API 500: An unknown error occurred.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			if tt.setup != nil {
				tt.setup(f.srv)
			}
			f.call(t, ctx, "add-to-cart", addSweatshirt)
			args := tt.args
			if args == "" {
				args = `{}`
			}

			res := f.call(t, ctx, "place-order", args)
			assert.True(t, res.IsError)
			assert.Equal(t, tt.want, res.FirstText())
			assert.Len(t, f.items(cart.DefaultScope), 1, "cart is kept on failure")
			assert.Empty(t, f.notifier.orders)
		})
	}
}

func TestPlaceOrder_NotificationFailureIsIgnored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.notifier.err = errors.New("twilio down")

	f.call(t, ctx, "add-to-cart", addMug)
	res := f.call(t, ctx, "place-order", `{}`)
	assert.False(t, res.IsError)
	assert.Len(t, f.notifier.orders, 1)
	assert.Empty(t, f.items(cart.DefaultScope))
}

func TestCartSummary(t *testing.T) {
	price := int64(999)
	items := []cart.LineItem{
		{ID: "1", ProductID: "a", Title: "Sticker", Quantity: 1, Price: &price, CurrencyCode: "usd"},
		{ID: "2", ProductID: "b", Title: "Mystery", Quantity: 2, CurrencyCode: "usd"},
	}
	assert.Equal(t, "Shopping cart (3 items):\n- 1x \"Sticker\": $9.99\n- 2x \"Mystery\": N/A\nTotal: $9.99",
		CartSummary(items, "usd"))
	assert.Equal(t, "Shopping cart (1 item):\n- 1x \"Sticker\": $9.99\nTotal: $9.99",
		CartSummary(items[:1], "usd"))
}
