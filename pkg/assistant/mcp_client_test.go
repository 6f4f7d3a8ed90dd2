package assistant

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worldofchami/medusa-mcp/pkg/cart"
	"github.com/worldofchami/medusa-mcp/pkg/logging"
	"github.com/worldofchami/medusa-mcp/pkg/mcp"
	"github.com/worldofchami/medusa-mcp/pkg/notify"
	"github.com/worldofchami/medusa-mcp/pkg/platforms/medusa"
	"github.com/worldofchami/medusa-mcp/pkg/platforms/medusa/medusatest"
	"github.com/worldofchami/medusa-mcp/pkg/tools"
)

// newShop runs an MCP server backed by the fake Medusa store.
func newShop(t *testing.T) (*MCPClient, cart.Backend) {
	t.Helper()
	store := medusatest.NewServer(t).AddProduct(medusatest.Sweatshirt).AddProduct(medusatest.Mug)
	backend := cart.NewMemoryBackend()
	carts := cart.Backend{Slot: backend, Bus: backend, Log: logging.Discard()}

	ts := tools.All(tools.Deps{
		Catalog:    medusa.NewClient(store.URL, medusa.WithLogger(logging.Discard())),
		Carts:      carts,
		OrderEmail: "orders@example.com",
		Notifier:   notify.Nop{},
		Log:        logging.Discard(),
	})
	r := chi.NewRouter()
	mcp.NewServer(ts, mcp.WithLogger(logging.Discard())).Mount(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return NewMCPClient(srv.URL + "/"), carts
}

func TestMCPClient_SearchProducts(t *testing.T) {
	client, _ := newShop(t)

	out, err := client.CallTool(context.Background(), "search-products", map[string]any{"query": "mug"})
	require.NoError(t, err)
	assert.Contains(t, out, "Result 1 (text):\nFound 1 product matching \"mug\"")
	assert.Contains(t, out, "\n\nData:\n")
	assert.Contains(t, out, `"prod_mug"`)
}

func TestMCPClient_ForwardsCartScope(t *testing.T) {
	client, carts := newShop(t)
	ctx := cart.WithScope(context.Background(), "alice")

	out, err := client.CallTool(ctx, "add-to-cart", map[string]any{
		"productId":    "prod_mug",
		"variantId":    "variant_mug",
		"title":        "Medusa Mug",
		"variantTitle": nil,
		"quantity":     2,
		"price":        1200,
		"currencyCode": "eur",
	})
	require.NoError(t, err)
	assert.Contains(t, out, `Added 2x "Medusa Mug"`)

	items := carts.Store("alice").Read(context.Background())
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Empty(t, carts.Store(cart.DefaultScope).Read(context.Background()))
}

func TestMCPClient_ToolErrorIsText(t *testing.T) {
	client, _ := newShop(t)

	out, err := client.CallTool(context.Background(), "update-cart-item", map[string]any{"id": "nope", "quantity": 1})
	require.NoError(t, err)
	assert.Contains(t, out, "The tool reported an error.\n")
	assert.Contains(t, out, "Cart item nope not found")
}

func TestMCPClient_RPCError(t *testing.T) {
	client, _ := newShop(t)

	_, err := client.CallTool(context.Background(), "no-such-tool", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MCP error -32602")
}

func TestMCPClient_HTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rpc", r.URL.Path)
		assert.Equal(t, cart.DefaultScope, r.Header.Get(mcp.CartScopeHeader))
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewMCPClient(srv.URL).CallTool(context.Background(), "view-cart", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestToolResultText(t *testing.T) {
	r := toolResult{}
	r.Content = append(r.Content, contentText("one"), contentText(""), contentText("two"))
	assert.Equal(t, "Result 1 (text):\none\n\nResult 2 (text):\ntwo", r.text())

	r.StructuredContent = []byte("null")
	assert.NotContains(t, r.text(), "Data:")
}
