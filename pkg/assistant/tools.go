package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/nlpodyssey/openai-agents-go/agents"
)

// ToolCaller runs a named MCP tool and returns its output as text.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (string, error)
}

type searchProductsParams struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type productDetailsParams struct {
	ProductID string `json:"product_id"`
}

type addToCartParams struct {
	ProductID    string `json:"product_id"`
	VariantID    string `json:"variant_id"`
	Title        string `json:"title"`
	VariantTitle string `json:"variant_title"`
	Quantity     int    `json:"quantity"`
	Price        int64  `json:"price"`
	CurrencyCode string `json:"currency_code"`
}

type cartItemParams struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

type removeCartItemParams struct {
	ItemID string `json:"item_id"`
}

type emptyParams struct{}

// Tools exposes the MCP shopping tools to the agent. Every call works on the
// cart selected by the context's scope.
func Tools(mcp ToolCaller) []agents.Tool {
	return []agents.Tool{
		agents.NewFunctionTool(
			"search_products",
			"Search the store's product catalog. Pass an empty query to list products. Results include product IDs, prices in cents, and the default variant ID.",
			func(ctx context.Context, p searchProductsParams) (string, error) {
				args := map[string]any{}
				if q := strings.TrimSpace(p.Query); q != "" {
					args["query"] = q
				}
				if p.Limit > 0 {
					args["limit"] = p.Limit
				}
				return mcp.CallTool(ctx, "search-products", args)
			},
		),
		agents.NewFunctionTool(
			"get_product_details",
			"Get a product's variants, options, prices and stock. Use it before adding an item so the right variant is chosen.",
			func(ctx context.Context, p productDetailsParams) (string, error) {
				id := strings.TrimSpace(p.ProductID)
				if id == "" {
					return "", fmt.Errorf("product_id is required")
				}
				return mcp.CallTool(ctx, "get-product-details", map[string]any{"product_id": id})
			},
		),
		agents.NewFunctionTool(
			"add_to_cart",
			"Add a product variant to the customer's cart. Price is per unit in cents; use 0 when unknown. Adding the same variant again increases its quantity.",
			func(ctx context.Context, p addToCartParams) (string, error) {
				if strings.TrimSpace(p.ProductID) == "" {
					return "", fmt.Errorf("product_id is required")
				}
				if p.Quantity <= 0 {
					p.Quantity = 1
				}
				return mcp.CallTool(ctx, "add-to-cart", map[string]any{
					"productId":    p.ProductID,
					"variantId":    optional(p.VariantID),
					"title":        p.Title,
					"variantTitle": optional(p.VariantTitle),
					"quantity":     p.Quantity,
					"price":        optionalPrice(p.Price),
					"currencyCode": p.CurrencyCode,
				})
			},
		),
		agents.NewFunctionTool(
			"view_cart",
			"Show the customer's cart with line item IDs, quantities and the total.",
			func(ctx context.Context, _ emptyParams) (string, error) {
				return mcp.CallTool(ctx, "view-cart", map[string]any{})
			},
		),
		agents.NewFunctionTool(
			"update_cart_item",
			"Set the quantity of a cart line item. A quantity of 0 removes it. Use the item ID from view_cart.",
			func(ctx context.Context, p cartItemParams) (string, error) {
				return mcp.CallTool(ctx, "update-cart-item", map[string]any{
					"id":       p.ItemID,
					"quantity": p.Quantity,
				})
			},
		),
		agents.NewFunctionTool(
			"remove_cart_item",
			"Remove a line item from the cart. Use the item ID from view_cart.",
			func(ctx context.Context, p removeCartItemParams) (string, error) {
				return mcp.CallTool(ctx, "remove-cart-item", map[string]any{"id": p.ItemID})
			},
		),
		agents.NewFunctionTool(
			"clear_cart",
			"Remove every item from the cart.",
			func(ctx context.Context, _ emptyParams) (string, error) {
				return mcp.CallTool(ctx, "clear-cart", map[string]any{})
			},
		),
		agents.NewFunctionTool(
			"place_order",
			"Place an order for everything in the cart. Only call this after the customer has confirmed the cart contents.",
			func(ctx context.Context, _ emptyParams) (string, error) {
				return mcp.CallTool(ctx, "place-order", map[string]any{})
			},
		),
	}
}

func optional(s string) any {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return s
}

func optionalPrice(p int64) any {
	if p <= 0 {
		return nil
	}
	return p
}
