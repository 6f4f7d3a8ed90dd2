package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/worldofchami/medusa-mcp/pkg/cart"
	"github.com/worldofchami/medusa-mcp/pkg/models"
	"github.com/worldofchami/medusa-mcp/pkg/pricing"
)

// CartProps is the props of the cart widget.
type CartProps struct {
	Items        []cart.LineItem `json:"items"`
	CurrencyCode string          `json:"currencyCode"`
}

func cartProps(items []cart.LineItem, currency string) CartProps {
	if currency == "" {
		currency = cart.CurrencyCode(items)
	}
	return CartProps{Items: items, CurrencyCode: cart.NormalizeCurrency(currency)}
}

// withCart runs fn against an aggregate of the scope's cart. Writes made
// through it reach every open widget of that scope.
func withCart(ctx context.Context, d Deps, opts cart.Options, fn func(*cart.Aggregate) models.ToolResult) models.ToolResult {
	agg := cart.NewAggregate(ctx, d.Carts.Store(cart.ScopeFrom(ctx)), opts)
	defer agg.Close()
	return fn(agg)
}

type addToCartParams struct {
	ProductID    string  `json:"productId" jsonschema_description:"Product ID"`
	VariantID    *string `json:"variantId" jsonschema:"nullable" jsonschema_description:"Variant ID"`
	Title        string  `json:"title" jsonschema_description:"Product title"`
	VariantTitle *string `json:"variantTitle" jsonschema:"nullable" jsonschema_description:"Variant title (e.g. size/color)"`
	Thumbnail    *string `json:"thumbnail,omitempty" jsonschema:"nullable" jsonschema_description:"Thumbnail image URL"`
	Quantity     int     `json:"quantity" jsonschema:"minimum=1" jsonschema_description:"Quantity to add"`
	Price        *int64  `json:"price" jsonschema:"nullable" jsonschema_description:"Price per unit in cents"`
	CurrencyCode string  `json:"currencyCode" jsonschema_description:"Currency code (e.g. usd)"`
}

func AddToCart(d Deps) Tool {
	return newTool("add-to-cart",
		"Add a product to the shopping cart. Called when the user clicks 'Add to Cart' on a product.",
		func(ctx context.Context, p addToCartParams) (models.ToolResult, error) {
			return withCart(ctx, d, cart.Options{}, func(agg *cart.Aggregate) models.ToolResult {
				agg.AddItem(ctx, cart.ItemInput{
					ProductID:    p.ProductID,
					VariantID:    p.VariantID,
					Title:        p.Title,
					VariantTitle: p.VariantTitle,
					Thumbnail:    p.Thumbnail,
					Quantity:     p.Quantity,
					Price:        p.Price,
					CurrencyCode: p.CurrencyCode,
				})

				text := fmt.Sprintf("Added %dx %s to the cart.", p.Quantity, describe(p.Title, p.VariantTitle))
				if p.Price != nil {
					text += " Price: " + pricing.Format(p.Price, p.CurrencyCode)
				}
				r := models.Text(text)
				r.StructuredContent = cartProps(agg.Items(), "")
				return r
			}), nil
		})
}

type viewCartParams struct {
	Items        []cart.LineItem `json:"items,omitempty" jsonschema_description:"Cart items to display"`
	CurrencyCode string          `json:"currencyCode,omitempty" jsonschema_description:"Cart currency code (defaults to first item's currency or usd)"`
}

func ViewCart(d Deps) Tool {
	return newTool("view-cart",
		"Display the shopping cart with all items, quantities, totals and options to continue shopping or modify the cart",
		func(ctx context.Context, p viewCartParams) (models.ToolResult, error) {
			return withCart(ctx, d, cart.Options{Initial: p.Items}, func(agg *cart.Aggregate) models.ToolResult {
				if len(p.Items) > 0 {
					agg.Persist(ctx)
				}
				props := cartProps(agg.Items(), p.CurrencyCode)
				return cartWidget.render(CartSummary(props.Items, props.CurrencyCode), props)
			}), nil
		}).ReadOnly().withWidget(cartWidget)
}

type updateCartItemParams struct {
	ID       string `json:"id" jsonschema_description:"Cart line item ID"`
	Quantity int    `json:"quantity" jsonschema_description:"New quantity; zero or less removes the item"`
}

func UpdateCartItem(d Deps) Tool {
	return newTool("update-cart-item",
		"Change the quantity of an item in the shopping cart",
		func(ctx context.Context, p updateCartItemParams) (models.ToolResult, error) {
			return withCart(ctx, d, cart.Options{}, func(agg *cart.Aggregate) models.ToolResult {
				item, ok := findLine(agg.Items(), p.ID)
				if !ok {
					return models.ErrorText(fmt.Sprintf("Cart item %s not found", p.ID))
				}
				agg.UpdateQuantity(ctx, p.ID, p.Quantity)

				text := fmt.Sprintf("Updated %s to quantity %d.", describe(item.Title, item.VariantTitle), p.Quantity)
				if p.Quantity <= 0 {
					text = fmt.Sprintf("Removed %s from the cart.", describe(item.Title, item.VariantTitle))
				}
				r := models.Text(text)
				r.StructuredContent = cartProps(agg.Items(), "")
				return r
			}), nil
		})
}

type removeCartItemParams struct {
	ID string `json:"id" jsonschema_description:"Cart line item ID"`
}

func RemoveCartItem(d Deps) Tool {
	return newTool("remove-cart-item",
		"Remove an item from the shopping cart",
		func(ctx context.Context, p removeCartItemParams) (models.ToolResult, error) {
			return withCart(ctx, d, cart.Options{}, func(agg *cart.Aggregate) models.ToolResult {
				item, ok := findLine(agg.Items(), p.ID)
				if !ok {
					return models.ErrorText(fmt.Sprintf("Cart item %s not found", p.ID))
				}
				agg.RemoveItem(ctx, p.ID)

				r := models.Text(fmt.Sprintf("Removed %s from the cart.", describe(item.Title, item.VariantTitle)))
				r.StructuredContent = cartProps(agg.Items(), "")
				return r
			}), nil
		})
}

type clearCartParams struct{}

func ClearCart(d Deps) Tool {
	return newTool("clear-cart",
		"Remove every item from the shopping cart",
		func(ctx context.Context, _ clearCartParams) (models.ToolResult, error) {
			return withCart(ctx, d, cart.Options{}, func(agg *cart.Aggregate) models.ToolResult {
				agg.ClearCart(ctx)
				r := models.Text("Your shopping cart has been cleared")
				r.StructuredContent = cartProps(agg.Items(), "")
				return r
			}), nil
		})
}

// CartSummary renders a cart as plain text for the assistant to read.
func CartSummary(items []cart.LineItem, currency string) string {
	total := cart.TotalItems(items)
	if total == 0 {
		return "Your shopping cart is empty"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Shopping cart (%d %s):\n", total, plural(total, "item"))
	for _, i := range items {
		fmt.Fprintf(&b, "- %dx %s: %s\n", i.Quantity, describe(i.Title, i.VariantTitle),
			pricing.FormatTotal(i.Price, i.Quantity, i.CurrencyCode))
	}
	subtotal := cart.Subtotal(items)
	fmt.Fprintf(&b, "Total: %s", pricing.Format(&subtotal, currency))
	return b.String()
}

// describe quotes a title and appends the variant title in parentheses.
func describe(title string, variant *string) string {
	s := `"` + title + `"`
	if variant != nil && *variant != "" {
		s += " (" + *variant + ")"
	}
	return s
}

func findLine(items []cart.LineItem, id string) (cart.LineItem, bool) {
	for _, i := range items {
		if i.ID == id {
			return i, true
		}
	}
	return cart.LineItem{}, false
}
