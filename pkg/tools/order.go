package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/worldofchami/medusa-mcp/pkg/cart"
	"github.com/worldofchami/medusa-mcp/pkg/models"
	"github.com/worldofchami/medusa-mcp/pkg/notify"
	"github.com/worldofchami/medusa-mcp/pkg/platforms/medusa"
)

type orderItem struct {
	VariantID *string `json:"variantId" jsonschema:"nullable" jsonschema_description:"Medusa variant ID"`
	Quantity  int     `json:"quantity" jsonschema:"minimum=1" jsonschema_description:"Quantity"`
	Title     string  `json:"title" jsonschema_description:"Product title (for display)"`
}

type placeOrderParams struct {
	Items []orderItem `json:"items,omitempty" jsonschema_description:"Cart items to order (defaults to the current cart)"`
}

func PlaceOrder(d Deps) Tool {
	return newTool("place-order",
		"Place an order by creating a Medusa cart, adding line items, and completing it. Called when the user clicks 'Place Order' in the cart.",
		func(ctx context.Context, p placeOrderParams) (models.ToolResult, error) {
			return withCart(ctx, d, cart.Options{}, func(agg *cart.Aggregate) models.ToolResult {
				return placeOrder(ctx, d, agg, p.Items)
			}), nil
		})
}

func placeOrder(ctx context.Context, d Deps, agg *cart.Aggregate, items []orderItem) models.ToolResult {
	stored := agg.Items()

	var (
		lines    []medusa.OrderLine
		notified []notify.Line
		currency string
	)
	if len(items) > 0 {
		for _, i := range items {
			lines = append(lines, medusa.OrderLine{VariantID: i.VariantID, Quantity: i.Quantity, Title: i.Title})
			line := notify.Line{Title: i.Title, Quantity: i.Quantity}
			if match, ok := lineFor(stored, i.VariantID); ok {
				line.Price = match.Price
				if currency == "" {
					currency = match.CurrencyCode
				}
			}
			notified = append(notified, line)
		}
	} else {
		for _, i := range stored {
			lines = append(lines, medusa.OrderLine{VariantID: i.VariantID, Quantity: i.Quantity, Title: i.Title})
			notified = append(notified, notify.Line{Title: i.Title, Quantity: i.Quantity, Price: i.Price})
		}
		currency = cart.CurrencyCode(stored)
	}
	if currency == "" {
		currency = cart.DefaultCurrency
	}

	log := d.Log.WithFields(logrus.Fields{"tool": "place-order", "scope": cart.ScopeFrom(ctx)})
	confirmation, err := d.Catalog.PlaceOrder(ctx, d.OrderEmail, lines)
	if err != nil {
		log.WithError(err).Warn("place order failed")
		return models.ErrorText(orderFailure(err))
	}

	// The order now owns these items.
	agg.ClearCart(ctx)

	notice := notify.Order{
		Reference:    confirmation.Reference(),
		Email:        confirmation.Email,
		Lines:        notified,
		CurrencyCode: currency,
	}
	if err := d.Notifier.OrderPlaced(ctx, notice); err != nil {
		log.WithError(err).Warn("order notification failed")
	}

	r := models.Text(fmt.Sprintf("Order placed successfully! Order %s. A confirmation will be sent to %s.",
		confirmation.Reference(), confirmation.Email))
	r.StructuredContent = confirmation
	return r
}

func orderFailure(err error) string {
	var incomplete *medusa.IncompleteError
	switch {
	case errors.Is(err, medusa.ErrNoVariants):
		return "No items with valid variant IDs. Cannot create an order without product variants."
	case errors.Is(err, medusa.ErrNoRegion):
		return "Could not determine store region. Check Medusa configuration."
	case errors.As(err, &incomplete):
		return incomplete.Error()
	default:
		return "Failed to place order: " + errorMessage(err)
	}
}

// lineFor finds the cart line holding a variant.
func lineFor(items []cart.LineItem, variantID *string) (cart.LineItem, bool) {
	if variantID == nil {
		return cart.LineItem{}, false
	}
	for _, i := range items {
		if i.VariantID != nil && *i.VariantID == *variantID {
			return i, true
		}
	}
	return cart.LineItem{}, false
}
