package medusa

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/worldofchami/medusa-mcp/pkg/models"
)

// defaultIncompleteReason explains a completion that produced no order and
// no error text.
const defaultIncompleteReason = "The store may require payment setup."

// OrderLine is one cart line submitted for ordering. Lines without a variant
// id cannot be ordered and are skipped.
type OrderLine struct {
	VariantID *string `json:"variantId"`
	Quantity  int     `json:"quantity"`
	Title     string  `json:"title"`
}

type OrderConfirmation struct {
	OrderID   string `json:"orderId"`
	DisplayID *int64 `json:"displayId,omitempty"`
	Email     string `json:"email"`
}

// Reference is the order number shown to shoppers: "#<display id>" when the
// store assigned one, otherwise the order id.
func (o OrderConfirmation) Reference() string {
	if o.DisplayID != nil && *o.DisplayID != 0 {
		return fmt.Sprintf("#%d", *o.DisplayID)
	}
	return o.OrderID
}

// IncompleteError means the backend cart was created but completing it did
// not produce an order.
type IncompleteError struct {
	CartID string
	Reason string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("Cart was created but could not be completed. %s", e.Reason)
}

// PlaceOrder creates a backend cart in the default region, adds each line in
// order and completes the cart.
func (c *Client) PlaceOrder(ctx context.Context, email string, lines []OrderLine) (*OrderConfirmation, error) {
	valid := make([]OrderLine, 0, len(lines))
	for _, l := range lines {
		if l.VariantID != nil && *l.VariantID != "" {
			valid = append(valid, l)
		}
	}
	if len(valid) == 0 {
		return nil, ErrNoVariants
	}

	region := c.Regions.Get(ctx)
	if !region.Resolved() {
		return nil, ErrNoRegion
	}

	var created models.MedusaCartResponse
	if _, err := c.post(ctx, "/store/carts", map[string]any{
		"region_id": region.ID,
		"email":     email,
	}, &created); err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}
	cartID := created.Cart.ID
	log := c.log.WithField("cart_id", cartID)

	for _, l := range valid {
		if _, err := c.post(ctx, fmt.Sprintf("/store/carts/%s/line-items", cartID), map[string]any{
			"variant_id": *l.VariantID,
			"quantity":   l.Quantity,
		}, nil); err != nil {
			return nil, fmt.Errorf("failed to add %q to cart: %w", l.Title, err)
		}
	}

	body, err := c.post(ctx, fmt.Sprintf("/store/carts/%s/complete", cartID), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to complete cart: %w", err)
	}

	result := gjson.ParseBytes(body)
	order := result.Get("order")
	if result.Get("type").String() == "order" && order.IsObject() {
		confirmation := &OrderConfirmation{
			OrderID: order.Get("id").String(),
			Email:   email,
		}
		if display := order.Get("display_id"); display.Exists() && display.Type == gjson.Number {
			id := display.Int()
			confirmation.DisplayID = &id
		}
		log.WithFields(logrus.Fields{
			"order_id": confirmation.OrderID,
			"lines":    len(valid),
		}).Info("order placed")
		return confirmation, nil
	}

	reason := defaultIncompleteReason
	switch e := result.Get("error"); {
	case e.Type == gjson.String && e.Str != "":
		reason = e.Str
	case e.IsObject() && e.Get("message").String() != "":
		reason = e.Get("message").String()
	}
	log.WithField("reason", reason).Warn("cart completion returned no order")
	return nil, &IncompleteError{CartID: cartID, Reason: reason}
}
