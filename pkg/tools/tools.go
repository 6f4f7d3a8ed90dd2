package tools

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/worldofchami/medusa-mcp/pkg/cart"
	"github.com/worldofchami/medusa-mcp/pkg/models"
	"github.com/worldofchami/medusa-mcp/pkg/notify"
	"github.com/worldofchami/medusa-mcp/pkg/platforms/medusa"
)

// Catalog is the store backend the tools read products from and place
// orders with. *medusa.Client implements it.
type Catalog interface {
	SearchProducts(ctx context.Context, query string, limit int) ([]models.ProductSummary, error)
	GetProduct(ctx context.Context, id string) (*models.ProductDetail, error)
	PlaceOrder(ctx context.Context, email string, lines []medusa.OrderLine) (*medusa.OrderConfirmation, error)
}

type Deps struct {
	Catalog Catalog
	// Carts holds one cart per scope. The scope of a call is read from its
	// context, see cart.ScopeFrom.
	Carts cart.Backend
	// OrderEmail is the contact address orders are placed under.
	OrderEmail string
	Notifier   notify.Notifier
	Log        *logrus.Entry
}

// All returns every tool in tools/list order.
func All(d Deps) []Tool {
	if d.Notifier == nil {
		d.Notifier = notify.Nop{}
	}
	if d.Log == nil {
		d.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	d.Log = d.Log.WithField("component", "tools")

	return []Tool{
		SearchProducts(d),
		GetProductDetails(d),
		AddToCart(d),
		ViewCart(d),
		UpdateCartItem(d),
		RemoveCartItem(d),
		ClearCart(d),
		PlaceOrder(d),
	}
}

// Find returns the tool called name.
func Find(tools []Tool, name string) (*Tool, bool) {
	for i := range tools {
		if tools[i].Name == name {
			return &tools[i], true
		}
	}
	return nil, false
}

// errorMessage is the part of err worth showing to a shopper: the Medusa
// error when there is one, otherwise the whole chain.
func errorMessage(err error) string {
	var apiErr *medusa.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	return err.Error()
}
