// Package notify tells a shop operator about placed orders.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/worldofchami/medusa-mcp/pkg/pricing"
)

// Order describes a placed order.
type Order struct {
	Reference string
	Email     string
	Lines     []Line
	// Currency of the cart the order was placed from.
	CurrencyCode string
}

type Line struct {
	Title    string
	Quantity int
	// Price per unit in minor units, nil when unknown.
	Price *int64
}

// Notifier delivers order notifications. Callers log failures and never fail
// the order because of them.
type Notifier interface {
	OrderPlaced(ctx context.Context, order Order) error
}

// Nop discards notifications.
type Nop struct{}

func (Nop) OrderPlaced(context.Context, Order) error { return nil }

// Log writes notifications to a logger. Used when no messaging provider is
// configured.
type Log struct {
	Log *logrus.Entry
}

func (l Log) OrderPlaced(_ context.Context, order Order) error {
	l.Log.WithFields(logrus.Fields{
		"order": order.Reference,
		"email": order.Email,
		"lines": len(order.Lines),
	}).Info("order placed")
	return nil
}

// Message renders the notification text for order.
func Message(order Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New order %s", order.Reference)
	if order.Email != "" {
		fmt.Fprintf(&b, " from %s", order.Email)
	}
	b.WriteString("\n")

	var total int64
	known := false
	for _, l := range order.Lines {
		fmt.Fprintf(&b, "- %dx %s\n", l.Quantity, l.Title)
		if l.Price != nil {
			total += *l.Price * int64(l.Quantity)
			known = true
		}
	}
	if known {
		fmt.Fprintf(&b, "Total: %s", pricing.Format(&total, order.CurrencyCode))
	}
	return strings.TrimRight(b.String(), "\n")
}
