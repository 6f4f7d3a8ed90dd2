// Package cart implements the shared shopping cart: a best-effort Store over a
// key-value slot with cross-context change notification, and per-widget
// Aggregates that mutate, derive totals from and reconcile that cart.
package cart

import (
	"encoding/json"
	"strings"
)

// DefaultCurrency is reported by an empty cart.
const DefaultCurrency = "usd"

// LineItem is one purchasable entry in the cart. Title, VariantTitle,
// Thumbnail and Price are snapshots taken when the line was added.
type LineItem struct {
	ID           string  `json:"id" jsonschema_description:"Cart line item ID"`
	ProductID    string  `json:"productId" jsonschema_description:"Product ID"`
	VariantID    *string `json:"variantId" jsonschema:"nullable" jsonschema_description:"Variant ID"`
	Title        string  `json:"title" jsonschema_description:"Product title"`
	VariantTitle *string `json:"variantTitle" jsonschema:"nullable" jsonschema_description:"Variant title"`
	Thumbnail    *string `json:"thumbnail" jsonschema:"nullable" jsonschema_description:"Thumbnail image URL"`
	Quantity     int     `json:"quantity" jsonschema:"minimum=1" jsonschema_description:"Quantity"`
	// Price per unit in minor currency units.
	Price        *int64 `json:"price" jsonschema:"nullable" jsonschema_description:"Price in cents"`
	CurrencyCode string `json:"currencyCode" jsonschema_description:"Currency code"`
}

// ItemInput is a LineItem that has not been assigned an id yet.
type ItemInput struct {
	ProductID    string  `json:"productId"`
	VariantID    *string `json:"variantId"`
	Title        string  `json:"title"`
	VariantTitle *string `json:"variantTitle"`
	Thumbnail    *string `json:"thumbnail"`
	Quantity     int     `json:"quantity"`
	Price        *int64  `json:"price"`
	CurrencyCode string  `json:"currencyCode"`
}

func (in ItemInput) withID(id string) LineItem {
	return LineItem{
		ID:           id,
		ProductID:    in.ProductID,
		VariantID:    in.VariantID,
		Title:        in.Title,
		VariantTitle: in.VariantTitle,
		Thumbnail:    in.Thumbnail,
		Quantity:     in.Quantity,
		Price:        in.Price,
		CurrencyCode: NormalizeCurrency(in.CurrencyCode),
	}
}

// lineKey identifies a line by product and variant. An absent variant is
// distinct from every present one, including "".
type lineKey struct {
	productID  string
	variantID  string
	hasVariant bool
}

func (i LineItem) key() lineKey {
	k := lineKey{productID: i.ProductID}
	if i.VariantID != nil {
		k.variantID = *i.VariantID
		k.hasVariant = true
	}
	return k
}

// SameLine reports whether a and b refer to the same product variant.
func SameLine(a, b LineItem) bool {
	return a.key() == b.key()
}

// NormalizeCurrency lower-cases a currency code. Codes are stored lower case
// and upper-cased only for display.
func NormalizeCurrency(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// TotalItems is the sum of line quantities.
func TotalItems(items []LineItem) int {
	total := 0
	for _, i := range items {
		total += i.Quantity
	}
	return total
}

// Subtotal is the sum of price×quantity with unknown prices counted as zero.
func Subtotal(items []LineItem) int64 {
	var total int64
	for _, i := range items {
		if i.Price != nil {
			total += *i.Price * int64(i.Quantity)
		}
	}
	return total
}

// CurrencyCode is the currency of the first line, or DefaultCurrency.
func CurrencyCode(items []LineItem) string {
	if len(items) == 0 || items[0].CurrencyCode == "" {
		return DefaultCurrency
	}
	return items[0].CurrencyCode
}

func cloneItems(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}

// canonical is the serialized form used both for storage and for deciding
// whether two item lists differ.
func canonical(items []LineItem) string {
	if items == nil {
		items = []LineItem{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return ""
	}
	return string(b)
}

// parseItems decodes a stored value. Anything that is not a JSON array of
// line items yields an empty cart.
func parseItems(raw string) []LineItem {
	if strings.TrimSpace(raw) == "" {
		return []LineItem{}
	}
	var items []LineItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil || items == nil {
		return []LineItem{}
	}
	return items
}
