package models

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// MedusaProduct is a product as returned by the Medusa v2 Store API.
type MedusaProduct struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Handle      *string           `json:"handle"`
	Description *string           `json:"description"`
	Thumbnail   *string           `json:"thumbnail"`
	Images      []MedusaImage     `json:"images"`
	Options     []MedusaOption    `json:"options"`
	Variants    []MedusaVariant   `json:"variants"`
	Collection  *MedusaCollection `json:"collection"`
	Tags        []MedusaTag       `json:"tags"`
}

type MedusaImage struct {
	URL string `json:"url"`
}

type MedusaOption struct {
	Title  string              `json:"title"`
	Values []MedusaOptionValue `json:"values"`
}

type MedusaOptionValue struct {
	Value string `json:"value"`
}

type MedusaCollection struct {
	Title *string `json:"title"`
}

type MedusaTag struct {
	Value string `json:"value"`
}

type MedusaProductList struct {
	Products []MedusaProduct `json:"products"`
	Count    int             `json:"count"`
	Offset   int             `json:"offset"`
	Limit    int             `json:"limit"`
}

type MedusaRegion struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	CurrencyCode *string `json:"currency_code"`
}

type MedusaRegionList struct {
	Regions []MedusaRegion `json:"regions"`
}

type MedusaCart struct {
	ID           string `json:"id"`
	Email        string `json:"email,omitempty"`
	RegionID     string `json:"region_id,omitempty"`
	CurrencyCode string `json:"currency_code,omitempty"`
}

type MedusaCartResponse struct {
	Cart MedusaCart `json:"cart"`
}

type MedusaOrder struct {
	ID        string `json:"id"`
	DisplayID *int64 `json:"display_id"`
	Email     string `json:"email,omitempty"`
}

// MedusaPrice is an entry of the legacy (v1) variant prices array.
type MedusaPrice struct {
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode *string         `json:"currency_code"`
}

// PriceKind tags which response shape a variant's price came from.
type PriceKind int

const (
	// PriceNone: no calculated price and no legacy prices.
	PriceNone PriceKind = iota
	// PriceCalculated: calculated_price object (v2).
	PriceCalculated
	// PriceFlat: calculated_price given as a bare number.
	PriceFlat
	// PriceLegacy: prices array (v1).
	PriceLegacy
)

func (k PriceKind) String() string {
	switch k {
	case PriceCalculated:
		return "calculated"
	case PriceFlat:
		return "flat"
	case PriceLegacy:
		return "legacy"
	default:
		return "none"
	}
}

// VariantPrice is a variant's price decoded once from whichever shape the
// backend sent. Amount is set for PriceCalculated (when the object carried
// calculated_amount or original_amount) and PriceFlat. CurrencyCode is only
// known for PriceCalculated. Prices always holds the legacy array.
type VariantPrice struct {
	Kind         PriceKind
	Amount       *decimal.Decimal
	CurrencyCode string
	Prices       []MedusaPrice
}

// MedusaVariant is a product variant. Its price fields are folded into Price
// on decode.
type MedusaVariant struct {
	ID                string
	Title             string
	SKU               *string
	InventoryQuantity *int
	Price             VariantPrice
}

type medusaVariantWire struct {
	ID                string          `json:"id"`
	Title             string          `json:"title"`
	SKU               *string         `json:"sku"`
	InventoryQuantity *int            `json:"inventory_quantity"`
	CalculatedPrice   json.RawMessage `json:"calculated_price"`
	Prices            []MedusaPrice   `json:"prices"`
}

func (v *MedusaVariant) UnmarshalJSON(b []byte) error {
	var w medusaVariantWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	price, err := decodeVariantPrice(w.CalculatedPrice, w.Prices)
	if err != nil {
		return fmt.Errorf("variant %s: %w", w.ID, err)
	}
	*v = MedusaVariant{
		ID:                w.ID,
		Title:             w.Title,
		SKU:               w.SKU,
		InventoryQuantity: w.InventoryQuantity,
		Price:             price,
	}
	return nil
}

func decodeVariantPrice(calculated json.RawMessage, prices []MedusaPrice) (VariantPrice, error) {
	cp := gjson.ParseBytes(calculated)
	switch {
	case len(calculated) == 0 || cp.Type == gjson.Null:
		if len(prices) == 0 {
			return VariantPrice{Kind: PriceNone}, nil
		}
		return VariantPrice{Kind: PriceLegacy, Prices: prices}, nil

	case cp.IsObject():
		p := VariantPrice{Kind: PriceCalculated, Prices: prices}
		for _, field := range []string{"calculated_amount", "original_amount"} {
			if amount, ok, err := decimalField(cp.Get(field)); err != nil {
				return VariantPrice{}, fmt.Errorf("calculated_price.%s: %w", field, err)
			} else if ok {
				p.Amount = &amount
				break
			}
		}
		if code := cp.Get("currency_code"); code.Type == gjson.String {
			p.CurrencyCode = code.String()
		}
		return p, nil

	default:
		amount, ok, err := decimalField(cp)
		if err != nil || !ok {
			return VariantPrice{}, fmt.Errorf("unsupported calculated_price %s", cp.Raw)
		}
		return VariantPrice{Kind: PriceFlat, Amount: &amount, Prices: prices}, nil
	}
}

func decimalField(r gjson.Result) (decimal.Decimal, bool, error) {
	switch r.Type {
	case gjson.Number:
		d, err := decimal.NewFromString(r.Raw)
		return d, err == nil, err
	case gjson.String:
		d, err := decimal.NewFromString(r.Str)
		return d, err == nil, err
	default:
		return decimal.Decimal{}, false, nil
	}
}

// MinorUnits converts a backend amount to whole minor currency units.
func MinorUnits(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}
