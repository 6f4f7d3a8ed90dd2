package models

import "github.com/shopspring/decimal"

// ProductSummary is one entry of the product search widget.
type ProductSummary struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Handle      *string `json:"handle"`
	Thumbnail   *string `json:"thumbnail"`
	Description *string `json:"description"`
	// Price of the cheapest variant in minor units.
	Price             *int64  `json:"price"`
	CurrencyCode      string  `json:"currency_code"`
	Collection        *string `json:"collection"`
	VariantsCount     int     `json:"variants_count"`
	InventoryQuantity int     `json:"inventory_quantity"`
	DefaultVariantID  *string `json:"default_variant_id"`
}

// ProductDetail is the props of the product detail widget.
type ProductDetail struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Handle      *string         `json:"handle"`
	Description *string         `json:"description"`
	Thumbnail   *string         `json:"thumbnail"`
	Images      []string        `json:"images"`
	Options     []ProductOption `json:"options"`
	Variants    []VariantView   `json:"variants"`
	Collection  *string         `json:"collection"`
	Tags        []string        `json:"tags"`
}

type ProductOption struct {
	Title  string   `json:"title"`
	Values []string `json:"values"`
}

type VariantView struct {
	ID                string      `json:"id"`
	Title             string      `json:"title"`
	SKU               *string     `json:"sku"`
	InventoryQuantity int         `json:"inventory_quantity"`
	Prices            []PriceView `json:"prices"`
}

type PriceView struct {
	Amount       int64  `json:"amount"`
	CurrencyCode string `json:"currency_code"`
}

// SearchResultProps is the props of the product search widget.
type SearchResultProps struct {
	Query   string           `json:"query"`
	Results []ProductSummary `json:"results"`
}

// Stock levels shown next to inventory counts.
const (
	StockHigh = "high"
	StockLow  = "low"
	StockOut  = "out"
)

// StockLevel buckets an inventory quantity: more than 50 is high, any
// positive quantity is low.
func StockLevel(quantity int) string {
	switch {
	case quantity > 50:
		return StockHigh
	case quantity > 0:
		return StockLow
	default:
		return StockOut
	}
}

// LowestPrice picks the cheapest price across the product's variants.
// A variant with a calculated price never falls back to its legacy prices.
// fallbackCurrency is used when the winning price carries no currency.
func (p *MedusaProduct) LowestPrice(fallbackCurrency string) (*int64, string) {
	var lowest *decimal.Decimal
	currency := fallbackCurrency

	for _, v := range p.Variants {
		switch v.Price.Kind {
		case PriceCalculated, PriceFlat:
			if v.Price.Amount != nil && (lowest == nil || v.Price.Amount.LessThan(*lowest)) {
				lowest = v.Price.Amount
				currency = orDefault(v.Price.CurrencyCode, fallbackCurrency)
			}
		case PriceLegacy:
			for _, price := range v.Price.Prices {
				if lowest == nil || price.Amount.LessThan(*lowest) {
					amount := price.Amount
					lowest = &amount
					currency = fallbackCurrency
					if price.CurrencyCode != nil {
						currency = *price.CurrencyCode
					}
				}
			}
		}
	}

	if lowest == nil {
		return nil, currency
	}
	minor := MinorUnits(*lowest)
	return &minor, currency
}

// Summary reshapes the product for the search widget.
func (p *MedusaProduct) Summary(fallbackCurrency string) ProductSummary {
	price, currency := p.LowestPrice(fallbackCurrency)

	inventory := 0
	for _, v := range p.Variants {
		if v.InventoryQuantity != nil {
			inventory += *v.InventoryQuantity
		}
	}

	var defaultVariant *string
	if len(p.Variants) > 0 {
		id := p.Variants[0].ID
		defaultVariant = &id
	}

	return ProductSummary{
		ID:                p.ID,
		Title:             p.Title,
		Handle:            p.Handle,
		Thumbnail:         p.thumbnail(),
		Description:       p.Description,
		Price:             price,
		CurrencyCode:      currency,
		Collection:        p.collectionTitle(),
		VariantsCount:     len(p.Variants),
		InventoryQuantity: inventory,
		DefaultVariantID:  defaultVariant,
	}
}

// Detail reshapes the product for the product detail widget.
func (p *MedusaProduct) Detail(fallbackCurrency string) ProductDetail {
	images := make([]string, 0, len(p.Images))
	for _, img := range p.Images {
		images = append(images, img.URL)
	}

	options := make([]ProductOption, 0, len(p.Options))
	for _, opt := range p.Options {
		values := make([]string, 0, len(opt.Values))
		for _, v := range opt.Values {
			values = append(values, v.Value)
		}
		options = append(options, ProductOption{Title: opt.Title, Values: values})
	}

	variants := make([]VariantView, 0, len(p.Variants))
	for _, v := range p.Variants {
		inventory := 0
		if v.InventoryQuantity != nil {
			inventory = *v.InventoryQuantity
		}
		variants = append(variants, VariantView{
			ID:                v.ID,
			Title:             v.Title,
			SKU:               v.SKU,
			InventoryQuantity: inventory,
			Prices:            v.Price.views(fallbackCurrency),
		})
	}

	tags := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		tags = append(tags, t.Value)
	}

	return ProductDetail{
		ID:          p.ID,
		Title:       p.Title,
		Handle:      p.Handle,
		Description: p.Description,
		Thumbnail:   p.thumbnail(),
		Images:      images,
		Options:     options,
		Variants:    variants,
		Collection:  p.collectionTitle(),
		Tags:        tags,
	}
}

// views lists the prices shown for a variant: the calculated price when it
// has an amount, otherwise the legacy prices.
func (vp VariantPrice) views(fallbackCurrency string) []PriceView {
	if (vp.Kind == PriceCalculated || vp.Kind == PriceFlat) && vp.Amount != nil {
		return []PriceView{{
			Amount:       MinorUnits(*vp.Amount),
			CurrencyCode: orDefault(vp.CurrencyCode, fallbackCurrency),
		}}
	}
	out := make([]PriceView, 0, len(vp.Prices))
	for _, price := range vp.Prices {
		code := fallbackCurrency
		if price.CurrencyCode != nil {
			code = *price.CurrencyCode
		}
		out = append(out, PriceView{Amount: MinorUnits(price.Amount), CurrencyCode: code})
	}
	return out
}

func (p *MedusaProduct) thumbnail() *string {
	if p.Thumbnail != nil {
		return p.Thumbnail
	}
	if len(p.Images) > 0 {
		url := p.Images[0].URL
		return &url
	}
	return nil
}

func (p *MedusaProduct) collectionTitle() *string {
	if p.Collection == nil {
		return nil
	}
	return p.Collection.Title
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
