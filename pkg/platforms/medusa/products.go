package medusa

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/worldofchami/medusa-mcp/pkg/models"
)

const (
	DefaultSearchLimit = 20

	searchFields = "*variants.calculated_price,+variants.inventory_quantity"
	detailFields = searchFields + ",+metadata,+tags"
)

// SearchProducts lists products matching query (all products when empty),
// priced in the store's default region.
func (c *Client) SearchProducts(ctx context.Context, query string, limit int) ([]models.ProductSummary, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	region := c.Regions.Get(ctx)

	params := url.Values{}
	if q := strings.TrimSpace(query); q != "" {
		params.Set("q", q)
	}
	params.Set("limit", strconv.Itoa(limit))
	if region.Resolved() {
		params.Set("region_id", region.ID)
	}
	params.Set("fields", searchFields)

	var list models.MedusaProductList
	if err := c.get(ctx, "/store/products", params, &list); err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}

	results := make([]models.ProductSummary, 0, len(list.Products))
	for i := range list.Products {
		results = append(results, list.Products[i].Summary(region.CurrencyCode))
	}
	return results, nil
}

// GetProduct fetches a single product. It returns ErrNotFound when the store
// does not list a product with that id.
func (c *Client) GetProduct(ctx context.Context, id string) (*models.ProductDetail, error) {
	region := c.Regions.Get(ctx)

	params := url.Values{}
	params.Set("id", id)
	if region.Resolved() {
		params.Set("region_id", region.ID)
	}
	params.Set("fields", detailFields)

	var list models.MedusaProductList
	if err := c.get(ctx, "/store/products", params, &list); err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to retrieve product %s: %w", id, err)
	}
	if len(list.Products) == 0 {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}

	detail := list.Products[0].Detail(region.CurrencyCode)
	return &detail, nil
}
