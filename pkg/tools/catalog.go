package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/worldofchami/medusa-mcp/pkg/models"
	"github.com/worldofchami/medusa-mcp/pkg/platforms/medusa"
)

type searchParams struct {
	Query *string `json:"query,omitempty" jsonschema_description:"Search query to filter products"`
	Limit int     `json:"limit,omitempty" jsonschema:"minimum=1,maximum=100" jsonschema_description:"Maximum number of products to return (default 20)"`
}

func SearchProducts(d Deps) Tool {
	return newTool("search-products",
		"Search for products in the Medusa store and display results in a visual widget",
		func(ctx context.Context, p searchParams) (models.ToolResult, error) {
			query := ""
			if p.Query != nil {
				query = *p.Query
			}

			results, err := d.Catalog.SearchProducts(ctx, query, p.Limit)
			if err != nil {
				d.Log.WithError(err).Warn("search products failed")
				return models.ErrorText(fmt.Sprintf(
					"Failed to fetch products from Medusa: %s. Make sure MEDUSA_BACKEND_URL is set correctly.",
					errorMessage(err))), nil
			}

			shown := "all"
			if p.Query != nil {
				shown = *p.Query
			}
			text := fmt.Sprintf("Found %d %s matching \"%s\"", len(results), plural(len(results), "product"), shown)
			return searchWidget.render(text, models.SearchResultProps{Query: query, Results: results}), nil
		}).ReadOnly().withWidget(searchWidget)
}

type productParams struct {
	ProductID string `json:"product_id" jsonschema_description:"The Medusa product ID (e.g. prod_01...)"`
}

func GetProductDetails(d Deps) Tool {
	return newTool("get-product-details",
		"Get detailed information about a specific product by its ID",
		func(ctx context.Context, p productParams) (models.ToolResult, error) {
			product, err := d.Catalog.GetProduct(ctx, p.ProductID)
			if errors.Is(err, medusa.ErrNotFound) {
				return models.ErrorText(fmt.Sprintf("Product %s not found", p.ProductID)), nil
			}
			if err != nil {
				d.Log.WithError(err).WithField("product_id", p.ProductID).Warn("retrieve product failed")
				return models.ErrorText(fmt.Sprintf("Failed to retrieve product %s: %s", p.ProductID, errorMessage(err))), nil
			}

			text := "Product: " + product.Title
			if product.Collection != nil && *product.Collection != "" {
				text += fmt.Sprintf(" (%s)", *product.Collection)
			}
			text += fmt.Sprintf(" - %d variant(s)", len(product.Variants))
			return detailWidget.render(text, product), nil
		}).ReadOnly().withWidget(detailWidget)
}

func plural(n int, noun string) string {
	if n == 1 {
		return noun
	}
	return noun + "s"
}
