package seed

import (
	"context"
	"fmt"

	"labcommerce/internal/domain"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type itemWriter interface {
	Upsert(ctx context.Context, item domain.CatalogItem) (*domain.CatalogItem, error)
}

type itemSeed struct {
	Code        string
	Name        string
	Description string
	Price       string
	Category    string
}

// DefaultPanel is the lab-test catalog loaded for local and demo environments.
var DefaultPanel = []itemSeed{
	{Code: "ABO-RH", Name: "ABO Group & RH Type", Description: "Determines blood group and Rh factor", Price: "37.99", Category: "blood"},
	{Code: "CBC", Name: "Complete Blood Count", Description: "Red and white cells, hemoglobin and platelets", Price: "29.00", Category: "blood"},
	{Code: "HBA1C", Name: "Hemoglobin A1C", Description: "Average blood sugar over the past three months", Price: "15.00", Category: "diabetes"},
	{Code: "GLU-F", Name: "Fasting Glucose", Description: "Blood sugar after an overnight fast", Price: "12.50", Category: "diabetes"},
	{Code: "LIPID", Name: "Lipid Panel", Description: "Total cholesterol, HDL, LDL and triglycerides", Price: "24.99", Category: "heart"},
	{Code: "TSH", Name: "Thyroid Stimulating Hormone", Description: "Screens thyroid function", Price: "32.00", Category: "hormones"},
	{Code: "VITD", Name: "Vitamin D, 25-Hydroxy", Description: "Vitamin D level", Price: "45.00", Category: "vitamins"},
	{Code: "CMP", Name: "Comprehensive Metabolic Panel", Description: "Kidney and liver function, electrolytes", Price: "34.99", Category: "metabolic"},
}

// Apply upserts the default panel. It is idempotent: items are matched by code.
func Apply(ctx context.Context, items itemWriter, logger zerolog.Logger) error {
	for _, s := range DefaultPanel {
		price, err := decimal.NewFromString(s.Price)
		if err != nil {
			return fmt.Errorf("seed item %s: %w", s.Code, err)
		}
		it := domain.CatalogItem{
			Code:        s.Code,
			Name:        s.Name,
			Description: s.Description,
			Price:       price,
			Category:    s.Category,
		}
		if _, err := items.Upsert(ctx, it); err != nil {
			return fmt.Errorf("upsert item %s: %w", s.Code, err)
		}
	}
	logger.Info().Int("items", len(DefaultPanel)).Msg("catalog seeded")
	return nil
}
