package tools

import (
	"context"
	"fmt"
)

// CompetitorRate names an interest rate a competitor charges for the same
// loan product, loaded from configuration so the comparison stays current
// without a code change.
type CompetitorRate struct {
	Name              string
	AnnualRatePercent float64
}

// SavingsConfig supplies the house rate and the competitor table the
// SavingsCalculator tool compares against.
type SavingsConfig struct {
	HouseAnnualRatePercent float64
	Competitors            []CompetitorRate
}

// NewSavingsCalculatorHandler builds the SavingsCalculator tool: given the
// customer's outstanding loan amount, their current annual rate, and the
// remaining term in months, it computes simple interest under the
// customer's current rate and under the house rate, and returns what
// switching would save. It also reports the same comparison against each
// configured competitor, so a rep can show the full market picture.
func NewSavingsCalculatorHandler(cfg SavingsConfig) Handler {
	return func(ctx context.Context, args map[string]any) (Result, error) {
		outstanding, _ := args["outstanding_amount"].(float64)
		currentRate, _ := args["current_annual_rate"].(float64)
		months, _ := args["months"].(float64)

		if outstanding <= 0 {
			return Result{}, fmt.Errorf("outstanding_amount must be positive")
		}
		if currentRate <= 0 {
			return Result{}, fmt.Errorf("current_annual_rate must be positive")
		}
		if months <= 0 {
			return Result{}, fmt.Errorf("months must be positive")
		}

		years := months / 12.0
		currentInterest := outstanding * (currentRate / 100) * years
		houseInterest := outstanding * (cfg.HouseAnnualRatePercent / 100) * years
		termSavings := currentInterest - houseInterest
		annualSavings := termSavings / years
		monthlySavings := annualSavings / 12.0

		comparisons := make([]map[string]any, 0, len(cfg.Competitors))
		for _, c := range cfg.Competitors {
			competitorInterest := outstanding * (c.AnnualRatePercent / 100) * years
			comparisons = append(comparisons, map[string]any{
				"competitor":          c.Name,
				"competitor_interest": competitorInterest,
				"savings":             competitorInterest - houseInterest,
			})
		}

		return Result{Content: []Content{{
			Type: ContentJSON,
			JSON: map[string]any{
				"current_rate_percent": currentRate,
				"house_rate_percent":   cfg.HouseAnnualRatePercent,
				"current_interest":     currentInterest,
				"house_interest":       houseInterest,
				"monthly_savings":      monthlySavings,
				"annual_savings":       annualSavings,
				"term_savings":         termSavings,
				"comparisons":          comparisons,
			},
		}}}, nil
	}
}
