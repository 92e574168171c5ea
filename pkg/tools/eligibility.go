package tools

import (
	"context"
	"fmt"
)

// LTVTier is one loan-to-value bracket. Gold loans price the advance as a
// percentage of the ornament's appraised value, with the percentage
// shrinking as the loan amount grows.
type LTVTier struct {
	MaxLoanAmount float64 // tier applies up to this loan amount; 0 means unbounded
	MaxLTV        float64
}

// EligibilityConfig is the configuration-driven input to EligibilityCheck:
// the gold price and the bank's tiered LTV caps. Nothing here is
// hard-coded in the handler; it is supplied at registration time.
type EligibilityConfig struct {
	PricePerGram float64
	Tiers        []LTVTier // evaluated in order; first matching tier wins
}

// DefaultTiers returns the standard three-tier cap structure: 0.85 for
// small loans, 0.80 for mid-size, 0.75 above that.
func DefaultTiers() []LTVTier {
	return []LTVTier{
		{MaxLoanAmount: 100000, MaxLTV: 0.85},
		{MaxLoanAmount: 500000, MaxLTV: 0.80},
		{MaxLoanAmount: 0, MaxLTV: 0.75},
	}
}

func tierFor(tiers []LTVTier, requestedAmount float64) LTVTier {
	for _, t := range tiers {
		if t.MaxLoanAmount == 0 || requestedAmount <= t.MaxLoanAmount {
			return t
		}
	}
	return tiers[len(tiers)-1]
}

// NewEligibilityCheckHandler builds the EligibilityCheck tool: given gold
// weight (grams), purity (karat), and a requested loan amount, returns the
// maximum eligible loan and whether the request fits under the applicable
// tier's LTV cap.
func NewEligibilityCheckHandler(cfg EligibilityConfig) Handler {
	return func(ctx context.Context, args map[string]any) (Result, error) {
		grams, _ := args["gold_weight_grams"].(float64)
		karat, _ := args["purity_karat"].(float64)
		requested, _ := args["requested_amount"].(float64)

		if grams <= 0 {
			return Result{}, fmt.Errorf("gold_weight_grams must be positive")
		}
		if karat <= 0 || karat > 24 {
			return Result{}, fmt.Errorf("purity_karat must be in (0, 24]")
		}

		purityFactor := karat / 24.0
		appraisedValue := grams * purityFactor * cfg.PricePerGram

		tier := tierFor(cfg.Tiers, requested)
		maxEligible := appraisedValue * tier.MaxLTV

		approved := requested <= maxEligible

		return Result{Content: []Content{{
			Type: ContentJSON,
			JSON: map[string]any{
				"appraised_value":    appraisedValue,
				"applicable_ltv":     tier.MaxLTV,
				"max_eligible_amount": maxEligible,
				"requested_amount":   requested,
				"approved":           approved,
			},
		}}}, nil
	}
}
