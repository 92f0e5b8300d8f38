// Package dilution derives a dilution risk tier from registration filings.
package dilution

import (
	"github.com/trogers1052/dilution-tracker/internal/models"
)

// Tier thresholds on the remaining-shares fraction of float. Both are
// exclusive lower bounds.
const (
	HighThreshold   = 0.5
	MediumThreshold = 0.2
)

// Assessment is the outcome of Calculate
type Assessment struct {
	Tier      models.RiskTier
	Remaining float64
	Fraction  float64
}

// Calculate sums the shares still available under each registration and
// classifies the overhang against the float. A non-positive float yields
// RiskUnknown with zero remaining and zero fraction.
func Calculate(filings []models.Filing, floatShares float64) Assessment {
	if floatShares <= 0 {
		return Assessment{Tier: models.RiskUnknown}
	}

	var remaining float64
	for _, f := range filings {
		left := f.MaxSharesOffered - f.SharesPreviouslySold
		if left > 0 {
			remaining += left
		}
	}

	fraction := remaining / floatShares
	return Assessment{
		Tier:      tierFor(fraction),
		Remaining: remaining,
		Fraction:  fraction,
	}
}

func tierFor(fraction float64) models.RiskTier {
	switch {
	case fraction > HighThreshold:
		return models.RiskHigh
	case fraction > MediumThreshold:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}
