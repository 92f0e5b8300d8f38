package dilution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/trogers1052/dilution-tracker/internal/models"
)

func filing(registered, sold float64) models.Filing {
	return models.Filing{FormType: models.FormS3, MaxSharesOffered: registered, SharesPreviouslySold: sold}
}

func TestCalculate(t *testing.T) {
	t.Run("non-positive float is Unknown regardless of filings", func(t *testing.T) {
		filings := []models.Filing{filing(5_000_000, 0), filing(1_000_000, 10)}
		for _, float := range []float64{0, -1, -1_000_000} {
			got := Calculate(filings, float)
			assert.Equal(t, Assessment{Tier: models.RiskUnknown}, got, "float=%v", float)
		}
	})

	t.Run("no filings is Low", func(t *testing.T) {
		got := Calculate(nil, 10_000_000)
		assert.Equal(t, models.RiskLow, got.Tier)
		assert.Zero(t, got.Remaining)
		assert.Zero(t, got.Fraction)
	})

	t.Run("fully sold registrations contribute nothing", func(t *testing.T) {
		filings := []models.Filing{filing(1_000, 1_000), filing(500, 2_000), filing(0, 0)}
		got := Calculate(filings, 1_000)
		assert.Equal(t, 0.0, got.Remaining)
		assert.Equal(t, models.RiskLow, got.Tier)
	})

	t.Run("oversold filing does not offset others", func(t *testing.T) {
		filings := []models.Filing{filing(100, 900), filing(400, 100)}
		got := Calculate(filings, 1_000)
		assert.Equal(t, 300.0, got.Remaining)
		assert.InDelta(t, 0.3, got.Fraction, 1e-12)
		assert.Equal(t, models.RiskMedium, got.Tier)
	})

	t.Run("sums remaining across filings", func(t *testing.T) {
		filings := []models.Filing{filing(3_000_000, 1_000_000), filing(5_000_000, 0)}
		got := Calculate(filings, 10_000_000)
		assert.Equal(t, 7_000_000.0, got.Remaining)
		assert.InDelta(t, 0.7, got.Fraction, 1e-12)
		assert.Equal(t, models.RiskHigh, got.Tier)
	})
}

func TestTierBoundaries(t *testing.T) {
	tests := []struct {
		name      string
		remaining float64
		want      models.RiskTier
	}{
		{"exactly 0.5 is Medium", 500_000, models.RiskMedium},
		{"just above 0.5 is High", 500_001, models.RiskHigh},
		{"exactly 0.2 is Low", 200_000, models.RiskLow},
		{"just above 0.2 is Medium", 200_001, models.RiskMedium},
		{"zero is Low", 0, models.RiskLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate([]models.Filing{filing(tt.remaining, 0)}, 1_000_000)
			assert.Equal(t, tt.want, got.Tier)
		})
	}
}
