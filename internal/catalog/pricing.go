package catalog

import (
	"fmt"
	"math"

	"vistora/internal/domain"
)

// Pricing estimates job cost: ceil(duration/UnitSeconds) * multiplier[tier].
type Pricing struct {
	UnitSeconds            int
	DefaultDurationSeconds int
	Multipliers            map[domain.QualityTier]int
}

func DefaultPricing() Pricing {
	return Pricing{
		UnitSeconds:            120,
		DefaultDurationSeconds: 120,
		Multipliers: map[domain.QualityTier]int{
			domain.TierBalanced: 1,
			domain.TierHigh:     2,
			domain.TierUltra:    4,
		},
	}
}

// Estimate returns the credit cost. Non-positive durations use the default duration.
func (p Pricing) Estimate(durationSeconds int, tier domain.QualityTier) (int, error) {
	mult, ok := p.Multipliers[tier]
	if !ok {
		return 0, fmt.Errorf("%w: %q", domain.ErrUnknownTier, tier)
	}
	unit := p.UnitSeconds
	if unit <= 0 {
		unit = 120
	}
	d := durationSeconds
	if d <= 0 {
		d = p.DefaultDurationSeconds
	}
	if d <= 0 {
		d = unit
	}
	units := d / unit
	if d%unit != 0 {
		units++
	}
	if mult > 0 && units > math.MaxInt/mult {
		return 0, fmt.Errorf("%w: duration %ds is too long to price", domain.ErrInvalidArgument, durationSeconds)
	}
	return units * mult, nil
}
