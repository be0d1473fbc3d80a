package booking

import "math"

// PricingStrategy estimates what a booking costs.
type PricingStrategy interface {
	// Estimate returns the cost of holding a room at pricePerHour for the given range.
	Estimate(pricePerHour float64, period TimeRange) float64
}

// HourlyPricingStrategy charges pro rata by the minute, rounded to cents.
type HourlyPricingStrategy struct{}

// NewHourlyPricingStrategy creates a new HourlyPricingStrategy.
func NewHourlyPricingStrategy() *HourlyPricingStrategy {
	return &HourlyPricingStrategy{}
}

// Estimate computes pricePerHour * hours.
func (s *HourlyPricingStrategy) Estimate(pricePerHour float64, period TimeRange) float64 {
	if !period.IsValid() || pricePerHour <= 0 {
		return 0
	}
	hours := period.Duration().Hours()
	return math.Round(pricePerHour*hours*100) / 100
}
