package escrow

import (
	"math"

	"github.com/tradiehq/TradieHQ/app/models"
)

const (
	// CommissionRate is the platform fee taken from each milestone payment.
	CommissionRate = 0.0333

	// RegionalCommissionCap caps the fee in AUD for Regional jobs.
	RegionalCommissionCap = 25.0
)

// Commission computes the platform fee for a milestone amount. Both the
// payment-creation and the verification/transfer paths must go through this
// function so the rate and cap cannot drift between them.
func Commission(amount float64, region string) float64 {
	fee := roundCents(amount * CommissionRate)
	if region == models.RegionRegional && fee > RegionalCommissionCap {
		fee = RegionalCommissionCap
	}
	return fee
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
