package models

import "github.com/shopspring/decimal"

// Tier is a customer segment derived from lifetime profit.
type Tier string

const (
	TierBronze   Tier = "Bronze"
	TierSilver   Tier = "Silver"
	TierGold     Tier = "Gold"
	TierPlatinum Tier = "Platinum"
)

// AudienceAll selects every user regardless of tier.
const AudienceAll = "All"

var (
	silverFloor   = decimal.NewFromInt(100)
	goldFloor     = decimal.NewFromInt(500)
	platinumFloor = decimal.NewFromInt(2000)
)

// TierFromProfit classifies a profit amount. Each floor is inclusive.
func TierFromProfit(profit decimal.Decimal) Tier {
	switch {
	case profit.GreaterThanOrEqual(platinumFloor):
		return TierPlatinum
	case profit.GreaterThanOrEqual(goldFloor):
		return TierGold
	case profit.GreaterThanOrEqual(silverFloor):
		return TierSilver
	default:
		return TierBronze
	}
}
