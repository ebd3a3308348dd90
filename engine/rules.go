package engine

import (
	"github.com/shopspring/decimal"

	"capdraft/models"
)

// MinimumBid resolves the lowest legal bid on an item given its current high
// bid. An increment below 1 is a fractional rate applied on top of the
// current bid, rounded up; 1 or above is an absolute step. Unbid items use
// the room's opening bid, floor of 1 unit.
//
// Decimal arithmetic keeps the fractional branch exact: float math turns
// ceil(100 * 1.15) into 116 on some inputs.
func MinimumBid(currentHigh int64, settings models.RoomSettings) int64 {
	if currentHigh == 0 {
		if settings.OpeningBid > 0 {
			return settings.OpeningBid
		}
		return 1
	}
	inc := decimal.NewFromFloat(settings.MinIncrement)
	current := decimal.NewFromInt(currentHigh)
	var min decimal.Decimal
	if inc.LessThan(decimal.NewFromInt(1)) {
		min = current.Mul(decimal.NewFromInt(1).Add(inc)).Ceil()
	} else {
		min = current.Add(inc).Ceil()
	}
	return min.IntPart()
}

// CheckIncrement validates a proposed amount against the increment rule.
func CheckIncrement(currentHigh, amount int64, settings models.RoomSettings) error {
	min := MinimumBid(currentHigh, settings)
	if amount < min {
		return &BidTooLowError{Min: min, Current: currentHigh}
	}
	return nil
}

// ResolveTier finds the contract rule whose range contains amount. When the
// amount is above every bounded range, the highest-minBid tier applies as a
// forward-open range. Returns nil when no tier matches (amount below the
// lowest tier).
func ResolveTier(rules []models.ContractRule, amount int64) *models.ContractRule {
	var highest *models.ContractRule
	for i := range rules {
		r := &rules[i]
		if amount >= r.MinBid && (r.MaxBid == nil || amount <= *r.MaxBid) {
			return r
		}
		if highest == nil || r.MinBid > highest.MinBid {
			highest = r
		}
	}
	if highest != nil && amount >= highest.MinBid {
		return highest
	}
	return nil
}

// CheckContract validates the proposed contract years for a bid of the given
// amount. Re-run on every attempt: the matching tier depends on the amount.
func CheckContract(settings models.RoomSettings, amount int64, years int) error {
	if years < 1 {
		return &ContractYearsError{Policy: models.DurationAny, Required: 1, Proposed: years}
	}
	if settings.MaxContractYears > 0 && years > settings.MaxContractYears {
		return &ContractYearsError{
			Policy:   models.DurationAny,
			Required: settings.MaxContractYears,
			Proposed: years,
		}
	}
	if !settings.ContractLogic.Enabled {
		return nil
	}
	tier := ResolveTier(settings.ContractLogic.Rules, amount)
	if tier == nil {
		return nil
	}
	switch tier.Policy {
	case models.DurationMin:
		if years < tier.MinYears {
			return &ContractYearsError{
				TierMin:  tier.MinBid,
				TierMax:  tier.MaxBid,
				Policy:   models.DurationMin,
				Required: tier.MinYears,
				Proposed: years,
			}
		}
	case models.DurationFixed:
		if years != tier.Years {
			return &ContractYearsError{
				TierMin:  tier.MinBid,
				TierMax:  tier.MaxBid,
				Policy:   models.DurationFixed,
				Required: tier.Years,
				Proposed: years,
			}
		}
	}
	return nil
}
