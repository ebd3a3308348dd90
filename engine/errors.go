package engine

import (
	"errors"
	"fmt"

	"capdraft/models"
)

// The bid error set is closed: every precondition failure maps to exactly one
// of these values or types, and anything else coming out of the store is
// wrapped as transient.
var (
	ErrRoomNotOpen     = errors.New("room is not open for bidding")
	ErrItemUnavailable = errors.New("item is not available for bidding")
	ErrItemNotFound    = errors.New("item not found")
	ErrTeamNotFound    = errors.New("team not found")
	ErrNoRosterSpots   = errors.New("no roster spots remaining")
)

// ErrNotFound is the store-level sentinel for a missing row. The processor
// translates it into the operation-specific error above.
var ErrNotFound = errors.New("record not found")

type BidTooLowError struct {
	Min     int64
	Current int64
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("minimum bid is %d, current high bid is %d", e.Min, e.Current)
}

type ContractYearsError struct {
	TierMin  int64
	TierMax  *int64 // nil when the tier is open above
	Policy   models.DurationPolicy
	Required int // exact years for fixed, minimum years for min, max cap otherwise
	Proposed int
}

func (e *ContractYearsError) Error() string {
	tier := fmt.Sprintf("%d and above", e.TierMin)
	if e.TierMax != nil {
		tier = fmt.Sprintf("%d-%d", e.TierMin, *e.TierMax)
	}
	switch e.Policy {
	case models.DurationFixed:
		return fmt.Sprintf("bids of %s require a contract of exactly %d years, got %d", tier, e.Required, e.Proposed)
	case models.DurationMin:
		return fmt.Sprintf("bids of %s require a contract of at least %d years, got %d", tier, e.Required, e.Proposed)
	default:
		return fmt.Sprintf("contract of %d years is not allowed for bids of %s", e.Proposed, tier)
	}
}

type InsufficientBudgetError struct {
	Available int64
	Requested int64
}

func (e *InsufficientBudgetError) Error() string {
	return fmt.Sprintf("insufficient budget: available %d, requested %d", e.Available, e.Requested)
}

// TransientError marks infrastructure failures. The mutation's effect is
// unknown to the caller, so PlaceBid/RetractBid must not be blindly retried.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient store failure: %v", e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// isBidError reports whether err already belongs to the closed error set.
func isBidError(err error) bool {
	if errors.Is(err, ErrRoomNotOpen) || errors.Is(err, ErrItemUnavailable) ||
		errors.Is(err, ErrItemNotFound) || errors.Is(err, ErrTeamNotFound) ||
		errors.Is(err, ErrNoRosterSpots) {
		return true
	}
	var (
		tooLow   *BidTooLowError
		contract *ContractYearsError
		budget   *InsufficientBudgetError
		trans    *TransientError
	)
	return errors.As(err, &tooLow) || errors.As(err, &contract) ||
		errors.As(err, &budget) || errors.As(err, &trans)
}

// wrapTransient passes typed bid errors through untouched and folds anything
// else into a TransientError.
func wrapTransient(err error) error {
	if err == nil || isBidError(err) {
		return err
	}
	return &TransientError{Err: err}
}
