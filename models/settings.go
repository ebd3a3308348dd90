package models

import "time"

type BudgetType string

const (
	BudgetSalaryCap BudgetType = "SALARY_CAP"
	BudgetFAAB      BudgetType = "FAAB"
)

type DurationPolicy string

const (
	DurationAny   DurationPolicy = "any"
	DurationMin   DurationPolicy = "min"
	DurationFixed DurationPolicy = "fixed"
)

// ContractRule binds a contiguous bid-amount range to a contract-duration
// policy. MaxBid nil means the range is open above MinBid.
type ContractRule struct {
	MinBid   int64          `json:"minBid"`
	MaxBid   *int64         `json:"maxBid,omitempty"`
	Policy   DurationPolicy `json:"policy"`
	Years    int            `json:"years,omitempty"`    // exact years when Policy is "fixed"
	MinYears int            `json:"minYears,omitempty"` // lower bound when Policy is "min"
}

type ContractLogic struct {
	Enabled bool           `json:"enabled"`
	Rules   []ContractRule `json:"rules"`
}

// RoomSettings is the per-room configuration blob, stored as JSON on the room
// row. MinIncrement below 1 is a fractional rate (0.15 = +15%), 1 or above is
// an absolute increment.
type RoomSettings struct {
	BudgetType       BudgetType    `json:"budgetType"`
	StartingBudget   int64         `json:"startingBudget"`
	ContractLogic    ContractLogic `json:"contractLogic"`
	MaxContractYears int           `json:"maxContractYears"`
	RosterSize       int           `json:"rosterSize"`
	MinIncrement     float64       `json:"minIncrement"`
	OpeningBid       int64         `json:"openingBid"`
	TimerSeconds     int           `json:"timerSeconds"`
}

func (s RoomSettings) Timer() time.Duration {
	if s.TimerSeconds <= 0 {
		return DefaultTimerSeconds * time.Second
	}
	return time.Duration(s.TimerSeconds) * time.Second
}

const DefaultTimerSeconds = 43200 // 12 hours

// DefaultSettings mirrors the salary-cap league configuration rooms start
// with before the owner edits anything. Amounts are in whole units.
func DefaultSettings() RoomSettings {
	return RoomSettings{
		BudgetType:     BudgetSalaryCap,
		StartingBudget: 200_000_000,
		ContractLogic: ContractLogic{
			Enabled: true,
			Rules: []ContractRule{
				{MinBid: 1_000_000, MaxBid: int64Ptr(9_000_000), Policy: DurationAny},
				{MinBid: 10_000_000, MaxBid: int64Ptr(49_000_000), Policy: DurationMin, MinYears: 2},
				{MinBid: 50_000_000, MaxBid: int64Ptr(99_000_000), Policy: DurationMin, MinYears: 3},
				{MinBid: 100_000_000, Policy: DurationMin, MinYears: 4},
			},
		},
		MaxContractYears: 4,
		RosterSize:       20,
		MinIncrement:     1_000_000,
		OpeningBid:       1_000_000,
		TimerSeconds:     30,
	}
}

func int64Ptr(v int64) *int64 { return &v }
