package engine

import (
	"github.com/google/uuid"

	"capdraft/models"
)

// Ledger is a team's derived budget and roster position. It cannot fail and
// never undercounts committed funds.
type Ledger struct {
	Budget      int64
	Spent       int64 // leading bids on SOLD items
	Locked      int64 // leading bids on NOMINATED items
	RosterSpots int
	SpotsUsed   int
}

// BuildLedger derives a team's ledger from its current holdings. The item
// being bid on is excluded from the locked figures because a re-bid by the
// same team replaces its commitment rather than adding to it; pass uuid.Nil
// to exclude nothing.
func BuildLedger(team *models.Team, holdings []Holding, exclude uuid.UUID) Ledger {
	l := Ledger{Budget: team.Budget, RosterSpots: team.RosterSpots}
	for _, h := range holdings {
		switch h.Status {
		case models.ItemSold:
			l.Spent += h.Amount
			l.SpotsUsed++
		case models.ItemNominated:
			if h.ItemID == exclude {
				continue
			}
			l.Locked += h.Amount
			l.SpotsUsed++
		}
	}
	return l
}

func (l Ledger) Available() int64 {
	return l.Budget - l.Spent - l.Locked
}

func (l Ledger) SpotsRemaining() int {
	return l.RosterSpots - l.SpotsUsed
}
