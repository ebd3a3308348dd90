package engine

import "capdraft/models"

// ResolveNextLeader picks the bid to promote after a retraction: highest
// amount wins, earliest placement breaks ties (first come, first served).
// Non-VALID bids are ignored. Returns nil when no candidate remains.
func ResolveNextLeader(bids []models.Bid) *models.Bid {
	var best *models.Bid
	for i := range bids {
		b := &bids[i]
		if b.Status != models.BidValid {
			continue
		}
		if best == nil || b.Amount > best.Amount ||
			(b.Amount == best.Amount && b.PlacedAt.Before(best.PlacedAt)) {
			best = b
		}
	}
	return best
}
