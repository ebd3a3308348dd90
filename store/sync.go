package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"capdraft/engine"
	"capdraft/models"
)

// SyncView is the polling read model: room state, all teams, the items
// currently on the block, and the calling team's derived ledger. Assembled
// from committed rows only; never part of any write path.
type SyncView struct {
	Room        RoomView     `json:"room"`
	Teams       []TeamView   `json:"teams"`
	ActiveItems []ActiveItem `json:"activeItems"`
	Me          *MyTeamView  `json:"me,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
}

type RoomView struct {
	ID       uuid.UUID           `json:"id"`
	Name     string              `json:"name"`
	Status   models.RoomStatus   `json:"status"`
	Settings models.RoomSettings `json:"settings"`
}

type TeamView struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Budget      int64     `json:"budget"`
	RosterSpots int       `json:"rosterSpots"`
	Claimed     bool      `json:"claimed"`
}

type ActiveItem struct {
	ID               uuid.UUID  `json:"id"`
	Name             string     `json:"name"`
	Position         string     `json:"position,omitempty"`
	WinningTeamID    *uuid.UUID `json:"winningTeamId,omitempty"`
	WinningBidAmount *int64     `json:"winningBidAmount,omitempty"`
	ContractYears    *int       `json:"contractYears,omitempty"`
	ExpiresAt        *time.Time `json:"expiresAt,omitempty"`
}

type MyTeamView struct {
	TeamView
	SpentBudget     int64       `json:"spentBudget"`
	LockedBudget    int64       `json:"lockedBudget"`
	AvailableBudget int64       `json:"availableBudget"`
	SpotsUsed       int         `json:"spotsUsed"`
	SpotsRemaining  int         `json:"spotsRemaining"`
	ActiveItemIDs   []uuid.UUID `json:"activeItemIds"`
}

// SyncView assembles the read model for one room. teamID is optional: when
// uuid.Nil the Me section is omitted.
func (s *Store) SyncView(ctx context.Context, roomID, teamID uuid.UUID) (*SyncView, error) {
	db := s.db.WithContext(ctx)

	var room models.Room
	if err := db.First(&room, "id = ?", roomID).Error; err != nil {
		return nil, translate(err)
	}

	var teams []models.Team
	if err := db.Where("room_id = ?", roomID).Order("name ASC").Find(&teams).Error; err != nil {
		return nil, err
	}

	var items []models.Item
	err := db.
		Preload("WinningBid").
		Where("room_id = ? AND status = ?", roomID, models.ItemNominated).
		Order("expires_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	view := &SyncView{
		Room: RoomView{
			ID:       room.ID,
			Name:     room.Name,
			Status:   room.Status,
			Settings: room.Settings,
		},
		Teams:       make([]TeamView, 0, len(teams)),
		ActiveItems: make([]ActiveItem, 0, len(items)),
		Timestamp:   time.Now(),
	}
	for _, team := range teams {
		view.Teams = append(view.Teams, TeamView{
			ID:          team.ID,
			Name:        team.Name,
			Budget:      team.Budget,
			RosterSpots: team.RosterSpots,
			Claimed:     team.PinHash != nil,
		})
	}
	for _, item := range items {
		active := ActiveItem{
			ID:            item.ID,
			Name:          item.Name,
			Position:      item.Position,
			WinningTeamID: item.WinningTeamID,
			ContractYears: item.ContractYears,
			ExpiresAt:     item.ExpiresAt,
		}
		if item.WinningBid != nil {
			active.WinningBidAmount = &item.WinningBid.Amount
		}
		view.ActiveItems = append(view.ActiveItems, active)
	}

	if teamID == uuid.Nil {
		return view, nil
	}
	me, err := s.myTeamView(ctx, roomID, teamID)
	if err != nil {
		return nil, err
	}
	view.Me = me
	return view, nil
}

func (s *Store) myTeamView(ctx context.Context, roomID, teamID uuid.UUID) (*MyTeamView, error) {
	db := s.db.WithContext(ctx)

	var team models.Team
	if err := db.First(&team, "id = ? AND room_id = ?", teamID, roomID).Error; err != nil {
		return nil, translate(err)
	}
	holdings, err := teamHoldings(db, teamID)
	if err != nil {
		return nil, err
	}
	ledger := engine.BuildLedger(&team, holdings, uuid.Nil)

	// All items this team has a live bid on, leading or not.
	var activeItemIDs []uuid.UUID
	err = db.
		Model(&models.Bid{}).
		Distinct("bids.item_id").
		Joins("JOIN items ON items.id = bids.item_id").
		Where("bids.team_id = ? AND bids.status = ? AND items.status = ?",
			teamID, models.BidValid, models.ItemNominated).
		Pluck("bids.item_id", &activeItemIDs).Error
	if err != nil {
		return nil, err
	}

	return &MyTeamView{
		TeamView: TeamView{
			ID:          team.ID,
			Name:        team.Name,
			Budget:      team.Budget,
			RosterSpots: team.RosterSpots,
			Claimed:     team.PinHash != nil,
		},
		SpentBudget:     ledger.Spent,
		LockedBudget:    ledger.Locked,
		AvailableBudget: ledger.Available(),
		SpotsUsed:       ledger.SpotsUsed,
		SpotsRemaining:  ledger.SpotsRemaining(),
		ActiveItemIDs:   activeItemIDs,
	}, nil
}
