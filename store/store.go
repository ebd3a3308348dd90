// Package store implements the engine's persistence contract on top of GORM.
// Item and team rows are locked FOR UPDATE inside each unit of work so that
// concurrent bids on the same item, or by the same team, serialize at the
// database instead of racing on stale aggregates.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	"capdraft/engine"
	"capdraft/models"
)

type Config struct {
	User     string
	Password string
	Host     string
	Port     int
	Database string
	Schema   string
}

type Store struct {
	db *gorm.DB
}

// Open connects to PostgreSQL and migrates the schema.
func Open(cfg Config) (*Store, error) {
	const op = "store.Open"
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.Schema)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		NamingStrategy: schema.NamingStrategy{
			TablePrefix: cfg.Schema + ".",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to connect to database, err=%w", op, err)
	}
	store := New(db)
	if err := store.Migrate(); err != nil {
		return nil, fmt.Errorf("[%s] Fail to migrate schema, err=%w", op, err)
	}
	return store, nil
}

// New wraps an existing gorm connection; used by tests with the sqlite driver.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate() error {
	return s.db.AutoMigrate(
		&models.Room{},
		&models.Team{},
		&models.Item{},
		&models.Bid{},
		&models.Notification{},
	)
}

func (s *Store) DB() *gorm.DB { return s.db }

// Atomic runs fn as one database transaction. An error from fn rolls back
// with no partial writes.
func (s *Store) Atomic(ctx context.Context, fn func(tx engine.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&storeTx{db: tx})
	})
}

type storeTx struct {
	db *gorm.DB
}

func (t *storeTx) Room(id uuid.UUID) (*models.Room, error) {
	var room models.Room
	if err := t.db.First(&room, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &room, nil
}

// Team locks the team row for the duration of the transaction. This is what
// keeps two simultaneous bids by the same team on different items from both
// passing the budget check on the same available figure.
func (t *storeTx) Team(id uuid.UUID) (*models.Team, error) {
	var team models.Team
	if err := lockForUpdate(t.db).First(&team, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &team, nil
}

// ItemForUpdate locks the item row and loads its current winning bid. All
// leader evaluation and the subsequent write happen under this lock.
func (t *storeTx) ItemForUpdate(id uuid.UUID) (*models.Item, error) {
	var item models.Item
	if err := lockForUpdate(t.db).First(&item, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	if item.WinningBidID != nil {
		var bid models.Bid
		if err := t.db.First(&bid, "id = ?", *item.WinningBidID).Error; err != nil {
			return nil, translate(err)
		}
		item.WinningBid = &bid
	}
	return &item, nil
}

func (t *storeTx) TeamHoldings(teamID uuid.UUID) ([]engine.Holding, error) {
	return teamHoldings(t.db, teamID)
}

func (t *storeTx) ValidBids(itemID uuid.UUID, exclude uuid.UUID) ([]models.Bid, error) {
	var bids []models.Bid
	err := t.db.
		Where("item_id = ? AND status = ? AND id <> ?", itemID, models.BidValid, exclude).
		Order("amount DESC, placed_at ASC").
		Find(&bids).Error
	if err != nil {
		return nil, err
	}
	return bids, nil
}

func (t *storeTx) CreateBid(bid *models.Bid) error {
	return t.db.Omit(clause.Associations).Create(bid).Error
}

func (t *storeTx) SaveItem(item *models.Item) error {
	return t.db.Omit(clause.Associations).Save(item).Error
}

func (t *storeTx) UpdateBidStatus(id uuid.UUID, status models.BidStatus) error {
	return t.db.Model(&models.Bid{}).Where("id = ?", id).Update("status", status).Error
}

func (t *storeTx) CreateNotification(n *models.Notification) error {
	return t.db.Omit(clause.Associations).Create(n).Error
}

// ItemState reads outside any transaction; eventually consistent with the
// last committed write.
func (s *Store) ItemState(ctx context.Context, itemID uuid.UUID) (*engine.ItemState, error) {
	var item models.Item
	if err := s.db.WithContext(ctx).First(&item, "id = ?", itemID).Error; err != nil {
		return nil, translate(err)
	}
	state := &engine.ItemState{
		ItemID:        item.ID,
		Status:        item.Status,
		WinningTeamID: item.WinningTeamID,
		ContractYears: item.ContractYears,
		ExpiresAt:     item.ExpiresAt,
	}
	if item.WinningBidID != nil {
		var bid models.Bid
		if err := s.db.WithContext(ctx).First(&bid, "id = ?", *item.WinningBidID).Error; err != nil {
			return nil, translate(err)
		}
		state.WinningBidAmount = &bid.Amount
	}
	return state, nil
}

func (s *Store) ExpiredItems(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", models.ItemNominated, now).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// lockForUpdate adds a row lock under postgres. The sqlite test driver has no
// FOR UPDATE syntax; its single-writer model serializes writes anyway.
func lockForUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "postgres" {
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

func teamHoldings(db *gorm.DB, teamID uuid.UUID) ([]engine.Holding, error) {
	var holdings []engine.Holding
	err := db.
		Model(&models.Item{}).
		Select("items.id AS item_id, items.status AS status, bids.amount AS amount").
		Joins("JOIN bids ON bids.id = items.winning_bid_id").
		Where("items.winning_team_id = ? AND items.status IN ?", teamID,
			[]models.ItemStatus{models.ItemNominated, models.ItemSold}).
		Scan(&holdings).Error
	if err != nil {
		return nil, err
	}
	return holdings, nil
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return engine.ErrNotFound
	}
	return err
}
