package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// orderModel is the gorm table backing GormOrderStore.
type orderModel struct {
	ClientOrderID  string `gorm:"primaryKey"`
	Side           string
	Symbol         string `gorm:"index"`
	Quantity       string
	Price          string
	CreatedAtMs    int64
	FiredAtMs      int64
	Status         string `gorm:"index"`
	ArbitrageHash8 uint32 `gorm:"index"`
	Comment        string
}

func (orderModel) TableName() string { return "orders" }

func (m orderModel) toRecord() OrderRecord {
	return OrderRecord{
		ClientOrderID:  m.ClientOrderID,
		Side:           m.Side,
		Symbol:         m.Symbol,
		Quantity:       m.Quantity,
		Price:          m.Price,
		CreatedAtMs:    m.CreatedAtMs,
		FiredAtMs:      m.FiredAtMs,
		Status:         m.Status,
		ArbitrageHash8: m.ArbitrageHash8,
		Comment:        m.Comment,
	}
}

func orderModelFromRecord(rec OrderRecord) orderModel {
	return orderModel{
		ClientOrderID:  rec.ClientOrderID,
		Side:           rec.Side,
		Symbol:         rec.Symbol,
		Quantity:       rec.Quantity,
		Price:          rec.Price,
		CreatedAtMs:    rec.CreatedAtMs,
		FiredAtMs:      rec.FiredAtMs,
		Status:         rec.Status,
		ArbitrageHash8: rec.ArbitrageHash8,
		Comment:        rec.Comment,
	}
}

// chainModel is the gorm table backing GormChainStore.
type chainModel struct {
	ID              uint      `gorm:"primaryKey;autoIncrement"`
	MarketsSequence string    `gorm:"index"`
	InitialCoin     string
	ROI             float64
	Profit          float64
	ProfitUSD       float64
	TimeMs          int64
	Comment         string
	SavedAt         time.Time `gorm:"index"`
}

func (chainModel) TableName() string { return "chains" }

// OpenSQLite opens (creating if absent) a sqlite-backed gorm.DB and
// migrates both tables, ready to back GormOrderStore and GormChainStore.
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.AutoMigrate(&orderModel{}, &chainModel{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return db, nil
}

// GormOrderStore implements OrderDAO over any gorm.io/gorm dialect,
// grounded on ChoSanghyuk-blackholedex's gorm-based recorder.
type GormOrderStore struct {
	db *gorm.DB
}

// NewGormOrderStore wraps an already-migrated gorm.DB.
func NewGormOrderStore(db *gorm.DB) *GormOrderStore {
	return &GormOrderStore{db: db}
}

// Save upserts rec keyed by ClientOrderID, so repeated status updates for
// the same order (NEW -> FILLED) overwrite rather than duplicate rows. A
// plain gorm.Save assumes a non-zero primary key means "update", which
// would silently no-op on the first write of a client-assigned id; an
// explicit ON CONFLICT clause is required instead.
func (s *GormOrderStore) Save(ctx context.Context, rec OrderRecord) error {
	model := orderModelFromRecord(rec)
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&model)
	if result.Error != nil {
		return fmt.Errorf("save order record: %w", result.Error)
	}
	return nil
}

// Get looks up an order by its ClientOrderID.
func (s *GormOrderStore) Get(ctx context.Context, clientOrderID string) (OrderRecord, bool, error) {
	var model orderModel
	result := s.db.WithContext(ctx).First(&model, "client_order_id = ?", clientOrderID)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return OrderRecord{}, false, nil
	}
	if result.Error != nil {
		return OrderRecord{}, false, fmt.Errorf("get order record: %w", result.Error)
	}
	return model.toRecord(), true, nil
}

// GormChainStore implements ChainDAO over any gorm.io/gorm dialect.
type GormChainStore struct {
	db *gorm.DB
}

// NewGormChainStore wraps an already-migrated gorm.DB.
func NewGormChainStore(db *gorm.DB) *GormChainStore {
	return &GormChainStore{db: db}
}

// Save inserts one row per evaluated chain; chains are append-only
// telemetry, never updated in place.
func (s *GormChainStore) Save(ctx context.Context, rec ChainRecord) error {
	model := chainModel{
		MarketsSequence: rec.MarketsSequence,
		InitialCoin:     rec.InitialCoin,
		ROI:             rec.ROI,
		Profit:          rec.Profit,
		ProfitUSD:       rec.ProfitUSD,
		TimeMs:          rec.TimeMs,
		Comment:         rec.Comment,
		SavedAt:         rec.SavedAt,
	}
	result := s.db.WithContext(ctx).Create(&model)
	if result.Error != nil {
		return fmt.Errorf("save chain record: %w", result.Error)
	}
	return nil
}
