package store

import (
	"context"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *GormOrderStore {
	t.Helper()
	db, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	return NewGormOrderStore(db)
}

func TestGormOrderStoreSaveAndGet(t *testing.T) {
	t.Parallel()

	s := openTestDB(t)
	rec := OrderRecord{ClientOrderID: "42_order_2", Side: "SELL", Symbol: "ETHUSDT", Quantity: "5", Price: "2500", Status: "NEW"}

	if err := s.Save(context.Background(), rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, ok, err := s.Get(context.Background(), "42_order_2")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected the saved record to be found")
	}
	if got != rec {
		t.Errorf("Get() = %+v, want %+v", got, rec)
	}
}

func TestGormOrderStoreGetMissingReturnsNotFound(t *testing.T) {
	t.Parallel()

	s := openTestDB(t)
	_, ok, err := s.Get(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("expected ok=false for a never-saved record")
	}
}

func TestGormOrderStoreSaveUpsertsByClientOrderID(t *testing.T) {
	t.Parallel()

	s := openTestDB(t)
	s.Save(context.Background(), OrderRecord{ClientOrderID: "7_order_1", Status: "NEW"})
	s.Save(context.Background(), OrderRecord{ClientOrderID: "7_order_1", Status: "FILLED"})

	got, _, _ := s.Get(context.Background(), "7_order_1")
	if got.Status != "FILLED" {
		t.Errorf("Status = %s, want FILLED", got.Status)
	}
}

func TestGormChainStoreSaveInsertsRow(t *testing.T) {
	t.Parallel()

	db, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	s := NewGormChainStore(db)

	rec := ChainRecord{MarketsSequence: "BTCUSDT-ETHBTC-ETHUSDT", ROI: 0.01, Comment: "ok", SavedAt: time.Unix(0, 0)}
	if err := s.Save(context.Background(), rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var count int64
	db.Model(&chainModel{}).Count(&count)
	if count != 1 {
		t.Errorf("row count = %d, want 1", count)
	}
}
