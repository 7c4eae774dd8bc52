package store

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestJSONFileOrderStoreRoundTrip(t *testing.T) {
	t.Parallel()

	s, err := OpenJSONFileOrderStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenJSONFileOrderStore: %v", err)
	}

	rec := OrderRecord{ClientOrderID: "123_order_1", Side: "BUY", Symbol: "BTCUSDT", Quantity: "0.01", Price: "30000"}
	if err := s.Save(context.Background(), rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, ok, err := s.Get(context.Background(), "123_order_1")
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

func TestJSONFileOrderStoreGetMissingReturnsNotFound(t *testing.T) {
	t.Parallel()

	s, err := OpenJSONFileOrderStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenJSONFileOrderStore: %v", err)
	}
	_, ok, err := s.Get(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("expected ok=false for a never-saved record")
	}
}

func TestJSONFileOrderStoreOverwritesOnRepeatedSave(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := OpenJSONFileOrderStore(dir)
	if err != nil {
		t.Fatalf("OpenJSONFileOrderStore: %v", err)
	}

	s.Save(context.Background(), OrderRecord{ClientOrderID: "1_order_1", Status: "NEW"})
	s.Save(context.Background(), OrderRecord{ClientOrderID: "1_order_1", Status: "FILLED"})

	got, _, _ := s.Get(context.Background(), "1_order_1")
	if got.Status != "FILLED" {
		t.Errorf("Status = %s, want FILLED", got.Status)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected exactly one persisted file, found %d", len(entries))
	}
}

func TestJSONFileChainStoreAppendsOneLinePerRecord(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := OpenJSONFileChainStore(dir)
	if err != nil {
		t.Fatalf("OpenJSONFileChainStore: %v", err)
	}

	for i := 0; i < 3; i++ {
		rec := ChainRecord{MarketsSequence: "BTCUSDT-ETHBTC-ETHUSDT", Comment: "ok", SavedAt: time.Unix(int64(i), 0)}
		if err := s.Save(context.Background(), rec); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	f, err := os.Open(filepath.Join(dir, "chains.ndjson"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines++
	}
	if lines != 3 {
		t.Errorf("got %d lines, want 3", lines)
	}
}
