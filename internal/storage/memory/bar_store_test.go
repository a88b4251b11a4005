package memory

import (
	"context"
	"errors"
	"testing"

	"strategy-lab/internal/domain"
	"strategy-lab/internal/storage"
)

func TestBarStore_InsertBulkAndGetRange(t *testing.T) {
	store := NewBarStore()
	ctx := context.Background()

	bars := []*domain.Bar{
		{Symbol: "BTC", Timeframe: "1h", TimestampMs: 3000, Close: 3},
		{Symbol: "BTC", Timeframe: "1h", TimestampMs: 1000, Close: 1},
		{Symbol: "BTC", Timeframe: "1h", TimestampMs: 2000, Close: 2},
		{Symbol: "BTC", Timeframe: "1d", TimestampMs: 2000, Close: 20},
		{Symbol: "ETH", Timeframe: "1h", TimestampMs: 2000, Close: 200},
	}
	if err := store.InsertBulk(ctx, bars); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.GetRange(ctx, "BTC", "1h", 1000, 2000)
	if err != nil {
		t.Fatalf("GetRange failed: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("Expected 2 bars, got %d", len(result))
	}
	if result[0].TimestampMs != 1000 || result[1].TimestampMs != 2000 {
		t.Errorf("Expected ascending order, got %d, %d", result[0].TimestampMs, result[1].TimestampMs)
	}

	// Returned bars are copies
	result[0].Close = 99
	again, _ := store.GetRange(ctx, "BTC", "1h", 1000, 1000)
	if again[0].Close != 1 {
		t.Errorf("Store mutated through returned bar")
	}
}

func TestBarStore_DuplicateKey(t *testing.T) {
	store := NewBarStore()
	ctx := context.Background()

	bars := []*domain.Bar{{Symbol: "BTC", Timeframe: "1h", TimestampMs: 1000}}
	if err := store.InsertBulk(ctx, bars); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.InsertBulk(ctx, bars)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestBarStore_IntraBatchDuplicate(t *testing.T) {
	store := NewBarStore()
	ctx := context.Background()

	bars := []*domain.Bar{
		{Symbol: "BTC", Timeframe: "1h", TimestampMs: 1000, Close: 1},
		{Symbol: "BTC", Timeframe: "1h", TimestampMs: 2000, Close: 2},
		{Symbol: "BTC", Timeframe: "1h", TimestampMs: 1000, Close: 3},
	}
	err := store.InsertBulk(ctx, bars)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey for intra-batch duplicate, got %v", err)
	}

	result, _ := store.GetRange(ctx, "BTC", "1h", 0, 5000)
	if len(result) != 0 {
		t.Errorf("Expected 0 bars (rollback), got %d", len(result))
	}
}

func TestBarStore_InvalidInput(t *testing.T) {
	store := NewBarStore()
	err := store.InsertBulk(context.Background(), []*domain.Bar{{Timeframe: "1h", TimestampMs: 1}})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}
