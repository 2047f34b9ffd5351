package common

import (
	"testing"
	"time"

	"custody-capital-go/internal/amount"
)

func TestFormatHolding(t *testing.T) {
	registry := NewAssetRegistry([]AssetConfig{{AssetId: "usdc.near", Symbol: "USDC", Decimals: 6}})

	if got := registry.FormatHolding("usdc.near", amount.New(1_250_000)); got != "1.25 USDC" {
		t.Errorf("Expected 1.25 USDC, got %q", got)
	}
	if got := registry.FormatHolding("other.near", amount.New(42)); got != "42 other.near" {
		t.Errorf("Expected unknown asset in minor units, got %q", got)
	}
}

func TestFormatTimestamp(t *testing.T) {
	if got := FormatTimestamp(time.Time{}); got != "-" {
		t.Errorf("Expected - for zero time, got %q", got)
	}
	ts := time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)
	if got := FormatTimestamp(ts); got != "2025-03-01 12:30:00" {
		t.Errorf("Expected 2025-03-01 12:30:00, got %q", got)
	}
}

func TestBoxPrefix(t *testing.T) {
	if BoxPrefix(true) != "└  " || BoxPrefix(false) != "│  " {
		t.Error("Unexpected list item prefixes")
	}
	if BoxDetailPrefix(true) != "   " || BoxDetailPrefix(false) != "│  " {
		t.Error("Unexpected detail prefixes")
	}
}
