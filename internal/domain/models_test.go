package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitIDFor(t *testing.T) {
	assert.Equal(t, "1001-BLR01", SplitIDFor("1001", "BLR01"))
}

func TestRecordTimestamp_KeepsLatestEntryPerStatus(t *testing.T) {
	s := &OrderSplit{}
	first := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	s.RecordTimestamp(SplitStatusConfirm, first)
	s.RecordTimestamp(SplitStatusOnHold, first.Add(time.Minute))
	s.RecordTimestamp(SplitStatusConfirm, first.Add(2*time.Minute))

	require.Len(t, s.TimeStamp, 2)
	assert.Equal(t, first.Add(2*time.Minute), s.TimeStamp[SplitStatusConfirm])
	assert.Equal(t, first.Add(time.Minute), s.TimeStamp[SplitStatusOnHold])
}

func TestQuantityBySKU(t *testing.T) {
	s := &OrderSplit{LineItems: []SplitLineItem{
		{ItemReferenceCode: "A", Quantity: 2},
		{ItemReferenceCode: "B", Quantity: 1},
		{ItemReferenceCode: "A", Quantity: 3},
	}}
	assert.Equal(t, map[string]int{"A": 5, "B": 1}, s.QuantityBySKU())
}

func TestErpItem_SameContent(t *testing.T) {
	a := &ErpItem{ItemID: 42, OutletID: 7, ItemName: "Rice", MRP: decimal.RequireFromString("99.50"), Stock: 10, ItemTimeStamp: 100}
	b := *a
	b.MRP = decimal.RequireFromString("99.5")
	assert.True(t, a.SameContent(&b))

	b.Stock = 7
	assert.False(t, a.SameContent(&b))
	assert.Equal(t, ErpItemKey{ItemID: 42, OutletID: 7}, a.Key())
}

func TestStore_IsActive(t *testing.T) {
	assert.True(t, (&Store{Status: StoreStatusActive}).IsActive())
	assert.False(t, (&Store{Status: StoreStatusInactive}).IsActive())
}
