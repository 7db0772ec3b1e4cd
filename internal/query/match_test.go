package query

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stapos/stapos/internal/store"
)

func TestMatches_MissingFieldNeverMatches(t *testing.T) {
	rec := store.Record{"id": "p1"}
	assert.False(t, matches(rec, Eq("barcode", "X")))
	assert.False(t, matches(rec, Gte("stock_quantity", 0)))
	assert.False(t, matches(rec, Lt("stock_quantity", 100)))
	assert.False(t, matches(rec, In("category_id", "c1", "c2")))
}

func TestMatches_Eq(t *testing.T) {
	rec := store.Record{"name": "soap", "stock_quantity": float64(5), "active": true}
	assert.True(t, matches(rec, Eq("name", "soap")))
	assert.False(t, matches(rec, Eq("name", "Soap")))
	// caller int literal vs stored json float64
	assert.True(t, matches(rec, Eq("stock_quantity", 5)))
	assert.True(t, matches(rec, Eq("active", true)))
	// no string-to-number coercion
	assert.False(t, matches(rec, Eq("stock_quantity", "5")))
}

func TestMatches_RangeOnNumbers(t *testing.T) {
	rec := store.Record{"stock_quantity": float64(5)}
	assert.True(t, matches(rec, Gte("stock_quantity", 5)))
	assert.True(t, matches(rec, Gte("stock_quantity", 4)))
	assert.False(t, matches(rec, Gte("stock_quantity", 6)))
	assert.True(t, matches(rec, Lt("stock_quantity", 10)))
	assert.False(t, matches(rec, Lt("stock_quantity", 5)))
}

func TestMatches_RangeOnTimestamps(t *testing.T) {
	rec := store.Record{"created_at": "2025-03-07T09:00:00.000Z"}
	assert.True(t, matches(rec, Gte("created_at", "2025-03-01T00:00:00.000Z")))
	assert.False(t, matches(rec, Lt("created_at", "2025-03-01T00:00:00.000Z")))
	// chronological, not lexicographic: +01:00 offset is an earlier instant
	assert.True(t, matches(rec, Gte("created_at", "2025-03-07T09:30:00.000+01:00")))
}

func TestMatches_In(t *testing.T) {
	rec := store.Record{"payment_method": "cash"}
	assert.True(t, matches(rec, In("payment_method", "card", "cash")))
	assert.False(t, matches(rec, In("payment_method", "card", "mobile")))
	assert.False(t, matches(rec, In("payment_method")))
}

func TestCompareValues_Incomparable(t *testing.T) {
	_, ok := compareValues("abc", float64(1))
	assert.False(t, ok)
	_, ok = compareValues(true, false)
	assert.False(t, ok)
}

func TestCompareValues_PlainStringsLexicographic(t *testing.T) {
	c, ok := compareValues("apple", "banana")
	assert.True(t, ok)
	assert.Negative(t, c)
}
