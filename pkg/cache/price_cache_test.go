package cache_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StickerRadar/pkg/cache"
	"StickerRadar/pkg/model"
)

func snapshotAt(goodName string, fetchedAt time.Time) model.MarketSnapshot {
	return model.MarketSnapshot{
		GoodName:  goodName,
		FetchedAt: fetchedAt,
		Listings: []model.Listing{
			{Marketplace: "MRKT", Price: decimal.NewFromInt(10)},
		},
	}
}

func TestPriceCache_GetMissing(t *testing.T) {
	c := cache.NewPriceCache()

	_, ok := c.Get("funpack/hero")
	assert.False(t, ok)
}

func TestPriceCache_UpdateAndGet(t *testing.T) {
	c := cache.NewPriceCache()
	snap := snapshotAt("funpack/hero", time.Now())

	c.Update("funpack/hero", snap)

	got, ok := c.Get("funpack/hero")
	require.True(t, ok)
	assert.Equal(t, snap.GoodName, got.GoodName)
	assert.Len(t, got.Listings, 1)
}

func TestPriceCache_ApplyAllRetainsMissingGoods(t *testing.T) {
	c := cache.NewPriceCache()
	c.Update("funpack/hero", snapshotAt("funpack/hero", time.Now().Add(-time.Hour)))
	c.Update("otherpack/villain", snapshotAt("otherpack/villain", time.Now().Add(-time.Hour)))

	// 批量应用只覆盖上游返回的商品, 缺失的保留旧快照
	c.ApplyAll(map[string]model.MarketSnapshot{
		"funpack/hero": snapshotAt("funpack/hero", time.Now()),
	})

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("otherpack/villain")
	assert.True(t, ok)
}

func TestPriceCache_Age(t *testing.T) {
	c := cache.NewPriceCache()
	c.Update("funpack/hero", snapshotAt("funpack/hero", time.Now().Add(-10*time.Minute)))

	age, ok := c.Age("funpack/hero")
	require.True(t, ok)
	assert.GreaterOrEqual(t, age, 10*time.Minute)

	_, ok = c.Age("unknown/good")
	assert.False(t, ok)
}

func TestPriceCache_ExportRestoreRoundTrip(t *testing.T) {
	c := cache.NewPriceCache()
	c.Update("funpack/hero", snapshotAt("funpack/hero", time.Now()))

	restored := cache.NewPriceCache()
	restored.Restore(c.Export())

	assert.Equal(t, 1, restored.Len())
	_, ok := restored.Get("funpack/hero")
	assert.True(t, ok)
}

func TestPriceCache_ExportIsCopy(t *testing.T) {
	c := cache.NewPriceCache()
	c.Update("funpack/hero", snapshotAt("funpack/hero", time.Now()))

	exported := c.Export()
	delete(exported, "funpack/hero")

	_, ok := c.Get("funpack/hero")
	assert.True(t, ok)
}
