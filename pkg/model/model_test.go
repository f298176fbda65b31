package model_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StickerRadar/pkg/model"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCollectionValidate(t *testing.T) {
	valid := model.Collection{
		GoodName:       "funpack/hero",
		LaunchPrice:    dec("10"),
		BuyMultiplier:  dec("2"),
		SellMultiplier: dec("3"),
	}
	assert.NoError(t, valid.Validate())

	cases := []struct {
		name   string
		mutate func(*model.Collection)
		field  string
	}{
		{"空商品名", func(c *model.Collection) { c.GoodName = "  " }, "good_name"},
		{"发行价为0", func(c *model.Collection) { c.LaunchPrice = dec("0") }, "launch_price"},
		{"发行价为负", func(c *model.Collection) { c.LaunchPrice = dec("-1") }, "launch_price"},
		{"买入系数为0", func(c *model.Collection) { c.BuyMultiplier = dec("0") }, "buy_multiplier"},
		{"卖出系数为0", func(c *model.Collection) { c.SellMultiplier = dec("0") }, "sell_multiplier"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := valid
			tc.mutate(&c)

			err := c.Validate()
			require.Error(t, err)

			var cfgErr *model.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tc.field, cfgErr.Field)
		})
	}
}

func TestNormalizeGoodName(t *testing.T) {
	assert.Equal(t, "funpack/hero", model.NormalizeGoodName("  FunPack/Hero "))
	assert.Equal(t, model.NormalizeGoodName("A/B"), model.NormalizeGoodName("a/b"))
}

func TestSnapshotLowestHighest(t *testing.T) {
	snap := model.MarketSnapshot{
		Listings: []model.Listing{
			{Marketplace: "a", Price: dec("16.2")},
			{Marketplace: "b", Price: dec("15.5")},
			{Marketplace: "c", Price: dec("35")},
		},
	}

	lowest, ok := snap.LowestPrice()
	require.True(t, ok)
	assert.True(t, lowest.Equal(dec("15.5")))

	highest, ok := snap.HighestPrice()
	require.True(t, ok)
	assert.True(t, highest.Equal(dec("35")))
}

func TestSnapshotLowestHighest_Empty(t *testing.T) {
	var snap model.MarketSnapshot

	_, ok := snap.LowestPrice()
	assert.False(t, ok)
	_, ok = snap.HighestPrice()
	assert.False(t, ok)
}

func TestStateKey(t *testing.T) {
	assert.Equal(t, "100:c1:buy", model.StateKey(100, "c1", model.DirectionBuy))
	assert.NotEqual(t,
		model.StateKey(100, "c1", model.DirectionBuy),
		model.StateKey(100, "c1", model.DirectionSell))
}
