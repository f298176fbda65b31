package collector_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StickerRadar/pkg/collector"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

const bundlesPayload = `[
	{
		"collectionName": "FunPack",
		"characterName": "Hero",
		"marketplaces": [
			{"marketplace": "MRKT", "price": 15.5, "url": "https://mrkt.example/hero"},
			{"marketplace": "Fragment", "price": "16.2", "url": "https://fragment.example/hero"}
		]
	},
	{
		"collectionName": "FunPack",
		"characterName": "Villain",
		"marketplaces": []
	}
]`

const statsPayload = `{
	"collections": {
		"col-1": {
			"name": "FunPack",
			"stickers": {
				"s1": {
					"id": 7,
					"name": "Hero",
					"current": {"price": {"floor": {"ton": "12.25"}}}
				},
				"s2": {
					"id": 8,
					"name": "Villain",
					"current": {"price": {}}
				}
			}
		}
	}
}`

func TestNormalize_LegacyBundles(t *testing.T) {
	a := collector.NewStickerToolsAdapter("http://example", "/stats", time.Second, 60)

	snapshots, err := a.Normalize(json.RawMessage(bundlesPayload))
	require.NoError(t, err)

	// 没有任何报价的bundle被丢弃
	require.Len(t, snapshots, 1)

	snap, ok := snapshots["funpack/hero"]
	require.True(t, ok)
	require.Len(t, snap.Listings, 2)
	assert.Equal(t, "MRKT", snap.Listings[0].Marketplace)
	assert.True(t, snap.Listings[0].Price.Equal(dec("15.5")))
	// 数字字符串形式的报价同样解析
	assert.True(t, snap.Listings[1].Price.Equal(dec("16.2")))
	assert.Equal(t, "https://fragment.example/hero", snap.Listings[1].URL)
}

func TestNormalize_StatsPayload(t *testing.T) {
	a := collector.NewStickerToolsAdapter("http://example", "/stats", time.Second, 60)

	snapshots, err := a.Normalize(json.RawMessage(statsPayload))
	require.NoError(t, err)

	// 缺少地板价的贴纸被跳过
	require.Len(t, snapshots, 1)

	snap, ok := snapshots["funpack/hero"]
	require.True(t, ok)
	require.Len(t, snap.Listings, 1)
	assert.Equal(t, "STICKERS_TOOLS", snap.Listings[0].Marketplace)
	assert.True(t, snap.Listings[0].Price.Equal(dec("12.25")))
	assert.Equal(t, "https://assets.tools/collection/col-1?sticker=7", snap.Listings[0].URL)
}

func TestNormalize_StatsPayloadWithStickerArray(t *testing.T) {
	a := collector.NewStickerToolsAdapter("http://example", "/stats", time.Second, 60)

	payload := `{"collections": {"col-1": {"name": "FunPack", "stickers": [
		{"id": 7, "name": "Hero", "current": {"price": {"floor": {"ton": 9}}}}
	]}}}`

	snapshots, err := a.Normalize(json.RawMessage(payload))
	require.NoError(t, err)

	snap, ok := snapshots["funpack/hero"]
	require.True(t, ok)
	assert.True(t, snap.Listings[0].Price.Equal(dec("9")))
}

func TestNormalize_MissingCollectionsField(t *testing.T) {
	a := collector.NewStickerToolsAdapter("http://example", "/stats", time.Second, 60)

	_, err := a.Normalize(json.RawMessage(`{"bundles": []}`))
	require.Error(t, err)

	var upstreamErr *collector.UpstreamError
	assert.True(t, errors.As(err, &upstreamErr))
}

func TestNormalize_InvalidJSON(t *testing.T) {
	a := collector.NewStickerToolsAdapter("http://example", "/stats", time.Second, 60)

	_, err := a.Normalize(json.RawMessage(`{not json`))
	var upstreamErr *collector.UpstreamError
	assert.True(t, errors.As(err, &upstreamErr))
}

func TestGoodKey_CaseInsensitive(t *testing.T) {
	assert.Equal(t, "funpack/hero", collector.GoodKey("FunPack", "Hero"))
	assert.Equal(t, collector.GoodKey("FUNPACK", "HERO"), collector.GoodKey("funpack", "hero"))
}

func TestFetch_FiltersToRequestedGoods(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stats", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(statsPayload))
	}))
	defer srv.Close()

	a := collector.NewStickerToolsAdapter(srv.URL, "/stats", 5*time.Second, 600)

	snapshots, err := a.Fetch(context.Background(), map[string]struct{}{
		"funpack/hero":  {},
		"unknown/thing": {},
	})
	require.NoError(t, err)

	// 只保留被跟踪的商品, 上游没有的商品不出现在结果里
	require.Len(t, snapshots, 1)
	_, ok := snapshots["funpack/hero"]
	assert.True(t, ok)
}

func TestFetch_UpstreamErrorOnBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	a := collector.NewStickerToolsAdapter(srv.URL, "/stats", 5*time.Second, 600)

	_, err := a.Fetch(context.Background(), map[string]struct{}{"funpack/hero": {}})
	require.Error(t, err)

	var upstreamErr *collector.UpstreamError
	assert.True(t, errors.As(err, &upstreamErr))
}
