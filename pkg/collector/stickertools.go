package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"StickerRadar/pkg/model"
)

// StickerToolsAdapter 贴纸行情数据源适配器
// 负责把上游两代接口的响应归一化成统一的市场快照结构，
// 核心评估逻辑只依赖归一化后的数据，不感知上游schema变化
type StickerToolsAdapter struct {
	client *StatsClient
}

// NewStickerToolsAdapter 创建贴纸行情适配器
func NewStickerToolsAdapter(baseURL, statsEndpoint string, timeout time.Duration, ratePerMinute int) *StickerToolsAdapter {
	return &StickerToolsAdapter{
		client: NewStatsClient(baseURL, statsEndpoint, timeout, ratePerMinute),
	}
}

// Fetch 抓取行情并按请求的商品集合过滤
// 上游返回请求子集是正常情况，缺失的商品由调用方保留旧快照
func (a *StickerToolsAdapter) Fetch(ctx context.Context, goodNames map[string]struct{}) (map[string]model.MarketSnapshot, error) {
	raw, err := a.client.FetchStats(ctx)
	if err != nil {
		return nil, err
	}

	snapshots, err := a.Normalize(raw)
	if err != nil {
		return nil, err
	}

	// 只保留被跟踪的商品
	if len(goodNames) > 0 {
		filtered := make(map[string]model.MarketSnapshot, len(goodNames))
		for name := range goodNames {
			if snap, ok := snapshots[name]; ok {
				filtered[name] = snap
			}
		}
		snapshots = filtered
	}

	return snapshots, nil
}

// GoodKey 由藏品名和贴纸包名构造商品匹配键
func GoodKey(collectionName, stickerName string) string {
	return model.NormalizeGoodName(collectionName + "/" + stickerName)
}

// Normalize 把上游响应归一化为商品名到快照的映射
// 兼容两代接口：旧版返回bundle数组，新版返回collections字典
func (a *StickerToolsAdapter) Normalize(raw json.RawMessage) (map[string]model.MarketSnapshot, error) {
	trimmed := strings.TrimSpace(string(raw))
	fetchedAt := time.Now()

	if strings.HasPrefix(trimmed, "[") {
		// 旧版扁平bundle数组
		var bundles []map[string]interface{}
		if err := json.Unmarshal(raw, &bundles); err != nil {
			return nil, &UpstreamError{Op: "parse", Err: err}
		}
		return a.normalizeBundles(bundles, fetchedAt), nil
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &UpstreamError{Op: "parse", Err: err}
	}

	collections, ok := payload["collections"].(map[string]interface{})
	if !ok {
		return nil, &UpstreamError{Op: "parse", Err: fmt.Errorf("响应缺少collections字段")}
	}

	return a.normalizeStatsPayload(collections, fetchedAt), nil
}

// normalizeStatsPayload 归一化新版统计接口的响应
func (a *StickerToolsAdapter) normalizeStatsPayload(collections map[string]interface{}, fetchedAt time.Time) map[string]model.MarketSnapshot {
	snapshots := make(map[string]model.MarketSnapshot)

	for collectionID, rawCollection := range collections {
		collection, ok := rawCollection.(map[string]interface{})
		if !ok {
			continue
		}

		collectionName, _ := collection["name"].(string)

		// stickers字段可能是字典也可能是数组
		var stickers []interface{}
		switch s := collection["stickers"].(type) {
		case map[string]interface{}:
			for _, v := range s {
				stickers = append(stickers, v)
			}
		case []interface{}:
			stickers = s
		}

		for _, rawSticker := range stickers {
			sticker, ok := rawSticker.(map[string]interface{})
			if !ok {
				continue
			}

			stickerName, _ := sticker["name"].(string)
			if stickerName == "" {
				continue
			}

			// 地板价嵌套在 current.price.floor.ton
			floor, err := extractNestedDecimal(sticker, "current", "price", "floor", "ton")
			if err != nil {
				log.Printf("商品 %s/%s 没有可用地板价: %v", collectionName, stickerName, err)
				continue
			}

			snap := model.MarketSnapshot{
				GoodName:  GoodKey(collectionName, stickerName),
				FetchedAt: fetchedAt,
				Listings: []model.Listing{
					{
						Marketplace: "STICKERS_TOOLS",
						Price:       floor,
						URL:         buildStickerURL(collectionID, sticker["id"]),
					},
				},
			}
			snapshots[snap.GoodName] = snap
		}
	}

	return snapshots
}

// normalizeBundles 归一化旧版bundle数组响应
func (a *StickerToolsAdapter) normalizeBundles(bundles []map[string]interface{}, fetchedAt time.Time) map[string]model.MarketSnapshot {
	snapshots := make(map[string]model.MarketSnapshot)

	for _, bundle := range bundles {
		collectionName, _ := bundle["collectionName"].(string)
		characterName, _ := bundle["characterName"].(string)
		if characterName == "" {
			continue
		}

		marketplaces, _ := bundle["marketplaces"].([]interface{})

		var listings []model.Listing
		for _, rawMarket := range marketplaces {
			market, ok := rawMarket.(map[string]interface{})
			if !ok {
				continue
			}

			name, _ := market["marketplace"].(string)
			if name == "" {
				continue
			}

			price, err := toDecimal(market["price"])
			if err != nil {
				log.Printf("市场 %s 报价无法解析: %v", name, err)
				continue
			}

			url, _ := market["url"].(string)
			listings = append(listings, model.Listing{
				Marketplace: name,
				Price:       price,
				URL:         url,
			})
		}

		if len(listings) == 0 {
			continue
		}

		snap := model.MarketSnapshot{
			GoodName:  GoodKey(collectionName, characterName),
			Listings:  listings,
			FetchedAt: fetchedAt,
		}
		snapshots[snap.GoodName] = snap
	}

	return snapshots
}

// extractNestedDecimal 按路径提取嵌套的数值字段
func extractNestedDecimal(data map[string]interface{}, path ...string) (decimal.Decimal, error) {
	var node interface{} = data
	for _, key := range path {
		m, ok := node.(map[string]interface{})
		if !ok {
			return decimal.Zero, fmt.Errorf("路径 %s 不存在", strings.Join(path, "."))
		}
		node = m[key]
	}
	return toDecimal(node)
}

// toDecimal 把接口类型转换为精确小数
// 上游报价历史上出现过数字和数字字符串两种表示
func toDecimal(v interface{}) (decimal.Decimal, error) {
	switch value := v.(type) {
	case float64:
		return decimal.NewFromFloat(value), nil
	case string:
		d, err := decimal.NewFromString(value)
		if err != nil {
			return decimal.Zero, fmt.Errorf("无法解析数字字符串 %q: %w", value, err)
		}
		return d, nil
	case json.Number:
		d, err := decimal.NewFromString(value.String())
		if err != nil {
			return decimal.Zero, fmt.Errorf("无法解析数字 %q: %w", value, err)
		}
		return d, nil
	case int:
		return decimal.NewFromInt(int64(value)), nil
	case int64:
		return decimal.NewFromInt(value), nil
	default:
		return decimal.Zero, fmt.Errorf("无法转换为decimal: %v", v)
	}
}

// buildStickerURL 构造贴纸详情页链接
func buildStickerURL(collectionID string, stickerID interface{}) string {
	if collectionID == "" || stickerID == nil {
		return ""
	}
	return fmt.Sprintf("https://assets.tools/collection/%s?sticker=%v", collectionID, stickerID)
}
