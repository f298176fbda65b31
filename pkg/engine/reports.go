// pkg/engine/reports.go
package engine

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/shopspring/decimal"

	"StickerRadar/pkg/model"
)

// AvailabilityResult 藏品在上游的可查状态
// 引导创建流程在保存藏品前用它确认商品存在，复用监控周期同一套归一化逻辑
type AvailabilityResult struct {
	Found       bool
	HasPrices   bool
	LowestPrice decimal.Decimal
}

// CheckAvailability 检查商品当前是否能在上游查到报价
func (e *MonitorEngine) CheckAvailability(ctx context.Context, goodName string) (AvailabilityResult, error) {
	key := model.NormalizeGoodName(goodName)
	snapshots, err := e.fetcher.Fetch(ctx, map[string]struct{}{key: {}})
	if err != nil {
		return AvailabilityResult{}, err
	}

	snap, ok := snapshots[key]
	if !ok {
		return AvailabilityResult{}, nil
	}

	result := AvailabilityResult{Found: true}
	if lowest, ok := snap.LowestPrice(); ok {
		result.HasPrices = true
		result.LowestPrice = lowest
	}
	return result, nil
}

// ManualCheckLine 手动查价结果中单个藏品的一行
type ManualCheckLine struct {
	DisplayName string          `json:"display_name"`
	Found       bool            `json:"found"`
	LowestPrice decimal.Decimal `json:"lowest_price"`
}

// ManualCheck 对指定用户的全部藏品立即查一次价
// 抓取结果同时回灌缓存，让下个监控周期也能受益
func (e *MonitorEngine) ManualCheck(ctx context.Context, userID int64) ([]ManualCheckLine, error) {
	collections, err := e.listByUser(userID)
	if err != nil {
		return nil, err
	}
	if len(collections) == 0 {
		return nil, nil
	}

	goodNames := make(map[string]struct{}, len(collections))
	for _, c := range collections {
		goodNames[model.NormalizeGoodName(c.GoodName)] = struct{}{}
	}

	snapshots, err := e.fetcher.Fetch(ctx, goodNames)
	if err != nil {
		return nil, err
	}
	e.cache.ApplyAll(snapshots)

	lines := make([]ManualCheckLine, 0, len(collections))
	for _, c := range collections {
		line := ManualCheckLine{DisplayName: c.DisplayName}
		if snap, ok := snapshots[model.NormalizeGoodName(c.GoodName)]; ok {
			if lowest, ok := snap.LowestPrice(); ok {
				line.Found = true
				line.LowestPrice = lowest
			}
		}
		lines = append(lines, line)
	}

	return lines, nil
}

// SendDailyReports 给每个有藏品的用户发送当日行情摘要
// 摘要基于缓存快照，不额外请求上游
func (e *MonitorEngine) SendDailyReports(ctx context.Context) {
	collections, err := e.collections.ListAll()
	if err != nil {
		log.Printf("加载藏品清单失败，跳过每日报告: %v", err)
		return
	}

	byUser := make(map[int64][]model.Collection)
	for _, c := range collections {
		byUser[c.OwnerUserID] = append(byUser[c.OwnerUserID], c)
	}

	users := make([]int64, 0, len(byUser))
	for userID := range byUser {
		users = append(users, userID)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })

	sent := 0
	for _, userID := range users {
		text := e.buildDailyReport(byUser[userID])
		if err := e.notifier.SendText(ctx, userID, text); err != nil {
			log.Printf("发送每日报告失败 用户=%d: %v", userID, err)
			continue
		}
		sent++
	}

	log.Printf("每日报告发送完成: %d/%d 个用户", sent, len(users))
}

// buildDailyReport 汇总单个用户全部藏品的当前最低价
func (e *MonitorEngine) buildDailyReport(collections []model.Collection) string {
	text := fmt.Sprintf("📊 每日行情摘要 (%d 个藏品)\n\n", len(collections))

	for _, c := range collections {
		snap, ok := e.cache.Get(model.NormalizeGoodName(c.GoodName))
		if !ok {
			text += fmt.Sprintf("📦 %s: 暂无行情数据\n", c.DisplayName)
			continue
		}
		lowest, ok := snap.LowestPrice()
		if !ok {
			text += fmt.Sprintf("📦 %s: 暂无报价\n", c.DisplayName)
			continue
		}
		text += fmt.Sprintf("📦 %s: Lowest: %s TON\n", c.DisplayName, lowest)
	}

	return text
}

func (e *MonitorEngine) listByUser(userID int64) ([]model.Collection, error) {
	all, err := e.collections.ListAll()
	if err != nil {
		return nil, err
	}
	var out []model.Collection
	for _, c := range all {
		if c.OwnerUserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}
