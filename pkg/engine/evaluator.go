// pkg/engine/evaluator.go
package engine

import (
	"sort"

	"github.com/shopspring/decimal"

	"StickerRadar/pkg/model"
)

// EvaluationResult 一次阈值评估的结果
// 买入和卖出互相独立，市场价差足够大时可以同时触发
type EvaluationResult struct {
	HasData       bool
	BuyTriggered  bool
	SellTriggered bool
	Lowest        decimal.Decimal
	Highest       decimal.Decimal
	BuyThreshold  decimal.Decimal
	SellThreshold decimal.Decimal
	Listings      []model.Listing
}

// ThresholdEvaluator 阈值评估器
// 阈值 = 发行价 × 用户配置的系数；比较使用精确小数，避免浮点误差在阈值边界上抖动
type ThresholdEvaluator struct{}

// NewThresholdEvaluator 创建阈值评估器
func NewThresholdEvaluator() *ThresholdEvaluator {
	return &ThresholdEvaluator{}
}

// Evaluate 评估藏品当前是否满足买入或卖出条件
// 快照缺失或没有任何报价时按"无数据"处理，两个方向都不触发
func (e *ThresholdEvaluator) Evaluate(collection model.Collection, snapshot *model.MarketSnapshot) EvaluationResult {
	result := EvaluationResult{
		BuyThreshold:  collection.LaunchPrice.Mul(collection.BuyMultiplier),
		SellThreshold: collection.LaunchPrice.Mul(collection.SellMultiplier),
	}

	if snapshot == nil || len(snapshot.Listings) == 0 {
		return result
	}

	lowest, ok := snapshot.LowestPrice()
	if !ok {
		return result
	}
	highest, _ := snapshot.HighestPrice()

	result.HasData = true
	result.Lowest = lowest
	result.Highest = highest
	result.Listings = snapshot.Listings
	result.BuyTriggered = lowest.LessThanOrEqual(result.BuyThreshold)
	result.SellTriggered = highest.GreaterThanOrEqual(result.SellThreshold)

	return result
}

// BuyMarkets 报价不高于买入阈值的市场，按价格升序
func (r *EvaluationResult) BuyMarkets() []model.Listing {
	var markets []model.Listing
	for _, l := range r.Listings {
		if l.Price.LessThanOrEqual(r.BuyThreshold) {
			markets = append(markets, l)
		}
	}
	sort.Slice(markets, func(i, j int) bool {
		return markets[i].Price.LessThan(markets[j].Price)
	})
	return markets
}

// SellMarkets 报价不低于卖出阈值的市场，按价格降序
func (r *EvaluationResult) SellMarkets() []model.Listing {
	var markets []model.Listing
	for _, l := range r.Listings {
		if l.Price.GreaterThanOrEqual(r.SellThreshold) {
			markets = append(markets, l)
		}
	}
	sort.Slice(markets, func(i, j int) bool {
		return markets[i].Price.GreaterThan(markets[j].Price)
	})
	return markets
}
