// pkg/engine/monitor_engine.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"StickerRadar/pkg/cache"
	"StickerRadar/pkg/collector"
	"StickerRadar/pkg/model"
	"StickerRadar/pkg/monitor"
)

// CollectionLister 藏品清单提供方（用户配置存储）
// 引擎只读；每个周期开始时取一次清单快照，周期内不感知并发编辑
type CollectionLister interface {
	ListAll() ([]model.Collection, error)
}

// Notifier 通知投递通道
// 投递失败不致命：只有价格条件持续到下个周期才会再次触发，丢失的通知不重发
type Notifier interface {
	SendPriceAlert(ctx context.Context, userID int64, alert model.PriceAlert) error
	SendText(ctx context.Context, userID int64, text string) error
}

// AlertPublisher 已触发提醒的消息发布方（可选，NATS）
type AlertPublisher interface {
	PublishAlert(alert model.PriceAlert) error
}

// AlertRecorder 提醒历史记录方（可选）
type AlertRecorder interface {
	SaveAlert(alert *model.PriceAlert) error
}

// StatePersister 缓存和台账的持久化存储
type StatePersister interface {
	SaveCache(snapshots map[string]model.MarketSnapshot) error
	SaveLedger(states map[string]model.AlertState) error
}

// MonitorEngine 价格监控引擎
// 驱动 抓取 -> 更新缓存 -> 阈值评估 -> 通知去重 -> 投递 -> 持久化 的完整周期
type MonitorEngine struct {
	fetcher     collector.BundleFetcher
	cache       *cache.PriceCache
	evaluator   *ThresholdEvaluator
	ledger      *NotificationLedger
	collections CollectionLister
	notifier    Notifier
	persister   StatePersister

	publisher AlertPublisher   // 可选
	recorder  AlertRecorder    // 可选
	health    *monitor.Monitor // 可选

	staleAfter         time.Duration
	maxConcurrentSends int
}

// NewMonitorEngine 创建监控引擎
func NewMonitorEngine(
	fetcher collector.BundleFetcher,
	priceCache *cache.PriceCache,
	ledger *NotificationLedger,
	collections CollectionLister,
	notifier Notifier,
	persister StatePersister,
	staleAfter time.Duration,
	maxConcurrentSends int,
) *MonitorEngine {
	if maxConcurrentSends <= 0 {
		maxConcurrentSends = 1
	}
	return &MonitorEngine{
		fetcher:            fetcher,
		cache:              priceCache,
		evaluator:          NewThresholdEvaluator(),
		ledger:             ledger,
		collections:        collections,
		notifier:           notifier,
		persister:          persister,
		staleAfter:         staleAfter,
		maxConcurrentSends: maxConcurrentSends,
	}
}

// SetPublisher 设置提醒事件发布方
func (e *MonitorEngine) SetPublisher(publisher AlertPublisher) {
	e.publisher = publisher
}

// SetRecorder 设置提醒历史记录方
func (e *MonitorEngine) SetRecorder(recorder AlertRecorder) {
	e.recorder = recorder
}

// SetHealthMonitor 设置组件健康上报
func (e *MonitorEngine) SetHealthMonitor(health *monitor.Monitor) {
	e.health = health
}

// Ledger 引擎持有的通知台账（藏品编辑流程需要重置状态时使用）
func (e *MonitorEngine) Ledger() *NotificationLedger {
	return e.ledger
}

// Cache 引擎持有的价格缓存
func (e *MonitorEngine) Cache() *cache.PriceCache {
	return e.cache
}

// RunCycle 执行一个完整的监控周期
// 整个周期的抓取失败只记录日志并提前结束，不修改缓存和台账；
// 单个藏品的评估错误只跳过该藏品，不影响其他藏品
func (e *MonitorEngine) RunCycle(ctx context.Context) {
	log.Println("价格检查周期开始...")

	// 周期开始时取一次藏品清单快照，隔离周期内的并发编辑
	collections, err := e.collections.ListAll()
	if err != nil {
		log.Printf("加载藏品清单失败: %v", err)
		e.reportHealth("storage", "unhealthy", err.Error())
		return
	}

	// 计算被跟踪的商品集合
	goodNames := make(map[string]struct{})
	for _, c := range collections {
		goodNames[model.NormalizeGoodName(c.GoodName)] = struct{}{}
	}

	if len(goodNames) > 0 {
		snapshots, err := e.fetcher.Fetch(ctx, goodNames)
		if err != nil {
			// 上游整体不可用：本周期提前结束，缓存和台账保持不变
			log.Printf("抓取行情失败，本周期跳过: %v", err)
			e.reportHealth("upstream", "unhealthy", err.Error())
			return
		}
		e.reportHealth("upstream", "healthy", "")

		// 部分结果正常应用；上游未返回的商品保留旧快照
		e.cache.ApplyAll(snapshots)
		if len(snapshots) < len(goodNames) {
			log.Printf("上游返回 %d/%d 个商品，缺失的商品沿用缓存快照", len(snapshots), len(goodNames))
		}
	}

	// 评估全部藏品，收集本周期需要发出的提醒
	var alerts []model.PriceAlert
	for _, c := range collections {
		collectionAlerts, err := e.checkCollection(c)
		if err != nil {
			// 单个藏品配置问题只跳过该藏品
			log.Printf("藏品评估跳过: %v", err)
			continue
		}
		alerts = append(alerts, collectionAlerts...)
	}

	// 先落台账再投递：避免重启后同一次状态转移重复发送
	e.persistLedger()

	if len(alerts) > 0 {
		e.dispatch(ctx, alerts)
	}

	// 周期结束落缓存和台账
	if err := e.persister.SaveCache(e.cache.Export()); err != nil {
		log.Printf("%v", err)
	}
	e.persistLedger()

	log.Printf("价格检查周期完成: %d 个商品, %d 个藏品, 触发 %d 条提醒",
		len(goodNames), len(collections), len(alerts))
}

// checkCollection 评估单个藏品的两个方向
func (e *MonitorEngine) checkCollection(c model.Collection) ([]model.PriceAlert, error) {
	if err := c.Validate(); err != nil {
		var cfgErr *model.ConfigurationError
		if errors.As(err, &cfgErr) {
			return nil, err
		}
		return nil, fmt.Errorf("藏品 %s 校验失败: %w", c.ID, err)
	}

	goodName := model.NormalizeGoodName(c.GoodName)
	var snapshot *model.MarketSnapshot
	if snap, ok := e.cache.Get(goodName); ok {
		snapshot = &snap

		// 过期数据只提示不拦截：过期的"条件仍然成立"依旧有参考价值
		if age, ok := e.cache.Age(goodName); ok && e.staleAfter > 0 && age > e.staleAfter {
			log.Printf("商品 %s 的快照已过期 %s，仍按旧数据评估", goodName, age.Round(time.Second))
			e.reportHealth("upstream", "degraded", fmt.Sprintf("商品 %s 数据过期", goodName))
		}
	}

	result := e.evaluator.Evaluate(c, snapshot)

	var alerts []model.PriceAlert

	if e.ledger.ShouldFire(c.OwnerUserID, c.ID, model.DirectionBuy, result.BuyTriggered, result.Lowest) {
		alerts = append(alerts, model.PriceAlert{
			UserID:       c.OwnerUserID,
			CollectionID: c.ID,
			Direction:    model.DirectionBuy,
			DisplayName:  c.DisplayName,
			GoodName:     c.GoodName,
			Threshold:    result.BuyThreshold,
			TriggerPrice: result.Lowest,
			Markets:      result.BuyMarkets(),
			CreatedAt:    time.Now(),
		})
	}

	if e.ledger.ShouldFire(c.OwnerUserID, c.ID, model.DirectionSell, result.SellTriggered, result.Highest) {
		alerts = append(alerts, model.PriceAlert{
			UserID:       c.OwnerUserID,
			CollectionID: c.ID,
			Direction:    model.DirectionSell,
			DisplayName:  c.DisplayName,
			GoodName:     c.GoodName,
			Threshold:    result.SellThreshold,
			TriggerPrice: result.Highest,
			Markets:      result.SellMarkets(),
			CreatedAt:    time.Now(),
		})
	}

	return alerts, nil
}

// dispatch 并发投递本周期的提醒，受并发上限约束
// 用户之间的投递顺序没有保证
func (e *MonitorEngine) dispatch(ctx context.Context, alerts []model.PriceAlert) {
	sem := make(chan struct{}, e.maxConcurrentSends)
	var wg sync.WaitGroup

	for i := range alerts {
		alert := alerts[i]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			if err := e.notifier.SendPriceAlert(ctx, alert.UserID, alert); err != nil {
				// 投递失败接受丢失：条件持续到下个周期才会重新触发
				log.Printf("发送提醒失败 用户=%d 藏品=%s 方向=%s: %v",
					alert.UserID, alert.CollectionID, alert.Direction, err)
				e.reportHealth("telegram", "degraded", err.Error())
				return
			}
			e.reportHealth("telegram", "healthy", "")
			log.Printf("已发送%s提醒 用户=%d 藏品=%s 价格=%s",
				directionLabel(alert.Direction), alert.UserID, alert.DisplayName, alert.TriggerPrice)

			if e.recorder != nil {
				if err := e.recorder.SaveAlert(&alert); err != nil {
					log.Printf("保存提醒历史失败: %v", err)
				}
			}
			if e.publisher != nil {
				if err := e.publisher.PublishAlert(alert); err != nil {
					log.Printf("发布提醒事件失败: %v", err)
				}
			}
		}()
	}

	wg.Wait()
}

// persistLedger 落台账，失败只记录日志，内存状态保持权威
func (e *MonitorEngine) persistLedger() {
	if err := e.persister.SaveLedger(e.ledger.Export()); err != nil {
		log.Printf("%v", err)
		e.reportHealth("storage", "degraded", err.Error())
		return
	}
	e.reportHealth("storage", "healthy", "")
}

func (e *MonitorEngine) reportHealth(component, status, message string) {
	if e.health != nil {
		e.health.UpdateStatus(component, status, message)
	}
}

func directionLabel(d model.Direction) string {
	if d == model.DirectionBuy {
		return "买入"
	}
	return "卖出"
}
