package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"StickerRadar/pkg/api"
	"StickerRadar/pkg/cache"
	"StickerRadar/pkg/collector"
	"StickerRadar/pkg/config"
	"StickerRadar/pkg/database"
	"StickerRadar/pkg/engine"
	"StickerRadar/pkg/messaging"
	"StickerRadar/pkg/monitor"
	"StickerRadar/pkg/notifier"
	"StickerRadar/pkg/repository"
	"StickerRadar/pkg/scheduler"
	"StickerRadar/pkg/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("启动价格监控服务...")

	// 加载 .env（不存在时忽略）
	_ = godotenv.Load()

	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v\n", err)
	}

	// 状态文件存储（价格缓存和通知台账始终落在本地文件）
	fileStore, err := store.NewFileStore(cfg.Storage.DataDir)
	if err != nil {
		log.Fatalf("初始化文件存储失败: %v\n", err)
	}
	stateStore := repository.NewStateStore(fileStore)

	// 藏品存储按配置选择驱动
	var (
		collectionStore repository.CollectionStore
		recorder        engine.AlertRecorder
		history         api.AlertHistory
	)
	switch cfg.Storage.Driver {
	case "postgres":
		pg, err := database.NewPostgresStore(cfg)
		if err != nil {
			log.Fatalf("连接数据库失败: %v\n", err)
		}
		collectionStore, recorder, history = pg, pg, pg
	default:
		repo, err := repository.NewRepository(fileStore)
		if err != nil {
			// 持久化数据损坏时拒绝启动，避免带着错误状态运行
			log.Fatalf("加载持久化数据失败: %v\n", err)
		}
		collectionStore, recorder, history = repo, repo, repo
	}

	// 恢复上次运行的价格缓存和通知台账
	priceCache := cache.NewPriceCache()
	snapshots, err := stateStore.LoadCache()
	if err != nil {
		log.Fatalf("加载价格缓存失败: %v\n", err)
	}
	priceCache.Restore(snapshots)

	ledger := engine.NewNotificationLedger()
	states, err := stateStore.LoadLedger()
	if err != nil {
		log.Fatalf("加载通知台账失败: %v\n", err)
	}
	ledger.Restore(states)
	log.Printf("已恢复 %d 条价格快照, %d 条提醒状态\n", priceCache.Len(), len(states))

	// 上游行情适配器
	fetcher := collector.NewStickerToolsAdapter(
		cfg.Upstream.BaseURL,
		cfg.Upstream.StatsEndpoint,
		cfg.Upstream.Timeout,
		cfg.Upstream.RatePerMinute,
	)

	// Telegram通知渠道
	tgNotifier, err := notifier.NewTelegramNotifier(cfg.Telegram.Token)
	if err != nil {
		log.Fatalf("初始化Telegram失败: %v\n", err)
	}

	// 组件健康监控
	mon := monitor.NewMonitor(func(component, status, message string) {
		log.Printf("告警: 组件[%s]状态变为[%s], 消息: %s\n", component, status, message)
	})
	mon.RegisterComponent("upstream")
	mon.RegisterComponent("telegram")
	mon.RegisterComponent("storage")

	// 监控引擎
	monitorEngine := engine.NewMonitorEngine(
		fetcher,
		priceCache,
		ledger,
		collectionStore,
		tgNotifier,
		stateStore,
		cfg.Monitor.StaleAfter,
		cfg.Monitor.MaxConcurrentSends,
	)
	monitorEngine.SetRecorder(recorder)
	monitorEngine.SetHealthMonitor(mon)

	// NATS消息发布（可选）
	var natsClient *messaging.NATSClient
	if cfg.NATS.URL != "" {
		mon.RegisterComponent("nats")
		natsClient, err = messaging.NewNATSClient(cfg.NATS.URL, cfg.NATS.ClientID)
		if err != nil {
			// 消息发布是旁路能力，连不上只降级不退出
			log.Printf("连接NATS失败, 提醒事件不会发布: %v\n", err)
			mon.UpdateStatus("nats", "unhealthy", err.Error())
		} else {
			monitorEngine.SetPublisher(natsClient)
			mon.UpdateStatus("nats", "healthy", "已连接")
		}
	}

	// 管理API
	handlers := api.NewHandlers(collectionStore, history, monitorEngine, mon)
	server := api.NewServer(cfg.API.Port, cfg.API.ReadTimeout, cfg.API.WriteTimeout)
	server.SetupRoutes(handlers)
	server.Start()

	// 启动调度
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.NewScheduler(ctx, monitorEngine)
	if err := sched.Start(cfg.Monitor.CheckInterval, cfg.Reports.Enabled, cfg.Reports.Hour); err != nil {
		log.Fatalf("启动调度器失败: %v\n", err)
	}

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("收到退出信号, 正在关闭...")

	// 停止调度并等待正在执行的周期结束
	cancel()
	stopCtx := sched.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(shutdownTimeout):
		log.Println("等待监控周期结束超时, 强制退出")
	}

	server.Shutdown(5 * time.Second)

	// 最后一次落盘，保证重启后不重复发送已触发的提醒
	if err := stateStore.SaveCache(priceCache.Export()); err != nil {
		log.Printf("保存价格缓存失败: %v\n", err)
	}
	if err := stateStore.SaveLedger(ledger.Export()); err != nil {
		log.Printf("保存通知台账失败: %v\n", err)
	}

	if natsClient != nil {
		if err := natsClient.Close(); err != nil {
			log.Printf("关闭NATS连接失败: %v\n", err)
		}
	}

	log.Println("监控服务已退出")
}
