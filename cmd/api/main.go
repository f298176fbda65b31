package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"StickerRadar/pkg/api"
	"StickerRadar/pkg/config"
	"StickerRadar/pkg/database"
	"StickerRadar/pkg/engine"
	"StickerRadar/pkg/messaging"
	"StickerRadar/pkg/model"
	"StickerRadar/pkg/monitor"
	"StickerRadar/pkg/repository"
	"StickerRadar/pkg/store"
)

// 独立API服务：只提供藏品管理和提醒历史查询，
// 价格监控周期由monitor进程负责。两个进程部署在一起时共用同一个存储。
func main() {
	log.Println("启动API服务...")

	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v\n", err)
	}

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
		fileStore, err := store.NewFileStore(cfg.Storage.DataDir)
		if err != nil {
			log.Fatalf("初始化文件存储失败: %v\n", err)
		}
		repo, err := repository.NewRepository(fileStore)
		if err != nil {
			log.Fatalf("加载持久化数据失败: %v\n", err)
		}
		collectionStore, recorder, history = repo, repo, repo
	}

	mon := monitor.NewMonitor(func(component, status, message string) {
		log.Printf("告警: 组件[%s]状态变为[%s], 消息: %s\n", component, status, message)
	})
	mon.RegisterComponent("storage")

	// 订阅monitor进程发布的提醒事件并写入历史（可选）
	var natsClient *messaging.NATSClient
	if cfg.NATS.URL != "" {
		mon.RegisterComponent("nats")
		natsClient, err = messaging.NewNATSClient(cfg.NATS.URL, cfg.NATS.ClientID+"-api")
		if err != nil {
			log.Printf("连接NATS失败, 不订阅提醒事件: %v\n", err)
			mon.UpdateStatus("nats", "unhealthy", err.Error())
		} else {
			mon.UpdateStatus("nats", "healthy", "已连接")
			err = natsClient.SubscribeAlerts("api-history", func(alert model.PriceAlert) error {
				return recorder.SaveAlert(&alert)
			})
			if err != nil {
				log.Printf("订阅提醒事件失败: %v\n", err)
			}
		}
	}

	// 本进程没有监控引擎，即时查价接口返回不可用
	handlers := api.NewHandlers(collectionStore, history, nil, mon)
	server := api.NewServer(cfg.API.Port, cfg.API.ReadTimeout, cfg.API.WriteTimeout)
	server.SetupRoutes(handlers)
	server.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("收到退出信号, 正在关闭...")

	server.Shutdown(5 * time.Second)

	if natsClient != nil {
		if err := natsClient.Close(); err != nil {
			log.Printf("关闭NATS连接失败: %v\n", err)
		}
	}

	log.Println("API服务已退出")
}
