package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"StickerRadar/pkg/engine"
)

// Scheduler 任务调度器
// 单个定时器顺序驱动监控周期：上一个周期没结束时跳过本次触发，
// 保证不会出现对同一份缓存的并发抓取
type Scheduler struct {
	cron   *cron.Cron
	engine *engine.MonitorEngine
	ctx    context.Context
}

// NewScheduler 创建任务调度器
func NewScheduler(ctx context.Context, monitorEngine *engine.MonitorEngine) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		engine: monitorEngine,
		ctx:    ctx,
	}
}

// Start 注册任务并启动调度
// reportHour 只在 reportsEnabled 时生效
func (s *Scheduler) Start(checkInterval time.Duration, reportsEnabled bool, reportHour int) error {
	chain := cron.NewChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	)

	// 周期性价格检查
	// 启动时的首次检查和定时触发共用同一个任务实例，
	// SkipIfStillRunning 才能在两者之间互斥
	cycleJob := chain.Then(cron.FuncJob(func() {
		s.engine.RunCycle(s.ctx)
	}))
	spec := fmt.Sprintf("@every %s", checkInterval)
	if _, err := s.cron.AddJob(spec, cycleJob); err != nil {
		return fmt.Errorf("注册价格检查任务失败: %w", err)
	}

	// 每日行情摘要
	if reportsEnabled {
		reportSpec := fmt.Sprintf("0 %d * * *", reportHour)
		reportJob := chain.Then(cron.FuncJob(func() {
			log.Println("发送每日行情摘要...")
			s.engine.SendDailyReports(s.ctx)
		}))
		if _, err := s.cron.AddJob(reportSpec, reportJob); err != nil {
			return fmt.Errorf("注册每日报告任务失败: %w", err)
		}
	}

	s.cron.Start()

	// 启动后立即执行一次检查，不等第一个周期
	go cycleJob.Run()

	log.Printf("调度器已启动: 检查周期 %s", checkInterval)
	return nil
}

// Stop 停止调度器
// 返回的context在所有运行中的任务结束后关闭，供优雅退出等待
func (s *Scheduler) Stop() context.Context {
	log.Println("正在停止调度器...")
	return s.cron.Stop()
}
