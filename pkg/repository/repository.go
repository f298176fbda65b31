package repository

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"StickerRadar/pkg/model"
	"StickerRadar/pkg/store"
)

// 提醒历史的保留条数上限
const maxAlertHistory = 500

// CollectionStore 藏品存储接口
// 监控引擎只读；写操作来自外部的引导创建/编辑流程和REST接口
type CollectionStore interface {
	ListAll() ([]model.Collection, error)
	ListByUser(userID int64) ([]model.Collection, error)
	Get(id string) (*model.Collection, error)
	Save(collection *model.Collection) error
	Update(collection *model.Collection) error
	Delete(id string) error
}

// Repository 基于JSON文件的数据仓库
// 内存为权威数据，每次写操作后整体落盘
type Repository struct {
	*StateStore

	collections map[string]*model.Collection
	alerts      []model.PriceAlert
	fs          *store.FileStore
	mutex       sync.RWMutex
}

// NewRepository 创建数据仓库并加载已持久化的数据
// 持久化文件损坏无法解析是唯一的致命路径，直接返回错误由进程启动失败
func NewRepository(fs *store.FileStore) (*Repository, error) {
	r := &Repository{
		StateStore:  NewStateStore(fs),
		collections: make(map[string]*model.Collection),
		fs:          fs,
	}

	var collections map[string]*model.Collection
	if _, err := fs.Load("collections", &collections); err != nil {
		return nil, fmt.Errorf("加载藏品数据失败: %w", err)
	}
	if collections != nil {
		r.collections = collections
	}

	var alerts []model.PriceAlert
	if _, err := fs.Load("alert_history", &alerts); err != nil {
		return nil, fmt.Errorf("加载提醒历史失败: %w", err)
	}
	r.alerts = alerts

	return r, nil
}

// ListAll 全部用户的全部藏品，按创建时间排序
func (r *Repository) ListAll() ([]model.Collection, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	out := make([]model.Collection, 0, len(r.collections))
	for _, c := range r.collections {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// ListByUser 指定用户的全部藏品
func (r *Repository) ListByUser(userID int64) ([]model.Collection, error) {
	all, err := r.ListAll()
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

// Get 按ID查询藏品，不存在时返回nil
func (r *Repository) Get(id string) (*model.Collection, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	c, ok := r.collections[id]
	if !ok {
		return nil, nil
	}
	copied := *c
	return &copied, nil
}

// Save 保存新藏品
func (r *Repository) Save(collection *model.Collection) error {
	if err := collection.Validate(); err != nil {
		return err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if collection.ID == "" {
		collection.ID = uuid.New().String()
	}
	now := time.Now()
	collection.CreatedAt = now
	collection.UpdatedAt = now

	copied := *collection
	r.collections[collection.ID] = &copied

	return r.persistCollections()
}

// Update 更新已有藏品，创建时间保持不变
func (r *Repository) Update(collection *model.Collection) error {
	if err := collection.Validate(); err != nil {
		return err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	existing, ok := r.collections[collection.ID]
	if !ok {
		return fmt.Errorf("藏品 %s 不存在", collection.ID)
	}

	collection.CreatedAt = existing.CreatedAt
	collection.UpdatedAt = time.Now()

	copied := *collection
	r.collections[collection.ID] = &copied

	return r.persistCollections()
}

// Delete 删除藏品
func (r *Repository) Delete(id string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.collections[id]; !ok {
		return fmt.Errorf("藏品 %s 不存在", id)
	}
	delete(r.collections, id)

	return r.persistCollections()
}

// SaveAlert 记录一条已触发的提醒，历史超限时淘汰最旧的
func (r *Repository) SaveAlert(alert *model.PriceAlert) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}

	r.alerts = append(r.alerts, *alert)
	if len(r.alerts) > maxAlertHistory {
		r.alerts = r.alerts[len(r.alerts)-maxAlertHistory:]
	}

	return r.fs.Save("alert_history", r.alerts)
}

// GetAlertHistory 查询提醒历史，最新的在前
// userID 为0时返回全部用户的历史
func (r *Repository) GetAlertHistory(userID int64, limit int) ([]model.PriceAlert, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var out []model.PriceAlert
	for i := len(r.alerts) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if userID == 0 || r.alerts[i].UserID == userID {
			out = append(out, r.alerts[i])
		}
	}
	return out, nil
}

// persistCollections 落盘藏品数据，调用方需持有写锁
func (r *Repository) persistCollections() error {
	return r.fs.Save("collections", r.collections)
}
