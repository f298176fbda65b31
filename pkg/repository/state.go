package repository

import (
	"StickerRadar/pkg/model"
	"StickerRadar/pkg/store"
)

// StateStore 价格缓存与通知台账的文件持久化
// 藏品数据走 postgres 时监控状态仍然落在本地JSON文件
type StateStore struct {
	fs *store.FileStore
}

// NewStateStore 创建状态存储
func NewStateStore(fs *store.FileStore) *StateStore {
	return &StateStore{fs: fs}
}

// SaveCache 持久化价格缓存
func (s *StateStore) SaveCache(snapshots map[string]model.MarketSnapshot) error {
	return s.fs.Save("price_cache", snapshots)
}

// SaveLedger 持久化通知台账
func (s *StateStore) SaveLedger(states map[string]model.AlertState) error {
	return s.fs.Save("alert_states", states)
}

// LoadCache 加载持久化的价格缓存
func (s *StateStore) LoadCache() (map[string]model.MarketSnapshot, error) {
	var snapshots map[string]model.MarketSnapshot
	if _, err := s.fs.Load("price_cache", &snapshots); err != nil {
		return nil, err
	}
	if snapshots == nil {
		snapshots = make(map[string]model.MarketSnapshot)
	}
	return snapshots, nil
}

// LoadLedger 加载持久化的通知台账
func (s *StateStore) LoadLedger() (map[string]model.AlertState, error) {
	var states map[string]model.AlertState
	if _, err := s.fs.Load("alert_states", &states); err != nil {
		return nil, err
	}
	if states == nil {
		states = make(map[string]model.AlertState)
	}
	return states, nil
}
