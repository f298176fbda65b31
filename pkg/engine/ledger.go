// pkg/engine/ledger.go
package engine

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"StickerRadar/pkg/model"
)

// NotificationLedger 通知台账
// 每个 (用户, 藏品, 方向) 维护一个两状态机：
//
//	待命(Armed):   条件满足 -> 已触发，返回true（发送通知）；条件不满足 -> 保持待命
//	已触发(Fired): 条件不满足 -> 静默回到待命；条件满足 -> 保持已触发，返回false（抑制重复）
//
// 保证条件连续成立的一段周期内只在第一个周期发出一次通知，
// 条件至少消失一个周期后才可能再次发出
type NotificationLedger struct {
	states map[string]*model.AlertState
	mutex  sync.RWMutex
}

// NewNotificationLedger 创建空台账
func NewNotificationLedger() *NotificationLedger {
	return &NotificationLedger{
		states: make(map[string]*model.AlertState),
	}
}

// ShouldFire 判断本周期是否应该发出通知，并完成状态转移
// 状态在首次评估时懒创建，初始为待命
func (l *NotificationLedger) ShouldFire(userID int64, collectionID string, direction model.Direction, triggered bool, currentPrice decimal.Decimal) bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	key := model.StateKey(userID, collectionID, direction)
	state, ok := l.states[key]
	if !ok {
		state = &model.AlertState{
			UserID:       userID,
			CollectionID: collectionID,
			Direction:    direction,
			Armed:        true,
		}
		l.states[key] = state
	}

	if state.Armed {
		if !triggered {
			return false
		}
		// 待命 -> 已触发，发出通知
		now := time.Now()
		state.Armed = false
		state.LastPrice = currentPrice
		state.LastFiredAt = &now
		state.FireCount++
		return true
	}

	if !triggered {
		// 条件已消失，静默回到待命
		state.Armed = true
	}
	return false
}

// State 读取指定方向的当前状态
func (l *NotificationLedger) State(userID int64, collectionID string, direction model.Direction) (model.AlertState, bool) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	state, ok := l.states[model.StateKey(userID, collectionID, direction)]
	if !ok {
		return model.AlertState{}, false
	}
	return *state, true
}

// ResetCollection 藏品被编辑后重置两个方向的状态为待命
// 发行价或系数变化意味着触发语义变了，旧的抑制状态不再有效
func (l *NotificationLedger) ResetCollection(userID int64, collectionID string) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	for _, direction := range []model.Direction{model.DirectionBuy, model.DirectionSell} {
		if state, ok := l.states[model.StateKey(userID, collectionID, direction)]; ok {
			state.Armed = true
		}
	}
}

// RemoveCollection 藏品删除时清理对应状态
func (l *NotificationLedger) RemoveCollection(userID int64, collectionID string) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	for _, direction := range []model.Direction{model.DirectionBuy, model.DirectionSell} {
		delete(l.states, model.StateKey(userID, collectionID, direction))
	}
}

// Export 导出全部状态用于持久化
func (l *NotificationLedger) Export() map[string]model.AlertState {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	out := make(map[string]model.AlertState, len(l.states))
	for key, state := range l.states {
		out[key] = *state
	}
	return out
}

// Restore 从持久化数据恢复台账
func (l *NotificationLedger) Restore(states map[string]model.AlertState) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.states = make(map[string]*model.AlertState, len(states))
	for key, state := range states {
		s := state
		l.states[key] = &s
	}
}
