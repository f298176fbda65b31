// pkg/model/alert.go
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Direction 提醒方向
type Direction string

const (
	DirectionBuy  Direction = "buy"  // 最低价跌破买入阈值
	DirectionSell Direction = "sell" // 最高价突破卖出阈值
)

// AlertState 每个 (用户, 藏品, 方向) 的提醒状态
// Armed=true 表示待命，条件满足时触发一次并转为已触发；
// 条件消失后静默回到待命，避免同一条件连续刷屏
type AlertState struct {
	UserID       int64           `json:"user_id"`
	CollectionID string          `json:"collection_id"`
	Direction    Direction       `json:"direction"`
	Armed        bool            `json:"armed"`
	LastPrice    decimal.Decimal `json:"last_price"`
	LastFiredAt  *time.Time      `json:"last_fired_at,omitempty"`
	FireCount    int             `json:"fire_count"`
}

// StateKey 状态持久化键：user:collection:direction
func StateKey(userID int64, collectionID string, direction Direction) string {
	return fmt.Sprintf("%d:%s:%s", userID, collectionID, direction)
}

// PriceAlert 一次已触发的价格提醒事件
type PriceAlert struct {
	ID           string          `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       int64           `gorm:"not null;index" json:"user_id"`
	CollectionID string          `gorm:"type:uuid;index" json:"collection_id"`
	Direction    Direction       `gorm:"type:varchar(10);not null;index" json:"direction"`
	DisplayName  string          `json:"display_name"`
	GoodName     string          `gorm:"index" json:"good_name"`
	Threshold    decimal.Decimal `gorm:"type:decimal(20,9)" json:"threshold"`
	TriggerPrice decimal.Decimal `gorm:"type:decimal(20,9)" json:"trigger_price"`
	Markets      []Listing       `gorm:"serializer:json" json:"markets"`
	CreatedAt    time.Time       `gorm:"index" json:"created_at"`
}

func (a *PriceAlert) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

func (PriceAlert) TableName() string {
	return "price_alerts"
}
