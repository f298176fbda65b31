// pkg/model/collection.go
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Collection 用户跟踪的藏品（贴纸包）
// buy_multiplier 和 sell_multiplier 各自独立配置，不要求 buy < sell
type Collection struct {
	ID             string          `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID    int64           `gorm:"not null;index" json:"owner_user_id"`
	DisplayName    string          `gorm:"not null" json:"display_name"`
	GoodName       string          `gorm:"not null;index" json:"good_name"`
	LaunchPrice    decimal.Decimal `gorm:"type:decimal(20,9);not null" json:"launch_price"`
	BuyMultiplier  decimal.Decimal `gorm:"type:decimal(10,4);not null" json:"buy_multiplier"`
	SellMultiplier decimal.Decimal `gorm:"type:decimal(10,4);not null" json:"sell_multiplier"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (c *Collection) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

func (Collection) TableName() string {
	return "collections"
}

// Validate 校验藏品配置是否合法
// 非法配置在监控周期中按 ConfigurationError 跳过，不中断其他藏品
func (c *Collection) Validate() error {
	if strings.TrimSpace(c.GoodName) == "" {
		return &ConfigurationError{CollectionID: c.ID, Field: "good_name", Reason: "商品名称不能为空"}
	}
	if !c.LaunchPrice.IsPositive() {
		return &ConfigurationError{CollectionID: c.ID, Field: "launch_price", Reason: "发行价必须大于0"}
	}
	if !c.BuyMultiplier.IsPositive() {
		return &ConfigurationError{CollectionID: c.ID, Field: "buy_multiplier", Reason: "买入系数必须大于0"}
	}
	if !c.SellMultiplier.IsPositive() {
		return &ConfigurationError{CollectionID: c.ID, Field: "sell_multiplier", Reason: "卖出系数必须大于0"}
	}
	return nil
}

// NormalizeGoodName 统一商品名称的匹配键（大小写不敏感）
func NormalizeGoodName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ConfigurationError 藏品配置错误
type ConfigurationError struct {
	CollectionID string
	Field        string
	Reason       string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("藏品 %s 配置错误: %s %s", e.CollectionID, e.Field, e.Reason)
}
