package database

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"StickerRadar/pkg/config"
	"StickerRadar/pkg/model"
)

// PostgresStore 基于Postgres的藏品和提醒历史存储
// 与文件存储实现同一套接口，由 storage.driver 配置选择
type PostgresStore struct {
	db *gorm.DB
}

// NewPostgresStore 连接数据库并自动迁移表结构
func NewPostgresStore(cfg *config.Config) (*PostgresStore, error) {
	pg := cfg.Storage.Postgres

	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		pg.Host, pg.Port, pg.User, pg.Password, pg.DBName, pg.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	// 连接池参数
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层连接失败: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := db.AutoMigrate(&model.Collection{}, &model.PriceAlert{}); err != nil {
		return nil, fmt.Errorf("迁移表结构失败: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Close 关闭数据库连接
func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ListAll 全部藏品，按创建时间排序
func (s *PostgresStore) ListAll() ([]model.Collection, error) {
	var collections []model.Collection
	if err := s.db.Order("created_at").Find(&collections).Error; err != nil {
		return nil, fmt.Errorf("查询藏品失败: %w", err)
	}
	return collections, nil
}

// ListByUser 指定用户的全部藏品
func (s *PostgresStore) ListByUser(userID int64) ([]model.Collection, error) {
	var collections []model.Collection
	if err := s.db.Where("owner_user_id = ?", userID).Order("created_at").Find(&collections).Error; err != nil {
		return nil, fmt.Errorf("查询用户藏品失败: %w", err)
	}
	return collections, nil
}

// Get 按ID查询藏品，不存在时返回nil
func (s *PostgresStore) Get(id string) (*model.Collection, error) {
	var collection model.Collection
	err := s.db.Where("id = ?", id).First(&collection).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询藏品失败: %w", err)
	}
	return &collection, nil
}

// Save 保存新藏品
func (s *PostgresStore) Save(collection *model.Collection) error {
	if err := collection.Validate(); err != nil {
		return err
	}
	if err := s.db.Create(collection).Error; err != nil {
		return fmt.Errorf("保存藏品失败: %w", err)
	}
	return nil
}

// Update 更新已有藏品
func (s *PostgresStore) Update(collection *model.Collection) error {
	if err := collection.Validate(); err != nil {
		return err
	}

	result := s.db.Model(&model.Collection{}).Where("id = ?", collection.ID).Updates(map[string]interface{}{
		"display_name":    collection.DisplayName,
		"good_name":       collection.GoodName,
		"launch_price":    collection.LaunchPrice,
		"buy_multiplier":  collection.BuyMultiplier,
		"sell_multiplier": collection.SellMultiplier,
		"updated_at":      time.Now(),
	})
	if result.Error != nil {
		return fmt.Errorf("更新藏品失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("藏品 %s 不存在", collection.ID)
	}
	return nil
}

// Delete 删除藏品
func (s *PostgresStore) Delete(id string) error {
	result := s.db.Where("id = ?", id).Delete(&model.Collection{})
	if result.Error != nil {
		return fmt.Errorf("删除藏品失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("藏品 %s 不存在", id)
	}
	return nil
}

// SaveAlert 保存一条已触发的提醒
func (s *PostgresStore) SaveAlert(alert *model.PriceAlert) error {
	if err := s.db.Create(alert).Error; err != nil {
		return fmt.Errorf("保存提醒历史失败: %w", err)
	}
	return nil
}

// GetAlertHistory 查询提醒历史，最新的在前
// userID 为0时返回全部用户的历史
func (s *PostgresStore) GetAlertHistory(userID int64, limit int) ([]model.PriceAlert, error) {
	query := s.db.Order("created_at desc")
	if userID != 0 {
		query = query.Where("user_id = ?", userID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var alerts []model.PriceAlert
	if err := query.Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("查询提醒历史失败: %w", err)
	}
	return alerts, nil
}
