package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/deogratias228/espoir-medical-ecommerce/internal/cart/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartSnapshotModel 购物车快照表，每个会话一行
type CartSnapshotModel struct {
	SessionID string    `gorm:"column:session_id;type:varchar(36);primaryKey"`
	Payload   string    `gorm:"column:payload;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;index"`
}

func (CartSnapshotModel) TableName() string { return "cart_snapshots" }

type snapshotRepository struct{ db *gorm.DB }

// NewSnapshotRepository 创建基于 GORM 的快照仓储（MySQL / PostgreSQL）
func NewSnapshotRepository(db *gorm.DB) domain.SnapshotRepository {
	return &snapshotRepository{db: db}
}

// AutoMigrate 创建或更新快照表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&CartSnapshotModel{})
}

func (r *snapshotRepository) Load(ctx context.Context, sessionID string) ([]byte, error) {
	var m CartSnapshotModel
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load cart snapshot: %w", err)
	}
	return []byte(m.Payload), nil
}

func (r *snapshotRepository) Save(ctx context.Context, sessionID string, data []byte) error {
	m := CartSnapshotModel{SessionID: sessionID, Payload: string(data)}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("failed to save cart snapshot: %w", err)
	}
	return nil
}

func (r *snapshotRepository) Delete(ctx context.Context, sessionID string) error {
	if err := r.db.WithContext(ctx).Delete(&CartSnapshotModel{}, "session_id = ?", sessionID).Error; err != nil {
		return fmt.Errorf("failed to delete cart snapshot: %w", err)
	}
	return nil
}
