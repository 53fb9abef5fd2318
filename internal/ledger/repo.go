package ledger

import (
	"context"

	"github.com/angelmondragon/catalogbrowser/pkg/db/models"
	"gorm.io/gorm"
)

// Repository manages persistence for purchases.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, purchase *models.Purchase) error
	LastSequence(ctx context.Context, sessionID string) (int, error)
	ListBySession(ctx context.Context, sessionID string) ([]models.Purchase, error)
	ListPageBySession(ctx context.Context, sessionID string, afterSequence, limit int) ([]models.Purchase, error)
	CountBySession(ctx context.Context, sessionID string) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the purchase together with its lines.
func (r *repository) Create(ctx context.Context, purchase *models.Purchase) error {
	return r.db.WithContext(ctx).Create(purchase).Error
}

func (r *repository) LastSequence(ctx context.Context, sessionID string) (int, error) {
	var last int
	if err := r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Where("session_id = ?", sessionID).
		Select("COALESCE(MAX(sequence), 0)").
		Scan(&last).Error; err != nil {
		return 0, err
	}
	return last, nil
}

func (r *repository) ListBySession(ctx context.Context, sessionID string) ([]models.Purchase, error) {
	var purchases []models.Purchase
	if err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("session_id = ?", sessionID).
		Order("sequence ASC").
		Find(&purchases).Error; err != nil {
		return nil, err
	}
	return purchases, nil
}

// ListPageBySession returns up to limit purchases with a sequence above afterSequence.
func (r *repository) ListPageBySession(ctx context.Context, sessionID string, afterSequence, limit int) ([]models.Purchase, error) {
	var purchases []models.Purchase
	if err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("session_id = ? AND sequence > ?", sessionID, afterSequence).
		Order("sequence ASC").
		Limit(limit).
		Find(&purchases).Error; err != nil {
		return nil, err
	}
	return purchases, nil
}

func (r *repository) CountBySession(ctx context.Context, sessionID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
