package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/KNICEX/candle-sentry/internal/entity"
)

type SignalRepo interface {
	Create(ctx context.Context, record entity.SignalRecord) (int64, error)
	UpdateStatus(ctx context.Context, id int64, status int) error
	FindByStatus(ctx context.Context, status int) ([]entity.SignalRecord, error)
}

type signalRepo struct {
	db *gorm.DB
}

func NewSignalRepo(db *gorm.DB) SignalRepo {
	return &signalRepo{
		db: db,
	}
}

func (r *signalRepo) Create(ctx context.Context, record entity.SignalRecord) (int64, error) {
	err := r.db.WithContext(ctx).Create(&record).Error
	if err != nil {
		return 0, err
	}
	return record.Id, nil
}

func (r *signalRepo) UpdateStatus(ctx context.Context, id int64, status int) error {
	return r.db.WithContext(ctx).Model(&entity.SignalRecord{}).
		Where("id = ?", id).Update("status", status).Error
}

func (r *signalRepo) FindByStatus(ctx context.Context, status int) ([]entity.SignalRecord, error) {
	var records []entity.SignalRecord
	err := r.db.WithContext(ctx).Where("status = ?", status).Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
