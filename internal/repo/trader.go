package repo

import (
	"context"

	"github.com/gaobi639-netizen/okx-monitor/internal/entity"
	"gorm.io/gorm"
)

type TraderRepo interface {
	Create(ctx context.Context, trader entity.Trader) error
	Delete(ctx context.Context, uniqueCode string) error
	FindByCode(ctx context.Context, uniqueCode string) (entity.Trader, error)
	FindAll(ctx context.Context) ([]entity.Trader, error)
	UpdateEnabled(ctx context.Context, uniqueCode string, enabled bool) error
	UpdateNickName(ctx context.Context, uniqueCode string, nickName string) error
}

type traderRepo struct {
	db *gorm.DB
}

func NewTraderRepo(db *gorm.DB) TraderRepo {
	return &traderRepo{
		db: db,
	}
}

func (r *traderRepo) Create(ctx context.Context, trader entity.Trader) error {
	return r.db.WithContext(ctx).Create(&trader).Error
}

func (r *traderRepo) Delete(ctx context.Context, uniqueCode string) error {
	return r.db.WithContext(ctx).Where("unique_code = ?", uniqueCode).Delete(&entity.Trader{}).Error
}

func (r *traderRepo) FindByCode(ctx context.Context, uniqueCode string) (entity.Trader, error) {
	var trader entity.Trader
	err := r.db.WithContext(ctx).Where("unique_code = ?", uniqueCode).First(&trader).Error
	if err != nil {
		return entity.Trader{}, err
	}
	return trader, nil
}

func (r *traderRepo) FindAll(ctx context.Context) ([]entity.Trader, error) {
	var traders []entity.Trader
	err := r.db.WithContext(ctx).Order("created_at").Find(&traders).Error
	if err != nil {
		return nil, err
	}
	return traders, nil
}

func (r *traderRepo) UpdateEnabled(ctx context.Context, uniqueCode string, enabled bool) error {
	return r.db.WithContext(ctx).Model(&entity.Trader{}).
		Where("unique_code = ?", uniqueCode).Update("enabled", enabled).Error
}

func (r *traderRepo) UpdateNickName(ctx context.Context, uniqueCode string, nickName string) error {
	return r.db.WithContext(ctx).Model(&entity.Trader{}).
		Where("unique_code = ?", uniqueCode).Update("nick_name", nickName).Error
}
