package repository

import (
	"errors"

	"github.com/paybridge-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SourceTypeRepository 收款来源分类数据访问接口
type SourceTypeRepository interface {
	GetByCode(code string) (*models.SourceType, error)
	GetOrCreate(code, name string) (*models.SourceType, error)
	WithTx(tx *gorm.DB) *GormSourceTypeRepository
}

// GormSourceTypeRepository GORM 实现
type GormSourceTypeRepository struct {
	db *gorm.DB
}

// NewSourceTypeRepository 创建收款来源分类仓库
func NewSourceTypeRepository(db *gorm.DB) *GormSourceTypeRepository {
	return &GormSourceTypeRepository{db: db}
}

// WithTx 绑定事务
func (r *GormSourceTypeRepository) WithTx(tx *gorm.DB) *GormSourceTypeRepository {
	if tx == nil {
		return r
	}
	return &GormSourceTypeRepository{db: tx}
}

// GetByCode 根据编码获取分类
func (r *GormSourceTypeRepository) GetByCode(code string) (*models.SourceType, error) {
	var sourceType models.SourceType
	if err := r.db.Where("code = ?", code).First(&sourceType).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sourceType, nil
}

// GetOrCreate 按编码查找或创建分类；并发首次调用依赖唯一索引去重，
// 冲突时静默跳过插入并回读既有记录
func (r *GormSourceTypeRepository) GetOrCreate(code, name string) (*models.SourceType, error) {
	record := models.SourceType{Code: code, Name: name}
	if err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoNothing: true,
	}).Create(&record).Error; err != nil {
		return nil, err
	}

	var sourceType models.SourceType
	if err := r.db.Where("code = ?", code).First(&sourceType).Error; err != nil {
		return nil, err
	}
	return &sourceType, nil
}
