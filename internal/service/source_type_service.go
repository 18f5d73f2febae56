package service

import (
	"github.com/paybridge-next/internal/constants"
	"github.com/paybridge-next/internal/logger"
	"github.com/paybridge-next/internal/models"
	"github.com/paybridge-next/internal/repository"
)

// SourceTypeService 收款来源分类解析
type SourceTypeService struct {
	sourceTypeRepo repository.SourceTypeRepository
}

// NewSourceTypeService 创建收款来源分类服务
func NewSourceTypeService(sourceTypeRepo repository.SourceTypeRepository) *SourceTypeService {
	return &SourceTypeService{sourceTypeRepo: sourceTypeRepo}
}

// Resolve 解析规范的收款来源分类；首次调用创建固定记录，
// 并发创建依赖唯一索引保证最终只有一条
func (s *SourceTypeService) Resolve() (*models.SourceType, error) {
	sourceType, err := s.sourceTypeRepo.GetOrCreate(constants.SourceTypeCode, constants.SourceTypeName)
	if err != nil {
		logger.Errorw("source_type_resolve_failed",
			"code", constants.SourceTypeCode,
			"error", err,
		)
		return nil, ErrSourceTypeResolve
	}
	return sourceType, nil
}
