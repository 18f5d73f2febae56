package service

import (
	"strings"

	"github.com/paybridge-next/internal/constants"
)

// StatusMap 网关状态到项目状态的映射与行项目级联表；
// 纯查表，无副作用
type StatusMap struct {
	mapping map[string]string
	cascade map[string]string
}

// NewStatusMap 创建状态映射；键与值在构建时做一次规整
func NewStatusMap(mapping, cascade map[string]string) *StatusMap {
	normalizedMapping := make(map[string]string, len(mapping))
	for k, v := range mapping {
		key := strings.TrimSpace(k)
		value := strings.TrimSpace(v)
		if key == "" || value == "" {
			continue
		}
		normalizedMapping[key] = value
	}
	normalizedCascade := make(map[string]string, len(cascade))
	for k, v := range cascade {
		key := strings.TrimSpace(k)
		value := strings.TrimSpace(v)
		if key == "" || value == "" {
			continue
		}
		normalizedCascade[key] = value
	}
	return &StatusMap{
		mapping: normalizedMapping,
		cascade: normalizedCascade,
	}
}

// MapStatus 将网关状态映射为项目状态；
// 未配置的状态原样透传，避免网关新增状态时阻塞对账
func (m *StatusMap) MapStatus(externalStatus string) string {
	status := strings.TrimSpace(externalStatus)
	if mapped, ok := m.mapping[status]; ok {
		return mapped
	}
	return status
}

// CascadeFor 查询项目状态对应的行项目级联状态；
// 未配置表示不级联
func (m *StatusMap) CascadeFor(projectStatus string) (string, bool) {
	itemStatus, ok := m.cascade[strings.TrimSpace(projectStatus)]
	return itemStatus, ok
}

// statusRank 项目状态的大致推进顺序，仅用于回退诊断日志
var statusRank = map[string]int{
	constants.OrderStatusNew:          0,
	constants.OrderStatusInProgress:   1,
	constants.OrderStatusPending:      2,
	constants.OrderStatusPaid:         3,
	constants.OrderStatusCancelled:    3,
	constants.OrderStatusExpired:      3,
	constants.OrderStatusPaidRefunded: 4,
	constants.OrderStatusRefunded:     4,
	constants.OrderStatusChargedBack:  4,
}

// isStatusRegression 判断目标状态是否明显早于当前状态；
// 仅作诊断，引擎仍按到达顺序应用
func isStatusRegression(current, target string) bool {
	currentRank, ok := statusRank[current]
	if !ok {
		return false
	}
	targetRank, ok := statusRank[target]
	if !ok {
		return false
	}
	return targetRank < currentRank
}
