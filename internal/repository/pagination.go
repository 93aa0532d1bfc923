package repository

import (
	"time"

	"gorm.io/gorm"
)

const maxPageSize = 200

// applyPagination 应用分页参数，统一处理非法页码与偏移量。
func applyPagination(query *gorm.DB, page, pageSize int) *gorm.DB {
	if query == nil || pageSize <= 0 {
		return query
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize
	if offset < 0 {
		offset = 0
	}
	return query.Limit(pageSize).Offset(offset)
}

// utc 查询参数统一转换为 UTC，与存储格式保持一致
func utc(t time.Time) time.Time {
	return t.UTC()
}
