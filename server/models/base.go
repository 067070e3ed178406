package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

const (
	MAX_PAGE_SIZE = 100
	MIN_PAGE_SIZE = 10
)

type BaseModel struct {
	ID string `json:"id" validate:"required"`
}

type Paging struct {
	Total int64 `json:"total"`
	Page  int64 `json:"page"`
	Pages int64 `json:"pages"`
}

func NewID() string {
	return uuid.NewString()
}

// Paginate returns the requested page of items along with its paging info.
// Pages start at 1, page 0 is treated as the first page.
func Paginate[T any](items []T, page, pageSize int) ([]T, *Paging) {
	if page <= 0 {
		page = 1
	}

	switch {
	case pageSize > MAX_PAGE_SIZE:
		pageSize = MAX_PAGE_SIZE
	case pageSize <= 0:
		pageSize = MIN_PAGE_SIZE
	}

	paging := newPaging(int64(page), int64(pageSize), int64(len(items)))

	offset := (page - 1) * pageSize
	if offset >= len(items) {
		return []T{}, paging
	}

	end := offset + pageSize
	if end > len(items) {
		end = len(items)
	}

	return items[offset:end], paging
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func newPaging(page, pageSize, total int64) *Paging {
	paging := &Paging{Page: page, Total: total}

	paging.Pages = int64(math.Ceil(float64(paging.Total) / float64(pageSize)))
	if paging.Pages == 0 {
		paging.Pages = 1
	}

	return paging
}

func now() time.Time {
	return time.Now()
}
