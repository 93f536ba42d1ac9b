package repository

import (
	"strings"
	"time"

	"ledgerpos/internal/dto"

	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// applyDocumentFilter narrows an invoices or supplies query by status and an
// inclusive date range. Unparseable dates are ignored; handlers validate them.
func applyDocumentFilter(q *gorm.DB, filter dto.DocumentFilter) *gorm.DB {
	if filter.Status != "" && filter.Status != "all" {
		q = q.Where("status = ?", filter.Status)
	}
	if from, err := time.Parse(dateLayout, filter.From); err == nil {
		q = q.Where("date >= ?", from)
	}
	if to, err := time.Parse(dateLayout, filter.To); err == nil {
		q = q.Where("date < ?", to.AddDate(0, 0, 1))
	}
	return q
}

// nameLike adds a case-insensitive substring match on name. LOWER + LIKE runs
// on both PostgreSQL and SQLite.
func nameLike(q *gorm.DB, name string) *gorm.DB {
	name = strings.TrimSpace(name)
	if name == "" {
		return q
	}
	return q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(name)+"%")
}

// applyCreatedRange narrows a payments query to an inclusive date range on
// created_at.
func applyCreatedRange(q *gorm.DB, from, to string) *gorm.DB {
	if f, err := time.Parse(dateLayout, from); err == nil {
		q = q.Where("created_at >= ?", f)
	}
	if t, err := time.Parse(dateLayout, to); err == nil {
		q = q.Where("created_at < ?", t.AddDate(0, 0, 1))
	}
	return q
}
