package option

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// QueryOption customizes a repository query.
type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

type queryOptionFunc func(db *gorm.DB) *gorm.DB

func (f queryOptionFunc) Apply(db *gorm.DB) *gorm.DB {
	return f(db)
}

type Direction string

const (
	ASC  Direction = "ASC"
	DESC Direction = "DESC"
)

// ApplyOrder orders by a single column. Column names come from code, never from input.
func ApplyOrder(column string, direction Direction) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		dir := ASC
		if strings.EqualFold(string(direction), string(DESC)) {
			dir = DESC
		}
		return db.Order(fmt.Sprintf("%s %s", column, dir))
	})
}

func WithLimit(limit int) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return db
		}
		return db.Limit(limit)
	})
}

// WithWhere adds an arbitrary condition, e.g. a date range.
func WithWhere(query string, args ...any) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		return db.Where(query, args...)
	})
}

// WithAfterID is a keyset cursor on snowflake ids.
func WithAfterID(id int64) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if id <= 0 {
			return db
		}
		return db.Where("id > ?", id)
	})
}
