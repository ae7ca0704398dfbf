// Package domain contains the daily meal counter model.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/messledger/internal/reconcile"
)

// MealRecord holds one member's meal counts for one day. There is at most
// one row per (member_id, meal_date); counters are never negative.
type MealRecord struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	MessID    snowflake.ID `json:"mess_id" gorm:"not null;index:ix_meal_records_mess_date,priority:1"`
	MemberID  snowflake.ID `json:"member_id" gorm:"not null;uniqueIndex:ux_meal_records_member_date,priority:1"`
	MealDate  time.Time    `json:"meal_date" gorm:"not null;uniqueIndex:ux_meal_records_member_date,priority:2;index:ix_meal_records_mess_date,priority:2"`
	Breakfast int          `json:"breakfast" gorm:"not null;default:0"`
	Lunch     int          `json:"lunch" gorm:"not null;default:0"`
	Dinner    int          `json:"dinner" gorm:"not null;default:0"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null"`
}

// TableName sets the database table name.
func (MealRecord) TableName() string { return "meal_records" }

func (r MealRecord) Total() int {
	return r.Breakfast + r.Lunch + r.Dinner
}

func (r MealRecord) Reconcile() reconcile.Meal {
	return reconcile.Meal{
		MemberID:  r.MemberID,
		Breakfast: r.Breakfast,
		Lunch:     r.Lunch,
		Dinner:    r.Dinner,
	}
}

type MealType string

const (
	MealTypeBreakfast MealType = "breakfast"
	MealTypeLunch     MealType = "lunch"
	MealTypeDinner    MealType = "dinner"
)

// mealColumns is the only source of column names interpolated into SQL.
var mealColumns = map[MealType]string{
	MealTypeBreakfast: "breakfast",
	MealTypeLunch:     "lunch",
	MealTypeDinner:    "dinner",
}

// Column returns the counter column for t.
func (t MealType) Column() (string, bool) {
	col, ok := mealColumns[t]
	return col, ok
}
