// Package domain contains the create-once money records of a mess: grocery
// purchases, member deposits and shared additional costs.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/messledger/internal/reconcile"
)

type SourceType string

const (
	SourceTypeBazar          SourceType = "bazar"
	SourceTypeDeposit        SourceType = "deposit"
	SourceTypeAdditionalCost SourceType = "additional_cost"
)

// BazarRecord is one grocery purchase. MemberID is nil when the purchase was
// paid from the common fund.
type BazarRecord struct {
	ID           snowflake.ID    `json:"id" gorm:"primaryKey"`
	MessID       snowflake.ID    `json:"mess_id" gorm:"not null;index:ix_bazar_records_mess_date,priority:1;uniqueIndex:ux_bazar_records_client_ref,priority:1"`
	MemberID     *snowflake.ID   `json:"member_id,omitempty"`
	PurchaseDate time.Time       `json:"purchase_date" gorm:"not null;index:ix_bazar_records_mess_date,priority:2"`
	Cost         decimal.Decimal `json:"cost" gorm:"type:numeric(20,4);not null"`
	Description  string          `json:"description,omitempty" gorm:"type:text"`
	ClientRef    *string         `json:"client_ref,omitempty" gorm:"type:varchar(64);uniqueIndex:ux_bazar_records_client_ref,priority:2"`
	CreatedAt    time.Time       `json:"created_at" gorm:"not null"`
}

// TableName sets the database table name.
func (BazarRecord) TableName() string { return "bazar_records" }

func (r BazarRecord) Reconcile() reconcile.Bazar {
	b := reconcile.Bazar{Cost: r.Cost}
	if r.MemberID != nil {
		b.MemberID = *r.MemberID
	}
	return b
}

type DepositRecord struct {
	ID          snowflake.ID    `json:"id" gorm:"primaryKey"`
	MessID      snowflake.ID    `json:"mess_id" gorm:"not null;index:ix_deposit_records_mess_date,priority:1;uniqueIndex:ux_deposit_records_client_ref,priority:1"`
	MemberID    snowflake.ID    `json:"member_id" gorm:"not null;index"`
	DepositDate time.Time       `json:"deposit_date" gorm:"not null;index:ix_deposit_records_mess_date,priority:2"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:numeric(20,4);not null"`
	Note        string          `json:"note,omitempty" gorm:"type:text"`
	ClientRef   *string         `json:"client_ref,omitempty" gorm:"type:varchar(64);uniqueIndex:ux_deposit_records_client_ref,priority:2"`
	CreatedAt   time.Time       `json:"created_at" gorm:"not null"`
}

// TableName sets the database table name.
func (DepositRecord) TableName() string { return "deposit_records" }

func (r DepositRecord) Reconcile() reconcile.Deposit {
	return reconcile.Deposit{MemberID: r.MemberID, Amount: r.Amount}
}

// AdditionalCostRecord is a shared cost (rent share, gas, maid) split equally
// between active members.
type AdditionalCostRecord struct {
	ID          snowflake.ID    `json:"id" gorm:"primaryKey"`
	MessID      snowflake.ID    `json:"mess_id" gorm:"not null;index:ix_additional_cost_records_mess_date,priority:1;uniqueIndex:ux_additional_cost_records_client_ref,priority:1"`
	CostDate    time.Time       `json:"cost_date" gorm:"not null;index:ix_additional_cost_records_mess_date,priority:2"`
	Description string          `json:"description" gorm:"type:text;not null"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:numeric(20,4);not null"`
	ClientRef   *string         `json:"client_ref,omitempty" gorm:"type:varchar(64);uniqueIndex:ux_additional_cost_records_client_ref,priority:2"`
	CreatedAt   time.Time       `json:"created_at" gorm:"not null"`
}

// TableName sets the database table name.
func (AdditionalCostRecord) TableName() string { return "additional_cost_records" }

func (r AdditionalCostRecord) Reconcile() reconcile.AdditionalCost {
	return reconcile.AdditionalCost{Amount: r.Amount}
}
