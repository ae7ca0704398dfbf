package domain

import (
	"context"
	"errors"
)

type Service interface {
	RecordBazar(ctx context.Context, req RecordBazarRequest) (*BazarRecord, error)
	RecordDeposit(ctx context.Context, req RecordDepositRequest) (*DepositRecord, error)
	RecordAdditionalCost(ctx context.Context, req RecordAdditionalCostRequest) (*AdditionalCostRecord, error)

	ListBazar(ctx context.Context, req ListRequest) ([]BazarRecord, error)
	ListDeposits(ctx context.Context, req ListRequest) ([]DepositRecord, error)
	ListAdditionalCosts(ctx context.Context, req ListRequest) ([]AdditionalCostRecord, error)
}

type RecordBazarRequest struct {
	MessID      string `json:"-"`
	MemberID    string `json:"member_id,omitempty"`
	Date        string `json:"date"`
	Cost        string `json:"cost"`
	Description string `json:"description,omitempty"`
	ClientRef   string `json:"client_ref,omitempty"`
}

type RecordDepositRequest struct {
	MessID    string `json:"-"`
	MemberID  string `json:"member_id"`
	Date      string `json:"date"`
	Amount    string `json:"amount"`
	Note      string `json:"note,omitempty"`
	ClientRef string `json:"client_ref,omitempty"`
}

type RecordAdditionalCostRequest struct {
	MessID      string `json:"-"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	ClientRef   string `json:"client_ref,omitempty"`
}

type ListRequest struct {
	MessID string
	Month  string
}

var (
	ErrInvalidMess        = errors.New("invalid_mess")
	ErrInvalidMember      = errors.New("invalid_member")
	ErrInvalidDate        = errors.New("invalid_date")
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrNonPositiveAmount  = errors.New("non_positive_amount")
	ErrInvalidDescription = errors.New("invalid_description")
	ErrInvalidClientRef   = errors.New("invalid_client_ref")
	ErrInvalidMonth       = errors.New("invalid_month")
)
