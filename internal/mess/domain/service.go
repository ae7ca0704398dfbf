package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Mess, error)
	Get(ctx context.Context, id string) (*Mess, error)
	SetStatus(ctx context.Context, req SetStatusRequest) (*Mess, error)
	// EnsureWritable returns the mess when it exists and accepts writes.
	EnsureWritable(ctx context.Context, id snowflake.ID) (*Mess, error)

	AddMember(ctx context.Context, req AddMemberRequest) (*Member, error)
	ListMembers(ctx context.Context, messID string, activeOnly bool) ([]Member, error)
	DeactivateMember(ctx context.Context, messID, memberID string) (*Member, error)
	// EnsureMember returns the member when it belongs to the mess.
	EnsureMember(ctx context.Context, messID, memberID snowflake.ID) (*Member, error)
}

type CreateRequest struct {
	Name string `json:"name"`
	// CurrentMonth defaults to the month containing now.
	CurrentMonth string `json:"current_month,omitempty"`
}

type SetStatusRequest struct {
	MessID string     `json:"-"`
	Status MessStatus `json:"status"`
}

type AddMemberRequest struct {
	MessID string `json:"-"`
	Name   string `json:"name"`
}

var (
	ErrInvalidMess    = errors.New("invalid_mess")
	ErrInvalidMember  = errors.New("invalid_member")
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidStatus  = errors.New("invalid_status")
	ErrInvalidMonth   = errors.New("invalid_month")
	ErrMessNotFound   = errors.New("mess_not_found")
	ErrMemberNotFound = errors.New("member_not_found")
	ErrMessSuspended  = errors.New("mess_suspended")
	ErrMemberInactive = errors.New("member_inactive")
)

func ParseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(value)
}
