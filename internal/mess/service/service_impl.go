package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/messledger/internal/clock"
	messdomain "github.com/smallbiznis/messledger/internal/mess/domain"
	"github.com/smallbiznis/messledger/internal/period"
	"github.com/smallbiznis/messledger/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  messdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  messdomain.Repository
}

func New(p Params) messdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("mess.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req messdomain.CreateRequest) (*messdomain.Mess, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, messdomain.ErrInvalidName
	}

	now := s.clock.Now().UTC()
	month := period.MonthOf(now)
	if raw := strings.TrimSpace(req.CurrentMonth); raw != "" {
		parsed, err := period.ParseMonth(raw)
		if err != nil {
			return nil, messdomain.ErrInvalidMonth
		}
		month = parsed
	}

	m := &messdomain.Mess{
		ID:           s.genID.Generate(),
		Name:         name,
		Slug:         slug.Make(name),
		CurrentMonth: month,
		Status:       messdomain.MessStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if m.Slug == "" {
		m.Slug = m.ID.String()
	}

	err := s.repo.Insert(ctx, s.db, m)
	if err != nil && db.IsDuplicateKeyErr(err) {
		// Same name as an existing mess; the id keeps the slug unique.
		m.Slug = m.Slug + "-" + m.ID.Base36()
		err = s.repo.Insert(ctx, s.db, m)
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("mess created",
		zap.String("mess_id", m.ID.String()),
		zap.String("slug", m.Slug),
		zap.String("current_month", m.CurrentMonth.String()),
	)
	return m, nil
}

func (s *Service) Get(ctx context.Context, id string) (*messdomain.Mess, error) {
	messID, err := parseMessID(id)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, messID)
}

func (s *Service) SetStatus(ctx context.Context, req messdomain.SetStatusRequest) (*messdomain.Mess, error) {
	messID, err := parseMessID(req.MessID)
	if err != nil {
		return nil, err
	}
	status := messdomain.MessStatus(strings.ToLower(strings.TrimSpace(string(req.Status))))
	switch status {
	case messdomain.MessStatusActive, messdomain.MessStatusSuspended:
	default:
		return nil, messdomain.ErrInvalidStatus
	}

	m, err := s.load(ctx, messID)
	if err != nil {
		return nil, err
	}
	if m.Status == status {
		return m, nil
	}

	m.Status = status
	m.UpdatedAt = s.clock.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, s.db, m); err != nil {
		return nil, err
	}
	s.log.Info("mess status changed",
		zap.String("mess_id", m.ID.String()),
		zap.String("status", string(status)),
	)
	return m, nil
}

func (s *Service) EnsureWritable(ctx context.Context, id snowflake.ID) (*messdomain.Mess, error) {
	m, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !m.Writable() {
		return nil, messdomain.ErrMessSuspended
	}
	return m, nil
}

func (s *Service) AddMember(ctx context.Context, req messdomain.AddMemberRequest) (*messdomain.Member, error) {
	messID, err := parseMessID(req.MessID)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, messdomain.ErrInvalidName
	}
	if _, err := s.EnsureWritable(ctx, messID); err != nil {
		return nil, err
	}

	member := &messdomain.Member{
		ID:        s.genID.Generate(),
		MessID:    messID,
		Name:      name,
		Active:    true,
		CreatedAt: s.clock.Now().UTC(),
	}
	if err := s.repo.InsertMember(ctx, s.db, member); err != nil {
		return nil, err
	}
	return member, nil
}

func (s *Service) ListMembers(ctx context.Context, messID string, activeOnly bool) ([]messdomain.Member, error) {
	id, err := parseMessID(messID)
	if err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	members, err := s.repo.ListMembers(ctx, s.db, id, activeOnly)
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []messdomain.Member{}
	}
	return members, nil
}

func (s *Service) DeactivateMember(ctx context.Context, messID, memberID string) (*messdomain.Member, error) {
	mid, err := parseMessID(messID)
	if err != nil {
		return nil, err
	}
	uid, err := messdomain.ParseID(strings.TrimSpace(memberID))
	if err != nil || uid == 0 {
		return nil, messdomain.ErrInvalidMember
	}

	member, err := s.repo.FindMember(ctx, s.db, mid, uid)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, messdomain.ErrMemberNotFound
	}
	if !member.Active {
		return member, nil
	}

	now := s.clock.Now().UTC()
	member.Active = false
	member.DeactivatedAt = &now
	if err := s.repo.DeactivateMember(ctx, s.db, member); err != nil {
		return nil, err
	}
	return member, nil
}

func (s *Service) EnsureMember(ctx context.Context, messID, memberID snowflake.ID) (*messdomain.Member, error) {
	if memberID == 0 {
		return nil, messdomain.ErrInvalidMember
	}
	member, err := s.repo.FindMember(ctx, s.db, messID, memberID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, messdomain.ErrMemberNotFound
	}
	return member, nil
}

func (s *Service) load(ctx context.Context, id snowflake.ID) (*messdomain.Mess, error) {
	m, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, messdomain.ErrMessNotFound
	}
	return m, nil
}

func parseMessID(value string) (snowflake.ID, error) {
	id, err := messdomain.ParseID(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, messdomain.ErrInvalidMess
	}
	return id, nil
}
