package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	plandomain "github.com/nutrikit/nutrikit/internal/plan/domain"
	"github.com/nutrikit/nutrikit/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

func NewService(p ServiceParam) plandomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("plan.service"),
		genID: p.GenID,
	}
}

func (s *Service) List(ctx context.Context) ([]plandomain.Plan, error) {
	var plans []plandomain.Plan
	err := s.db.WithContext(ctx).
		Where("active = ?", true).
		Order("price ASC").
		Find(&plans).Error
	if err != nil {
		return nil, err
	}
	return plans, nil
}

func (s *Service) GetByCode(ctx context.Context, code string) (plandomain.Plan, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return plandomain.Plan{}, plandomain.ErrNotFound
	}

	var plan plandomain.Plan
	err := s.db.WithContext(ctx).First(&plan, "code = ? AND active = ?", code, true).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return plandomain.Plan{}, plandomain.ErrNotFound
		}
		return plandomain.Plan{}, err
	}
	return plan, nil
}

func (s *Service) Create(ctx context.Context, req plandomain.CreatePlanRequest) (plandomain.Plan, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return plandomain.Plan{}, plandomain.ErrInvalidName
	}
	if req.Price <= 0 {
		return plandomain.Plan{}, plandomain.ErrInvalidPrice
	}
	switch req.PricingModel {
	case plandomain.PricingFlat, plandomain.PricingPerSeat:
	default:
		return plandomain.Plan{}, plandomain.ErrInvalidPricingModel
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		code = name
	}
	code = slug.Make(code)

	plan := plandomain.Plan{
		ID:            s.genID.Generate(),
		Code:          code,
		Name:          name,
		Price:         req.Price,
		PricingModel:  req.PricingModel,
		BillingPeriod: plandomain.BillingMonthly,
		Active:        true,
	}
	if err := s.db.WithContext(ctx).Create(&plan).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return plandomain.Plan{}, plandomain.ErrCodeTaken
		}
		return plandomain.Plan{}, err
	}
	return plan, nil
}
