// Package authorization gates operations behind role-based policies
// persisted in the store.
package authorization

import (
	"context"
	_ "embed"
	"errors"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	authdomain "github.com/nutrikit/nutrikit/internal/auth/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectSettings = "settings"
	ObjectPlan     = "plan"
	ObjectInvoice  = "invoice"
	ObjectInvite   = "invite"
	ObjectAuditLog = "audit_log"
)

const (
	ActionSettingsView   = "settings.view"
	ActionSettingsUpdate = "settings.update"

	ActionPlanCreate = "plan.create"

	ActionInvoiceListAll = "invoice.list_all"
	ActionInvoiceVerify  = "invoice.verify"

	ActionInviteCreate = "invite.create"

	ActionAuditLogView = "audit_log.view"
)

var (
	ErrInvalidActor = errors.New("invalid_actor")
	ErrForbidden    = errors.New("forbidden")
)

type Service interface {
	Authorize(ctx context.Context, identity authdomain.Identity, object, action string) error
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, identity authdomain.Identity, object, action string) error {
	if identity.UserID == 0 {
		return ErrInvalidActor
	}
	for _, role := range identity.Roles {
		subject := "role:" + strings.ToLower(role)
		allowed, err := s.enforcer.Enforce(subject, object, action)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}
	}

	s.log.Debug("authorization denied",
		zap.String("user_id", identity.UserID.String()),
		zap.String("object", object),
		zap.String("action", action),
	)
	return ErrForbidden
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		{"role:coach", ObjectSettings, ActionSettingsView},
		{"role:coach", ObjectInvite, ActionInviteCreate},

		{"role:admin", ObjectSettings, ActionSettingsView},
		{"role:admin", ObjectSettings, ActionSettingsUpdate},
		{"role:admin", ObjectPlan, ActionPlanCreate},
		{"role:admin", ObjectInvoice, ActionInvoiceListAll},
		{"role:admin", ObjectInvoice, ActionInvoiceVerify},
		{"role:admin", ObjectInvite, ActionInviteCreate},
		{"role:admin", ObjectAuditLog, ActionAuditLogView},
	}
	for _, p := range policies {
		has, err := enforcer.HasPolicy(p[0], p[1], p[2])
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(p[0], p[1], p[2]); err != nil {
			return err
		}
	}
	return nil
}

var Module = fx.Module("authorization.service",
	fx.Provide(NewEnforcer),
	fx.Provide(NewService),
)
