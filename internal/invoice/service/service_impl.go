package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	authdomain "github.com/nutrikit/nutrikit/internal/auth/domain"
	clientdomain "github.com/nutrikit/nutrikit/internal/client/domain"
	"github.com/nutrikit/nutrikit/internal/clock"
	"github.com/nutrikit/nutrikit/internal/config"
	"github.com/nutrikit/nutrikit/internal/invoice/domain"
	"github.com/nutrikit/nutrikit/internal/observability/metrics"
	plandomain "github.com/nutrikit/nutrikit/internal/plan/domain"
	"github.com/nutrikit/nutrikit/internal/providers/email"
	subdomain "github.com/nutrikit/nutrikit/internal/subscription/domain"
	"github.com/nutrikit/nutrikit/internal/upi"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	GenID   *snowflake.Node
	Config  *config.Config
	Subs    subdomain.Service
	Clients clientdomain.Service
	Email   email.Provider       `optional:"true"`
	Metrics *metrics.Metrics     `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	genID   *snowflake.Node
	cfg     *config.Config
	subs    subdomain.Service
	clients clientdomain.Service
	email   email.Provider
	metrics *metrics.Metrics
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("invoice.service"),
		clock:   p.Clock,
		genID:   p.GenID,
		cfg:     p.Config,
		subs:    p.Subs,
		clients: p.Clients,
		email:   p.Email,
		metrics: p.Metrics,
	}
}

// billingInputs is the recomputed state written into a due invoice.
type billingInputs struct {
	amount       int64
	clientCount  int64
	planID       *snowflake.ID
	pricingModel string
}

func (s *Service) GetOrCreate(ctx context.Context, coachID snowflake.ID) (domain.Invoice, error) {
	period := s.clock.Now().UTC().Format("2006-01")

	inputs, err := s.computeInputs(ctx, coachID)
	if err != nil {
		return domain.Invoice{}, err
	}

	var existing domain.Invoice
	err = s.db.WithContext(ctx).First(&existing, "coach_id = ? AND period = ?", coachID, period).Error
	switch {
	case err == nil:
		return s.refresh(ctx, existing, inputs)
	case errors.Is(err, gorm.ErrRecordNotFound):
		// fall through to insert
	default:
		return domain.Invoice{}, err
	}

	now := s.clock.Now().UTC()
	inv := domain.Invoice{
		ID:          s.genID.Generate(),
		CoachID:     coachID,
		Period:      period,
		Reference:   newReference(period, coachID),
		Amount:      inputs.amount,
		ClientCount: inputs.clientCount,
		PlanID:      inputs.planID,
		Status:      domain.StatusDue,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// The unique index on (coach_id, period) is the source of truth.
	// A concurrent request may have inserted first; in that case the
	// insert is a no-op and we converge on the surviving row.
	res := s.db.WithContext(ctx).Exec(`
		INSERT INTO invoices (id, coach_id, period, reference, amount, client_count, plan_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (coach_id, period) DO NOTHING
	`, inv.ID, inv.CoachID, inv.Period, inv.Reference, inv.Amount, inv.ClientCount, inv.PlanID, inv.Status, inv.CreatedAt, inv.UpdatedAt)
	if res.Error != nil {
		return domain.Invoice{}, res.Error
	}
	if res.RowsAffected == 0 {
		if err := s.db.WithContext(ctx).First(&existing, "coach_id = ? AND period = ?", coachID, period).Error; err != nil {
			return domain.Invoice{}, err
		}
		return s.refresh(ctx, existing, inputs)
	}

	if s.metrics != nil {
		s.metrics.RecordInvoiceCreated(inputs.pricingModel)
	}
	s.log.Info("invoice created",
		zap.String("coach_id", coachID.String()),
		zap.String("period", period),
		zap.String("reference", inv.Reference),
		zap.Int64("amount", inv.Amount),
	)
	s.notifyCreated(ctx, inv)
	return inv, nil
}

// notifyCreated emails the coach about a freshly opened invoice. Delivery
// is best effort; a failed send never fails the billing call.
func (s *Service) notifyCreated(ctx context.Context, inv domain.Invoice) {
	if s.email == nil {
		return
	}

	var coach authdomain.User
	if err := s.db.WithContext(ctx).First(&coach, "id = ?", inv.CoachID).Error; err != nil {
		s.log.Warn("invoice notification skipped",
			zap.String("reference", inv.Reference),
			zap.Error(err),
		)
		return
	}

	subject := fmt.Sprintf("Invoice %s for %s", inv.Reference, inv.Period)
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>Your invoice <strong>%s</strong> for %s is ready. Amount due: %s.</p>",
		coach.DisplayName, inv.Reference, inv.Period, upi.FormatAmount(inv.Amount),
	)
	if err := s.email.Send(ctx, []string{coach.Email}, subject, body); err != nil {
		s.log.Warn("invoice notification failed",
			zap.String("reference", inv.Reference),
			zap.Error(err),
		)
	}
}

// refresh overwrites amount, plan reference and client snapshot on a due
// invoice. Settled invoices are returned untouched.
func (s *Service) refresh(ctx context.Context, inv domain.Invoice, inputs billingInputs) (domain.Invoice, error) {
	if inv.Settled() {
		return inv, nil
	}

	now := s.clock.Now().UTC()
	err := s.db.WithContext(ctx).Exec(`
		UPDATE invoices
		SET amount = ?, client_count = ?, plan_id = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, inputs.amount, inputs.clientCount, inputs.planID, now, inv.ID, domain.StatusDue).Error
	if err != nil {
		return domain.Invoice{}, err
	}

	inv.Amount = inputs.amount
	inv.ClientCount = inputs.clientCount
	inv.PlanID = inputs.planID
	inv.UpdatedAt = now
	return inv, nil
}

func (s *Service) computeInputs(ctx context.Context, coachID snowflake.ID) (billingInputs, error) {
	count, err := s.clients.CountActive(ctx, coachID)
	if err != nil {
		return billingInputs{}, err
	}

	resolved, err := s.subs.Resolve(ctx, coachID)
	if err != nil {
		if errors.Is(err, subdomain.ErrNoSubscription) {
			return billingInputs{
				amount:       count * s.cfg.DefaultPerClientRate,
				clientCount:  count,
				pricingModel: "default",
			}, nil
		}
		return billingInputs{}, err
	}

	amount := resolved.Plan.Price
	if resolved.Plan.PricingModel == plandomain.PricingPerSeat {
		amount = resolved.Plan.Price * count
	}
	planID := resolved.Plan.ID
	return billingInputs{
		amount:       amount,
		clientCount:  count,
		planID:       &planID,
		pricingModel: string(resolved.Plan.PricingModel),
	}, nil
}

func (s *Service) Verify(ctx context.Context, invoiceID snowflake.ID) (domain.Invoice, error) {
	var inv domain.Invoice
	err := s.db.WithContext(ctx).First(&inv, "id = ?", invoiceID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Invoice{}, domain.ErrNotFound
		}
		return domain.Invoice{}, err
	}

	now := s.clock.Now().UTC()
	err = s.db.WithContext(ctx).Exec(`
		UPDATE invoices SET status = ?, updated_at = ? WHERE id = ?
	`, domain.StatusPaid, now, inv.ID).Error
	if err != nil {
		return domain.Invoice{}, err
	}

	inv.Status = domain.StatusPaid
	inv.UpdatedAt = now
	s.log.Info("invoice verified", zap.String("reference", inv.Reference))
	return inv, nil
}

func (s *Service) ListOpen(ctx context.Context) ([]domain.Invoice, error) {
	var invoices []domain.Invoice
	err := s.db.WithContext(ctx).
		Where("status IN ?", []domain.Status{domain.StatusDue, domain.StatusSubmitted}).
		Order("period DESC, coach_id ASC").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func newReference(period string, coachID snowflake.ID) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("INV-%s-%s-%s", strings.ReplaceAll(period, "-", ""), coachID.String(), suffix)
}
